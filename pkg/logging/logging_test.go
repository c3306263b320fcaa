// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken")
}

type lockedBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
	block chan struct{}
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	if b.block != nil {
		<-b.block
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.String()
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a, failingWriter{}, &b)
	n, err := w.Write([]byte("hello"))
	assert.Equal(t, 5, n)
	assert.EqualError(t, err, "broken")
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", b.String())
}

func TestQueuedWriter(t *testing.T) {
	dest := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueuedWriter(ctx, dest, 4)

	buf := []byte("one\n")
	_, err := q.Write(buf)
	require.NoError(t, err)
	copy(buf, "xxx\n")
	_, err = q.Write([]byte("two\n"))
	require.NoError(t, err)

	cancel()
	<-q.Done()
	assert.Equal(t, "one\ntwo\n", dest.String())
	assert.Equal(t, uint64(0), q.Dropped())
}

func TestQueuedWriterDropsOldest(t *testing.T) {
	dest := &lockedBuffer{block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueuedWriter(ctx, dest, 2)

	// The first message is taken by the writer goroutine, which then
	// blocks on the destination.
	q.Write([]byte("0"))
	require.Eventually(t, func() bool { return len(q.queue) == 0 }, time.Second, time.Millisecond)
	for _, m := range []string{"1", "2", "3", "4"} {
		q.Write([]byte(m))
	}
	assert.Equal(t, uint64(2), q.Dropped())
	cancel()
	close(dest.block)
	<-q.Done()
	assert.Equal(t, "034", dest.String())
}

func TestNewLogger(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "server.log")
	ctx, cancel := context.WithCancel(context.Background())
	log, closer, err := NewLogger(ctx, Options{Level: "info", Console: &console, FilePath: path})
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("bus", "I2C1:0").Msg("visible")
	cancel()
	closer()

	assert.Contains(t, console.String(), "visible")
	assert.NotContains(t, console.String(), "hidden")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"bus":"I2C1:0"`)
	assert.Contains(t, lines[0], `"level":"info"`)

	_, _, err = NewLogger(context.Background(), Options{Level: "loud"})
	assert.Error(t, err)
}

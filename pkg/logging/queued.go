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
	"context"
	"io"
	"sync"
	"sync/atomic"
)

const (
	defaultQueueSize = 512
)

// QueuedWriter is an io.Writer that never blocks. Messages are written
// to the destination by a background goroutine. When the queue is full
// the oldest message is dropped.
type QueuedWriter struct {
	queue   chan []byte
	dest    io.Writer
	dropped uint64
	done    chan struct{}
	once    sync.Once
}

// NewQueuedWriter creates a queued writer for the given destination.
// Remaining messages are flushed and the writer stops when the given
// context is canceled.
func NewQueuedWriter(ctx context.Context, dest io.Writer, queueSize int) *QueuedWriter {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	l := &QueuedWriter{
		queue: make(chan []byte, queueSize),
		dest:  dest,
		done:  make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

// Write implements io.Writer.
func (l *QueuedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// The caller may reuse p.
	msg := append([]byte(nil), p...)
	for attempt := 0; attempt < 10; attempt++ {
		select {
		case l.queue <- msg:
			return len(p), nil
		default:
			// Queue full; take 1 out and try again
			select {
			case <-l.queue:
				atomic.AddUint64(&l.dropped, 1)
			default:
			}
		}
	}
	atomic.AddUint64(&l.dropped, 1)
	return len(p), nil
}

// Dropped returns the number of messages dropped because the queue was full.
func (l *QueuedWriter) Dropped() uint64 {
	return atomic.LoadUint64(&l.dropped)
}

// Done is closed once all messages have been written after the
// context was canceled.
func (l *QueuedWriter) Done() <-chan struct{} {
	return l.done
}

func (l *QueuedWriter) run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case msg := <-l.queue:
			l.dest.Write(msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-l.queue:
					l.dest.Write(msg)
				default:
					return
				}
			}
		}
	}
}

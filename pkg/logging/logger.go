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
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options for NewLogger.
type Options struct {
	// Level of messages to log (debug|info|warn|error).
	Level string
	// Console output, human readable. Defaults to stderr.
	Console io.Writer
	// Path of a file to append JSON log lines to. Optional.
	FilePath string
}

// NewLogger creates the process wide logger. The returned function
// waits until all queued file output is written; call it after the
// given context is canceled.
func NewLogger(ctx context.Context, opts Options) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Logger{}, nil, errors.Wrapf(err, "invalid log level '%s'", opts.Level)
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console}}
	closer := func() {}
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, nil, errors.Wrap(err, "open log file failed")
		}
		q := NewQueuedWriter(ctx, f, 0)
		writers = append(writers, q)
		closer = func() {
			<-q.Done()
			f.Close()
		}
	}
	logger := zerolog.New(NewMultiWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return logger, closer, nil
}

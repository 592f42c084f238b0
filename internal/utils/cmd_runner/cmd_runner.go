// Copyright 2023 Greenmask
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

package cmd_runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultStderrTailLines = 20

// waitDelay - how long Wait waits for the output pipes after the process is killed. Children left by the tool may
// keep them open
const waitDelay = 5 * time.Second

// Options - optional settings of the external command execution
type Options struct {
	// Dir - working directory of the process. Empty means the current one
	Dir string
	// Stdin - data written to the process standard input. When nil stdin is /dev/null
	Stdin io.Reader
	// Env - additional environment variables in KEY=VALUE form appended to os.Environ()
	Env []string
	// StderrTail - amount of last stderr lines kept for the diagnostic message
	StderrTail int
}

// ExitError - the command was started but exited abnormally
type ExitError struct {
	Name     string
	ExitCode int
	// Stderr - the last lines written by the process to stderr
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("external command %s exited with code %d: %v", e.Name, e.ExitCode, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func Run(ctx context.Context, logger *zerolog.Logger, name string, args ...string) error {
	return RunWithOptions(ctx, logger, nil, name, args...)
}

// RunWithOptions - runs the command and blocks until it completes. Stdout and stderr are forwarded line by
// line into the logger. A non-zero exit status is returned as *ExitError
func RunWithOptions(ctx context.Context, logger *zerolog.Logger, opts *Options, name string, args ...string) error {
	if opts == nil {
		opts = &Options{}
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = waitDelay
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	tailSize := opts.StderrTail
	if tailSize <= 0 {
		tailSize = defaultStderrTailLines
	}
	tail := newLineTail(tailSize)

	errReader, errWriter := io.Pipe()
	defer errReader.Close()
	outReader, outWriter := io.Pipe()
	defer outReader.Close()

	cmd.Stderr = errWriter
	cmd.Stdout = outWriter
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("external command runtime error: %w", err)
	}

	// Forwarders read until EOF even when ctx is cancelled. The pipes are closed once the killed process is waited
	eg := &errgroup.Group{}

	// stderr reader
	eg.Go(func() error {
		return forwardLines(errReader, func(line string) {
			tail.add(line)
			logger.Info().Str("Executable", name).Str("Stderr", line).Msg("stderr forwarding")
		})
	})

	// stdout reader
	eg.Go(func() error {
		return forwardLines(outReader, func(line string) {
			logger.Info().Str("Executable", name).Str("Stdout", line).Msg("stdout forwarding")
		})
	})

	var waitErr error
	eg.Go(func() error {
		defer outWriter.Close()
		defer errWriter.Close()
		waitErr = cmd.Wait()
		return nil
	})

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("cannot execute command: %w", err)
	}

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("external command %s is interrupted: %w", name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{
				Name:     name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail.String(),
				Err:      waitErr,
			}
		}
		return fmt.Errorf("external command runtime error: %w", waitErr)
	}

	return nil
}

func forwardLines(r io.Reader, f func(line string)) error {
	lineScanner := bufio.NewReader(r)
	for {
		line, _, err := lineScanner.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		f(string(line))
	}
}

type lineTail struct {
	mx    sync.Mutex
	size  int
	lines []string
}

func newLineTail(size int) *lineTail {
	return &lineTail{size: size}
}

func (t *lineTail) add(line string) {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.size {
		t.lines = t.lines[len(t.lines)-t.size:]
	}
}

func (t *lineTail) String() string {
	t.mx.Lock()
	defer t.mx.Unlock()
	return strings.Join(t.lines, "\n")
}

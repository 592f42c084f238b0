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

package transform

import (
	"errors"
	"fmt"

	"github.com/ligate/edgeprep/internal/utils/cmd_runner"
)

// StageError - a pipeline stage failed. ExitCode is -1 when the failure is not a process exit
type StageError struct {
	Stage      string
	ExitCode   int
	Diagnostic string
	Err        error
}

func NewStageError(stage string, err error) *StageError {
	se := &StageError{
		Stage:    stage,
		ExitCode: -1,
		Err:      err,
	}
	var exitErr *cmd_runner.ExitError
	if errors.As(err, &exitErr) {
		se.ExitCode = exitErr.ExitCode
		se.Diagnostic = exitErr.Stderr
	}
	return se
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %s failed", e.Stage)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s with exit code %d", msg, e.ExitCode)
	}
	msg = fmt.Sprintf("%s: %v", msg, e.Err)
	if e.Diagnostic != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Diagnostic)
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

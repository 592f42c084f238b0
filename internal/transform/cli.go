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
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/utils/cmd_runner"
)

// CliTool - external tool reading its arguments from stdin, one per line
type CliTool struct {
	cfg domains.Tool
}

func NewCliTool(cfg domains.Tool) *CliTool {
	return &CliTool{cfg: cfg}
}

// Run - runs the tool in dir. Any failure is returned as *StageError
func (t *CliTool) Run(ctx context.Context, stage, dir string, lines ...string) error {
	if err := validateLines(lines); err != nil {
		return NewStageError(stage, err)
	}
	var stdin io.Reader
	if len(lines) > 0 {
		stdin = strings.NewReader(strings.Join(lines, "\n") + "\n")
	}
	logger := log.With().Str("Stage", stage).Str("Dir", dir).Logger()
	logger.Debug().Strs("Command", t.cfg.Command).Strs("Stdin", lines).Msg("running tool")

	err := cmd_runner.RunWithOptions(
		ctx,
		&logger,
		&cmd_runner.Options{Dir: dir, Stdin: stdin, Env: t.cfg.Env},
		t.cfg.Command[0], t.cfg.Command[1:]...,
	)
	if err != nil {
		return NewStageError(stage, err)
	}
	return nil
}

type CliMerger struct {
	tool *CliTool
}

func (m *CliMerger) Merge(ctx context.Context, dir string, in *MergeInput) error {
	if err := in.Validate(); err != nil {
		return NewStageError(StageMerge, err)
	}
	return m.tool.Run(ctx, StageMerge, dir, in.Lines()...)
}

type CliSummaryWriter struct {
	tool *CliTool
}

func (s *CliSummaryWriter) Summarize(ctx context.Context, dir string) error {
	return s.tool.Run(ctx, StageSummary, dir)
}

type CliStructureFixer struct {
	tool *CliTool
}

func (f *CliStructureFixer) Fix(ctx context.Context, dir string, in *FixInput) error {
	return f.tool.Run(ctx, StageStructureFix, dir, in.Lines()...)
}

// CliBoxRescaler - stdin is the input coordinates, the delta and merged.gro as the output
type CliBoxRescaler struct {
	tool *CliTool
}

func (b *CliBoxRescaler) Rescale(ctx context.Context, dir string, input string, delta decimal.Decimal) error {
	return b.tool.Run(ctx, boxStage(delta), dir, input, delta.String(), domains.MergedCoordinatesFileName)
}

type CliComplexAssembler struct {
	tool *CliTool
}

func (a *CliComplexAssembler) Assemble(ctx context.Context, dir string, in *AssembleInput) error {
	return a.tool.Run(ctx, StageComplexAssembly, dir, in.Lines()...)
}

type CliRestraintWriter struct {
	tool *CliTool
}

func (r *CliRestraintWriter) WriteRestraints(ctx context.Context, dir string) error {
	return r.tool.Run(ctx, StageRestraints, dir)
}

func boxStage(delta decimal.Decimal) string {
	if delta.IsNegative() {
		return StageBoxRestore
	}
	return StageBoxExpand
}

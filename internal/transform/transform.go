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

// Package transform contains the file-in/file-out stages used to build a variant. Every stage runs in the
// variant directory and produces fixed file names there.
package transform

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ligate/edgeprep/internal/domains"
)

// Stage names used in logs, errors and the edge manifest
const (
	StageMerge                   = "merge"
	StageSummary                 = "summary"
	StageStructureFix            = "structure-fix"
	StageBoxExpand               = "box-expand"
	StagePreprocess              = "preprocess"
	StageMinimize                = "minimize"
	StageBoxRestore              = "box-restore"
	StageComplexAssembly         = "complex-assembly"
	StageRestraints              = "restraints"
	StageRestraintDisambiguation = "restraint-disambiguation"
)

// Merger - merges both ligands into the hybrid merged.itp and merged.gro
type Merger interface {
	Merge(ctx context.Context, dir string, in *MergeInput) error
}

// SummaryWriter - writes the topology summary for the merged topology found in dir
type SummaryWriter interface {
	Summarize(ctx context.Context, dir string) error
}

// StructureFixer - generates restraints keeping the secondary ligand atoms near their target positions
type StructureFixer interface {
	Fix(ctx context.Context, dir string, in *FixInput) error
}

// BoxRescaler - changes every box dimension of input by delta and writes the result into merged.gro
type BoxRescaler interface {
	Rescale(ctx context.Context, dir string, input string, delta decimal.Decimal) error
}

// ComplexAssembler - splices the ligand coordinates into the protein coordinates
type ComplexAssembler interface {
	Assemble(ctx context.Context, dir string, in *AssembleInput) error
}

// RestraintWriter - writes the ligand position restraint file
type RestraintWriter interface {
	WriteRestraints(ctx context.Context, dir string) error
}

// Set - all transforms required to build a variant
type Set struct {
	Merger     Merger
	Summary    SummaryWriter
	Fixer      StructureFixer
	Box        BoxRescaler
	Assembler  ComplexAssembler
	Restraints RestraintWriter
}

// NewSet - builds the transforms from the tools config
func NewSet(cfg *domains.Tools) (*Set, error) {
	tools := map[string]domains.Tool{
		StageMerge:           cfg.Merger,
		StageSummary:         cfg.Summary,
		StageStructureFix:    cfg.Fixer,
		StageComplexAssembly: cfg.Assembler,
		StageRestraints:      cfg.Restraints,
	}
	if !cfg.Box.Builtin {
		tools[StageBoxExpand] = cfg.Box.Tool
	}
	for stage, t := range tools {
		if len(t.Command) == 0 {
			return nil, fmt.Errorf("command of the %s tool is not set", stage)
		}
	}

	s := &Set{
		Merger:     &CliMerger{tool: NewCliTool(cfg.Merger)},
		Summary:    &CliSummaryWriter{tool: NewCliTool(cfg.Summary)},
		Fixer:      &CliStructureFixer{tool: NewCliTool(cfg.Fixer)},
		Assembler:  &CliComplexAssembler{tool: NewCliTool(cfg.Assembler)},
		Restraints: &CliRestraintWriter{tool: NewCliTool(cfg.Restraints)},
	}
	if cfg.Box.Builtin {
		s.Box = &BuiltinBoxRescaler{}
	} else {
		s.Box = &CliBoxRescaler{tool: NewCliTool(cfg.Box.Tool)}
	}
	return s, nil
}

func (s *Set) Validate() error {
	if s.Merger == nil || s.Summary == nil || s.Fixer == nil || s.Box == nil || s.Assembler == nil ||
		s.Restraints == nil {
		return fmt.Errorf("transform set is incomplete")
	}
	return nil
}

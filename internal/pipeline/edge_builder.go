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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/transform"
	"github.com/ligate/edgeprep/internal/variant"
	"github.com/ligate/edgeprep/internal/workspace"
)

// SimulationEngine - preprocesses and runs the short minimization of merged.gro in the variant directory
type SimulationEngine interface {
	Preprocess(ctx context.Context, dir string) error
	Run(ctx context.Context, dir string) error
}

// RestraintRewriter - redirects the generic restraint includes of the files in dir
type RestraintRewriter interface {
	RewriteDir(dir string) ([]string, error)
}

// EdgeBuilder - builds the four variants of an edge. The first failed stage aborts the edge
type EdgeBuilder struct {
	ws       *workspace.Workspace
	tools    *transform.Set
	engine   SimulationEngine
	rewriter RestraintRewriter
	padding  decimal.Decimal
	force    bool
}

func NewEdgeBuilder(
	ws *workspace.Workspace, tools *transform.Set, engine SimulationEngine, rewriter RestraintRewriter,
	padding decimal.Decimal, force bool,
) (*EdgeBuilder, error) {
	if err := tools.Validate(); err != nil {
		return nil, err
	}
	if !padding.IsPositive() {
		return nil, fmt.Errorf("box padding must be positive got %s", padding.String())
	}
	return &EdgeBuilder{
		ws:       ws,
		tools:    tools,
		engine:   engine,
		rewriter: rewriter,
		padding:  padding,
		force:    force,
	}, nil
}

// Build - resolves every variant before the edge directory is created, so a missing pose leaves nothing behind
func (eb *EdgeBuilder) Build(ctx context.Context, pair domains.LigandPair) (err error) {
	variants := variant.Enumerate(pair)
	inputs := make([]*variant.Inputs, 0, len(variants))
	for _, v := range variants {
		in, err := variant.Resolve(eb.ws.Workdir(), eb.ws.Layout(), v)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	edge, err := eb.ws.CreateEdge(pair, eb.force)
	if err != nil {
		return err
	}
	defer func() {
		if finishErr := edge.Finish(err); finishErr != nil {
			log.Warn().Err(finishErr).Str("Edge", pair.EdgeDirName()).Msg("unable to finish edge manifest")
			if err == nil {
				err = finishErr
			}
		}
	}()

	for idx, v := range variants {
		vd, err := edge.CreateVariant(v, inputs[idx])
		if err != nil {
			return err
		}
		log.Info().
			Str("Edge", pair.EdgeDirName()).
			Str("Variant", v.Name()).
			Str("Primary", v.Primary).
			Str("Secondary", v.Secondary).
			Msg("building variant")
		if err := eb.buildVariant(ctx, vd); err != nil {
			var stage string
			var se *transform.StageError
			if errors.As(err, &se) {
				stage = se.Stage
			}
			if statusErr := edge.SetVariantStatus(vd, workspace.StatusFailed, stage); statusErr != nil {
				log.Warn().Err(statusErr).Msg("unable to stamp variant status")
			}
			return fmt.Errorf("variant %s: %w", v.String(), err)
		}
		if err := edge.SetVariantStatus(vd, workspace.StatusDone, ""); err != nil {
			return err
		}
	}
	return nil
}

func (eb *EdgeBuilder) buildVariant(ctx context.Context, vd *workspace.VariantDir) error {
	dir := vd.Dir
	staged := vd.Staged

	steps := []struct {
		stage string
		run   func() error
		// produces - files the stage must leave in the variant directory
		produces []string
	}{
		{
			stage: transform.StageMerge,
			run: func() error {
				return eb.tools.Merger.Merge(ctx, dir, &transform.MergeInput{
					PrimaryTopology:      staged.PrimaryTopology,
					SecondaryTopology:    staged.SecondaryTopology,
					PrimaryStructure:     staged.PrimaryStructure,
					SecondaryStructure:   staged.SecondaryStructure,
					OutputTopology:       domains.MergedTopologyFileName,
					PrimaryCoordinates:   staged.PrimaryCoordinates,
					SecondaryCoordinates: staged.SecondaryCoordinates,
					OutputCoordinates:    domains.MergedCoordinatesFileName,
				})
			},
			produces: []string{domains.MergedTopologyFileName, domains.MergedCoordinatesFileName},
		},
		{
			stage: transform.StageSummary,
			run: func() error {
				return eb.tools.Summary.Summarize(ctx, dir)
			},
		},
		{
			stage: transform.StageStructureFix,
			run: func() error {
				return eb.tools.Fixer.Fix(ctx, dir, &transform.FixInput{
					Topology:             domains.MergedTopologyFileName,
					Coordinates:          domains.MergedCoordinatesFileName,
					SecondaryCoordinates: staged.SecondaryCoordinates,
				})
			},
		},
		{
			stage: transform.StageBoxExpand,
			run: func() error {
				err := os.Rename(
					filepath.Join(dir, domains.MergedCoordinatesFileName),
					filepath.Join(dir, domains.MergedCoordinatesBackup),
				)
				if err != nil {
					return err
				}
				return eb.tools.Box.Rescale(ctx, dir, domains.MergedCoordinatesBackup, eb.padding)
			},
			produces: []string{domains.MergedCoordinatesFileName},
		},
		{
			stage: transform.StagePreprocess,
			run: func() error {
				return eb.engine.Preprocess(ctx, dir)
			},
		},
		{
			stage: transform.StageMinimize,
			run: func() error {
				return eb.engine.Run(ctx, dir)
			},
			produces: []string{domains.MergedCoordinatesFileName},
		},
		{
			stage: transform.StageBoxRestore,
			run: func() error {
				return eb.tools.Box.Rescale(ctx, dir, domains.MergedCoordinatesFileName, eb.padding.Neg())
			},
			produces: []string{domains.MergedCoordinatesFileName},
		},
		{
			stage: transform.StageComplexAssembly,
			run: func() error {
				return eb.tools.Assembler.Assemble(ctx, dir, &transform.AssembleInput{
					Protein: eb.ws.ProteinCoordinates(),
					Ligand:  domains.MergedCoordinatesFileName,
					Output:  domains.ComplexCoordinatesFileName,
				})
			},
			produces: []string{domains.ComplexCoordinatesFileName},
		},
		{
			stage: transform.StageRestraints,
			run: func() error {
				return eb.tools.Restraints.WriteRestraints(ctx, dir)
			},
		},
		{
			stage: transform.StageRestraintDisambiguation,
			run: func() error {
				rewritten, err := eb.rewriter.RewriteDir(dir)
				if err != nil {
					return err
				}
				log.Debug().Str("Dir", dir).Strs("Files", rewritten).Msg("restraint references are disambiguated")
				return nil
			},
		},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return transform.NewStageError(s.stage, err)
		}
		log.Debug().Str("Variant", vd.Variant.String()).Str("Stage", s.stage).Msg("running stage")
		if err := s.run(); err != nil {
			var se *transform.StageError
			if errors.As(err, &se) {
				return err
			}
			return transform.NewStageError(s.stage, err)
		}
		if err := requireFiles(dir, s.produces...); err != nil {
			return transform.NewStageError(s.stage, err)
		}
	}
	return nil
}

func requireFiles(dir string, names ...string) error {
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("expected output %s: %w", name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("expected output %s is a directory", name)
		}
	}
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/restraint"
	"github.com/ligate/edgeprep/internal/transform"
	"github.com/ligate/edgeprep/internal/workspace"
)

const mergedGro = `merged
    1
    1MOL     C1    1   1.000   1.000   1.000
   3.00000   3.00000   3.00000
`

const summaryTop = "#include \"merged.itp\"\n#ifdef POSRES\n#include \"posre.itp\"\n#endif\n"

const ligandRestraints = "#include \"posre.itp\"\n"

// fakeTools - in-process transforms and engine writing the files the real tools produce
type fakeTools struct {
	calls     []string
	merges    []*transform.MergeInput
	fixes     []*transform.FixInput
	failStage string
	skipOut   bool
	box       transform.BuiltinBoxRescaler
}

func (f *fakeTools) record(stage, dir string) error {
	f.calls = append(f.calls, fmt.Sprintf("%s:%s", filepath.Base(dir), stage))
	if stage == f.failStage {
		return &transform.StageError{
			Stage:      stage,
			ExitCode:   2,
			Diagnostic: "fatal error in " + stage,
			Err:        errors.New("exit status 2"),
		}
	}
	return nil
}

func (f *fakeTools) set() *transform.Set {
	return &transform.Set{
		Merger:     f,
		Summary:    f,
		Fixer:      f,
		Box:        f,
		Assembler:  f,
		Restraints: f,
	}
}

func (f *fakeTools) Merge(_ context.Context, dir string, in *transform.MergeInput) error {
	if err := f.record(transform.StageMerge, dir); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	f.merges = append(f.merges, in)
	if f.skipOut {
		return nil
	}
	if err := os.WriteFile(filepath.Join(dir, in.OutputTopology), []byte("; merged\n"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, in.OutputCoordinates), []byte(mergedGro), 0o644)
}

func (f *fakeTools) Summarize(_ context.Context, dir string) error {
	if err := f.record(transform.StageSummary, dir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "topol_ligandInWater.top"), []byte(summaryTop), 0o644)
}

func (f *fakeTools) Fix(_ context.Context, dir string, in *transform.FixInput) error {
	f.fixes = append(f.fixes, in)
	return f.record(transform.StageStructureFix, dir)
}

func (f *fakeTools) Rescale(ctx context.Context, dir string, input string, delta decimal.Decimal) error {
	stage := transform.StageBoxExpand
	if delta.IsNegative() {
		stage = transform.StageBoxRestore
	}
	if err := f.record(fmt.Sprintf("%s(%s %s)", stage, input, delta.String()), dir); err != nil {
		return err
	}
	return f.box.Rescale(ctx, dir, input, delta)
}

func (f *fakeTools) Assemble(_ context.Context, dir string, in *transform.AssembleInput) error {
	if err := f.record(transform.StageComplexAssembly, dir); err != nil {
		return err
	}
	protein, err := os.ReadFile(in.Protein)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, in.Output), protein, 0o644)
}

func (f *fakeTools) WriteRestraints(_ context.Context, dir string) error {
	if err := f.record(transform.StageRestraints, dir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "posre_Ligand.itp"), []byte(ligandRestraints), 0o644)
}

func (f *fakeTools) Preprocess(_ context.Context, dir string) error {
	return f.record(transform.StagePreprocess, dir)
}

func (f *fakeTools) Run(_ context.Context, dir string) error {
	return f.record(transform.StageMinimize, dir)
}

// newWorkdir - two prepared ligands with two poses each and the shared protein coordinates
func newWorkdir(t *testing.T, ligands ...string) (string, *domains.Config) {
	workdir := t.TempDir()
	cfg := domains.NewDefaultConfig()
	cfg.Common.Workdir = workdir
	for _, name := range ligands {
		lr := domains.NewLigandRecord(workdir, name, &cfg.Layout)
		for pose := 0; pose < domains.PoseCount; pose++ {
			require.NoError(t, os.MkdirAll(lr.PoseDir(pose), 0o755))
			require.NoError(t, os.WriteFile(lr.Structure(pose), []byte(name+" mol2\n"), 0o644))
			require.NoError(t, os.WriteFile(lr.Coordinates(pose), []byte(name+" gro\n"), 0o644))
		}
		require.NoError(t, os.WriteFile(lr.Topology(), []byte("; topology of "+name+"\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "protein.gro"), []byte("protein\n"), 0o644))
	return workdir, cfg
}

func newTestBuilder(t *testing.T, cfg *domains.Config, tools *fakeTools) (*EdgeBuilder, *workspace.Workspace) {
	ws, err := workspace.New(cfg.Common.Workdir, &cfg.Layout)
	require.NoError(t, err)
	rewriter, err := restraint.NewRewriter(&cfg.Restraints)
	require.NoError(t, err)
	eb, err := NewEdgeBuilder(ws, tools.set(), tools, rewriter, cfg.Box.Padding, false)
	require.NoError(t, err)
	return eb, ws
}

func dirNames(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var res []string
	for _, e := range entries {
		res = append(res, e.Name())
	}
	return res
}

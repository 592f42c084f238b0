package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/pairing"
	"github.com/ligate/edgeprep/internal/workspace"
)

type fakeBuilder struct {
	built  []domains.LigandPair
	failOn string
}

func (b *fakeBuilder) Build(_ context.Context, pair domains.LigandPair) error {
	b.built = append(b.built, pair)
	if pair.A == b.failOn {
		return errors.New("stage merge failed")
	}
	return nil
}

func newTestDriver(
	t *testing.T, cfg *domains.Config, builder Builder,
) (*Driver, *workspace.Workspace) {
	ws, err := workspace.New(cfg.Common.Workdir, &cfg.Layout)
	require.NoError(t, err)
	source, err := pairing.NewSource(cfg.Common.Workdir, &cfg.Pairing)
	require.NoError(t, err)
	return NewDriver(source, builder, ws, &cfg.Cleanup), ws
}

func writePairs(t *testing.T, workdir, data string) {
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "pairs.json"), []byte(data), 0o644))
}

func TestDriver_EndToEnd(t *testing.T) {
	workdir, cfg := newWorkdir(t, "lig_34_L", "lig_35_L")
	writePairs(t, workdir, `[["lig_35_L/pose_0/ligand.mol2", "lig_34_L/pose_0/ligand.mol2"]]`)
	eb, ws := newTestBuilder(t, cfg, &fakeTools{})
	d := NewDriver(mustSource(t, cfg), eb, ws, &cfg.Cleanup)

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []string{"edge_lig_35_L_lig_34_L", "protein.gro"}, dirNames(t, workdir))
	edgeDir := filepath.Join(workdir, "edge_lig_35_L_lig_34_L")
	assert.Equal(t, []string{"edge.json", "pose_0_0", "pose_0_1", "pose_1_0", "pose_1_1"}, dirNames(t, edgeDir))
	for _, name := range []string{"pose_0_0", "pose_0_1", "pose_1_0", "pose_1_1"} {
		dir := filepath.Join(edgeDir, name)
		assert.FileExists(t, filepath.Join(dir, "full.gro"))
		assert.FileExists(t, filepath.Join(dir, "merged.itp"))
		top, err := os.ReadFile(filepath.Join(dir, "topol_ligandInWater.top"))
		require.NoError(t, err)
		assert.Contains(t, string(top), "../posre_Ligand.itp")
		// staged inputs survive the removal of the ligand directories
		assert.FileExists(t, filepath.Join(dir, "input", "primary", "ligand.itp"))
	}
}

func mustSource(t *testing.T, cfg *domains.Config) *pairing.Source {
	source, err := pairing.NewSource(cfg.Common.Workdir, &cfg.Pairing)
	require.NoError(t, err)
	return source
}

func TestDriver_PairingFailed(t *testing.T) {
	workdir, cfg := newWorkdir(t, "lig_34_L", "lig_35_L")
	builder := &fakeBuilder{}
	d, _ := newTestDriver(t, cfg, builder)

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pairing.ErrPairingFailed))
	assert.Empty(t, builder.built)
	assert.Equal(t, []string{"lig_34_L", "lig_35_L", "protein.gro"}, dirNames(t, workdir))
}

func TestDriver_EverythingFiltered(t *testing.T) {
	workdir, cfg := newWorkdir(t, "lig_34_L", "lig_35_L")
	writePairs(t, workdir, `[["lig_35_L", "lig_34_L"]]`)
	cfg.Pairing.When = `ligand_a == "lig_99_L"`
	builder := &fakeBuilder{}
	d, _ := newTestDriver(t, cfg, builder)

	err := d.Run(context.Background())
	assert.True(t, errors.Is(err, pairing.ErrPairingFailed))
	assert.Empty(t, builder.built)
	assert.FileExists(t, filepath.Join(workdir, "pairs.json"))
}

func TestDriver_SequentialAndCleanupOnAbort(t *testing.T) {
	workdir, cfg := newWorkdir(t, "lig_34_L", "lig_35_L", "lig_36_L", "lig_37_L")
	writePairs(t, workdir, `[["lig_35_L", "lig_34_L"], ["lig_36_L", "lig_34_L"], ["lig_37_L", "lig_34_L"]]`)
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "pairing.log"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(workdir, "notes"), 0o755))
	cfg.Cleanup.Scratch = []string{"pairing.log"}
	builder := &fakeBuilder{failOn: "lig_36_L"}
	d, _ := newTestDriver(t, cfg, builder)

	err := d.Run(context.Background())
	require.ErrorContains(t, err, "edge edge_lig_36_L_lig_34_L: stage merge failed")
	assert.Equal(t, []domains.LigandPair{
		{A: "lig_35_L", B: "lig_34_L"},
		{A: "lig_36_L", B: "lig_34_L"},
	}, builder.built)
	// every ligand named by the pairing is tracked, untracked material is kept
	assert.Equal(t, []string{"notes", "protein.gro"}, dirNames(t, workdir))
}

func TestDriver_CleanupDisabled(t *testing.T) {
	workdir, cfg := newWorkdir(t, "lig_34_L", "lig_35_L")
	writePairs(t, workdir, `[["lig_35_L", "lig_34_L"]]`)
	cfg.Cleanup.Enabled = false
	d, _ := newTestDriver(t, cfg, &fakeBuilder{})

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []string{"lig_34_L", "lig_35_L", "pairs.json", "protein.gro"}, dirNames(t, workdir))
}

func TestDriver_ProteinMissing(t *testing.T) {
	workdir, cfg := newWorkdir(t, "lig_34_L", "lig_35_L")
	writePairs(t, workdir, `[["lig_35_L", "lig_34_L"]]`)
	require.NoError(t, os.Remove(filepath.Join(workdir, "protein.gro")))
	builder := &fakeBuilder{}
	d, _ := newTestDriver(t, cfg, builder)

	err := d.Run(context.Background())
	require.ErrorContains(t, err, "shared protein coordinates")
	assert.Empty(t, builder.built)
	assert.Equal(t, []string{"lig_34_L", "lig_35_L", "pairs.json"}, dirNames(t, workdir))
}

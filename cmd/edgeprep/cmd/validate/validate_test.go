package validate

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
	"github.com/ligate/edgeprep/internal/variant"
)

func newWorkdir(t *testing.T, pairs string, ligands ...string) *domains.Config {
	workdir := t.TempDir()
	cfg := domains.NewDefaultConfig()
	cfg.Common.Workdir = workdir
	for _, name := range ligands {
		lr := domains.NewLigandRecord(workdir, name, &cfg.Layout)
		for pose := 0; pose < domains.PoseCount; pose++ {
			require.NoError(t, os.MkdirAll(lr.PoseDir(pose), 0o755))
			require.NoError(t, os.WriteFile(lr.Structure(pose), []byte("mol2\n"), 0o644))
			require.NoError(t, os.WriteFile(lr.Coordinates(pose), []byte("gro\n"), 0o644))
		}
		require.NoError(t, os.WriteFile(lr.Topology(), []byte("; itp\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "protein.gro"), []byte("protein\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "pairs.json"), []byte(pairs), 0o644))
	return cfg
}

func TestCheck_Ok(t *testing.T) {
	cfg := newWorkdir(t, `[["lig_35_L", "lig_34_L"]]`, "lig_35_L", "lig_34_L")

	rows, err := Check(context.Background(), cfg)
	require.NoError(t, err)
	// protein + edge + four variants
	require.Len(t, rows, 6)
	for _, r := range rows {
		assert.True(t, r.Ok(), r.Status())
	}
	assert.Equal(t, "edge_lig_35_L_lig_34_L", rows[2].Edge)
	assert.Equal(t, "pose_0_0", rows[2].Variant)
	assert.Equal(t, "lig_35_L", rows[2].Primary)
	assert.Equal(t, "pose_0_1", rows[3].Variant)
	assert.Equal(t, "lig_34_L", rows[3].Primary)
}

func TestCheck_Problems(t *testing.T) {
	cfg := newWorkdir(t, `[["lig_35_L", "lig_34_L"]]`, "lig_35_L", "lig_34_L")
	lr := domains.NewLigandRecord(cfg.Common.Workdir, "lig_34_L", &cfg.Layout)
	require.NoError(t, os.RemoveAll(lr.PoseDir(1)))
	require.NoError(t, os.Remove(filepath.Join(cfg.Common.Workdir, "protein.gro")))

	rows, err := Check(context.Background(), cfg)
	require.NoError(t, err)

	failed := map[string]error{}
	for _, r := range rows {
		if !r.Ok() {
			failed[r.Edge+"/"+r.Variant] = r.Err
		}
	}
	assert.Len(t, failed, 4)
	assert.Contains(t, failed, "-/-")
	assert.Contains(t, failed, "edge_lig_35_L_lig_34_L/*")
	assert.True(t, errors.Is(failed["edge_lig_35_L_lig_34_L/pose_1_0"], variant.ErrPoseMissing))
	assert.True(t, errors.Is(failed["edge_lig_35_L_lig_34_L/pose_1_1"], variant.ErrPoseMissing))
}

func TestCheck_EdgeExists(t *testing.T) {
	cfg := newWorkdir(t, `[["lig_35_L", "lig_34_L"]]`, "lig_35_L", "lig_34_L")
	require.NoError(t, os.Mkdir(filepath.Join(cfg.Common.Workdir, "edge_lig_35_L_lig_34_L"), 0o755))

	rows, err := Check(context.Background(), cfg)
	require.NoError(t, err)
	assert.ErrorContains(t, rows[1].Err, "already exists")
}

func TestCheck_PairingFailed(t *testing.T) {
	cfg := newWorkdir(t, `[["lig_35_L", "lig_34_L"]]`, "lig_35_L", "lig_34_L")
	cfg.Pairing.When = `ligand_a == "nothing"`

	_, err := Check(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pairing.ErrPairingFailed))
}

func TestCheckConfig(t *testing.T) {
	cfg := domains.NewDefaultConfig()
	require.NoError(t, checkConfig(cfg))

	cfg.Tools.Merger.Command = nil
	cfg.Restraints.LigandName = cfg.Restraints.GenericName
	err := checkConfig(cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "merge")
	assert.ErrorContains(t, err, "are the same")
}

package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_Track(t *testing.T) {
	workdir := t.TempDir()
	protein := filepath.Join(workdir, "protein.gro")
	m, err := NewManifest(workdir, protein)
	require.NoError(t, err)

	require.NoError(t, m.Track("lig_35_L"))
	require.NoError(t, m.Track(filepath.Join(workdir, "pairs.json")))
	require.NoError(t, m.Track("lig_35_L"))

	assert.ErrorContains(t, m.Track("../outside"), "outside of the workdir")
	assert.ErrorContains(t, m.Track(workdir), "outside of the workdir")
	assert.ErrorContains(t, m.Track("/etc"), "outside of the workdir")
	assert.ErrorContains(t, m.Track("edge_lig_35_L_lig_34_L"), "edge directories are durable")
	assert.ErrorContains(t, m.Track("edge_lig_35_L_lig_34_L/pose_0_0"), "edge directories are durable")
	assert.ErrorContains(t, m.Track("protein.gro"), "protected")

	assert.Equal(t, []string{
		filepath.Join(workdir, "lig_35_L"),
		filepath.Join(workdir, "pairs.json"),
	}, m.Paths())
}

func TestManifest_Cleanup(t *testing.T) {
	workdir := t.TempDir()
	for _, dir := range []string{"lig_35_L/pose_0", "lig_34_L/pose_1", "edge_lig_35_L_lig_34_L", "unrelated"} {
		require.NoError(t, os.MkdirAll(filepath.Join(workdir, dir), 0o755))
	}
	for _, name := range []string{"pairs.json", "protein.gro", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(workdir, name), nil, 0o644))
	}

	m, err := NewManifest(workdir)
	require.NoError(t, err)
	for _, p := range []string{"lig_35_L", "lig_34_L", "pairs.json", "never_created"} {
		require.NoError(t, m.Track(p))
	}
	require.NoError(t, m.Cleanup())

	entries, err := os.ReadDir(workdir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"edge_lig_35_L_lig_34_L", "notes.txt", "protein.gro", "unrelated"}, names)
}

package publish

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ligate/edgeprep/internal/archive"
	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/storages/directory"
	"github.com/ligate/edgeprep/internal/utils/testutils"
	"github.com/ligate/edgeprep/internal/workspace"
)

func writeEdge(t *testing.T, workdir, name, status string) {
	dir := filepath.Join(workdir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pose_0_0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pose_0_0", "full.gro"), []byte("complex\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edge.json"), []byte(`{
		"run_id": "1", "ligand_a": "a", "ligand_b": "b", "status": "`+status+`",
		"started_at": "2024-03-01T10:00:00Z", "variants": []
	}`), 0o644))
}

func newWorkspace(t *testing.T) *workspace.Workspace {
	workdir := t.TempDir()
	writeEdge(t, workdir, "edge_a_b", workspace.StatusDone)
	writeEdge(t, workdir, "edge_a_c", workspace.StatusFailed)
	require.NoError(t, os.Mkdir(filepath.Join(workdir, "edge_broken"), 0o755))

	cfg := domains.NewDefaultConfig()
	ws, err := workspace.New(workdir, &cfg.Layout)
	require.NoError(t, err)
	return ws
}

func TestPublishEdges_All(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	st, err := directory.NewStorage(&directory.Config{Path: t.TempDir()})
	require.NoError(t, err)

	published, err := PublishEdges(ctx, st, ws, nil, Options{})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "edge_a_b.tar.gz", published[0].Object)

	files, err := archive.List(ctx, st, "edge_a_b.tar.gz", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"edge_a_b/edge.json", "edge_a_b/pose_0_0/full.gro"}, files)

	stat, err := st.Stat(ctx, "edge_a_c.tar.gz")
	require.NoError(t, err)
	assert.False(t, stat.Exist)
}

func TestPublishEdges_AlreadyPublished(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	st, err := directory.NewStorage(&directory.Config{Path: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, st.PutObject(ctx, "edge_a_b.tar.gz", bytes.NewBufferString("previous run")))

	published, err := PublishEdges(ctx, st, ws, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, published)
	stat, err := st.Stat(ctx, "edge_a_b.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, int64(len("previous run")), stat.Size)

	published, err = PublishEdges(ctx, st, ws, nil, Options{Overwrite: true})
	require.NoError(t, err)
	require.Len(t, published, 1)
	files, err := archive.List(ctx, st, "edge_a_b.tar.gz", false)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestPublishEdges_StatError(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	st := &testutils.StorageMock{}
	st.On("Stat", mock.Anything, "edge_a_b.tar.gz").Return(nil, errors.New("access denied"))

	_, err := PublishEdges(ctx, st, ws, []string{"edge_a_b"}, Options{})
	require.ErrorContains(t, err, "edge edge_a_b: access denied")
	st.AssertExpectations(t)
}

func TestPublishEdges_Named(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	st, err := directory.NewStorage(&directory.Config{Path: t.TempDir()})
	require.NoError(t, err)

	published, err := PublishEdges(ctx, st, ws, []string{"edge_a_c"}, Options{Pgzip: true})
	require.NoError(t, err)
	assert.Empty(t, published)

	_, err = PublishEdges(ctx, st, ws, []string{"edge_a_b", "edge_missing"}, Options{Pgzip: true})
	require.Error(t, err)
	assert.ErrorContains(t, err, "edge edge_missing")
}

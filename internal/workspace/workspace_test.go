package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/variant"
)

var testPair = domains.LigandPair{A: "lig_35_L", B: "lig_34_L"}

type workspaceSuite struct {
	suite.Suite
	workdir string
	ws      *Workspace
}

func (s *workspaceSuite) SetupTest() {
	s.workdir = s.T().TempDir()
	cfg := domains.NewDefaultConfig()
	for _, name := range []string{testPair.A, testPair.B} {
		lr := domains.NewLigandRecord(s.workdir, name, &cfg.Layout)
		s.Require().NoError(os.MkdirAll(lr.PoseDir(0), 0o755))
		s.Require().NoError(os.MkdirAll(lr.PoseDir(1), 0o755))
		s.Require().NoError(os.WriteFile(lr.Topology(), []byte("; topology of "+name+"\n"), 0o644))
		for pose := 0; pose < domains.PoseCount; pose++ {
			content := fmt.Sprintf("%s pose %d\n", name, pose)
			s.Require().NoError(os.WriteFile(lr.Structure(pose), []byte("mol2 "+content), 0o644))
			s.Require().NoError(os.WriteFile(lr.Coordinates(pose), []byte("gro "+content), 0o644))
		}
	}
	var err error
	s.ws, err = New(s.workdir, &cfg.Layout)
	s.Require().NoError(err)
}

func (s *workspaceSuite) newVariant(edge *Edge, idx int) *VariantDir {
	v := variant.Enumerate(testPair)[idx]
	in, err := variant.Resolve(s.workdir, s.ws.Layout(), v)
	s.Require().NoError(err)
	vd, err := edge.CreateVariant(v, in)
	s.Require().NoError(err)
	return vd
}

func (s *workspaceSuite) TestCreateEdge() {
	edge, err := s.ws.CreateEdge(testPair, false)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.workdir, "edge_lig_35_L_lig_34_L"), edge.Dir)

	m, err := LoadEdgeManifest(edge.ManifestPath())
	s.Require().NoError(err)
	s.Equal(StatusInProgress, m.Status)
	s.Equal(testPair.A, m.LigandA)
	s.Equal(testPair.B, m.LigandB)
	s.Empty(m.Variants)
	s.Nil(m.CompletedAt)
	_, err = uuid.Parse(m.RunID)
	s.NoError(err)
	s.Equal(edge.RunID, m.RunID)
}

func (s *workspaceSuite) TestCreateEdge_Exists() {
	edge, err := s.ws.CreateEdge(testPair, false)
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(filepath.Join(edge.Dir, "stale.txt"), nil, 0o644))

	_, err = s.ws.CreateEdge(testPair, false)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrEdgeExists))

	forced, err := s.ws.CreateEdge(testPair, true)
	s.Require().NoError(err)
	s.NoFileExists(filepath.Join(forced.Dir, "stale.txt"))
	s.NotEqual(edge.RunID, forced.RunID)
}

func (s *workspaceSuite) TestCreateVariant() {
	edge, err := s.ws.CreateEdge(testPair, false)
	s.Require().NoError(err)

	vd := s.newVariant(edge, 1)
	s.Equal(filepath.Join(edge.Dir, "pose_0_1"), vd.Dir)
	s.Equal(filepath.Join("input", "primary", "ligand.itp"), vd.Staged.PrimaryTopology)
	s.Equal(filepath.Join("input", "secondary", "ligand.gro"), vd.Staged.SecondaryCoordinates)

	// lig_34_L is the primary one in the B dominant variant
	data, err := os.ReadFile(filepath.Join(vd.Dir, vd.Staged.PrimaryCoordinates))
	s.Require().NoError(err)
	s.Equal("gro lig_34_L pose 0\n", string(data))

	m, err := LoadEdgeManifest(edge.ManifestPath())
	s.Require().NoError(err)
	s.Require().Len(m.Variants, 1)
	rec := m.Variants[0]
	s.Equal("pose_0_1", rec.Name)
	s.Equal("lig_34_L", rec.Primary)
	s.Equal(StatusInProgress, rec.Status)
	s.Require().Len(rec.Inputs, 6)
	hi, lo := murmur3.Sum128(data)
	s.Equal(fmt.Sprintf("%016x%016x", hi, lo), rec.Inputs[4].Murmur3)
	s.Equal("primary_coordinates", rec.Inputs[4].Role)
	s.Equal(int64(len(data)), rec.Inputs[4].Size)

	_, err = edge.CreateVariant(vd.Variant, &variant.Inputs{})
	s.ErrorContains(err, "already created")
}

func (s *workspaceSuite) TestCreateVariant_ForeignPair() {
	edge, err := s.ws.CreateEdge(testPair, false)
	s.Require().NoError(err)
	other := variant.Enumerate(domains.LigandPair{A: "lig_34_L", B: "lig_35_L"})[0]
	_, err = edge.CreateVariant(other, &variant.Inputs{})
	s.ErrorContains(err, "does not belong")
}

func (s *workspaceSuite) TestFinish() {
	edge, err := s.ws.CreateEdge(testPair, false)
	s.Require().NoError(err)
	first := s.newVariant(edge, 0)
	second := s.newVariant(edge, 1)
	s.Require().NoError(edge.SetVariantStatus(first, StatusDone, ""))
	s.Require().NoError(edge.SetVariantStatus(second, StatusFailed, "minimize"))
	s.Require().NoError(edge.Finish(errors.New("stage minimize failed")))

	m, err := LoadEdgeManifest(edge.ManifestPath())
	s.Require().NoError(err)
	s.Equal(StatusFailed, m.Status)
	s.Equal("stage minimize failed", m.Error)
	s.Require().NotNil(m.CompletedAt)
	_, ok := m.Duration()
	s.True(ok)
	s.Equal(StatusDone, m.Variants[0].Status)
	s.Equal(StatusFailed, m.Variants[1].Status)
	s.Equal("minimize", m.Variants[1].FailedStage)

	s.Require().NoError(edge.Finish(nil))
	status, err := EdgeStatus(edge.ManifestPath())
	s.Require().NoError(err)
	s.Equal(StatusDone, status)
	m, err = LoadEdgeManifest(edge.ManifestPath())
	s.Require().NoError(err)
	s.Empty(m.Error)
}

func (s *workspaceSuite) TestListEdges() {
	_, err := s.ws.CreateEdge(testPair, false)
	s.Require().NoError(err)
	s.Require().NoError(os.Mkdir(filepath.Join(s.workdir, "edge_broken"), 0o755))

	edges, err := s.ws.ListEdges()
	s.Require().NoError(err)
	s.Require().Len(edges, 2)
	s.Equal("edge_broken", edges[0].Name)
	s.Error(edges[0].Err)
	s.Equal("edge_lig_35_L_lig_34_L", edges[1].Name)
	s.Require().NoError(edges[1].Err)
	s.Equal(StatusInProgress, edges[1].Manifest.Status)

	info, err := s.ws.GetEdge("edge_lig_35_L_lig_34_L")
	s.Require().NoError(err)
	s.Equal(testPair.A, info.Manifest.LigandA)
	_, err = s.ws.GetEdge("lig_35_L")
	s.ErrorContains(err, "invalid edge name")
}

func (s *workspaceSuite) TestCheckProteinCoordinates() {
	s.Error(s.ws.CheckProteinCoordinates())
	s.Require().NoError(os.WriteFile(s.ws.ProteinCoordinates(), []byte("protein"), 0o644))
	s.NoError(s.ws.CheckProteinCoordinates())
}

func TestWorkspace(t *testing.T) {
	suite.Run(t, new(workspaceSuite))
}

func TestNew_NotDirectory(t *testing.T) {
	name := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(name, nil, 0o644))
	_, err := New(name, &domains.NewDefaultConfig().Layout)
	assert.ErrorContains(t, err, "is not a directory")
}

package pairing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligate/edgeprep/internal/domains"
)

func newSource(t *testing.T, workdir string, cfg *domains.Pairing) *Source {
	if cfg.Result == "" {
		cfg.Result = "pairs.json"
	}
	s, err := NewSource(workdir, cfg)
	require.NoError(t, err)
	return s
}

func writeResult(t *testing.T, workdir, data string) {
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "pairs.json"), []byte(data), 0o644))
}

func TestSource_Pairs_Paths(t *testing.T) {
	workdir := t.TempDir()
	writeResult(t, workdir, `[
		["lig_35_L/pose_0/ligand.mol2", "lig_34_L/pose_0/ligand.mol2"],
		{"ligand_a": "`+filepath.Join(workdir, "lig_36_L", "pose_1", "ligand.mol2")+`", "ligand_b": "lig_34_L"}
	]`)

	pairs, err := newSource(t, workdir, &domains.Pairing{}).Pairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domains.LigandPair{
		{A: "lig_35_L", B: "lig_34_L"},
		{A: "lig_36_L", B: "lig_34_L"},
	}, pairs)
}

func TestSource_Pairs_Missing(t *testing.T) {
	workdir := t.TempDir()
	_, err := newSource(t, workdir, &domains.Pairing{}).Pairs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPairingFailed))
	assert.Contains(t, err.Error(), "was not produced")
}

func TestSource_Pairs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{name: "malformed", data: `[["a", `, msg: "malformed json"},
		{name: "not array", data: `{"ligand_a": "a"}`, msg: "expected an array"},
		{name: "empty", data: `[]`, msg: "no pairs found"},
		{name: "arity", data: `[["a"]]`, msg: "expected 2 items"},
		{name: "missing field", data: `[{"ligand_a": "a"}]`, msg: "ligand_b: expected a string"},
		{name: "self pair", data: `[["lig_1/pose_0/x.mol2", "lig_1/pose_1/x.mol2"]]`, msg: "paired with itself"},
		{name: "escape", data: `[["../lig_1", "lig_2"]]`, msg: "outside of the workdir"},
		{name: "scalar record", data: `[1]`, msg: "expected an array or an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workdir := t.TempDir()
			writeResult(t, workdir, tt.data)
			_, err := newSource(t, workdir, &domains.Pairing{}).Pairs(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPairingFailed))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestSource_Pairs_Command(t *testing.T) {
	workdir := t.TempDir()
	s := newSource(t, workdir, &domains.Pairing{
		Command: domains.Command{"/bin/sh", "-c", `echo '[["lig_35_L", "lig_34_L"]]' > pairs.json`},
	})

	pairs, err := s.Pairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domains.LigandPair{{A: "lig_35_L", B: "lig_34_L"}}, pairs)
	assert.Equal(t, filepath.Join(workdir, "pairs.json"), s.Artifact())
}

func TestSource_Pairs_CommandFailed(t *testing.T) {
	workdir := t.TempDir()
	s := newSource(t, workdir, &domains.Pairing{
		Command: domains.Command{"/bin/sh", "-c", "exit 4"},
	})

	_, err := s.Pairs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPairingFailed))
	_, statErr := os.Stat(s.Artifact())
	assert.True(t, os.IsNotExist(statErr))
}

func TestSource_Pairs_DedupeAndWhen(t *testing.T) {
	workdir := t.TempDir()
	writeResult(t, workdir, `[
		["lig_35_L", "lig_34_L"],
		["lig_34_L", "lig_35_L"],
		["lig_36_L", "lig_34_L"],
		["lig_37_L", "lig_34_L"]
	]`)

	s := newSource(t, workdir, &domains.Pairing{When: `ligand_a != "lig_36_L" && index < 5`})
	pairs, err := s.Pairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domains.LigandPair{
		{A: "lig_35_L", B: "lig_34_L"},
		{A: "lig_37_L", B: "lig_34_L"},
	}, pairs)
}

func TestNewWhenCond_Invalid(t *testing.T) {
	_, err := NewWhenCond(`ligand_a +`)
	require.Error(t, err)

	_, err = NewWhenCond(`index + 1`)
	require.Error(t, err)
}

func TestWhenCond_Empty(t *testing.T) {
	wc, err := NewWhenCond("")
	require.NoError(t, err)
	ok, err := wc.Evaluate(domains.LigandPair{A: "a", B: "b"}, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

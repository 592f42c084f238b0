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

package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/variant"
)

var ErrEdgeExists = errors.New("edge directory already exists")

const (
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Workspace - the top level directory holding the prepared ligands, the shared protein coordinates and the edges
type Workspace struct {
	workdir string
	layout  *domains.Layout
}

func New(workdir string, layout *domains.Layout) (*Workspace, error) {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve workdir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workdir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workdir %s is not a directory", abs)
	}
	return &Workspace{
		workdir: abs,
		layout:  layout,
	}, nil
}

func (w *Workspace) Workdir() string {
	return w.workdir
}

func (w *Workspace) Layout() *domains.Layout {
	return w.layout
}

func (w *Workspace) EdgeDir(pair domains.LigandPair) string {
	return filepath.Join(w.workdir, pair.EdgeDirName())
}

func (w *Workspace) LigandDir(name string) string {
	return filepath.Join(w.workdir, name)
}

// ProteinCoordinates - the shared protein coordinates. A relative path is resolved against the workdir
func (w *Workspace) ProteinCoordinates() string {
	if filepath.IsAbs(w.layout.ProteinCoordinates) {
		return w.layout.ProteinCoordinates
	}
	return filepath.Join(w.workdir, w.layout.ProteinCoordinates)
}

// CheckProteinCoordinates - the protein coordinates are required by the complex assembly of every variant
func (w *Workspace) CheckProteinCoordinates() error {
	info, err := os.Stat(w.ProteinCoordinates())
	if err != nil {
		return fmt.Errorf("shared protein coordinates: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("shared protein coordinates %s is a directory", w.ProteinCoordinates())
	}
	return nil
}

// CreateEdge - creates the edge directory and its manifest. An existing directory is an error unless force is
// set, then it is removed first
func (w *Workspace) CreateEdge(pair domains.LigandPair, force bool) (*Edge, error) {
	dir := w.EdgeDir(pair)
	if _, err := os.Lstat(dir); err == nil {
		if !force {
			return nil, fmt.Errorf("%s: %w", dir, ErrEdgeExists)
		}
		log.Warn().Str("Edge", pair.EdgeDirName()).Msg("removing existing edge directory")
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("unable to remove existing edge directory: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := os.Mkdir(dir, dirMode); err != nil {
		return nil, fmt.Errorf("unable to create edge directory: %w", err)
	}

	m := &EdgeManifest{
		RunID:     uuid.New().String(),
		LigandA:   pair.A,
		LigandB:   pair.B,
		Status:    StatusInProgress,
		StartedAt: time.Now().UTC(),
		Variants:  []VariantRecord{},
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	e := &Edge{
		Pair:         pair,
		Dir:          dir,
		RunID:        m.RunID,
		manifestPath: filepath.Join(dir, domains.EdgeManifestFileName),
		variants:     make(map[string]int),
	}
	if err := os.WriteFile(e.manifestPath, data, fileMode); err != nil {
		return nil, fmt.Errorf("unable to write edge manifest: %w", err)
	}
	log.Debug().Str("Edge", pair.EdgeDirName()).Str("RunID", m.RunID).Msg("edge directory is created")
	return e, nil
}

// Edge - an edge directory being built
type Edge struct {
	Pair         domains.LigandPair
	Dir          string
	RunID        string
	manifestPath string
	// variants - manifest index of created variant directories by name
	variants map[string]int
}

// VariantDir - a created variant directory with its staged inputs
type VariantDir struct {
	Variant variant.Variant
	Dir     string
	// Staged - the inputs copied into the variant directory, relative to Dir
	Staged *variant.Inputs
	index  int
}

func (e *Edge) ManifestPath() string {
	return e.manifestPath
}

// CreateVariant - creates the variant directory once and stages the inputs inside it
func (e *Edge) CreateVariant(v variant.Variant, in *variant.Inputs) (*VariantDir, error) {
	if v.Pair != e.Pair {
		return nil, fmt.Errorf("variant %s does not belong to edge %s", v.String(), e.Pair.EdgeDirName())
	}
	name := v.Name()
	if _, ok := e.variants[name]; ok {
		return nil, fmt.Errorf("variant directory %s is already created", name)
	}
	dir := filepath.Join(e.Dir, name)
	if err := os.Mkdir(dir, dirMode); err != nil {
		return nil, fmt.Errorf("unable to create variant directory: %w", err)
	}

	staged, files, err := stageInputs(dir, in)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", name, err)
	}
	rec := VariantRecord{
		Name:      name,
		Pose:      v.Pose,
		Dominance: v.Dominance,
		Primary:   v.Primary,
		Secondary: v.Secondary,
		Status:    StatusInProgress,
		Inputs:    files,
	}
	if err := e.update(func(data []byte) ([]byte, error) {
		return sjson.SetBytes(data, "variants.-1", rec)
	}); err != nil {
		return nil, err
	}

	idx := len(e.variants)
	e.variants[name] = idx
	return &VariantDir{
		Variant: v,
		Dir:     dir,
		Staged:  staged,
		index:   idx,
	}, nil
}

// SetVariantStatus - stamps the variant status in the edge manifest
func (e *Edge) SetVariantStatus(vd *VariantDir, status string, stage string) error {
	return e.update(func(data []byte) ([]byte, error) {
		data, err := sjson.SetBytes(data, fmt.Sprintf("variants.%d.status", vd.index), status)
		if err != nil || stage == "" {
			return data, err
		}
		return sjson.SetBytes(data, fmt.Sprintf("variants.%d.failed_stage", vd.index), stage)
	})
}

// Finish - stamps the edge status, the completion time and the error if any
func (e *Edge) Finish(buildErr error) error {
	status := StatusDone
	if buildErr != nil {
		status = StatusFailed
	}
	return e.update(func(data []byte) ([]byte, error) {
		data, err := sjson.SetBytes(data, "status", status)
		if err != nil {
			return nil, err
		}
		data, err = sjson.SetBytes(data, "completed_at", time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		if buildErr != nil {
			return sjson.SetBytes(data, "error", buildErr.Error())
		}
		return sjson.DeleteBytes(data, "error")
	})
}

func (e *Edge) update(f func(data []byte) ([]byte, error)) error {
	data, err := os.ReadFile(e.manifestPath)
	if err != nil {
		return fmt.Errorf("unable to read edge manifest: %w", err)
	}
	data, err = f(data)
	if err != nil {
		return fmt.Errorf("unable to update edge manifest: %w", err)
	}
	if err := os.WriteFile(e.manifestPath, data, fileMode); err != nil {
		return fmt.Errorf("unable to write edge manifest: %w", err)
	}
	return nil
}

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
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ligate/edgeprep/internal/domains"
)

// EdgeManifest - edge.json written into every edge directory
type EdgeManifest struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	LigandA     string          `json:"ligand_a" yaml:"ligand_a"`
	LigandB     string          `json:"ligand_b" yaml:"ligand_b"`
	Status      string          `json:"status" yaml:"status"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
	Variants    []VariantRecord `json:"variants" yaml:"variants"`
}

// Duration - build duration of the completed edge
func (m *EdgeManifest) Duration() (time.Duration, bool) {
	if m.CompletedAt == nil {
		return 0, false
	}
	return m.CompletedAt.Sub(m.StartedAt), true
}

type VariantRecord struct {
	Name        string       `json:"name" yaml:"name"`
	Pose        int          `json:"pose" yaml:"pose"`
	Dominance   int          `json:"dominance" yaml:"dominance"`
	Primary     string       `json:"primary" yaml:"primary"`
	Secondary   string       `json:"secondary" yaml:"secondary"`
	Status      string       `json:"status" yaml:"status"`
	FailedStage string       `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	Inputs      []StagedFile `json:"inputs" yaml:"inputs"`
}

// StagedFile - a ligand file copied into the variant directory
type StagedFile struct {
	Role   string `json:"role" yaml:"role"`
	Source string `json:"source" yaml:"source"`
	// Path - relative to the variant directory
	Path    string `json:"path" yaml:"path"`
	Size    int64  `json:"size" yaml:"size"`
	Murmur3 string `json:"murmur3" yaml:"murmur3"`
}

func LoadEdgeManifest(name string) (*EdgeManifest, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	m := &EdgeManifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("unable to parse edge manifest %s: %w", name, err)
	}
	return m, nil
}

// EdgeStatus - reads only the status of the edge manifest
func EdgeStatus(name string) (string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	status := gjson.GetBytes(data, "status")
	if !status.Exists() {
		return "", fmt.Errorf("edge manifest %s has no status", name)
	}
	return status.String(), nil
}

// EdgeInfo - an edge directory found in the workdir. Manifest is nil when Err is set
type EdgeInfo struct {
	Name     string
	Dir      string
	Manifest *EdgeManifest
	Err      error
}

// ListEdges - every edge directory of the workdir sorted by name
func (w *Workspace) ListEdges() ([]*EdgeInfo, error) {
	entries, err := os.ReadDir(w.workdir)
	if err != nil {
		return nil, err
	}
	var res []*EdgeInfo
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), domains.EdgeDirPrefix) {
			continue
		}
		info := &EdgeInfo{
			Name: e.Name(),
			Dir:  filepath.Join(w.workdir, e.Name()),
		}
		info.Manifest, info.Err = LoadEdgeManifest(filepath.Join(info.Dir, domains.EdgeManifestFileName))
		res = append(res, info)
	}
	return res, nil
}

// GetEdge - the edge directory by its name
func (w *Workspace) GetEdge(name string) (*EdgeInfo, error) {
	if !strings.HasPrefix(name, domains.EdgeDirPrefix) || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("invalid edge name %s", name)
	}
	dir := filepath.Join(w.workdir, name)
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, errors.New("edge is not a directory")
	}
	m, err := LoadEdgeManifest(filepath.Join(dir, domains.EdgeManifestFileName))
	if err != nil {
		return nil, err
	}
	return &EdgeInfo{
		Name:     name,
		Dir:      dir,
		Manifest: m,
	}, nil
}

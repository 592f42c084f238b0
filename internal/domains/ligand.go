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

package domains

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Artifact names produced inside a variant directory. Downstream tooling depends on them
const (
	MergedTopologyFileName     = "merged.itp"
	MergedCoordinatesFileName  = "merged.gro"
	MergedCoordinatesBackup    = "merged_old.gro"
	ComplexCoordinatesFileName = "full.gro"
	EdgeManifestFileName       = "edge.json"
	StagedInputDirName         = "input"
)

const (
	EdgeDirPrefix    = "edge_"
	VariantDirPrefix = "pose_"
)

// PoseCount - amount of poses every ligand contributes to an edge
const PoseCount = 2

// LigandRecord - the prepared ligand directory. It is read-only for edgeprep
type LigandRecord struct {
	Name   string
	Dir    string
	layout *Layout
}

func NewLigandRecord(workdir, name string, layout *Layout) *LigandRecord {
	return &LigandRecord{
		Name:   name,
		Dir:    filepath.Join(workdir, name),
		layout: layout,
	}
}

func (lr *LigandRecord) Topology() string {
	return filepath.Join(lr.Dir, lr.layout.TopologyFile)
}

func (lr *LigandRecord) PoseDir(pose int) string {
	return filepath.Join(lr.Dir, lr.layout.PoseDirPrefix+strconv.Itoa(pose))
}

// Structure - geometry (mol2) file of the pose
func (lr *LigandRecord) Structure(pose int) string {
	return filepath.Join(lr.PoseDir(pose), lr.layout.StructureFile)
}

func (lr *LigandRecord) Coordinates(pose int) string {
	return filepath.Join(lr.PoseDir(pose), lr.layout.CoordinateFile)
}

// Validate - checks the topology and every pose file of the first poses poses. All missing files are reported
func (lr *LigandRecord) Validate(poses int) error {
	files := []string{lr.Topology()}
	for i := 0; i < poses; i++ {
		files = append(files, lr.Structure(i), lr.Coordinates(i))
	}
	var errs []error
	for _, name := range files {
		info, err := os.Stat(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("ligand %s: %w", lr.Name, err))
			continue
		}
		if info.IsDir() {
			errs = append(errs, fmt.Errorf("ligand %s: %s is a directory", lr.Name, name))
		}
	}
	return errors.Join(errs...)
}

// LigandPair - an edge between two ligands. A and B keep the order reported by the pairing
type LigandPair struct {
	A string `json:"ligand_a" yaml:"ligand_a"`
	B string `json:"ligand_b" yaml:"ligand_b"`
}

func (p LigandPair) String() string {
	return fmt.Sprintf("%s-%s", p.A, p.B)
}

// Ligand - returns the ligand name by its position in the pair: 0 is A, 1 is B
func (p LigandPair) Ligand(idx int) string {
	if idx == 0 {
		return p.A
	}
	return p.B
}

// EdgeDirName - deterministic edge directory name edge_<A>_<B>
func (p LigandPair) EdgeDirName() string {
	return EdgeDirPrefix + p.A + "_" + p.B
}

// SameEdge - reports whether both pairs connect the same ligands regardless of the order
func (p LigandPair) SameEdge(other LigandPair) bool {
	return (p.A == other.A && p.B == other.B) || (p.A == other.B && p.B == other.A)
}

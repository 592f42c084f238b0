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

package variant

import (
	"errors"
	"fmt"
	"os"

	"github.com/ligate/edgeprep/internal/domains"
)

var ErrPoseMissing = errors.New("pose directory is missing")

// Dominance values. The dominant ligand is the primary one: its real atoms define the starting geometry
const (
	ADominant = 0
	BDominant = 1
)

// Variant - one (pose, dominance) combination of an edge. Both ligands contribute the same pose index
type Variant struct {
	Pair      domains.LigandPair `json:"-" yaml:"-"`
	Pose      int                `json:"pose" yaml:"pose"`
	Dominance int                `json:"dominance" yaml:"dominance"`
	// Primary - ligand supplying the starting geometry. It is always the first one in every merge input
	Primary string `json:"primary" yaml:"primary"`
	// Secondary - ligand which atoms start as restrained dummies
	Secondary string `json:"secondary" yaml:"secondary"`
}

// Name - variant directory name pose_<pose>_<dominance>
func (v Variant) Name() string {
	return fmt.Sprintf("%s%d_%d", domains.VariantDirPrefix, v.Pose, v.Dominance)
}

func (v Variant) String() string {
	return fmt.Sprintf("%s/%s", v.Pair.EdgeDirName(), v.Name())
}

// Validate - checks the primary and secondary roles agree with the dominance bit
func (v Variant) Validate() error {
	if v.Pose < 0 || v.Pose >= domains.PoseCount {
		return fmt.Errorf("variant %s: pose index %d out of range", v.Name(), v.Pose)
	}
	if v.Dominance != ADominant && v.Dominance != BDominant {
		return fmt.Errorf("variant %s: dominance must be 0 or 1", v.Name())
	}
	if v.Primary != v.Pair.Ligand(v.Dominance) || v.Secondary != v.Pair.Ligand(1-v.Dominance) {
		return fmt.Errorf(
			"variant %s: primary %s and secondary %s do not match dominance %d of pair %s",
			v.Name(), v.Primary, v.Secondary, v.Dominance, v.Pair.String(),
		)
	}
	return nil
}

// Enumerate - all variants of the pair ordered by pose then dominance
func Enumerate(pair domains.LigandPair) []Variant {
	res := make([]Variant, 0, domains.PoseCount*2)
	for pose := 0; pose < domains.PoseCount; pose++ {
		for _, dominance := range []int{ADominant, BDominant} {
			res = append(res, Variant{
				Pair:      pair,
				Pose:      pose,
				Dominance: dominance,
				Primary:   pair.Ligand(dominance),
				Secondary: pair.Ligand(1 - dominance),
			})
		}
	}
	return res
}

// Inputs - source files of a variant. Primary and secondary follow the dominance of the variant
type Inputs struct {
	PrimaryTopology      string `json:"primary_topology" yaml:"primary_topology"`
	SecondaryTopology    string `json:"secondary_topology" yaml:"secondary_topology"`
	PrimaryStructure     string `json:"primary_structure" yaml:"primary_structure"`
	SecondaryStructure   string `json:"secondary_structure" yaml:"secondary_structure"`
	PrimaryCoordinates   string `json:"primary_coordinates" yaml:"primary_coordinates"`
	SecondaryCoordinates string `json:"secondary_coordinates" yaml:"secondary_coordinates"`
}

// All - the inputs in a stable order
func (in *Inputs) All() []string {
	return []string{
		in.PrimaryTopology, in.SecondaryTopology,
		in.PrimaryStructure, in.SecondaryStructure,
		in.PrimaryCoordinates, in.SecondaryCoordinates,
	}
}

// Resolve - maps the variant to the ligand files. Fails with ErrPoseMissing when the pose directory of any
// ligand does not exist
func Resolve(workdir string, layout *domains.Layout, v Variant) (*Inputs, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	primary := domains.NewLigandRecord(workdir, v.Primary, layout)
	secondary := domains.NewLigandRecord(workdir, v.Secondary, layout)
	for _, lr := range []*domains.LigandRecord{primary, secondary} {
		if err := checkPoseDir(lr, v.Pose); err != nil {
			return nil, err
		}
	}
	return &Inputs{
		PrimaryTopology:      primary.Topology(),
		SecondaryTopology:    secondary.Topology(),
		PrimaryStructure:     primary.Structure(v.Pose),
		SecondaryStructure:   secondary.Structure(v.Pose),
		PrimaryCoordinates:   primary.Coordinates(v.Pose),
		SecondaryCoordinates: secondary.Coordinates(v.Pose),
	}, nil
}

func checkPoseDir(lr *domains.LigandRecord, pose int) error {
	dir := lr.PoseDir(pose)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("ligand %s pose %d (%s): %w", lr.Name, pose, dir, ErrPoseMissing)
		}
		return fmt.Errorf("ligand %s pose %d: %w", lr.Name, pose, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ligand %s pose %d: %s is not a directory: %w", lr.Name, pose, dir, ErrPoseMissing)
	}
	return nil
}

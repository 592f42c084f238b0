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

package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ligate/edgeprep/internal/domains"
)

// MergeInput - the merge tool assigns the alchemical states by position, so the primary ligand always goes first
type MergeInput struct {
	PrimaryTopology      string
	SecondaryTopology    string
	PrimaryStructure     string
	SecondaryStructure   string
	OutputTopology       string
	PrimaryCoordinates   string
	SecondaryCoordinates string
	OutputCoordinates    string
}

// Lines - stdin lines of the merge tool in the order it reads them
func (in *MergeInput) Lines() []string {
	return []string{
		in.PrimaryTopology,
		in.SecondaryTopology,
		in.PrimaryStructure,
		in.SecondaryStructure,
		in.OutputTopology,
		in.PrimaryCoordinates,
		in.SecondaryCoordinates,
		in.OutputCoordinates,
	}
}

func (in *MergeInput) Validate() error {
	if in.OutputTopology != domains.MergedTopologyFileName {
		return fmt.Errorf("merge output topology must be %s got %s", domains.MergedTopologyFileName, in.OutputTopology)
	}
	if in.OutputCoordinates != domains.MergedCoordinatesFileName {
		return fmt.Errorf(
			"merge output coordinates must be %s got %s", domains.MergedCoordinatesFileName, in.OutputCoordinates,
		)
	}
	pairs := [][2]string{
		{in.PrimaryTopology, in.SecondaryTopology},
		{in.PrimaryStructure, in.SecondaryStructure},
		{in.PrimaryCoordinates, in.SecondaryCoordinates},
	}
	for _, p := range pairs {
		if p[0] == p[1] {
			return fmt.Errorf("primary and secondary inputs are the same file %s", p[0])
		}
	}
	return validateLines(in.Lines())
}

// FixInput - the secondary coordinates are the target positions of the dummy atoms
type FixInput struct {
	Topology             string
	Coordinates          string
	SecondaryCoordinates string
}

func (in *FixInput) Lines() []string {
	return []string{in.Topology, in.Coordinates, in.SecondaryCoordinates}
}

type AssembleInput struct {
	Protein string
	Ligand  string
	Output  string
}

func (in *AssembleInput) Lines() []string {
	return []string{in.Protein, in.Ligand, in.Output}
}

func validateLines(lines []string) error {
	for idx, l := range lines {
		if l == "" {
			return fmt.Errorf("argument %d is empty", idx)
		}
		if strings.ContainsAny(l, "\n\r") {
			return errors.New("argument contains a line break")
		}
	}
	return nil
}

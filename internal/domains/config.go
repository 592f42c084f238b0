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
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ligate/edgeprep/internal/storages/directory"
	"github.com/ligate/edgeprep/internal/storages/s3"
)

var (
	Cfg  *Config
	once sync.Once
)

const (
	defaultWorkdir              = "."
	defaultDirectoryStoragePath = "/tmp"
	defaultStorageType          = "directory"

	defaultTopologyFile       = "ligand.itp"
	defaultStructureFile      = "ligand.mol2"
	defaultCoordinateFile     = "ligand.gro"
	defaultPoseDirPrefix      = "pose_"
	defaultProteinCoordinates = "protein.gro"

	defaultPairingResult = "pairs.json"

	defaultGmxBinary      = "gmx"
	defaultEngineTopology = "topol_ligandInWater.top"
	defaultMinimSteps     = 100
	defaultMaxWarnings    = 2

	defaultRestraintGenericName   = "posre.itp"
	defaultRestraintLigandName    = "posre_Ligand.itp"
	defaultRestraintIncludePrefix = "../"
)

var defaultBoxPadding = decimal.NewFromInt(10)

// NewConfig - returns the process wide config instance filled with defaults
func NewConfig() *Config {
	once.Do(
		func() {
			Cfg = NewDefaultConfig()
		},
	)
	return Cfg
}

// NewDefaultConfig - returns a fresh config filled with defaults. It is not shared
func NewDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Common: Common{
			Workdir: defaultWorkdir,
		},
		Layout: Layout{
			TopologyFile:       defaultTopologyFile,
			StructureFile:      defaultStructureFile,
			CoordinateFile:     defaultCoordinateFile,
			PoseDirPrefix:      defaultPoseDirPrefix,
			ProteinCoordinates: defaultProteinCoordinates,
		},
		Pairing: Pairing{
			Result: defaultPairingResult,
		},
		Tools: Tools{
			Merger:     Tool{Command: Command{"merge_topologies"}},
			Summary:    Tool{Command: Command{"write_topology"}},
			Fixer:      Tool{Command: Command{"restrain_dummies"}},
			Box:        BoxTool{Tool: Tool{Command: Command{"edit_box"}}},
			Assembler:  Tool{Command: Command{"assemble_complex"}},
			Restraints: Tool{Command: Command{"write_posre"}},
		},
		Engine: Engine{
			GmxBinary:   defaultGmxBinary,
			Topology:    defaultEngineTopology,
			Steps:       defaultMinimSteps,
			MaxWarnings: defaultMaxWarnings,
		},
		Box: Box{
			Padding: defaultBoxPadding,
		},
		Restraints: Restraints{
			GenericName:   defaultRestraintGenericName,
			LigandName:    defaultRestraintLigandName,
			IncludePrefix: defaultRestraintIncludePrefix,
		},
		Cleanup: Cleanup{
			Enabled: true,
		},
		Storage: StorageConfig{
			Type: defaultStorageType,
			S3:   s3.NewConfig(),
			Directory: &directory.Config{
				Path: defaultDirectoryStoragePath,
			},
		},
	}
}

type Config struct {
	Log        LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Common     Common        `mapstructure:"common" yaml:"common" json:"common"`
	Layout     Layout        `mapstructure:"layout" yaml:"layout" json:"layout"`
	Pairing    Pairing       `mapstructure:"pairing" yaml:"pairing" json:"pairing"`
	Tools      Tools         `mapstructure:"tools" yaml:"tools" json:"tools"`
	Engine     Engine        `mapstructure:"engine" yaml:"engine" json:"engine"`
	Box        Box           `mapstructure:"box" yaml:"box" json:"box"`
	Restraints Restraints    `mapstructure:"restraints" yaml:"restraints" json:"restraints"`
	Cleanup    Cleanup       `mapstructure:"cleanup" yaml:"cleanup" json:"cleanup"`
	Storage    StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`
	Publish    Publish       `mapstructure:"publish" yaml:"publish" json:"publish"`
}

type LogConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format,omitempty"`
	Level  string `mapstructure:"level" yaml:"level" json:"level,omitempty"`
}

type Common struct {
	// Workdir - top level directory with the prepared ligands, the protein coordinates and the edges
	Workdir string `mapstructure:"workdir" yaml:"workdir" json:"workdir,omitempty"`
}

// Layout - file names of the prepared ligand directories
type Layout struct {
	TopologyFile       string `mapstructure:"topology_file" yaml:"topology_file" json:"topology_file,omitempty"`
	StructureFile      string `mapstructure:"structure_file" yaml:"structure_file" json:"structure_file,omitempty"`
	CoordinateFile     string `mapstructure:"coordinate_file" yaml:"coordinate_file" json:"coordinate_file,omitempty"`
	PoseDirPrefix      string `mapstructure:"pose_dir_prefix" yaml:"pose_dir_prefix" json:"pose_dir_prefix,omitempty"`
	ProteinCoordinates string `mapstructure:"protein_coordinates" yaml:"protein_coordinates" json:"protein_coordinates,omitempty"`
}

type Pairing struct {
	// Command - optional pairing tool executed once in the workdir before the result is read
	Command Command `mapstructure:"command" yaml:"command" json:"command,omitempty"`
	// Result - the pairing artifact. Its absence means the pairing failed
	Result string `mapstructure:"result" yaml:"result" json:"result,omitempty"`
	// When - expression filter evaluated for every pair
	When string `mapstructure:"when" yaml:"when" json:"when,omitempty"`
}

// Command - argv of an external tool
type Command []string

type Tool struct {
	Command Command  `mapstructure:"command" yaml:"command" json:"command,omitempty"`
	Env     []string `mapstructure:"env" yaml:"env" json:"env,omitempty"`
}

type BoxTool struct {
	Tool    `mapstructure:",squash" yaml:",inline"`
	Builtin bool `mapstructure:"builtin" yaml:"builtin" json:"builtin,omitempty"`
}

type Tools struct {
	Merger     Tool    `mapstructure:"merger" yaml:"merger" json:"merger"`
	Summary    Tool    `mapstructure:"summary" yaml:"summary" json:"summary"`
	Fixer      Tool    `mapstructure:"fixer" yaml:"fixer" json:"fixer"`
	Box        BoxTool `mapstructure:"box" yaml:"box" json:"box"`
	Assembler  Tool    `mapstructure:"assembler" yaml:"assembler" json:"assembler"`
	Restraints Tool    `mapstructure:"restraints" yaml:"restraints" json:"restraints"`
}

type Engine struct {
	GmxBinary   string         `mapstructure:"gmx_binary" yaml:"gmx_binary" json:"gmx_binary,omitempty"`
	Topology    string         `mapstructure:"topology" yaml:"topology" json:"topology,omitempty"`
	MdpTemplate string         `mapstructure:"mdp_template" yaml:"mdp_template" json:"mdp_template,omitempty"`
	Steps       int            `mapstructure:"steps" yaml:"steps" json:"steps,omitempty"`
	MaxWarnings int            `mapstructure:"max_warnings" yaml:"max_warnings" json:"max_warnings"`
	Parameters  map[string]any `mapstructure:"parameters" yaml:"parameters" json:"parameters,omitempty"`
	Env         []string       `mapstructure:"env" yaml:"env" json:"env,omitempty"`
}

type Box struct {
	Padding decimal.Decimal `mapstructure:"padding" yaml:"padding" json:"padding"`
}

type Restraints struct {
	GenericName   string `mapstructure:"generic_name" yaml:"generic_name" json:"generic_name,omitempty"`
	LigandName    string `mapstructure:"ligand_name" yaml:"ligand_name" json:"ligand_name,omitempty"`
	IncludePrefix string `mapstructure:"include_prefix" yaml:"include_prefix" json:"include_prefix,omitempty"`
}

type Cleanup struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Scratch []string `mapstructure:"scratch" yaml:"scratch" json:"scratch,omitempty"`
}

type StorageConfig struct {
	Type      string            `mapstructure:"type" yaml:"type" json:"type,omitempty"`
	S3        *s3.Config        `mapstructure:"s3"  json:"s3,omitempty" yaml:"s3"`
	Directory *directory.Config `mapstructure:"directory" json:"directory,omitempty" yaml:"directory"`
}

type Publish struct {
	Pgzip bool `mapstructure:"pgzip" yaml:"pgzip" json:"pgzip,omitempty"`
}

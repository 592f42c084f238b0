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

package engine

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/transform"
	"github.com/ligate/edgeprep/internal/utils/cmd_runner"
)

const (
	deffnm        = "em"
	mdpFileName   = "em.mdp"
	tprFileName   = "em.tpr"
	mdoutFileName = "mdout.mdp"
	outputGro     = "em.gro"
)

// ScratchFiles - engine artifacts removed after a successful minimization
var ScratchFiles = []string{mdpFileName, tprFileName, "em.trr", "em.edr", "em.log", mdoutFileName}

// gromacs keeps numbered backups of overwritten files unless it is disabled
const noBackupsEnv = "GMX_MAXBACKUP=-1"

//go:embed templates/em.mdp.tmpl
var defaultMdpTemplate string

type mdpParameter struct {
	Key   string
	Value string
}

type mdpContext struct {
	Steps      int
	Parameters []mdpParameter
}

// Gromacs - runs the short minimization with grompp and mdrun in the variant directory
type Gromacs struct {
	cfg    *domains.Engine
	mdp    *template.Template
	params []mdpParameter
}

func NewGromacs(cfg *domains.Engine) (*Gromacs, error) {
	if cfg.GmxBinary == "" {
		return nil, errors.New("gromacs binary is not set")
	}
	if cfg.Topology == "" {
		return nil, errors.New("engine topology is not set")
	}
	if cfg.MaxWarnings < 0 {
		return nil, errors.New("engine max warnings must be non negative")
	}

	text := defaultMdpTemplate
	if cfg.MdpTemplate != "" {
		data, err := os.ReadFile(cfg.MdpTemplate)
		if err != nil {
			return nil, fmt.Errorf("unable to read mdp template: %w", err)
		}
		text = string(data)
	}
	mdp, err := template.New("mdp").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mdp template: %w", err)
	}

	params, err := mdpParameters(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	return &Gromacs{
		cfg:    cfg,
		mdp:    mdp,
		params: params,
	}, nil
}

// RenderMdp - the minimization config
func (g *Gromacs) RenderMdp() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := g.mdp.Execute(buf, &mdpContext{
		Steps:      g.cfg.Steps,
		Parameters: g.params,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render mdp template: %w", err)
	}
	return buf.Bytes(), nil
}

// Preprocess - writes em.mdp and builds em.tpr from merged.gro that is both the structure and the restraint
// reference
func (g *Gromacs) Preprocess(ctx context.Context, dir string) error {
	mdp, err := g.RenderMdp()
	if err != nil {
		return transform.NewStageError(transform.StagePreprocess, err)
	}
	if err := os.WriteFile(filepath.Join(dir, mdpFileName), mdp, 0o644); err != nil {
		return transform.NewStageError(transform.StagePreprocess, err)
	}
	return g.gmx(ctx, transform.StagePreprocess, dir,
		"grompp",
		"-f", mdpFileName,
		"-c", domains.MergedCoordinatesFileName,
		"-r", domains.MergedCoordinatesFileName,
		"-p", g.cfg.Topology,
		"-o", tprFileName,
		"-po", mdoutFileName,
		"-maxwarn", strconv.Itoa(g.cfg.MaxWarnings),
	)
}

// Run - runs the minimization, replaces merged.gro with the minimized coordinates and removes the scratch files
func (g *Gromacs) Run(ctx context.Context, dir string) error {
	if err := g.gmx(ctx, transform.StageMinimize, dir, "mdrun", "-deffnm", deffnm); err != nil {
		return err
	}
	err := os.Rename(filepath.Join(dir, outputGro), filepath.Join(dir, domains.MergedCoordinatesFileName))
	if err != nil {
		return transform.NewStageError(transform.StageMinimize, fmt.Errorf("minimized coordinates: %w", err))
	}
	for _, name := range ScratchFiles {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return transform.NewStageError(transform.StageMinimize, fmt.Errorf("unable to remove scratch file: %w", err))
		}
	}
	return nil
}

func (g *Gromacs) gmx(ctx context.Context, stage, dir string, args ...string) error {
	logger := log.With().Str("Stage", stage).Str("Dir", dir).Logger()
	env := append([]string{noBackupsEnv}, g.cfg.Env...)
	err := cmd_runner.RunWithOptions(ctx, &logger, &cmd_runner.Options{Dir: dir, Env: env}, g.cfg.GmxBinary, args...)
	if err != nil {
		return transform.NewStageError(stage, err)
	}
	return nil
}

// mdpParameters - extra mdp options sorted by key. mdp expects yes/no for booleans
func mdpParameters(raw map[string]any) ([]mdpParameter, error) {
	res := make([]mdpParameter, 0, len(raw))
	for k, v := range raw {
		var value string
		switch vv := v.(type) {
		case bool:
			value = "no"
			if vv {
				value = "yes"
			}
		case []any:
			parts := make([]string, 0, len(vv))
			for _, item := range vv {
				s, err := cast.ToStringE(item)
				if err != nil {
					return nil, fmt.Errorf("engine parameter %s: %w", k, err)
				}
				parts = append(parts, s)
			}
			value = strings.Join(parts, " ")
		default:
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, fmt.Errorf("engine parameter %s: %w", k, err)
			}
			value = s
		}
		res = append(res, mdpParameter{Key: k, Value: value})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Key < res[j].Key
	})
	return res, nil
}

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

// Package restraint makes the ligand restraint includes of a variant distinguishable from the protein ones.
// Both tools name their restraint file posre.itp, so includes of the generic name are redirected to the ligand
// restraint file shared one level up.
package restraint

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ligate/edgeprep/internal/domains"
)

type Rewriter struct {
	genericName string
	ligandName  string
	target      string
}

func NewRewriter(cfg *domains.Restraints) (*Rewriter, error) {
	if cfg.GenericName == "" || cfg.LigandName == "" {
		return nil, errors.New("restraint file names must be set")
	}
	if cfg.GenericName == cfg.LigandName {
		return nil, fmt.Errorf("generic and ligand restraint names are the same: %s", cfg.GenericName)
	}
	return &Rewriter{
		genericName: cfg.GenericName,
		ligandName:  cfg.LigandName,
		target:      cfg.IncludePrefix + cfg.LigandName,
	}, nil
}

// Rewrite - redirects the generic restraint includes. Returns the content and the amount of rewritten directives
func (r *Rewriter) Rewrite(data []byte) ([]byte, int) {
	lines := strings.SplitAfter(string(data), "\n")
	changed := 0
	for i, l := range lines {
		body, terminator := splitTerminator(l)
		inc, ok := ParseInclude(body)
		if !ok || inc.BaseName() != r.genericName {
			continue
		}
		inc.Path = r.target
		lines[i] = inc.String() + terminator
		changed++
	}
	if changed == 0 {
		return data, 0
	}
	return []byte(strings.Join(lines, "")), changed
}

// RewriteDir - rewrites every regular top level file of dir except the ligand restraint file itself. Binary
// files are skipped. Returns the names of the rewritten files
func (r *Rewriter) RewriteDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name() == r.ligandName {
			continue
		}
		name := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if bytes.IndexByte(data, 0) >= 0 {
			continue
		}
		rewritten, changed := r.Rewrite(data)
		if changed == 0 {
			continue
		}
		if err := os.WriteFile(name, rewritten, info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("unable to rewrite %s: %w", name, err)
		}
		log.Debug().
			Str("File", name).
			Int("Includes", changed).
			Str("Target", r.target).
			Msg("restraint includes are rewritten")
		res = append(res, e.Name())
	}
	return res, nil
}

func splitTerminator(line string) (string, string) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

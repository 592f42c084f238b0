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

package pairing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/utils/cmd_runner"
)

var ErrPairingFailed = errors.New("ligand pairing failed")

// Source - reads the ligand pairs produced by the external pairing tool
type Source struct {
	workdir string
	cfg     *domains.Pairing
	when    *WhenCond
}

func NewSource(workdir string, cfg *domains.Pairing) (*Source, error) {
	absWorkdir, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve workdir: %w", err)
	}
	if cfg.Result == "" {
		return nil, errors.New("pairing result file name is empty")
	}
	when, err := NewWhenCond(cfg.When)
	if err != nil {
		return nil, err
	}
	return &Source{
		workdir: absWorkdir,
		cfg:     cfg,
		when:    when,
	}, nil
}

// Artifact - absolute path of the pairing result
func (s *Source) Artifact() string {
	if filepath.IsAbs(s.cfg.Result) {
		return s.cfg.Result
	}
	return filepath.Join(s.workdir, s.cfg.Result)
}

// Pairs - runs the pairing command if it is set and reads the result. Every problem with the result is reported
// as ErrPairingFailed
func (s *Source) Pairs(ctx context.Context) ([]domains.LigandPair, error) {
	if len(s.cfg.Command) > 0 {
		log.Info().Strs("Command", s.cfg.Command).Msg("running ligand pairing")
		err := cmd_runner.RunWithOptions(
			ctx, &log.Logger, &cmd_runner.Options{Dir: s.workdir}, s.cfg.Command[0], s.cfg.Command[1:]...,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: pairing command: %w", ErrPairingFailed, err)
		}
	}

	artifact := s.Artifact()
	info, err := os.Stat(artifact)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: result %s was not produced", ErrPairingFailed, artifact)
		}
		return nil, fmt.Errorf("%w: %w", ErrPairingFailed, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: result %s is a directory", ErrPairingFailed, artifact)
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPairingFailed, err)
	}
	pairs, err := s.parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPairingFailed, artifact, err)
	}
	pairs = Dedupe(pairs)

	res := make([]domains.LigandPair, 0, len(pairs))
	for idx, p := range pairs {
		ok, err := s.when.Evaluate(p, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug().Str("Edge", p.String()).Msg("pair is excluded by when condition")
			continue
		}
		res = append(res, p)
	}
	log.Info().Int("Pairs", len(res)).Int("Excluded", len(pairs)-len(res)).Msg("ligand pairing is read")
	return res, nil
}

func (s *Source) parse(data []byte) ([]domains.LigandPair, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("malformed json")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, errors.New("expected an array of pairs")
	}
	records := doc.Array()
	if len(records) == 0 {
		return nil, errors.New("no pairs found")
	}

	res := make([]domains.LigandPair, 0, len(records))
	for idx, r := range records {
		var a, b gjson.Result
		switch {
		case r.IsArray():
			items := r.Array()
			if len(items) != 2 {
				return nil, fmt.Errorf("record %d: expected 2 items got %d", idx, len(items))
			}
			a, b = items[0], items[1]
		case r.IsObject():
			a, b = r.Get("ligand_a"), r.Get("ligand_b")
		default:
			return nil, fmt.Errorf("record %d: expected an array or an object", idx)
		}

		nameA, err := s.ligandName(a)
		if err != nil {
			return nil, fmt.Errorf("record %d: ligand_a: %w", idx, err)
		}
		nameB, err := s.ligandName(b)
		if err != nil {
			return nil, fmt.Errorf("record %d: ligand_b: %w", idx, err)
		}
		if nameA == nameB {
			return nil, fmt.Errorf("record %d: ligand %s is paired with itself", idx, nameA)
		}
		res = append(res, domains.LigandPair{A: nameA, B: nameB})
	}
	return res, nil
}

// ligandName - the ligand identifier is the first element of the path relative to the workdir
func (s *Source) ligandName(v gjson.Result) (string, error) {
	if v.Type != gjson.String {
		return "", errors.New("expected a string")
	}
	raw := strings.TrimSpace(v.String())
	if raw == "" {
		return "", errors.New("empty value")
	}

	rel := filepath.Clean(raw)
	if filepath.IsAbs(rel) {
		var err error
		rel, err = filepath.Rel(s.workdir, rel)
		if err != nil {
			return "", fmt.Errorf("path %s: %w", raw, err)
		}
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside of the workdir", raw)
	}
	return strings.SplitN(rel, "/", 2)[0], nil
}

// Dedupe - removes pairs connecting already seen ligands in any order. The first occurrence wins
func Dedupe(pairs []domains.LigandPair) []domains.LigandPair {
	res := make([]domains.LigandPair, 0, len(pairs))
	for _, p := range pairs {
		seen := false
		for _, r := range res {
			if r.SameEdge(p) {
				seen = true
				break
			}
		}
		if seen {
			log.Warn().Str("Edge", p.String()).Msg("duplicated pair is skipped")
			continue
		}
		res = append(res, p)
	}
	return res
}

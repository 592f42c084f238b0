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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ligate/edgeprep/internal/domains"
)

// Manifest - the paths to remove at the end of the run. Paths are removed by exact identity, nothing is derived
// from naming patterns
type Manifest struct {
	workdir   string
	protected map[string]struct{}
	paths     []string
	seen      map[string]struct{}
}

// NewManifest - protected paths are never tracked
func NewManifest(workdir string, protected ...string) (*Manifest, error) {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, err
	}
	m := &Manifest{
		workdir:   abs,
		protected: make(map[string]struct{}, len(protected)),
		seen:      make(map[string]struct{}),
	}
	for _, p := range protected {
		absP, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		m.protected[absP] = struct{}{}
	}
	return m, nil
}

// Track - registers the path for removal. Paths outside of the workdir, the workdir itself, edge directories
// with their content and protected paths are refused
func (m *Manifest) Track(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.workdir, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(m.workdir, path)
	if err != nil {
		return fmt.Errorf("unable to track %s: %w", path, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to track %s: outside of the workdir", path)
	}
	top := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	if strings.HasPrefix(top, domains.EdgeDirPrefix) {
		return fmt.Errorf("refusing to track %s: edge directories are durable", path)
	}
	if _, ok := m.protected[path]; ok {
		return fmt.Errorf("refusing to track %s: path is protected", path)
	}
	if _, ok := m.seen[path]; ok {
		return nil
	}
	m.seen[path] = struct{}{}
	m.paths = append(m.paths, path)
	return nil
}

// Paths - tracked paths in the tracking order
func (m *Manifest) Paths() []string {
	return append([]string(nil), m.paths...)
}

// Cleanup - removes every tracked path. Missing paths are skipped, all errors are collected
func (m *Manifest) Cleanup() error {
	var errs []error
	for _, p := range m.paths {
		if _, err := os.Lstat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Debug().Str("Path", p).Msg("tracked path is already removed")
				continue
			}
			errs = append(errs, err)
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("unable to remove %s: %w", p, err))
			continue
		}
		log.Debug().Str("Path", p).Msg("removed")
	}
	return errors.Join(errs...)
}

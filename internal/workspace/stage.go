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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spaolacci/murmur3"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/variant"
)

const (
	primaryInputDir   = "primary"
	secondaryInputDir = "secondary"
)

// stageInputs - copies the variant inputs into input/{primary,secondary}/ keeping the base names
func stageInputs(variantDir string, in *variant.Inputs) (*variant.Inputs, []StagedFile, error) {
	for _, sub := range []string{primaryInputDir, secondaryInputDir} {
		if err := os.MkdirAll(filepath.Join(variantDir, domains.StagedInputDirName, sub), dirMode); err != nil {
			return nil, nil, fmt.Errorf("unable to create input directory: %w", err)
		}
	}

	staged := &variant.Inputs{}
	targets := []struct {
		role   string
		sub    string
		source string
		dest   *string
	}{
		{"primary_topology", primaryInputDir, in.PrimaryTopology, &staged.PrimaryTopology},
		{"secondary_topology", secondaryInputDir, in.SecondaryTopology, &staged.SecondaryTopology},
		{"primary_structure", primaryInputDir, in.PrimaryStructure, &staged.PrimaryStructure},
		{"secondary_structure", secondaryInputDir, in.SecondaryStructure, &staged.SecondaryStructure},
		{"primary_coordinates", primaryInputDir, in.PrimaryCoordinates, &staged.PrimaryCoordinates},
		{"secondary_coordinates", secondaryInputDir, in.SecondaryCoordinates, &staged.SecondaryCoordinates},
	}

	files := make([]StagedFile, 0, len(targets))
	for _, t := range targets {
		rel := filepath.Join(domains.StagedInputDirName, t.sub, filepath.Base(t.source))
		size, hash, err := copyFile(t.source, filepath.Join(variantDir, rel))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to stage %s: %w", t.role, err)
		}
		*t.dest = rel
		files = append(files, StagedFile{
			Role:    t.role,
			Source:  t.source,
			Path:    rel,
			Size:    size,
			Murmur3: hash,
		})
	}
	return staged, files, nil
}

// copyFile - copies the file and returns its size and its murmur3 128 bit fingerprint
func copyFile(src, dst string) (int64, string, error) {
	r, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer r.Close()

	w, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		return 0, "", err
	}
	h := murmur3.New128()
	size, err := io.Copy(io.MultiWriter(w, h), r)
	if err != nil {
		w.Close()
		return 0, "", err
	}
	if err := w.Close(); err != nil {
		return 0, "", err
	}
	hi, lo := h.Sum128()
	return size, fmt.Sprintf("%016x%016x", hi, lo), nil
}

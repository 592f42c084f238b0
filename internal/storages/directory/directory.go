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

package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ligate/edgeprep/internal/storages"
	"github.com/ligate/edgeprep/internal/storages/domains"
)

const (
	dirMode  os.FileMode = 0750
	fileMode os.FileMode = 0640
)

// Storage - objects kept as files under a local directory. An object is written to a hidden temporary file and
// renamed into place, so readers never see a partial archive
type Storage struct {
	root string
}

func NewStorage(cfg *Config) (*Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open directory storage: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("directory storage path %s is not a directory", cfg.Path)
	}
	return &Storage{root: cfg.Path}, nil
}

func (s *Storage) Location() string {
	return s.root
}

// path - the file of the object. Names leaving the root are rejected
func (s *Storage) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("object name %q is outside of the storage directory", name)
	}
	return filepath.Join(s.root, name), nil
}

func (s *Storage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("unable to list directory storage: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) GetObject(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, storages.ErrFileNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *Storage) PutObject(ctx context.Context, name string, body io.Reader) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirMode); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return fmt.Errorf("unable to create file: %w", err)
	}
	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: body}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), fileMode); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to store %s: %w", name, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, names ...string) error {
	for _, name := range names {
		p, err := s.path(name)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error deleting %s: %w", name, err)
		}
	}
	return nil
}

func (s *Storage) Stat(ctx context.Context, name string) (*domains.ObjectStat, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domains.ObjectStat{Name: name}, nil
		}
		return nil, fmt.Errorf("error getting file stat: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	return &domains.ObjectStat{
		Name:         name,
		LastModified: info.ModTime(),
		Exist:        true,
		Size:         info.Size(),
	}, nil
}

// contextReader - stops the copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

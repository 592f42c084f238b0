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

package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ligate/edgeprep/internal/storages"
	"github.com/ligate/edgeprep/internal/utils/ioutils"
)

const Extension = ".tar.gz"

// ObjectName - the storage object of the edge
func ObjectName(edge string) string {
	return edge + Extension
}

// EdgeName - the edge kept in the object. Objects that are not edge archives are reported with false
func EdgeName(object string) (string, bool) {
	edge, ok := strings.CutSuffix(object, Extension)
	return edge, ok && edge != ""
}

// Stats - the result of a published edge
type Stats struct {
	Object string
	Files  int
	// Size - compressed size
	Size int64
}

// Pack - writes the edge directory as a tar stream. Entry names start with the directory base name
func Pack(ctx context.Context, w io.Writer, dir string) (int, error) {
	base := filepath.Base(dir)
	tw := tar.NewWriter(w)
	files := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			log.Debug().Str("Path", p).Msg("skipping non regular file")
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("unable to pack %s: %w", rel, err)
		}
		files++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := tw.Close(); err != nil {
		return 0, err
	}
	return files, nil
}

// Publish - streams the compressed edge directory into the storage as <edge>.tar.gz
func Publish(ctx context.Context, st storages.Storager, dir string, usePgzip bool) (*Stats, error) {
	stats := &Stats{Object: ObjectName(filepath.Base(dir))}
	pr, pw := io.Pipe()
	counter := ioutils.NewCountReader(pr)

	eg, gtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		gz := ioutils.NewGzipWriter(pw, usePgzip)
		files, err := Pack(gtx, gz, dir)
		if err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("unable to pack edge: %w", err)
		}
		stats.Files = files
		return gz.Close()
	})
	eg.Go(func() error {
		defer pr.Close()
		if err := st.PutObject(gtx, stats.Object, counter); err != nil {
			return fmt.Errorf("unable to upload %s: %w", stats.Object, err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	stats.Size = counter.Count()
	return stats, nil
}

// List - file names of a published archive
func List(ctx context.Context, st storages.Storager, object string, usePgzip bool) ([]string, error) {
	obj, err := st.GetObject(ctx, object)
	if err != nil {
		return nil, err
	}
	gz, err := ioutils.NewGzipReader(obj, usePgzip)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var res []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return nil, fmt.Errorf("unable to read archive %s: %w", object, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			res = append(res, hdr.Name)
		}
	}
}

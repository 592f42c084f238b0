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

package ioutils

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/pgzip"
)

type flushWriteCloser interface {
	io.WriteCloser
	Flush() error
}

// GzipWriter - compresses into the archive object. Close flushes the compressor and closes the object
type GzipWriter struct {
	object io.WriteCloser
	gz     flushWriteCloser
}

// NewGzipWriter - pgzip compresses blocks in parallel and produces a regular gzip stream
func NewGzipWriter(object io.WriteCloser, usePgzip bool) *GzipWriter {
	gw := &GzipWriter{object: object}
	if usePgzip {
		gw.gz = pgzip.NewWriter(object)
	} else {
		gw.gz = gzip.NewWriter(object)
	}
	return gw
}

func (gw *GzipWriter) Write(p []byte) (int, error) {
	return gw.gz.Write(p)
}

func (gw *GzipWriter) Close() error {
	var errs []error
	if err := gw.gz.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("error flushing gzip buffer: %w", err))
	}
	if err := gw.gz.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing gzip writer: %w", err))
	}
	if err := gw.object.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing archive object: %w", err))
	}
	return errors.Join(errs...)
}

// GzipReader - decompresses the archive object. Close closes the decompressor and the object
type GzipReader struct {
	object io.ReadCloser
	gz     io.ReadCloser
}

func NewGzipReader(object io.ReadCloser, usePgzip bool) (*GzipReader, error) {
	var (
		gz  io.ReadCloser
		err error
	)
	if usePgzip {
		gz, err = pgzip.NewReader(object)
	} else {
		gz, err = gzip.NewReader(object)
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("cannot create gzip reader: %w", err), object.Close())
	}
	return &GzipReader{
		object: object,
		gz:     gz,
	}, nil
}

func (r *GzipReader) Read(p []byte) (int, error) {
	return r.gz.Read(p)
}

func (r *GzipReader) Close() error {
	var errs []error
	if err := r.gz.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing gzip reader: %w", err))
	}
	if err := r.object.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing archive object: %w", err))
	}
	return errors.Join(errs...)
}

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

package testutils

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ligate/edgeprep/internal/storages/domains"
)

// StorageMock - testify mock of the edge archive storage. PutObject drains the body before the expectation is checked,
// so streaming producers are never blocked, and keeps the uploaded data in Objects
type StorageMock struct {
	mock.Mock
	mx      sync.Mutex
	Objects map[string][]byte
}

func (s *StorageMock) Location() string {
	return s.Called().String(0)
}

func (s *StorageMock) List(ctx context.Context) ([]string, error) {
	args := s.Called(ctx)
	if names, ok := args.Get(0).([]string); ok {
		return names, args.Error(1)
	}
	return nil, args.Error(1)
}

func (s *StorageMock) GetObject(ctx context.Context, filePath string) (io.ReadCloser, error) {
	args := s.Called(ctx, filePath)
	if r, ok := args.Get(0).(io.ReadCloser); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (s *StorageMock) PutObject(ctx context.Context, filePath string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mx.Lock()
	if s.Objects == nil {
		s.Objects = make(map[string][]byte)
	}
	s.Objects[filePath] = data
	s.mx.Unlock()
	return s.Called(ctx, filePath).Error(0)
}

// Object - uploaded object as a reader
func (s *StorageMock) Object(filePath string) io.ReadCloser {
	s.mx.Lock()
	defer s.mx.Unlock()
	return io.NopCloser(bytes.NewReader(s.Objects[filePath]))
}

func (s *StorageMock) Delete(ctx context.Context, names ...string) error {
	return s.Called(ctx, names).Error(0)
}

func (s *StorageMock) Stat(ctx context.Context, name string) (*domains.ObjectStat, error) {
	args := s.Called(ctx, name)
	if st, ok := args.Get(0).(*domains.ObjectStat); ok {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

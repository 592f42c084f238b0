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

package storages

import (
	"context"
	"errors"
	"io"

	"github.com/ligate/edgeprep/internal/storages/domains"
)

var ErrFileNotFound = errors.New("file not found")

// Storager - the place where published edge archives are kept. Object names are relative to the storage root
type Storager interface {
	// Location - the storage root as shown to the user
	Location() string
	// List - sorted names of the objects kept directly under the root
	List(ctx context.Context) ([]string, error)
	// GetObject - returns ErrFileNotFound when the object is missing
	GetObject(ctx context.Context, name string) (io.ReadCloser, error)
	// PutObject - writes the object, replacing an existing one
	PutObject(ctx context.Context, name string, body io.Reader) error
	// Delete - removes the objects. Missing objects are skipped
	Delete(ctx context.Context, names ...string) error
	// Stat - object metadata. Exist is false for a missing object
	Stat(ctx context.Context, name string) (*domains.ObjectStat, error)
}

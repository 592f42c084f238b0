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

package builder

import (
	"context"
	"fmt"
	"os"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/storages"
	"github.com/ligate/edgeprep/internal/storages/directory"
	"github.com/ligate/edgeprep/internal/storages/s3"
)

const (
	DirectoryStorageType = "directory"
	S3StorageType        = "s3"
)

// GetStorage - builds the storage selected by storage.type. STORAGE_TYPE env overrides the config value
func GetStorage(ctx context.Context, stCfg *domains.StorageConfig, logCgf *domains.LogConfig) (
	storages.Storager, error,
) {
	storageType := stCfg.Type
	if envCfg := os.Getenv("STORAGE_TYPE"); envCfg != "" {
		storageType = envCfg
	}
	switch storageType {
	case DirectoryStorageType, "":
		if stCfg.Directory == nil {
			return nil, fmt.Errorf("directory storage config is empty")
		}
		return directory.NewStorage(stCfg.Directory)
	case S3StorageType:
		if stCfg.S3 == nil {
			return nil, fmt.Errorf("s3 storage config is empty")
		}
		return s3.NewStorage(ctx, stCfg.S3, logCgf.Level)
	}
	return nil, fmt.Errorf("unknown storage type \"%s\"", storageType)
}

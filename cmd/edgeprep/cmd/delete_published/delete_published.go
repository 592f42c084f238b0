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

package delete_published

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ligate/edgeprep/internal/archive"
	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/storages"
	"github.com/ligate/edgeprep/internal/storages/builder"
	"github.com/ligate/edgeprep/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "delete-published edgeName...",
		Short: "delete edge archives from the storage",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
			if err != nil {
				log.Fatal().Err(err).Msg("error building storage")
			}
			if err := DeletePublished(ctx, st, args); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()
)

// DeletePublished - removes the archives of the edges. Every edge must be published, otherwise nothing is removed
func DeletePublished(ctx context.Context, st storages.Storager, edges []string) error {
	var errs []error
	objects := make([]string, 0, len(edges))
	for _, edge := range edges {
		object := archive.ObjectName(edge)
		stat, err := st.Stat(ctx, object)
		if err != nil {
			return fmt.Errorf("storage error: %w", err)
		}
		if !stat.Exist {
			errs = append(errs, fmt.Errorf("edge %s was not found in %s", edge, st.Location()))
			continue
		}
		objects = append(objects, object)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := st.Delete(ctx, objects...); err != nil {
		return fmt.Errorf("storage error: %w", err)
	}
	for _, edge := range edges {
		log.Info().Str("Edge", edge).Msg("published edge is deleted")
	}
	return nil
}

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

package publish

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
	"github.com/ligate/edgeprep/internal/workspace"
)

var (
	Cmd = &cobra.Command{
		Use:   "publish [flags] [edgeName...]",
		Short: "archive the done edges into the storage",
		Long: "Packs every done edge of the workdir (or only the named ones) into <edge>.tar.gz and uploads it " +
			"into the configured storage. Edges that are not done and edges already in the storage are skipped",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ws, err := workspace.New(Config.Common.Workdir, &Config.Layout)
			if err != nil {
				log.Fatal().Err(err).Msg("")
			}
			st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
			if err != nil {
				log.Fatal().Err(err).Msg("error building storage")
			}

			opts := Options{Pgzip: Config.Publish.Pgzip, Overwrite: overwrite}
			published, err := PublishEdges(ctx, st, ws, args, opts)
			if err != nil {
				log.Fatal().Err(err).Msg("")
			}
			log.Info().Int("Edges", len(published)).Msg("publishing is done")
		},
	}
	Config    = domains.NewConfig()
	overwrite bool
)

func init() {
	Cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace the archives of edges that are already published")
}

// Options - how the edges are published
type Options struct {
	Pgzip bool
	// Overwrite - upload edges whose archive is already in the storage
	Overwrite bool
}

// PublishEdges - uploads the done edges. All edges of the workspace are taken when names is empty. Edges already
// published are skipped unless opts.Overwrite is set
func PublishEdges(
	ctx context.Context, st storages.Storager, ws *workspace.Workspace, names []string, opts Options,
) ([]*archive.Stats, error) {
	edges, err := selectEdges(ws, names)
	if err != nil {
		return nil, err
	}

	var res []*archive.Stats
	for _, e := range edges {
		edgeLog := log.With().Str("Edge", e.Name).Logger()
		if e.Manifest.Status != workspace.StatusDone {
			edgeLog.Warn().Str("Status", e.Manifest.Status).Msg("edge is not done: skipping")
			continue
		}
		if !opts.Overwrite {
			stat, err := st.Stat(ctx, archive.ObjectName(e.Name))
			if err != nil {
				return res, fmt.Errorf("edge %s: %w", e.Name, err)
			}
			if stat.Exist {
				edgeLog.Info().
					Str("Object", stat.Name).
					Time("Modified", stat.LastModified).
					Msg("edge is already published: skipping")
				continue
			}
		}
		stats, err := archive.Publish(ctx, st, e.Dir, opts.Pgzip)
		if err != nil {
			return res, fmt.Errorf("edge %s: %w", e.Name, err)
		}
		edgeLog.Info().
			Str("Object", stats.Object).
			Int("Files", stats.Files).
			Int64("Size", stats.Size).
			Msg("edge is published")
		res = append(res, stats)
	}
	return res, nil
}

func selectEdges(ws *workspace.Workspace, names []string) ([]*workspace.EdgeInfo, error) {
	if len(names) > 0 {
		var errs []error
		res := make([]*workspace.EdgeInfo, 0, len(names))
		for _, name := range names {
			e, err := ws.GetEdge(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("edge %s: %w", name, err))
				continue
			}
			res = append(res, e)
		}
		return res, errors.Join(errs...)
	}

	all, err := ws.ListEdges()
	if err != nil {
		return nil, err
	}
	res := make([]*workspace.EdgeInfo, 0, len(all))
	for _, e := range all {
		if e.Err != nil {
			log.Warn().Err(e.Err).Str("Edge", e.Name).Msg("unable to read edge manifest: skipping")
			continue
		}
		res = append(res, e)
	}
	return res, nil
}

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

package list_published

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
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
		Use:   "list-published",
		Short: "list the edge archives kept in the storage",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
			if err != nil {
				log.Fatal().Err(err).Msg("error building storage")
			}
			if err := listPublished(ctx, os.Stdout, st, countFiles); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config     = domains.NewConfig()
	countFiles bool
)

func init() {
	Cmd.Flags().BoolVar(&countFiles, "files", false, "download every archive and count the files in it")
}

// Published - an edge archive found in the storage
type Published struct {
	Edge     string
	Object   string
	Size     int64
	Modified time.Time
	// Files - -1 unless the archive was read
	Files int
}

// ListPublished - the edge archives of the storage sorted by edge name. Other objects are skipped
func ListPublished(ctx context.Context, st storages.Storager, withFiles, usePgzip bool) ([]*Published, error) {
	names, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	var res []*Published
	for _, name := range names {
		edge, ok := archive.EdgeName(name)
		if !ok {
			log.Debug().Str("Object", name).Msg("not an edge archive: skipping")
			continue
		}
		stat, err := st.Stat(ctx, name)
		if err != nil {
			return nil, err
		}
		if !stat.Exist {
			// deleted after listing
			continue
		}
		p := &Published{
			Edge:     edge,
			Object:   name,
			Size:     stat.Size,
			Modified: stat.LastModified,
			Files:    -1,
		}
		if withFiles {
			files, err := archive.List(ctx, st, name, usePgzip)
			if err != nil {
				return nil, fmt.Errorf("edge %s: %w", edge, err)
			}
			p.Files = len(files)
		}
		res = append(res, p)
	}
	return res, nil
}

func listPublished(ctx context.Context, w io.Writer, st storages.Storager, withFiles bool) error {
	published, err := ListPublished(ctx, st, withFiles, Config.Publish.Pgzip)
	if err != nil {
		return err
	}
	data := make([][]string, 0, len(published))
	for _, p := range published {
		data = append(data, renderListItem(p))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"edge", "object", "size", "modified", "files"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func renderListItem(p *Published) []string {
	files := ""
	if p.Files >= 0 {
		files = strconv.Itoa(p.Files)
	}
	return []string{p.Edge, p.Object, SizePretty(p.Size), p.Modified.UTC().Format(time.RFC3339), files}
}

func SizePretty(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

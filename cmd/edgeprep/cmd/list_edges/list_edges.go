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

package list_edges

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/utils/logger"
	"github.com/ligate/edgeprep/internal/workspace"
)

const unknownStatus = "unknown"

var (
	Cmd = &cobra.Command{
		Use:   "list-edges",
		Short: "list all edge directories of the workdir",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			if err := listEdges(os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()
)

func listEdges(w io.Writer) error {
	ws, err := workspace.New(Config.Common.Workdir, &Config.Layout)
	if err != nil {
		return err
	}
	edges, err := ws.ListEdges()
	if err != nil {
		return err
	}

	data := make([][]string, 0, len(edges))
	for _, e := range edges {
		if e.Err != nil {
			log.Warn().
				Err(e.Err).
				Str("Edge", e.Name).
				Msg("unable to read edge manifest")
		}
		data = append(data, renderListItem(e))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"name", "ligands", "status", "started", "duration", "variants"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func renderListItem(e *workspace.EdgeInfo) []string {
	if e.Manifest == nil {
		return []string{e.Name, "", partialStatus(e), "", "", ""}
	}
	m := e.Manifest
	var duration string
	if d, ok := m.Duration(); ok {
		duration = time.Time{}.Add(d).Format("15:04:05")
	}
	return []string{
		e.Name,
		fmt.Sprintf("%s %s", m.LigandA, m.LigandB),
		m.Status,
		m.StartedAt.Format(time.RFC3339),
		duration,
		strconv.Itoa(len(m.Variants)),
	}
}

// partialStatus - the status field of a manifest that cannot be decoded as a whole
func partialStatus(e *workspace.EdgeInfo) string {
	status, err := workspace.EdgeStatus(filepath.Join(e.Dir, domains.EdgeManifestFileName))
	if err != nil || status == "" {
		return unknownStatus
	}
	return status
}

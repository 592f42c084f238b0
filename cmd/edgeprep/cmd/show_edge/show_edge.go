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

package show_edge

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/utils/logger"
	stringsUtils "github.com/ligate/edgeprep/internal/utils/strings"
	"github.com/ligate/edgeprep/internal/workspace"
)

const (
	FormatJson = "json"
	FormatYaml = "yaml"
	FormatText = "text"

	errorWrap = 80
)

const templateName = "edge"

const templateString = `;
; Edge
;     Name:        {{ .Name }}
;     Run id:      {{ .Manifest.RunID }}
;     Ligands:     {{ .Manifest.LigandA }} {{ .Manifest.LigandB }}
;     Status:      {{ .Manifest.Status }}
;     Started at:  {{ .Manifest.StartedAt.Format "2006-01-02T15:04:05Z07:00" }}
{{- with .Manifest.CompletedAt }}
;     Completed at: {{ .Format "2006-01-02T15:04:05Z07:00" }}
{{- end }}
{{- with duration .Manifest }}
;     Duration:    {{ . }}
{{- end }}
{{- if .Manifest.Error }}
;     Error:
{{ wrapIndent .Manifest.Error }}
{{- end }}
;
; Variants
{{- range .Manifest.Variants }}
{{ .Name }}; primary {{ .Primary }} secondary {{ .Secondary }} {{ .Status }}{{ if .FailedStage }} at {{ .FailedStage }}{{ end }}
{{- range .Inputs }}
    {{ .Role }} {{ .Path }} {{ .Size }} {{ .Murmur3 }}
{{- end }}
{{- end }}
`

var (
	Config = domains.NewConfig()
	format string
)

var (
	Cmd = &cobra.Command{
		Use:   "show-edge [flags] edgeName",
		Args:  cobra.ExactArgs(1),
		Short: "shows the manifest of the edge",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("error setting up logger")
			}

			ws, err := workspace.New(Config.Common.Workdir, &Config.Layout)
			if err != nil {
				log.Fatal().Err(err).Msg("")
			}
			edge, err := ws.GetEdge(args[0])
			if err != nil {
				log.Fatal().Err(err).Str("Edge", args[0]).Msg("cannot read edge")
			}
			if err := ShowEdge(os.Stdout, edge, format); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
)

func init() {
	Cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format [text|yaml|json]")
}

func ShowEdge(w io.Writer, edge *workspace.EdgeInfo, format string) error {
	switch format {
	case FormatText:
		return printText(w, edge)
	case FormatYaml:
		if err := yaml.NewEncoder(w).Encode(edge.Manifest); err != nil {
			return fmt.Errorf("yaml render error: %w", err)
		}
	case FormatJson:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(edge.Manifest); err != nil {
			return fmt.Errorf("json render error: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %s", format)
	}
	return nil
}

func printText(w io.Writer, edge *workspace.EdgeInfo) error {
	funcs := template.FuncMap{
		"duration": func(m *workspace.EdgeManifest) string {
			d, ok := m.Duration()
			if !ok {
				return ""
			}
			return d.Round(time.Second).String()
		},
		"wrapIndent": func(s string) string {
			return stringsUtils.Indent(stringsUtils.WrapString(s, errorWrap), ";         ")
		},
	}
	t, err := template.New(templateName).Funcs(funcs).Parse(templateString)
	if err != nil {
		return fmt.Errorf("cannot parse edge report template: %w", err)
	}
	if err := t.Execute(w, edge); err != nil {
		return fmt.Errorf("template render error: %w", err)
	}
	return nil
}

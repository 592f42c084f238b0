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

package validate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/engine"
	"github.com/ligate/edgeprep/internal/pairing"
	"github.com/ligate/edgeprep/internal/restraint"
	"github.com/ligate/edgeprep/internal/transform"
	"github.com/ligate/edgeprep/internal/utils/logger"
	stringsUtils "github.com/ligate/edgeprep/internal/utils/strings"
	"github.com/ligate/edgeprep/internal/variant"
	"github.com/ligate/edgeprep/internal/workspace"
)

const (
	statusOk       = "ok"
	allVariants    = "*"
	diagnosticWrap = 60
)

var (
	Cmd = &cobra.Command{
		Use:   "validate",
		Short: "check the pairing, the ligand directories and the tools config without building anything",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := checkConfig(Config); err != nil {
				log.Fatal().Err(err).Msg("invalid config")
			}
			rows, err := Check(ctx, Config)
			if err != nil {
				if errors.Is(err, pairing.ErrPairingFailed) {
					log.Fatal().Err(err).Msg("pairing did not produce any edge to build")
				}
				log.Fatal().Err(err).Msg("")
			}
			render(rows)

			var problems int
			for _, r := range rows {
				if !r.Ok() {
					problems++
				}
			}
			if problems > 0 {
				log.Fatal().Int("Problems", problems).Msg("validation failed")
			}
			log.Info().Int("Checks", len(rows)).Msg("validation passed")
		},
	}
	Config = domains.NewConfig()
)

// Row - a single check result
type Row struct {
	Edge      string
	Variant   string
	Primary   string
	Secondary string
	Err       error
}

func (r *Row) Ok() bool {
	return r.Err == nil
}

func (r *Row) Status() string {
	if r.Err == nil {
		return statusOk
	}
	return r.Err.Error()
}

// checkConfig - builds every component the pipeline needs so config errors show up before the pairing runs
func checkConfig(cfg *domains.Config) error {
	var errs []error
	if _, err := transform.NewSet(&cfg.Tools); err != nil {
		errs = append(errs, err)
	}
	if _, err := engine.NewGromacs(&cfg.Engine); err != nil {
		errs = append(errs, err)
	}
	if _, err := restraint.NewRewriter(&cfg.Restraints); err != nil {
		errs = append(errs, err)
	}
	if !cfg.Box.Padding.IsPositive() {
		errs = append(errs, fmt.Errorf("box padding must be positive got %s", cfg.Box.Padding.String()))
	}
	return errors.Join(errs...)
}

// Check - runs the pairing and resolves the inputs of every variant of every edge. A failure of the pairing itself
// is returned as error, everything else is reported as a row
func Check(ctx context.Context, cfg *domains.Config) ([]*Row, error) {
	ws, err := workspace.New(cfg.Common.Workdir, &cfg.Layout)
	if err != nil {
		return nil, err
	}
	source, err := pairing.NewSource(ws.Workdir(), &cfg.Pairing)
	if err != nil {
		return nil, err
	}
	pairs, err := source.Pairs(ctx)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs left to build", pairing.ErrPairingFailed)
	}

	rows := []*Row{
		{Edge: "-", Variant: "-", Primary: ws.ProteinCoordinates(), Err: ws.CheckProteinCoordinates()},
	}
	for _, p := range pairs {
		var ligandErrs []error
		for _, name := range []string{p.A, p.B} {
			lr := domains.NewLigandRecord(ws.Workdir(), name, ws.Layout())
			ligandErrs = append(ligandErrs, lr.Validate(domains.PoseCount))
		}
		if _, err := os.Stat(ws.EdgeDir(p)); err == nil {
			ligandErrs = append(ligandErrs, fmt.Errorf("%w: %s", workspace.ErrEdgeExists, p.EdgeDirName()))
		}
		rows = append(rows, &Row{
			Edge:      p.EdgeDirName(),
			Variant:   allVariants,
			Primary:   p.A,
			Secondary: p.B,
			Err:       errors.Join(ligandErrs...),
		})

		for _, v := range variant.Enumerate(p) {
			_, err := variant.Resolve(ws.Workdir(), ws.Layout(), v)
			rows = append(rows, &Row{
				Edge:      p.EdgeDirName(),
				Variant:   v.Name(),
				Primary:   v.Primary,
				Secondary: v.Secondary,
				Err:       err,
			})
		}
	}
	return rows, nil
}

func render(rows []*Row) {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Edge,
			r.Variant,
			r.Primary,
			r.Secondary,
			stringsUtils.WrapString(r.Status(), diagnosticWrap),
		})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"edge", "variant", "primary", "secondary", "status"})
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}

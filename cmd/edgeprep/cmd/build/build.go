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

package build

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/engine"
	"github.com/ligate/edgeprep/internal/pairing"
	"github.com/ligate/edgeprep/internal/pipeline"
	"github.com/ligate/edgeprep/internal/restraint"
	"github.com/ligate/edgeprep/internal/transform"
	"github.com/ligate/edgeprep/internal/utils/logger"
	"github.com/ligate/edgeprep/internal/workspace"
)

var (
	Cmd = &cobra.Command{
		Use:   "build",
		Short: "build the edge directories of every ligand pair",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}
			if noCleanup {
				Config.Cleanup.Enabled = false
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			go func() {
				<-ctx.Done()
				// a second signal terminates the process at once
				cancel()
			}()

			if err := run(ctx, Config); err != nil {
				cancel()
				msg := ""
				if errors.Is(err, pairing.ErrPairingFailed) {
					msg = "pairing did not produce any edge to build"
				}
				log.Error().Err(err).Msg(msg)
				os.Exit(exitCode(err))
			}
			log.Info().Msg("all edges are built")
		},
	}
	Config    = domains.NewConfig()
	force     bool
	noCleanup bool
)

func init() {
	Cmd.Flags().BoolVar(&force, "force", false, "rebuild edges whose directories already exist")
	Cmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "keep the ligand directories and scratch files")
}

// exitCode - the exit status of the failed tool. Failures without one exit with 1
func exitCode(err error) int {
	var stageErr *transform.StageError
	if errors.As(err, &stageErr) && stageErr.ExitCode >= 1 {
		return stageErr.ExitCode
	}
	return 1
}

func run(ctx context.Context, cfg *domains.Config) error {
	ws, err := workspace.New(cfg.Common.Workdir, &cfg.Layout)
	if err != nil {
		return err
	}
	source, err := pairing.NewSource(ws.Workdir(), &cfg.Pairing)
	if err != nil {
		return err
	}
	tools, err := transform.NewSet(&cfg.Tools)
	if err != nil {
		return err
	}
	gmx, err := engine.NewGromacs(&cfg.Engine)
	if err != nil {
		return err
	}
	rewriter, err := restraint.NewRewriter(&cfg.Restraints)
	if err != nil {
		return err
	}
	builder, err := pipeline.NewEdgeBuilder(ws, tools, gmx, rewriter, cfg.Box.Padding, force)
	if err != nil {
		return err
	}
	return pipeline.NewDriver(source, builder, ws, &cfg.Cleanup).Run(ctx)
}

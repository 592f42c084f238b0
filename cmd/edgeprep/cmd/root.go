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

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/build"
	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/delete_published"
	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/list_edges"
	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/list_published"
	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/publish"
	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/show_edge"
	"github.com/ligate/edgeprep/cmd/edgeprep/cmd/validate"
	"github.com/ligate/edgeprep/internal/domains"
	configUtils "github.com/ligate/edgeprep/internal/utils/config"
)

const (
	configDirName  = "edgeprep"
	configFileName = "config.yml"
)

var (
	Version    string
	Commit     string
	CommitDate string

	RootCmd = &cobra.Command{
		Use:   "edgeprep",
		Short: "edgeprep builds hybrid topologies for relative binding free energy edges",
		Long: "Builds the simulation-ready directories of every ligand pair reported by the pairing " +
			"tool. Each edge gets four variants (two poses, both ligands as the primary one) that are merged, " +
			"fixed, relaxed by a short GROMACS minimization and assembled with the protein",
	}
	cfgFile string
	Config  = domains.NewConfig()
)

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				Commit = setting.Value
			}
			if setting.Key == "vcs.time" {
				CommitDate = setting.Value
			}
		}
	}
	if Version != "" {
		RootCmd.Version = fmt.Sprintf("%s %s %s", Version, Commit, CommitDate)
	} else {
		RootCmd.Version = fmt.Sprintf("%s %s", Commit, CommitDate)
	}

	cobra.OnInitialize(initConfig)
	// Removing short help flag from default
	RootCmd.PersistentFlags().BoolP("help", "", false, "help for edgeprep")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	RootCmd.PersistentFlags().StringP("log-format", "", "text", "logging format [text|json]")
	RootCmd.PersistentFlags().StringP("log-level", "", zerolog.LevelInfoValue,
		fmt.Sprintf(
			"logging level %s|%s|%s",
			zerolog.LevelDebugValue,
			zerolog.LevelInfoValue,
			zerolog.LevelWarnValue,
		),
	)
	RootCmd.PersistentFlags().StringP("workdir", "w", ".", "directory with the prepared ligands and the edges")

	// subcommands run with the config decoded by initConfig
	build.Config = Config
	validate.Config = Config
	list_edges.Config = Config
	show_edge.Config = Config
	publish.Config = Config
	list_published.Config = Config
	delete_published.Config = Config

	RootCmd.AddCommand(build.Cmd)
	RootCmd.AddCommand(validate.Cmd)
	RootCmd.AddCommand(list_edges.Cmd)
	RootCmd.AddCommand(show_edge.Cmd)
	RootCmd.AddCommand(publish.Cmd)
	RootCmd.AddCommand(list_published.Cmd)
	RootCmd.AddCommand(delete_published.Cmd)

	for key, flagName := range map[string]string{
		"log.format":     "log-format",
		"log.level":      "log-level",
		"common.workdir": "workdir",
	} {
		if err := viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(flagName)); err != nil {
			log.Fatal().Err(err).Msg("")
		}
	}

	RootCmd.InitDefaultCompletionCmd()
	RootCmd.InitDefaultHelpCmd()
	RootCmd.InitDefaultVersionFlag()

	for _, c := range RootCmd.Commands() {
		if c.Name() == "completion" || c.Name() == "help" {
			c.DisableFlagParsing = true
			for _, subc := range c.Commands() {
				subc.DisableFlagParsing = true
			}
		}
	}
}

// defaultConfigFile - config.yml in the user config directory if it exists
func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	name := filepath.Join(dir, configDirName, configFileName)
	if _, err := os.Stat(name); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("Path", name).Msg("unable to check default config file")
		}
		return ""
	}
	return name
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = defaultConfigFile()
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Msg("error reading from config file")
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	decoderCfg := func(cfg *mapstructure.DecoderConfig) {
		cfg.DecodeHook = configUtils.DecodeHook()
	}

	if err := viper.Unmarshal(Config, decoderCfg); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

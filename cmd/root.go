/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/tarjuman/internal/config"
	"github.com/valpere/tarjuman/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = config.NewViper()
	appCfg  config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tarjuman",
	Short: "Arabic to English row translation pipeline with quality gates",
	Long: `Translates section files of Arabic rows into English and checks every
row against length preservation, clause coverage, semantic drift and
scripture references. Rows that come out too short are flagged and
expanded in a second pass.

Settings come from tarjuman.yaml (current directory or
$HOME/.config/tarjuman), TARJUMAN_* environment variables and flags.

Use "tarjuman run --help" for run options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		appCfg = cfg

		l, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFmt})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bindFlag maps a command flag onto a viper key so flags override the
// config file and environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./tarjuman.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().String("db", "./data/tarjuman.db", "SQLite database for translation memory and cost spans")

	for key, flag := range map[string]string{
		"log_level":  "log-level",
		"log_format": "log-format",
		"db":         "db",
	} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

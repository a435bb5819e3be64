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
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/valpere/tarjuman/internal/flags"
)

var (
	flagsOutDir string
	flagsKind   string
	flagsAll    bool
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Inspect and clear row follow-up flags",
	Long: `Rows whose English came out too short carry an expansion flag; with the
Excellence Rail enabled, rows that read poorly carry a readability flag.
Pending flags make the next run reprocess the row even when it is unchanged.`,
}

// openFlags opens the flag store under --out (or the configured output
// directory).
func openFlags() (*flags.Store, error) {
	dir := flagsOutDir
	if dir == "" {
		dir = appCfg.OutDir
	}
	return flags.Open(filepath.Join(dir, "flags"))
}

func flagKinds() ([]flags.Kind, error) {
	switch flagsKind {
	case "", "all":
		return []flags.Kind{flags.Expansion, flags.Readability}, nil
	case string(flags.Expansion), string(flags.Readability):
		return []flags.Kind{flags.Kind(flagsKind)}, nil
	default:
		return nil, fmt.Errorf("unknown flag kind %q (want expansion, readability or all)", flagsKind)
	}
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds, err := flagKinds()
		if err != nil {
			return err
		}
		store, err := openFlags()
		if err != nil {
			return err
		}

		var rows [][]string
		for _, kind := range kinds {
			m, err := store.List(kind)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(m))
			for id := range m {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				f := m[id]
				applied := ""
				if f.AppliedAt != nil {
					applied = f.AppliedAt.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					string(kind), id, strconv.FormatBool(f.Pending()), f.Target, applied, snippet(f.Reason, 50),
				})
			}
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No flags.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Kind", "Row", "Pending", "Target", "Applied", "Reason"}, rows))
		return nil
	},
}

var flagsClearCmd = &cobra.Command{
	Use:   "clear [row-id...]",
	Short: "Clear flags for the given rows, or every flag with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !flagsAll {
			return fmt.Errorf("name at least one row id or pass --all")
		}
		kinds, err := flagKinds()
		if err != nil {
			return err
		}
		store, err := openFlags()
		if err != nil {
			return err
		}

		cleared, err := clearFlags(cmd.ErrOrStderr(), store, kinds, args, flagsAll)
		if err != nil {
			return err
		}
		if err := store.Flush(); err != nil {
			return fmt.Errorf("failed to save flags: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d flags.\n", cleared)
		return nil
	},
}

// clearFlags removes the flags of kinds for ids, or every stored flag of
// kinds when all is set. Rows without any flag are reported to w.
func clearFlags(w io.Writer, store *flags.Store, kinds []flags.Kind, ids []string, all bool) (int, error) {
	if !all {
		for _, id := range ids {
			ok, err := store.Exists(id)
			if err != nil {
				return 0, err
			}
			if !ok {
				fmt.Fprintf(w, "No flags for row %s.\n", id)
			}
		}
	}

	cleared := 0
	for _, kind := range kinds {
		targets := ids
		if all {
			m, err := store.List(kind)
			if err != nil {
				return cleared, err
			}
			targets = make([]string, 0, len(m))
			for id := range m {
				targets = append(targets, id)
			}
		}
		for _, id := range targets {
			if _, ok, err := store.Get(kind, id); err != nil {
				return cleared, err
			} else if !ok {
				continue
			}
			if err := store.Clear(kind, id); err != nil {
				return cleared, err
			}
			cleared++
		}
	}
	return cleared, nil
}

func init() {
	rootCmd.AddCommand(flagsCmd)

	flagsCmd.PersistentFlags().StringVar(&flagsOutDir, "out", "", "Output directory holding flags/ (default from config)")
	flagsCmd.PersistentFlags().StringVar(&flagsKind, "kind", "all", "Flag kind: expansion, readability or all")
	flagsClearCmd.Flags().BoolVar(&flagsAll, "all", false, "Clear every flag of the selected kind")

	flagsCmd.AddCommand(flagsListCmd)
	flagsCmd.AddCommand(flagsClearCmd)
}

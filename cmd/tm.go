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
	"strconv"

	"github.com/spf13/cobra"
)

var tmCmd = &cobra.Command{
	Use:   "tm",
	Short: "Manage the translation memory",
	Long:  `List, inspect, and clear the SQLite translation memory that rows are reused from.`,
}

var tmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all translation memory entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListMemory(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entries in translation memory.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.ID,
				e.SourceLang + ">" + e.TargetLang,
				strconv.Itoa(e.UsageCount),
				e.LastUsed.Format("2006-01-02 15:04"),
				snippet(e.Original, 40),
				snippet(e.English, 50),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"ID", "Pair", "Used", "Last used", "Original", "English"}, rows, 3))
		return nil
	},
}

var tmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory and cost statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		total, err := db.TotalCost(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to sum costs: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Entries", "Reused entries", "Total reuse", "Language pairs", "Recorded cost (USD)"},
			[][]string{{
				strconv.Itoa(stats.TotalEntries),
				strconv.Itoa(stats.UsedEntries),
				strconv.Itoa(stats.TotalUsage),
				strconv.Itoa(stats.Pairs),
				fmt.Sprintf("%.4f", total),
			}},
			1, 2, 3, 4, 5))
		return nil
	},
}

var tmDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a translation memory entry by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteMemory(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry: %s\n", args[0])
		return nil
	},
}

var tmClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from translation memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(appCfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearMemory(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear translation memory: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries from translation memory.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tmCmd)

	tmCmd.AddCommand(tmListCmd)
	tmCmd.AddCommand(tmStatsCmd)
	tmCmd.AddCommand(tmDeleteCmd)
	tmCmd.AddCommand(tmClearCmd)
}

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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/tarjuman/internal"
	"github.com/valpere/tarjuman/internal/merger"
)

var (
	exportOutDir string
	exportFile   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the results of the last run",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Write combined.json as a bilingual CSV",
	Long: `Reads <out>/combined.json and writes one CSV line per row:

  id, section, arabic, english, lpr, recommendation, footnotes

Examples:
  tarjuman export csv --out ./out -o rows.csv
  tarjuman export csv > rows.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := exportOutDir
		if dir == "" {
			dir = appCfg.OutDir
		}
		combined, err := readCombined(filepath.Join(dir, "combined.json"))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if exportFile != "" && exportFile != "-" {
			f, err := os.Create(exportFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := writeCSV(w, combined.Rows); err != nil {
			return err
		}
		if exportFile != "" && exportFile != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(combined.Rows), exportFile)
		}
		return nil
	},
}

func readCombined(path string) (*merger.Combined, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s (has a run finished?): %w", path, err)
	}
	var c merger.Combined
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &c, nil
}

// writeCSV writes rows with a header line. Footnotes are joined as
// "[n] reference: english" separated by newlines inside the cell.
func writeCSV(w io.Writer, rows []internal.Row) error {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, []string{"id", "section", "arabic", "english", "lpr", "recommendation", "footnotes"})
	for _, r := range rows {
		notes := make([]string, 0, len(r.Footnotes))
		for _, fn := range r.Footnotes {
			notes = append(notes, fmt.Sprintf("[%d] %s: %s", fn.Number, fn.Reference, fn.English))
		}
		lpr := ""
		if r.Metadata.LPR > 0 {
			lpr = strconv.FormatFloat(r.Metadata.LPR, 'f', 3, 64)
		}
		out = append(out, []string{
			r.ID, r.SectionID, r.Original, r.English, lpr, r.Metadata.Recommendation, strings.Join(notes, "\n"),
		})
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(out); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCSVCmd)

	exportCmd.PersistentFlags().StringVar(&exportOutDir, "out", "", "Output directory of the run (default from config)")
	exportCSVCmd.Flags().StringVarP(&exportFile, "output", "o", "", "CSV file to write (stdout if empty)")
}

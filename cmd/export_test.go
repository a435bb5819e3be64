package cmd

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/valpere/tarjuman/internal"
)

func TestWriteCSV(t *testing.T) {
	rows := []internal.Row{
		{
			ID:        "s1-001",
			SectionID: "s1",
			Original:  "الله لا إله إلا هو",
			English:   "God, there is no deity except Him[1]",
			Footnotes: []internal.Footnote{{Number: 1, Reference: "2:255", English: "God, there is no deity except Him"}},
			Metadata:  internal.RowMetadata{LPR: 1.2, Recommendation: "accept"},
		},
		{ID: "s1-002", SectionID: "s1", Original: "نص"},
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, rows); err != nil {
		t.Fatalf("writeCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "id" || records[0][6] != "footnotes" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[1][4] != "1.200" || records[1][5] != "accept" {
		t.Errorf("unexpected metrics columns %v", records[1])
	}
	if records[1][6] != "[1] 2:255: God, there is no deity except Him" {
		t.Errorf("footnotes = %q", records[1][6])
	}
	if records[2][4] != "" || records[2][6] != "" {
		t.Errorf("empty row should leave lpr and footnotes blank: %v", records[2])
	}
}

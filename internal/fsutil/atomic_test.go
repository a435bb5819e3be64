package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_CreatesParentAndReplaces(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "out.txt")

	if err := WriteFileAtomic(dest, strings.NewReader("first"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(dest, strings.NewReader("second"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("expected 'second', got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "v.json")
	if err := WriteJSONAtomic(dest, map[string]int{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !strings.Contains(string(got), `"a": 1`) {
		t.Errorf("unexpected content %q", got)
	}
}

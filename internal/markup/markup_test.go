package markup_test

import (
	"strings"
	"testing"

	"github.com/valpere/tarjuman/internal/markup"
)

func TestProtect_NoMarkup(t *testing.T) {
	text := "إنما الأعمال بالنيات"
	p := markup.Protect(text)
	if p.Text != text {
		t.Errorf("expected unchanged text, got %q", p.Text)
	}
	if !p.Empty() {
		t.Errorf("expected no fragments, got %v", p.Fragments)
	}
	if got := p.Restore("Actions are by intentions."); got != "Actions are by intentions." {
		t.Errorf("Restore changed text without markers: %q", got)
	}
}

func TestProtect_Order(t *testing.T) {
	p := markup.Protect(`قال <b>النبي</b> {{salawat}} كلاما[^1]`)

	want := []string{"{{salawat}}", "[^1]", "<b>", "</b>"}
	if len(p.Fragments) != len(want) {
		t.Fatalf("expected %d fragments, got %v", len(want), p.Fragments)
	}
	for i, f := range want {
		if p.Fragments[i] != f {
			t.Errorf("fragment %d = %q, want %q", i, p.Fragments[i], f)
		}
	}
	for _, f := range want {
		if strings.Contains(p.Text, f) {
			t.Errorf("fragment %q still present in %q", f, p.Text)
		}
	}
	if !strings.Contains(p.Text, "⟦2⟧النبي⟦3⟧") {
		t.Errorf("tags not replaced in place: %q", p.Text)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	p := markup.Protect(`<i>بسم الله</i>[^2]`)
	translated := "⟦2⟧In the name of God⟦3⟧⟦0⟧"

	got := p.Restore(translated)
	if got != "<i>In the name of God</i>[^2]" {
		t.Errorf("Restore = %q", got)
	}
	if w := p.Warning(translated); w != "" {
		t.Errorf("unexpected warning %q", w)
	}
}

func TestRestore_UnknownMarker(t *testing.T) {
	p := markup.Protect("<br>")
	if got := p.Restore("line⟦0⟧⟦7⟧"); got != "line<br>⟦7⟧" {
		t.Errorf("Restore = %q", got)
	}
}

func TestMissing(t *testing.T) {
	p := markup.Protect("<b>نص</b>")
	missing := p.Missing("⟦0⟧text")
	if len(missing) != 1 || missing[0] != "</b>" {
		t.Fatalf("Missing = %v, want [</b>]", missing)
	}
	if w := p.Warning("⟦0⟧text"); !strings.Contains(w, "1 protected fragment") || !strings.Contains(w, "</b>") {
		t.Errorf("Warning = %q", w)
	}
}

func TestProtect_IgnoresBareAnglesAndPlainAnchors(t *testing.T) {
	p := markup.Protect("a < b > c [1]")
	if !p.Empty() {
		t.Errorf("comparison operators treated as tags: %v", p.Fragments)
	}
}

package normalize

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		input string
		want  string
	}{
		{"tatweel", Options{}, "الحمـــد لله", "الحمد لله"},
		{"quotes", Options{}, "“قال” ‘نعم’", `"قال" 'نعم'`},
		{"guillemets", Options{}, "«العلم نور»", `"العلم نور"`},
		{"whitespace", Options{}, "  a \t\n b   c ", "a b c"},
		{"arabic comma kept by default", Options{}, "أولا، ثانيا", "أولا، ثانيا"},
		{"arabic comma mapped", Options{ASCIIPunctuation: true}, "أولا، ثانيا؛ ثالثا", "أولا, ثانيا; ثالثا"},
		{"question mark untouched", Options{ASCIIPunctuation: true}, "لماذا؟", "لماذا؟"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.opts).Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	var n Normalizer = Func(func(s string) string { return s + "!" })
	if got := n.Normalize("x"); got != "x!" {
		t.Errorf("got %q", got)
	}
}

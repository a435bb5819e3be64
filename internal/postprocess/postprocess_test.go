package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no thinking blocks", "Knowledge is light.", "Knowledge is light."},
		{"simple thinking block", "Some text<thinking>Let me translate this</thinking>More text", "Some textMore text"},
		{"think block", "<think>The verse is 2:255</think>Allah, there is no deity except Him.", "Allah, there is no deity except Him."},
		{"reasoning block", "Start<reasoning>Analyzing the grammar</reasoning>End", "StartEnd"},
		{"multiple blocks", "<thinking>First</thinking>middle<reflection>Second</reflection>", "middle"},
		{"truncated block", "<thinking>Translation in progress", ""},
		{"truncated in middle", "Before<reasoning>Incomplete", "Before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeThinkingBlocks(tt.input); got != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveInstructionEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no echo", "Just a normal translation.", "Just a normal translation."},
		{"here's translation", "Here's the translation: Actual text", "Actual text"},
		{"here is refined", "Here is the refined translation: Done", "Done"},
		{"here is expanded", "Here is the expanded translation: Longer text", "Longer text"},
		{"here is an english version", "Here is an English version: Text", "Text"},
		{"revised version", "Revised version: Text", "Text"},
		{"the translation", "The translation: Hello world", "Hello world"},
		{"certainly", "Certainly, here's the translation: Text", "Text"},
		{"sure with bang", "Sure! Here is the simplified text: Done", "Done"},
		{"not at start", "Before Here's the translation: After", "Before Here's the translation: After"},
		{"no colon", "Here's the translation text", "Here's the translation text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeInstructionEchoes(tt.input); got != tt.expected {
				t.Errorf("removeInstructionEchoes(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveTrailingNotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no note", "Knowledge is light.", "Knowledge is light."},
		{"note paragraph", "Knowledge is light.\n\nNote: I kept the metaphor.", "Knowledge is light."},
		{"translator's note", "Text.\n\nTranslator's note: the word nur also means guidance.", "Text."},
		{"parenthesised note", "Text.\n\n(Note: literal rendering)", "Text."},
		{"inline note kept", "Note: this sentence is the translation.", "Note: this sentence is the translation."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeTrailingNotes(tt.input); got != tt.expected {
				t.Errorf("removeTrailingNotes(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"single char", "a", "a"},
		{"no quotes", "Hello world", "Hello world"},
		{"double quotes", "\"Hello world\"", "Hello world"},
		{"single quotes", "'Hello world'", "Hello world"},
		{"guillemets", "«Hello world»", "Hello world"},
		{"curly double", "“Hello world”", "Hello world"},
		{"curly single", "‘Hello world’", "Hello world"},
		{"unmatched", "\"Hello world'", "\"Hello world'"},
		{"only opening", "\"Hello world", "\"Hello world"},
		{"inner quotes kept", "\"He said \"hello\"\"", "He said \"hello\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeQuoteWrapping(tt.input); got != tt.expected {
				t.Errorf("removeQuoteWrapping(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"clean text", "Knowledge is light.", "Knowledge is light."},
		{"thinking echo quotes", "<thinking>Thinking</thinking>Here's the translation:\n\"Translated text\"", "Translated text"},
		{"echo quotes note", "Here is the expanded translation: \"Knowledge is a light.\"\n\nNote: expanded as requested.", "Knowledge is a light."},
		{"truncated thinking", "Text<thinking>Incomplete", "Text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

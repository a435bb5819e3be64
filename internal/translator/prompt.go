package translator

import (
	"fmt"
	"strings"

	"github.com/valpere/tarjuman/internal/markup"
)

var complexityHints = map[int]string{
	1: "The passage is plain narrative; keep the English simple.",
	2: "The passage is straightforward; prefer everyday vocabulary.",
	3: "The passage mixes narrative and doctrine; keep technical terms consistent.",
	4: "The passage is dense; render every clause, do not summarise.",
	5: "The passage is highly technical; translate every clause and keep transliterated terms with a short gloss.",
}

func displayLang(code, fallback string) string {
	if code == "" || code == "auto" {
		return fallback
	}
	return code
}

// BuildSystemPrompt is the instruction block shared by the chat-style
// backends.
func BuildSystemPrompt(req TranslateRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a professional translator. Translate the following text from %s to %s.\n",
		displayLang(req.SourceLang, "the detected language"), displayLang(req.TargetLang, "English")))
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no quotes, just the translation.\n")
	sb.WriteString("Translate every clause. Preserve questions as questions and negations as negations.")

	if hint, ok := complexityHints[req.Complexity]; ok {
		sb.WriteString("\n")
		sb.WriteString(hint)
	}

	if req.Markers {
		sb.WriteString("\n")
		sb.WriteString(markup.Hint)
	}

	if e := req.Expansion; e != nil {
		sb.WriteString("\n\nEXPANSION REQUIRED:\n")
		sb.WriteString(fmt.Sprintf("The previous translation was too short. Write at least %d words (%.2f times the %d source words).\n",
			e.TargetWords(), e.TargetLPR, e.SourceWords))
		sb.WriteString("Make implicit connectives and referents explicit. Do not add facts, commentary or notes.")
		if e.Previous != "" {
			sb.WriteString("\n\nPREVIOUS TRANSLATION (expand this, do not repeat it verbatim):\n")
			sb.WriteString(e.Previous)
		}
	}
	return sb.String()
}

// BuildPrompt is the single-string form used by completion-style backends.
func BuildPrompt(req TranslateRequest) string {
	return fmt.Sprintf("%s\n\nText: %q\n\nTranslation:", BuildSystemPrompt(req), req.Text)
}

// Package postprocess strips the wrapping that chat models put around a
// translation: reasoning blocks, echoed instructions, translator notes and
// quote wrapping. Every LLM-backed translator and refiner runs its output
// through Clean before the guards see it.
package postprocess

import (
	"regexp"
	"strings"
)

// step is one cleanup pass; steps run in order.
type step struct {
	name string
	fn   func(string) string
}

var steps = []step{
	{"thinking", removeThinkingBlocks},
	{"echo", removeInstructionEchoes},
	{"notes", removeTrailingNotes},
	{"quotes", removeQuoteWrapping},
}

// Clean applies every cleanup step and returns the trimmed result.
func Clean(text string) string {
	for _, s := range steps {
		text = s.fn(text)
	}
	return strings.TrimSpace(text)
}

// RE2 has no backreferences, so each tag pair is spelled out.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opening tag with no close means the model was cut off mid-thought.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

const echoKinds = `(?:refined |polished |translated |expanded |revised |simplified |english )?`

// Echo patterns are anchored at the start and require a colon so ordinary
// sentences beginning with "Here is" survive.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| an| my)? ` + echoKinds + `(?:translation|text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?` + echoKinds + `(?:translation|translated text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the| an)? ` + echoKinds + `(?:translation|text|version)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// trailingNoteRe matches a final paragraph the model added to explain its
// choices. It must be separated by a blank line.
var trailingNoteRe = regexp.MustCompile(`(?is)\n\s*\n\s*(?:\(?\s*)?(?:note|translator'?s note|explanation)\s*:.*$`)

func removeTrailingNotes(text string) string {
	return strings.TrimSpace(trailingNoteRe.ReplaceAllString(text, ""))
}

var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'«':      '»',
	'\u201C': '\u201D',
	'\u2018': '\u2019',
}

// removeQuoteWrapping strips one matching pair of outer quotes.
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	if closing, ok := quotePairs[runes[0]]; ok && runes[n-1] == closing {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

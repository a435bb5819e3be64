package refiner

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/tarjuman/internal/translator"
)

func buildTonePrompt(req Request) (system, user string) {
	target := req.TargetLang
	if target == "" {
		target = "English"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are an editor of %s translations of classical religious texts.\n", target))
	sb.WriteString("Adjust the tone of the draft without changing its meaning:\n")
	sb.WriteString("- remove intensifiers such as very, really, extremely, truly\n")
	sb.WriteString("- replace archaic forms (thee, thou, thy, hath, doth, unto, verily) with modern English\n")
	sb.WriteString("- keep every clause, question and negation of the draft\n")
	sb.WriteString("- keep scripture references and bracketed markers exactly as written\n")
	if req.Readability {
		sb.WriteString("- split sentences longer than 25 words and prefer common words over rare ones\n")
	}
	sb.WriteString("If the draft already reads well, return it unchanged.\n")
	sb.WriteString(fmt.Sprintf("Output ONLY the edited %s text. Do not include any explanation.", target))

	user = fmt.Sprintf("ORIGINAL:\n%s\n\nDRAFT:\n%s", req.Source, req.Draft)
	return sb.String(), user
}

// Completer is a chat backend that takes a system and a user message.
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, translator.Usage, error)
}

// CompletionRefiner runs the tone prompt through any Completer, such as
// translator.OpenAIService.
type CompletionRefiner struct {
	completer Completer
	model     string
}

func NewCompletionRefiner(c Completer, model string) *CompletionRefiner {
	return &CompletionRefiner{completer: c, model: model}
}

func (r *CompletionRefiner) Refine(ctx context.Context, req Request) (string, error) {
	system, user := buildTonePrompt(req)
	out, usage, err := r.completer.Complete(ctx, r.model, system, user)
	if err != nil {
		return "", fmt.Errorf("tone refinement failed: %w", err)
	}
	model := usage.Model
	if model == "" {
		model = r.model
	}
	record(ctx, Call{Model: model, Input: usage.Input, Output: usage.Output})
	if strings.TrimSpace(out) == "" {
		return req.Draft, nil
	}
	return out, nil
}

// Package refiner implements the tone pass that runs on every fresh
// translation: an optional LLM editor followed by deterministic rules that
// drop intensifiers and modernise archaic wording.
package refiner

import (
	"context"
	"errors"
)

type Request struct {
	RowID      string
	SourceLang string
	TargetLang string
	Source     string
	Draft      string
	// Readability asks for shorter sentences and plainer words; set when a
	// row carries a readability flag.
	Readability bool
}

// Refiner returns an improved version of req.Draft.
type Refiner interface {
	Refine(ctx context.Context, req Request) (string, error)
}

// Chain runs refiners in order, feeding each one the previous output. A
// failing link is skipped and the next one gets the last good draft; the
// failures come back joined alongside the final text.
type Chain []Refiner

func (c Chain) Refine(ctx context.Context, req Request) (string, error) {
	var errs []error
	for _, r := range c {
		if r == nil {
			continue
		}
		out, err := r.Refine(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		req.Draft = out
	}
	return req.Draft, errors.Join(errs...)
}

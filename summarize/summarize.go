// Package summarize turns a raw change payload into a short natural-language
// summary via an external generation provider.
//
// The enrichment pipeline treats the provider as an optional capability: an
// unavailable generator means records stay unenriched (a skip, not a failure),
// while a provider error is a transient fault eligible for retry.
package summarize

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the generator capability is disabled.
var ErrUnavailable = errors.New("summarize: generator unavailable")

// ErrGeneration is returned when the provider fails to produce a summary.
var ErrGeneration = errors.New("summarize: generation failed")

// Change is one field transition from a detected resource change.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Generator produces a natural-language summary for a set of field changes.
type Generator interface {
	// Available reports whether the capability can be used at all. A false
	// return is a permanent condition for the current process, not a
	// transient fault.
	Available() bool
	// Summarize generates a summary for the given changes. Errors wrap
	// ErrGeneration for provider failures.
	Summarize(ctx context.Context, changes []Change) (string, error)
}

// Disabled is a Generator that is never available. Used when no provider is
// configured: enrichment then skips every record.
type Disabled struct{}

// Available always reports false.
func (Disabled) Available() bool { return false }

// Summarize always fails with ErrUnavailable.
func (Disabled) Summarize(context.Context, []Change) (string, error) {
	return "", ErrUnavailable
}

package vade

import (
	"errors"
	"fmt"
)

// Usage errors, detected by the facade before any plugin is consulted.
var (
	ErrMissingKey      = errors.New("vade: missing document key")
	ErrMissingPayload  = errors.New("vade: missing document payload")
	ErrMissingMessage  = errors.New("vade: missing message")
	ErrMissingFunction = errors.New("vade: missing function name")
	ErrUnknownKind     = errors.New("vade: unknown document kind")
)

// PluginError reports an active failure from a single plugin. Index is the
// plugin's registration index.
type PluginError struct {
	Index  int
	Plugin string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("vade: plugin %q (index %d) failed: %v", e.Plugin, e.Index, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// AggregateError reports that no plugin produced a usable success for an
// operation that requires one. Outcomes holds one entry per consulted
// plugin in registration order, so callers can see which plugins declined
// and which failed.
type AggregateError struct {
	Op       string
	Outcomes []Outcome
}

func (e *AggregateError) Error() string {
	failures := 0
	for _, o := range e.Outcomes {
		if o.Failed() {
			failures++
		}
	}
	return fmt.Sprintf("vade: no plugin produced a result for %s (%d consulted, %d failed)",
		e.Op, len(e.Outcomes), failures)
}

package table

import (
	"errors"
	"fmt"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var (
	// ErrLookup matches any *LookupError via errors.Is.
	ErrLookup = errors.New("column not found")

	// ErrConfiguration matches any *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("invalid configuration")
)

// suggestionThreshold is the minimum similarity for a "did you mean" hint.
const suggestionThreshold = 0.5

// LookupError reports a column name that does not exist in a table.
type LookupError struct {
	Column     string
	Suggestion string // closest existing column, if any is similar enough
}

func (e *LookupError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("column not found: %q (did you mean %q?)", e.Column, e.Suggestion)
	}
	return fmt.Sprintf("column not found: %q", e.Column)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

func newLookupError(name string, available []string) *LookupError {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	best, bestScore := "", 0.0
	for _, candidate := range available {
		score := strutil.Similarity(name, candidate, lev)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestionThreshold {
		best = ""
	}
	return &LookupError{Column: name, Suggestion: best}
}

// ConfigurationError reports a structurally invalid specification.
// Err, when set, is the underlying cause (for example a *LookupError for a
// missing join key).
type ConfigurationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Op, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrUserInput marks failures caused by missing or invalid inputs. The
	// caller can fix these; re-running without changes will fail again.
	ErrUserInput = errors.New("invalid build input")
	// ErrInternal marks consistency failures inside the pipeline itself,
	// e.g. a layout mismatch or an artifact a later step expected but
	// cannot find. These indicate defects, not bad input.
	ErrInternal = errors.New("internal build failure")
	// ErrLocked reports that another build already holds the output lock.
	ErrLocked = errors.New("output path is locked by another build")
)

// wrapStep tags err with the step it failed in, preserving the original
// error chain for classification.
func wrapStep(step string, err error) error {
	return fmt.Errorf("%s: %w", step, err)
}

// Classify reduces a build error to a short category for diagnostics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrUserInput):
		return "user input"
	case errors.Is(err, ErrInternal):
		return "internal"
	default:
		return "io"
	}
}

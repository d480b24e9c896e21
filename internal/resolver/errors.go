package resolver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Attempt records one failed loading strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// ResolutionError is returned when every strategy for a ref failed. It
// unwraps to the last attempt's error.
type ResolutionError struct {
	Ref      string
	Attempts []Attempt
}

func (e *ResolutionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("model resolution failed for %q", e.Ref)
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("model resolution failed for %q after %d attempt(s): %v", e.Ref, len(e.Attempts), last.Err)
}

func (e *ResolutionError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// StatusCode maps resolution failures to 400 for the HTTP layer.
func (e *ResolutionError) StatusCode() int { return http.StatusBadRequest }

// Detail lists every attempt, one per line.
func (e *ResolutionError) Detail() string {
	var b strings.Builder
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %v", a.Strategy, a.Err)
	}
	return b.String()
}

// IsResolutionFailed reports whether err is (or wraps) a ResolutionError.
func IsResolutionFailed(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

var (
	errEmptyRef        = errors.New("resolver: empty model reference")
	errLocalMissing    = errors.New("resolver: local model path does not exist")
	errUnsupportedFile = errors.New("resolver: unsupported model file type")
	errNoModel         = errors.New("resolver: no model requested and none loaded")
)

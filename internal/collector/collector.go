// Package collector fetches short social posts from public platforms and
// synthetic generators, normalized into domain.Post values.
package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
)

// Collector fetches up to limit recent posts in one language.
type Collector interface {
	Name() string
	Collect(ctx context.Context, lang domain.Language, limit int) ([]domain.Post, error)
}

// Reason classifies why a collector failed.
type Reason string

const (
	ReasonAuth        Reason = "auth"
	ReasonTransport   Reason = "transport"
	ReasonStatus      Reason = "status"
	ReasonDecode      Reason = "decode"
	ReasonUnavailable Reason = "unavailable"
)

// Error is returned by collectors when a platform could not be read.
type Error struct {
	Platform string
	Reason   Reason
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s collector: %s: %v", e.Platform, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf returns the Reason of the first *Error in err's chain, or "" if none.
func ReasonOf(err error) Reason {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Reason
	}
	return ""
}

func newError(platform string, reason Reason, err error) *Error {
	return &Error{Platform: platform, Reason: reason, Err: err}
}

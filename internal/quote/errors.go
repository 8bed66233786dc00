package quote

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRoute is returned by a source that answered but had no usable route.
var ErrNoRoute = errors.New("no route")

// Kind classifies an aggregate quote failure.
type Kind string

const (
	NoRouteFound           Kind = "no_route_found"
	AllServicesUnavailable Kind = "all_services_unavailable"
	UnsupportedPair        Kind = "unsupported_pair"
)

// Error is returned by the aggregator when no quote can be produced.
type Error struct {
	Kind   Kind
	Detail string
	Causes []error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("quote: %s", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if len(e.Causes) > 0 {
		parts := make([]string, 0, len(e.Causes))
		for _, cause := range e.Causes {
			parts = append(parts, cause.Error())
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() []error {
	return e.Causes
}

// IsKind reports whether err is a quote Error of kind.
func IsKind(err error, kind Kind) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Kind == kind
}

package venue

import (
	"errors"
	"fmt"

	"yieldpilot/internal/model"
)

var (
	ErrVenueUnavailable = errors.New("venue unavailable")
	ErrEncodeInvariant  = errors.New("encode invariant violation")
	ErrAssetMismatch    = errors.New("vault asset mismatch")
)

// UnavailableError names the protocol, chain and symbol that could not be
// resolved to a contract address.
type UnavailableError struct {
	Protocol string
	Chain    model.Chain
	Symbol   string
}

func (e *UnavailableError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s: %s not deployed on %s", ErrVenueUnavailable, e.Protocol, e.Chain)
	}
	return fmt.Sprintf("%s: %s has no %s market on %s", ErrVenueUnavailable, e.Protocol, e.Symbol, e.Chain)
}

func (e *UnavailableError) Unwrap() error {
	return ErrVenueUnavailable
}

func unavailable(protocol string, chain model.Chain, symbol string) error {
	return &UnavailableError{Protocol: protocol, Chain: chain, Symbol: symbol}
}

// InvariantError is returned when an adapter's own calldata fails its
// length or selector check. It indicates a bug and must never be signed.
type InvariantError struct {
	Protocol string
	Method   string
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s.%s %s", ErrEncodeInvariant, e.Protocol, e.Method, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrEncodeInvariant
}

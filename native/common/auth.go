package common

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnauthorized is returned when a caller lacks the capability required for
// an operation.
var ErrUnauthorized = errors.New("unauthorized")

// Authorizer decides whether caller may perform operation. Implementations
// return nil to allow and a descriptive error (wrapping ErrUnauthorized where
// possible) to deny. Engines propagate the returned error unchanged.
type Authorizer interface {
	Authorize(caller common.Address, operation string) error
}

// AuthorizerFunc adapts a plain function to the Authorizer interface.
type AuthorizerFunc func(caller common.Address, operation string) error

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(caller common.Address, operation string) error {
	return f(caller, operation)
}

// AllowAll grants every operation. Intended for simulations and tests.
type AllowAll struct{}

// Authorize implements Authorizer.
func (AllowAll) Authorize(common.Address, string) error { return nil }

// Authorize runs the authorizer when present. A nil authorizer denies.
func Authorize(a Authorizer, caller common.Address, operation string) error {
	if a == nil {
		return fmt.Errorf("%w: no authorizer configured for %s", ErrUnauthorized, operation)
	}
	return a.Authorize(caller, operation)
}

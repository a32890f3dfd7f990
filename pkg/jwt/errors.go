package jwt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoClaimSet is returned by Sign for nil claims or an empty ClaimsSet.
	ErrNoClaimSet = errors.New("jwt: no claims to sign")

	// ErrMissingAuthorization is returned when a request carries no
	// Authorization header.
	ErrMissingAuthorization = errors.New("jwt: missing authorization header")

	// ErrInvalidAuthorization is returned when the Authorization header is
	// not of the form "Bearer <token>".
	ErrInvalidAuthorization = errors.New("jwt: authorization header is not a bearer token")
)

// ErrSigningFailed wraps the cause of a failed Sign: claims encoding/json
// cannot marshal, or an error from the underlying JWS.
type ErrSigningFailed struct {
	Inner error
}

func (e *ErrSigningFailed) Error() string {
	return fmt.Sprintf("jwt: sign: %v", e.Inner)
}

func (e *ErrSigningFailed) Unwrap() error {
	return e.Inner
}

// NewSigningError wraps inner in an ErrSigningFailed.
func NewSigningError(inner error) *ErrSigningFailed {
	return &ErrSigningFailed{Inner: inner}
}

// ErrInvalidType is returned by the ClaimsSet accessors when a claim holds
// a value they cannot convert.
type ErrInvalidType struct {
	Claim ClaimName
	Inner error
}

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("jwt: claim %q: %v", e.Claim, e.Inner)
}

func (e *ErrInvalidType) Unwrap() error {
	return e.Inner
}

// NewInvalidTypeError reports that value cannot be read as claim.
func NewInvalidTypeError(claim ClaimName, value any) *ErrInvalidType {
	return &ErrInvalidType{Claim: claim, Inner: fmt.Errorf("unexpected type %T", value)}
}

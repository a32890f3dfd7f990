package jws

import (
	"errors"

	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/rsassa"
)

var (
	// ErrMalformedMessage is returned for messages that cannot be split
	// into their segments, or whose segments fail to decode or parse.
	ErrMalformedMessage = errors.New("jws: malformed message")

	// ErrSignatureInvalid is returned for every failed cryptographic check
	// and for header values that do not match the verifier's configuration.
	// It is never wrapped around the underlying cause.
	ErrSignatureInvalid = errors.New("jws: signature invalid")

	// ErrAlgorithmNotSet is returned when signing or verifying before an
	// algorithm was configured.
	ErrAlgorithmNotSet = errors.New("jws: algorithm not set")

	ErrUnsupportedAlgorithm = jwa.ErrUnsupportedAlgorithm
	ErrKeyNotFound          = jwk.ErrKeyNotFound
	ErrKeyFormat            = jwk.ErrKeyFormat
	ErrEncoding             = rsassa.ErrEncoding
)

package base64

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// encoding is the unpadded base64url alphabet. Strict mode rejects
// encodings whose unused trailing bits are not zero, so every encoded
// string maps to exactly one byte sequence.
var encoding = base64.RawURLEncoding.Strict()

var (
	// ErrEmptyInput is returned by DecodeUint for an empty string.
	ErrEmptyInput = errors.New("base64: input cannot be empty")

	// ErrLineBreak is returned by Decode for input containing CR or LF,
	// which encoding/base64 would otherwise skip.
	ErrLineBreak = errors.New("base64: input cannot contain line breaks")
)

// Decode returns the base64url decoded bytes from the given input.
// This function implements base64url decoding as defined in RFC 4648 Section 5,
// which is used in JWT and JWS specifications (RFC 7515).
//
// Padding characters, whitespace and non-canonical trailing bits are
// rejected. An empty input decodes to an empty slice.
func Decode(input string) ([]byte, error) {
	if len(input) == 0 {
		return []byte{}, nil
	}

	if strings.ContainsAny(input, "\r\n") {
		return nil, ErrLineBreak
	}

	result, err := encoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("base64: invalid base64url input: %w", err)
	}
	return result, nil
}

// Encode returns the base64url encoded string from the given input.
// This function implements base64url encoding as defined in RFC 4648 Section 5,
// which is used in JWT and JWS specifications (RFC 7515).
//
// Padding characters are omitted as required by RFC 7515 Section 2.
func Encode(input []byte) string {
	return encoding.EncodeToString(input)
}

// DecodeUint decodes a Base64urlUInt value (RFC 7518 Section 2) into a
// non-negative integer. The decoded bytes are read as a big-endian
// magnitude, so a leading byte with the high bit set never yields a
// negative value.
func DecodeUint(input string) (*big.Int, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}

	b, err := Decode(input)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(b), nil
}

// EncodeUint encodes a non-negative integer as a Base64urlUInt value using
// the minimal big-endian byte form. Zero is encoded as a single zero byte
// ("AA") as RFC 7518 Section 2 requires.
func EncodeUint(value *big.Int) (string, error) {
	if value == nil {
		return "", fmt.Errorf("base64: nil integer")
	}
	if value.Sign() < 0 {
		return "", fmt.Errorf("base64: negative integer cannot be encoded")
	}

	b := value.Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}

	return Encode(b), nil
}

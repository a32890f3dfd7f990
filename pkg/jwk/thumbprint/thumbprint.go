// Package thumbprint computes JWK Thumbprints (RFC 7638), used as
// stable key identifiers for generated keys.
//
// https://datatracker.ietf.org/doc/html/rfc7638
package thumbprint

import (
	"bytes"
	"errors"

	"github.com/jose-engine/jose/pkg/base64"
	"github.com/jose-engine/jose/pkg/digest"
	"github.com/jose-engine/jose/pkg/jwk"
)

var (
	ErrInvalidKey = errors.New("thumbprint: invalid key")
)

// requiredMembers lists the required members of each key type in
// lexicographic order (RFC 7638 Section 3.2).
var requiredMembers = map[string][]string{
	jwk.KeyTypeRSA:   {jwk.E, jwk.KeyType, jwk.N},
	jwk.KeyTypeOctet: {jwk.K, jwk.KeyType},
}

// Generate returns the JWK Thumbprint for the given JWK following
// the steps defined in RFC 7638. A zero hash selects SHA-256.
func Generate(value jwk.Value, h digest.Hash) ([]byte, error) {
	kty, ok := value[jwk.KeyType].(string)
	if !ok {
		return nil, ErrInvalidKey
	}

	members, ok := requiredMembers[kty]
	if !ok {
		return nil, ErrInvalidKey
	}

	// 1. Construct a JSON object [RFC7159] containing only the required
	// members of a JWK representing the key and with no whitespace or
	// line breaks before or after any syntactic elements and with the
	// required members ordered lexicographically by the Unicode
	// [UNICODE] code points of the member names.
	//
	// All member values are base64url strings or key type names, none of
	// which need JSON escaping.
	b := bytes.NewBuffer(nil)

	b.WriteByte('{')

	for i, name := range members {
		v, ok := value[name].(string)
		if !ok || v == "" {
			return nil, ErrInvalidKey
		}

		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteByte('"')
		b.WriteString(name)
		b.WriteString(`":"`)
		b.WriteString(v)
		b.WriteByte('"')
	}

	b.WriteByte('}')

	// 2. Hash the octets of the UTF-8 representation of this JSON object
	// with a cryptographic hash function H.
	if h == 0 {
		h = digest.SHA256
	}

	d, err := digest.New(h)
	if err != nil {
		return nil, err
	}

	return digest.Sum(d, b.Bytes()), nil
}

// GenerateString returns the JWK Thumbprint for the given JWK following
// the steps defined in RFC 7638 as a base64url encoded string.
func GenerateString(value jwk.Value, h digest.Hash) (string, error) {
	thumbprint, err := Generate(value, h)
	if err != nil {
		return "", err
	}

	return base64.Encode(thumbprint), nil
}

// ForKey returns the base64url encoded SHA-256 thumbprint of key.
// Minimal RSA private keys have no public exponent and cannot be
// thumbprinted.
func ForKey(key jwk.Key) (string, error) {
	value, err := jwk.ValueFromKey(key)
	if err != nil {
		return "", err
	}
	return GenerateString(value, digest.SHA256)
}

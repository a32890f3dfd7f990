package jwa

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/jose-engine/jose/pkg/digest"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/rsassa"
)

// https://datatracker.ietf.org/doc/html/rfc7518#section-3.1
type Algorithm = string

// HMAC with SHA-2 Functions
//
// These algorithms are used to construct a MAC using a shared secret
// and the Hash-based Message Authentication Code (HMAC) construction
// [RFC2104] employing SHA-2 [SHS] hash functions.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.2
const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
)

// RSASSA-PKCS1-v1_5
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using PKCS #1 v1.5 methods.
//
// # RSA Key Size
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.3
const (
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
)

// RSASSA-PSS
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using the RSASSA-PSS algorithms.
//
// # RSA Key Size
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.5
const (
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"
)

// No signature or MAC performed (unprotected JWS). This algorithm is
// intended to be used to create a JWS that is not integrity protected.
//
// # Warning
//
// The use of this algorithm is considered dangerous. Signers and
// verifiers only honor it when explicitly configured to.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.6
const None Algorithm = "none"

// ErrUnsupportedAlgorithm is returned for any token outside the registry.
var ErrUnsupportedAlgorithm = errors.New("jwa: unsupported algorithm")

// Kind is the family of primitive an algorithm resolves to.
type Kind int

const (
	KindNone Kind = iota
	KindHMAC
	KindPKCS1v15
	KindPSS
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindHMAC:
		return "HMAC"
	case KindPKCS1v15:
		return "RSASSA-PKCS1-v1_5"
	case KindPSS:
		return "RSASSA-PSS"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Primitive is the signing and verification primitive an algorithm
// token resolves to.
type Primitive struct {
	Algorithm Algorithm
	Kind      Kind
	Hash      digest.Hash
}

// KeyType returns the JWK "kty" a key must have to be used with the
// primitive, or an empty string for "none".
func (p Primitive) KeyType() string {
	switch p.Kind {
	case KindHMAC:
		return jwk.KeyTypeOctet
	case KindPKCS1v15, KindPSS:
		return jwk.KeyTypeRSA
	}
	return ""
}

// Scheme returns the RSA signature scheme of an RS or PS primitive, and
// nil for every other kind.
func (p Primitive) Scheme() rsassa.Scheme {
	switch p.Kind {
	case KindPKCS1v15:
		return rsassa.PKCS1v15{Hash: p.Hash}
	case KindPSS:
		return rsassa.PSS{Hash: p.Hash, SaltLength: p.Hash.Size()}
	}
	return nil
}

// MAC returns an HMAC keyed with secret for an HS primitive.
func (p Primitive) MAC(secret []byte) (*digest.MAC, error) {
	if p.Kind != KindHMAC {
		return nil, fmt.Errorf("jwa: %s is not an HMAC algorithm", p.Algorithm)
	}
	return digest.NewMAC(p.Hash, secret)
}

// registry is built once and never modified.
var registry = func() map[Algorithm]Primitive {
	r := map[Algorithm]Primitive{
		None: {Algorithm: None, Kind: KindNone},
	}

	families := []struct {
		prefix string
		kind   Kind
	}{
		{"HS", KindHMAC},
		{"RS", KindPKCS1v15},
		{"PS", KindPSS},
	}

	for _, f := range families {
		for _, h := range []digest.Hash{digest.SHA256, digest.SHA384, digest.SHA512} {
			alg := fmt.Sprintf("%s%d", f.prefix, uint(h))
			r[alg] = Primitive{Algorithm: alg, Kind: f.kind, Hash: h}
		}
	}

	return r
}()

// Resolve returns the primitive for the given algorithm token. Resolution
// is the same on the signing and verifying side; whether "none" may be
// used is left to the caller.
func Resolve(alg Algorithm) (Primitive, error) {
	p, ok := registry[alg]
	if !ok {
		return Primitive{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return p, nil
}

// Supported reports whether alg is a recognized token.
func Supported(alg Algorithm) bool {
	_, ok := registry[alg]
	return ok
}

// Algorithms returns every recognized token in sorted order.
func Algorithms() []Algorithm {
	algs := make([]Algorithm, 0, len(registry))
	for alg := range registry {
		algs = append(algs, alg)
	}
	slices.Sort(algs)
	return algs
}

// DefaultAllowedAlgorithms returns a list of algorithms that are allowed to be used.
func DefaultAllowedAlgorithms() []Algorithm {
	return []Algorithm{
		RS256, PS256,
	}
}

// Package digest provides a single {Init, Update, Finish} capability over
// the SHA-2 message digests and their keyed HMAC variants, so HMAC based
// JWS algorithms and the digest step of the RSA signature schemes share
// one implementation.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.2
package digest

import (
	"crypto"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"errors"
	"fmt"
	"hash"
)

// Hash identifies a SHA-2 function by output size.
type Hash uint

const (
	SHA256 Hash = 256
	SHA384 Hash = 384
	SHA512 Hash = 512
)

// ErrUnknownHash is returned when a Hash value is not one of the
// supported SHA-2 functions.
var ErrUnknownHash = errors.New("digest: unknown hash")

// Object identifiers from RFC 8017 Appendix B.1, used in the
// PKCS #1 v1.5 DigestInfo structure.
var (
	oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// Size returns the digest output length in bytes, or zero for an
// unknown hash.
func (h Hash) Size() int {
	switch h {
	case SHA256, SHA384, SHA512:
		return int(h) / 8
	}
	return 0
}

// OID returns the algorithm identifier of the hash.
func (h Hash) OID() asn1.ObjectIdentifier {
	switch h {
	case SHA256:
		return oidSHA256
	case SHA384:
		return oidSHA384
	case SHA512:
		return oidSHA512
	}
	return nil
}

// Crypto returns the standard library identifier of the hash.
func (h Hash) Crypto() crypto.Hash {
	switch h {
	case SHA256:
		return crypto.SHA256
	case SHA384:
		return crypto.SHA384
	case SHA512:
		return crypto.SHA512
	}
	return 0
}

func (h Hash) String() string {
	switch h {
	case SHA256, SHA384, SHA512:
		return fmt.Sprintf("SHA-%d", uint(h))
	}
	return fmt.Sprintf("unknown-hash(%d)", uint(h))
}

func (h Hash) newFunc() (func() hash.Hash, error) {
	switch h {
	case SHA256:
		return sha256.New, nil
	case SHA384:
		return sha512.New384, nil
	case SHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownHash, h)
}

// Func is the shared capability of a plain digest and a keyed MAC.
//
// Update may be called any number of times after Init. Finish returns the
// digest of everything written since the last Init and resets the state,
// so the next Update starts a new computation.
type Func interface {
	Init()
	Update(p []byte)
	Finish() []byte

	// Size is the length of the value returned by Finish.
	Size() int

	// Keyed reports whether the function is a MAC.
	Keyed() bool
}

// Digest is a plain SHA-2 message digest.
type Digest struct {
	hash Hash
	h    hash.Hash
}

// New returns a plain digest for the given hash.
func New(h Hash) (*Digest, error) {
	fn, err := h.newFunc()
	if err != nil {
		return nil, err
	}
	return &Digest{hash: h, h: fn()}, nil
}

func (d *Digest) Init()           { d.h.Reset() }
func (d *Digest) Update(p []byte) { d.h.Write(p) }
func (d *Digest) Size() int       { return d.h.Size() }
func (d *Digest) Keyed() bool     { return false }

// Hash returns the underlying hash identifier.
func (d *Digest) Hash() Hash { return d.hash }

func (d *Digest) Finish() []byte {
	sum := d.h.Sum(nil)
	d.h.Reset()
	return sum
}

// MAC is an HMAC keyed at construction (RFC 2104).
type MAC struct {
	hash Hash
	h    hash.Hash
}

// NewMAC returns an HMAC over the given hash keyed with key. An empty key
// is rejected.
func NewMAC(h Hash, key []byte) (*MAC, error) {
	fn, err := h.newFunc()
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("digest: empty MAC key")
	}
	return &MAC{hash: h, h: hmac.New(fn, key)}, nil
}

func (m *MAC) Init()           { m.h.Reset() }
func (m *MAC) Update(p []byte) { m.h.Write(p) }
func (m *MAC) Size() int       { return m.h.Size() }
func (m *MAC) Keyed() bool     { return true }

// Hash returns the underlying hash identifier.
func (m *MAC) Hash() Hash { return m.hash }

func (m *MAC) Finish() []byte {
	sum := m.h.Sum(nil)
	m.h.Reset()
	return sum
}

// Sum computes the digest or MAC of data in one call.
func Sum(f Func, data []byte) []byte {
	f.Init()
	f.Update(data)
	return f.Finish()
}

// Equal compares two digests in constant time.
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}

var (
	_ Func = (*Digest)(nil)
	_ Func = (*MAC)(nil)
)

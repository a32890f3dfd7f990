// Package rsassa implements the RSASSA-PKCS1-v1_5 and RSASSA-PSS signature
// schemes over the minimal RSA keys of package jwk.
//
// Private operations use only the modulus and private exponent, there is
// no CRT path. The modular exponentiation is not constant time; the
// encoded message checks are.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-8
package rsassa

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/jose-engine/jose/pkg/digest"
	"github.com/jose-engine/jose/pkg/jwk"
)

var (
	// ErrEncoding is returned when the modulus is too short for the
	// encoded message of the chosen scheme and hash.
	ErrEncoding = errors.New("rsassa: modulus too small for encoding")

	// ErrVerification is returned for every signature that does not
	// verify, whatever the reason.
	ErrVerification = errors.New("rsassa: verification error")

	// ErrInvalidKey is returned for keys with a missing or non-positive
	// component.
	ErrInvalidKey = errors.New("rsassa: invalid key")
)

// Scheme is one of PKCS1v15 or PSS.
type Scheme interface {
	// HashFunc returns the digest used to hash the message.
	HashFunc() digest.Hash

	isScheme()
}

// PKCS1v15 is RSASSA-PKCS1-v1_5 with the given hash.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-8.2
type PKCS1v15 struct {
	Hash digest.Hash
}

func (s PKCS1v15) HashFunc() digest.Hash { return s.Hash }
func (PKCS1v15) isScheme()               {}

// PSS is RSASSA-PSS with MGF1 over the given hash. A zero SaltLength
// means a salt as long as the hash output, which is what RFC 7518
// requires for the PS algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-8.1
type PSS struct {
	Hash       digest.Hash
	SaltLength int
}

func (s PSS) HashFunc() digest.Hash { return s.Hash }
func (PSS) isScheme()               {}

func (s PSS) saltLength() int {
	if s.SaltLength <= 0 {
		return s.Hash.Size()
	}
	return s.SaltLength
}

// Sign hashes msg and signs it with key. The random source is only read
// by PSS; a nil random uses crypto/rand. The signature is always exactly
// as long as the modulus.
func Sign(random io.Reader, scheme Scheme, key *jwk.RSAPrivateKey, msg []byte) ([]byte, error) {
	if key == nil || !positive(key.N) || !positive(key.D) {
		return nil, ErrInvalidKey
	}
	if random == nil {
		random = rand.Reader
	}

	hashed, err := hash(scheme.HashFunc(), msg)
	if err != nil {
		return nil, err
	}

	k := key.Size()

	var em []byte
	switch s := scheme.(type) {
	case PKCS1v15:
		em, err = EncodePKCS1v15(s.Hash, hashed, k)
	case PSS:
		em, err = EncodePSS(random, s.Hash, hashed, key.N.BitLen()-1, s.saltLength())
	default:
		return nil, fmt.Errorf("rsassa: unknown scheme %T", scheme)
	}
	if err != nil {
		return nil, err
	}

	m := new(big.Int).SetBytes(em)
	if m.Cmp(key.N) >= 0 {
		return nil, ErrEncoding
	}

	return i2osp(new(big.Int).Exp(m, key.D, key.N), k)
}

// Verify checks that sig is a valid signature of msg under key. All
// failures return ErrVerification, except an unusable key which returns
// ErrInvalidKey.
func Verify(scheme Scheme, key *jwk.RSAPublicKey, msg, sig []byte) error {
	if key == nil || !positive(key.N) || !positive(key.E) {
		return ErrInvalidKey
	}

	k := key.Size()
	if len(sig) != k {
		return ErrVerification
	}

	s := new(big.Int).SetBytes(sig)
	if s.Cmp(key.N) >= 0 {
		return ErrVerification
	}
	m := new(big.Int).Exp(s, key.E, key.N)

	hashed, err := hash(scheme.HashFunc(), msg)
	if err != nil {
		return ErrVerification
	}

	switch s := scheme.(type) {
	case PKCS1v15:
		em, err := i2osp(m, k)
		if err != nil {
			return ErrVerification
		}
		return VerifyPKCS1v15(s.Hash, hashed, em)
	case PSS:
		emBits := key.N.BitLen() - 1
		em, err := i2osp(m, (emBits+7)/8)
		if err != nil {
			return ErrVerification
		}
		return VerifyPSS(s.Hash, hashed, em, emBits, s.saltLength())
	}

	return ErrVerification
}

func hash(h digest.Hash, msg []byte) ([]byte, error) {
	d, err := digest.New(h)
	if err != nil {
		return nil, err
	}
	return digest.Sum(d, msg), nil
}

func positive(i *big.Int) bool {
	return i != nil && i.Sign() > 0
}

// i2osp converts x to a big-endian byte string of exactly size bytes.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-4.1
func i2osp(x *big.Int, size int) ([]byte, error) {
	if (x.BitLen()+7)/8 > size {
		return nil, fmt.Errorf("rsassa: integer too large")
	}
	return x.FillBytes(make([]byte, size)), nil
}

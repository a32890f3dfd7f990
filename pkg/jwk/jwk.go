package jwk

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/jose-engine/jose/pkg/base64"
)

// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type (
	ParamaterName = string

	RSA       = ParamaterName
	Symmetric = ParamaterName
)

const (
	KeyType              ParamaterName = "kty"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.1
	PublicKeyUse         ParamaterName = "use"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.2
	KeyOperations        ParamaterName = "key_ops"  // https://datatracker.ietf.org/doc/html/rfc7517#section-4.3
	Algorithm            ParamaterName = "alg"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.4
	KeyID                ParamaterName = "kid"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.5
	X509URL              ParamaterName = "x5u"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.6
	X509CertificateChain ParamaterName = "x5c"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.7
	X509SHA1Thumbprint   ParamaterName = "x5t"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.8
	X509SHA256Thumbprint ParamaterName = "x5t#S256" // https://datatracker.ietf.org/doc/html/rfc7517#section-4.9

	// K is the symmetric key value within a JWK.
	// https://datatracker.ietf.org/doc/html/rfc7518#section-6.4.1
	K Symmetric = "k"

	N RSA = "n" // N is the RSA public modulus value.
	E RSA = "e" // E is the RSA public exponent value.
	D RSA = "d" // D is the RSA private exponent value.
)

// Key type values for the "kty" parameter.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-6.1
const (
	KeyTypeRSA   = "RSA"
	KeyTypeOctet = "oct"
)

var (
	// ErrKeyFormat is matched by every KeyFormatError.
	ErrKeyFormat = errors.New("jwk: malformed key")

	// ErrKeyNotFound is returned when no key in a set matches a lookup.
	ErrKeyNotFound = errors.New("jwk: key not found")
)

// KeyFormatError reports a missing, undecodable or out of range JWK
// parameter.
type KeyFormatError struct {
	Param ParamaterName
	Cause error
}

func (e *KeyFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwk: invalid %q parameter: %v", e.Param, e.Cause)
	}
	return fmt.Sprintf("jwk: invalid %q parameter", e.Param)
}

func (e *KeyFormatError) Unwrap() error {
	return e.Cause
}

func (e *KeyFormatError) Is(target error) bool {
	return target == ErrKeyFormat
}

func keyFormatError(param ParamaterName, format string, args ...any) error {
	return &KeyFormatError{Param: param, Cause: fmt.Errorf(format, args...)}
}

// Key is one of SymmetricKey, *RSAPublicKey or *RSAPrivateKey.
type Key interface {
	// KeyType returns the "kty" value of the key.
	KeyType() string

	isKey()
}

// SymmetricKey is a shared secret used with the HMAC algorithms.
type SymmetricKey struct {
	Secret []byte
}

func (SymmetricKey) KeyType() string { return KeyTypeOctet }
func (SymmetricKey) isKey()          {}

// RSAPublicKey is an RSA public key (n, e).
type RSAPublicKey struct {
	N *big.Int
	E *big.Int
}

func (*RSAPublicKey) KeyType() string { return KeyTypeRSA }
func (*RSAPublicKey) isKey()          {}

// Size returns the modulus length in bytes.
func (k *RSAPublicKey) Size() int { return modulusSize(k.N) }

// RSAPrivateKey is the minimal form of an RSA private key (n, d). No CRT
// parameters are kept, so private operations are a single modular
// exponentiation.
type RSAPrivateKey struct {
	N *big.Int
	D *big.Int
}

func (*RSAPrivateKey) KeyType() string { return KeyTypeRSA }
func (*RSAPrivateKey) isKey()          {}

// Size returns the modulus length in bytes.
func (k *RSAPrivateKey) Size() int { return modulusSize(k.N) }

func modulusSize(n *big.Int) int {
	if n == nil {
		return 0
	}
	return (n.BitLen() + 7) / 8
}

// NewRSAPublicKey converts a standard library RSA public key.
func NewRSAPublicKey(pub *rsa.PublicKey) *RSAPublicKey {
	return &RSAPublicKey{
		N: new(big.Int).Set(pub.N),
		E: big.NewInt(int64(pub.E)),
	}
}

// NewRSAPrivateKey converts a standard library RSA private key to its
// minimal form.
func NewRSAPrivateKey(priv *rsa.PrivateKey) *RSAPrivateKey {
	return &RSAPrivateKey{
		N: new(big.Int).Set(priv.N),
		D: new(big.Int).Set(priv.D),
	}
}

// Value is a JSON object containing the parameters of a single key.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type Value = map[ParamaterName]any

// stringParam returns the string value of a required parameter.
func stringParam(v Value, name ParamaterName) (string, error) {
	raw, ok := v[name]
	if !ok {
		return "", keyFormatError(name, "missing required paramater")
	}
	s, ok := raw.(string)
	if !ok {
		return "", keyFormatError(name, "is %T, not a string", raw)
	}
	if s == "" {
		return "", keyFormatError(name, "empty value")
	}
	return s, nil
}

// uintParam decodes a required Base64urlUInt parameter that must be
// strictly positive.
func uintParam(v Value, name ParamaterName) (*big.Int, error) {
	s, err := stringParam(v, name)
	if err != nil {
		return nil, err
	}
	i, err := base64.DecodeUint(s)
	if err != nil {
		return nil, &KeyFormatError{Param: name, Cause: err}
	}
	if i.Sign() <= 0 {
		return nil, keyFormatError(name, "must be positive")
	}
	return i, nil
}

// kty returns the key type of v.
func kty(v Value) (string, error) {
	return stringParam(v, KeyType)
}

// RSAPublicKeyFromValue builds an RSA public key from the "n" and "e"
// parameters of an RSA JWK.
func RSAPublicKeyFromValue(v Value) (*RSAPublicKey, error) {
	if t, err := kty(v); err != nil {
		return nil, err
	} else if t != KeyTypeRSA {
		return nil, keyFormatError(KeyType, "JWK value is not RSA: %q", t)
	}

	n, err := uintParam(v, N)
	if err != nil {
		return nil, err
	}

	e, err := uintParam(v, E)
	if err != nil {
		return nil, err
	}

	return &RSAPublicKey{N: n, E: e}, nil
}

// RSAPrivateKeyFromValue builds a minimal RSA private key from the "n"
// and "d" parameters of an RSA JWK.
func RSAPrivateKeyFromValue(v Value) (*RSAPrivateKey, error) {
	if t, err := kty(v); err != nil {
		return nil, err
	} else if t != KeyTypeRSA {
		return nil, keyFormatError(KeyType, "JWK value is not RSA: %q", t)
	}

	n, err := uintParam(v, N)
	if err != nil {
		return nil, err
	}

	d, err := uintParam(v, D)
	if err != nil {
		return nil, err
	}

	return &RSAPrivateKey{N: n, D: d}, nil
}

// SymmetricKeyFromValue decodes the "k" parameter of an "oct" JWK.
func SymmetricKeyFromValue(v Value) (SymmetricKey, error) {
	if t, err := kty(v); err != nil {
		return SymmetricKey{}, err
	} else if t != KeyTypeOctet {
		return SymmetricKey{}, keyFormatError(KeyType, "JWK value is not symmetric: %q", t)
	}

	k, err := stringParam(v, K)
	if err != nil {
		return SymmetricKey{}, err
	}

	secret, err := base64.Decode(k)
	if err != nil {
		return SymmetricKey{}, &KeyFormatError{Param: K, Cause: err}
	}

	return SymmetricKey{Secret: secret}, nil
}

// ParseKey converts a JWK value to a Key. An RSA value carrying "d" is
// read as a private key, otherwise as a public key.
func ParseKey(v Value) (Key, error) {
	t, err := kty(v)
	if err != nil {
		return nil, err
	}

	switch t {
	case KeyTypeOctet:
		return SymmetricKeyFromValue(v)
	case KeyTypeRSA:
		if _, ok := v[D]; ok {
			return RSAPrivateKeyFromValue(v)
		}
		return RSAPublicKeyFromValue(v)
	default:
		return nil, keyFormatError(KeyType, "unsupported key type %q", t)
	}
}

// Validate checks that the required parameters are present for
// the given key type, and that the values are valid.
func Validate(v Value) error {
	_, err := ParseKey(v)
	return err
}

// ValueFromKey returns the JWK parameters of the given key.
func ValueFromKey(key Key) (Value, error) {
	switch key := key.(type) {
	case SymmetricKey:
		if len(key.Secret) == 0 {
			return nil, keyFormatError(K, "empty secret")
		}
		return Value{
			KeyType: KeyTypeOctet,
			K:       base64.Encode(key.Secret),
		}, nil
	case *RSAPublicKey:
		n, err := base64.EncodeUint(key.N)
		if err != nil {
			return nil, &KeyFormatError{Param: N, Cause: err}
		}
		e, err := base64.EncodeUint(key.E)
		if err != nil {
			return nil, &KeyFormatError{Param: E, Cause: err}
		}
		return Value{
			KeyType: KeyTypeRSA,
			N:       n,
			E:       e,
		}, nil
	case *RSAPrivateKey:
		n, err := base64.EncodeUint(key.N)
		if err != nil {
			return nil, &KeyFormatError{Param: N, Cause: err}
		}
		d, err := base64.EncodeUint(key.D)
		if err != nil {
			return nil, &KeyFormatError{Param: D, Cause: err}
		}
		return Value{
			KeyType: KeyTypeRSA,
			N:       n,
			D:       d,
		}, nil
	default:
		return nil, fmt.Errorf("jwk: invalid type %T used for JWK value", key)
	}
}

// Package keyutil loads and generates key material for package jwk.
//
// Keys are read from PEM (PKCS#1, PKCS#8, PKIX and X.509 certificates)
// or from JWK JSON documents.
package keyutil

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"github.com/jose-engine/jose/pkg/jwk"
)

// MinRSAKeySize is the smallest modulus size NewRSAKeyPair generates.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.3
const MinRSAKeySize = 2048

// ErrNoPEMBlock is returned when input that must be PEM holds no block.
var ErrNoPEMBlock = errors.New("keyutil: no PEM block found")

// NewSymmetricKey generates a new symmetric key of the given size in bytes.
func NewSymmetricKey(size int) (jwk.SymmetricKey, error) {
	if size <= 0 {
		return jwk.SymmetricKey{}, fmt.Errorf("invalid symmetric key size %d", size)
	}

	key := make([]byte, size)

	_, err := rand.Read(key)
	if err != nil {
		return jwk.SymmetricKey{}, fmt.Errorf("failed to generate new symmetic key: %w", err)
	}

	return jwk.SymmetricKey{Secret: key}, nil
}

// NewRSAKeyPair returns a new RSA key pair of the given modulus size, or
// an error if one occurs.
func NewRSAKeyPair(bits int) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	if bits < MinRSAKeySize {
		return nil, nil, fmt.Errorf("RSA key size %d is below the minimum of %d bits", bits, MinRSAKeySize)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new RSA key pair: %w", err)
	}

	return &privateKey.PublicKey, privateKey, nil
}

// MarshalRSAPrivateKeyPEM encodes the private key as a PKCS#8 PEM block.
func MarshalRSAPrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RSA private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// MarshalRSAPublicKeyPEM encodes the public key as a PKIX PEM block.
func MarshalRSAPublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RSA public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParseRSAPublicKey parses the PEM encoded RSA public key, or the public
// key of a PEM encoded certificate, from the given reader.
func ParseRSAPublicKey(r io.Reader) (*jwk.RSAPublicKey, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read RSA public key from reader: %w", err)
	}

	return parseRSAPublicKeyPEM(keyBytes)
}

func parseRSAPublicKeyPEM(keyBytes []byte) (*jwk.RSAPublicKey, error) {
	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode RSA public key: %w", ErrNoPEMBlock)
	}

	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		cert, certErr := x509.ParseCertificate(block.Bytes)
		if certErr != nil {
			return nil, fmt.Errorf("failed to decode RSA public key: %w", err)
		}
		parsedKey = cert.PublicKey
	}

	publicKey, ok := parsedKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parse RSA public key", parsedKey)
	}

	return jwk.NewRSAPublicKey(publicKey), nil
}

// ParseRSAPrivateKey parses the PEM encoded (PKCS#1 or PKCS#8) RSA private
// key from the given reader.
func ParseRSAPrivateKey(r io.Reader) (*jwk.RSAPrivateKey, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read RSA private key from reader: %w", err)
	}

	return parseRSAPrivateKeyPEM(keyBytes)
}

func parseRSAPrivateKeyPEM(keyBytes []byte) (*jwk.RSAPrivateKey, error) {
	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode RSA private key: %w", ErrNoPEMBlock)
	}

	var parsedKey any

	parsedKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		p8, p8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if p8Err != nil {
			return nil, fmt.Errorf("failed to decode RSA private key: %w", err)
		}
		parsedKey = p8
	}

	privateKey, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parse RSA private key", parsedKey)
	}

	return jwk.NewRSAPrivateKey(privateKey), nil
}

// ParseSigningKey reads a key that can sign: a PEM encoded RSA private
// key, or a JWK holding an "oct" secret or an RSA private exponent.
func ParseSigningKey(r io.Reader) (jwk.Key, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key from reader: %w", err)
	}

	if isPEM(keyBytes) {
		return parseRSAPrivateKeyPEM(keyBytes)
	}

	key, err := parseJWK(keyBytes)
	if err != nil {
		return nil, err
	}

	if _, ok := key.(*jwk.RSAPublicKey); ok {
		return nil, fmt.Errorf("%w: RSA JWK has no private exponent", jwk.ErrKeyFormat)
	}

	return key, nil
}

// ParseVerificationKey reads a key that can verify: a PEM encoded RSA
// public key or certificate, or a JWK holding an "oct" secret or an RSA
// public key.
func ParseVerificationKey(r io.Reader) (jwk.Key, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read verification key from reader: %w", err)
	}

	if isPEM(keyBytes) {
		return parseRSAPublicKeyPEM(keyBytes)
	}

	value, err := decodeJWK(keyBytes)
	if err != nil {
		return nil, err
	}

	if t, _ := value[jwk.KeyType].(string); t == jwk.KeyTypeRSA {
		return jwk.RSAPublicKeyFromValue(value)
	}

	return jwk.ParseKey(value)
}

func isPEM(b []byte) bool {
	block, _ := pem.Decode(b)
	return block != nil
}

func decodeJWK(b []byte) (jwk.Value, error) {
	var value jwk.Value
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: key is neither PEM nor JWK JSON: %v", jwk.ErrKeyFormat, err)
	}
	return value, nil
}

func parseJWK(b []byte) (jwk.Key, error) {
	value, err := decodeJWK(b)
	if err != nil {
		return nil, err
	}
	return jwk.ParseKey(value)
}

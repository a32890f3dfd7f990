package jws

import (
	"fmt"

	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
)

// secret returns the bytes of a symmetric key.
func secret(key jwk.Key) ([]byte, bool) {
	switch k := key.(type) {
	case jwk.SymmetricKey:
		return k.Secret, len(k.Secret) > 0
	case *jwk.SymmetricKey:
		if k == nil {
			return nil, false
		}
		return k.Secret, len(k.Secret) > 0
	}
	return nil, false
}

// canSign reports whether key fits the signing side of p.
func canSign(p jwa.Primitive, key jwk.Key) bool {
	switch p.Kind {
	case jwa.KindHMAC:
		_, ok := secret(key)
		return ok
	case jwa.KindPKCS1v15, jwa.KindPSS:
		k, ok := key.(*jwk.RSAPrivateKey)
		return ok && k != nil
	}
	return false
}

// canVerify reports whether key fits the verifying side of p. A minimal
// RSA private key has no public exponent and cannot verify.
func canVerify(p jwa.Primitive, key jwk.Key) bool {
	switch p.Kind {
	case jwa.KindHMAC:
		_, ok := secret(key)
		return ok
	case jwa.KindPKCS1v15, jwa.KindPSS:
		k, ok := key.(*jwk.RSAPublicKey)
		return ok && k != nil
	}
	return false
}

// signingKey returns the configured key, or the key set entry for the
// configured "kid".
func (j *JWS) signingKey(p jwa.Primitive) (jwk.Key, error) {
	if j.key != nil {
		if !canSign(p, j.key) {
			return nil, fmt.Errorf("%w: %s key cannot sign %s", ErrKeyNotFound, j.key.KeyType(), p.Algorithm)
		}
		return j.key, nil
	}

	for _, entry := range j.keys {
		if entry.KeyID == j.header.KeyID && algorithmMatches(entry, p) && canSign(p, entry.Key) {
			return entry.Key, nil
		}
	}

	return nil, fmt.Errorf("%w: no %s signing key for kid %q", ErrKeyNotFound, p.Algorithm, j.header.KeyID)
}

// verificationKey selects the key for a message with the given "kid".
// Only keys usable with the verifier's own primitive are candidates, so a
// key of another type is never reached whatever the message declares.
//
// A message with a "kid" is matched against the key set when one is
// configured. Otherwise the configured key is used, and failing that a
// key set entry without a "kid".
func (j *JWS) verificationKey(p jwa.Primitive, kid string) (jwk.Key, error) {
	if kid != "" && j.keys != nil {
		return j.lookup(p, kid)
	}

	if j.key != nil {
		if !canVerify(p, j.key) {
			return nil, fmt.Errorf("%w: %s key cannot verify %s", ErrKeyNotFound, j.key.KeyType(), p.Algorithm)
		}
		return j.key, nil
	}

	return j.lookup(p, kid)
}

func (j *JWS) lookup(p jwa.Primitive, kid string) (jwk.Key, error) {
	for _, entry := range j.keys {
		if entry.KeyID == kid && algorithmMatches(entry, p) && canVerify(p, entry.Key) {
			return entry.Key, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s verification key for kid %q", ErrKeyNotFound, p.Algorithm, kid)
}

func algorithmMatches(entry jwk.Entry, p jwa.Primitive) bool {
	return entry.Algorithm == "" || entry.Algorithm == p.Algorithm
}

package rsassa

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jose-engine/jose/pkg/digest"
)

// DigestInfo returns the DER encoding of
//
//	DigestInfo ::= SEQUENCE {
//	    digestAlgorithm AlgorithmIdentifier,
//	    digest OCTET STRING
//	}
//
// with a NULL algorithm parameter.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-9.2
func DigestInfo(h digest.Hash, hashed []byte) ([]byte, error) {
	oid := h.OID()
	if oid == nil {
		return nil, fmt.Errorf("%w: %v", digest.ErrUnknownHash, h)
	}
	if len(hashed) != h.Size() {
		return nil, fmt.Errorf("rsassa: digest length %d does not match %v", len(hashed), h)
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oid)
			b.AddASN1NULL()
		})
		b.AddASN1OctetString(hashed)
	})

	return b.Bytes()
}

// EncodePKCS1v15 builds the k byte encoded message
//
//	EM = 0x00 || 0x01 || PS || 0x00 || T
//
// where T is the DigestInfo of hashed and PS is a run of 0xff bytes at
// least eight long. ErrEncoding is returned when k < len(T) + 11.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-9.2
func EncodePKCS1v15(h digest.Hash, hashed []byte, k int) ([]byte, error) {
	t, err := DigestInfo(h, hashed)
	if err != nil {
		return nil, err
	}

	if k < len(t)+11 {
		return nil, fmt.Errorf("%w: need %d bytes for %v, have %d", ErrEncoding, len(t)+11, h, k)
	}

	em := make([]byte, k)
	em[1] = 0x01
	sep := k - len(t) - 1
	for i := 2; i < sep; i++ {
		em[i] = 0xff
	}
	copy(em[sep+1:], t)

	return em, nil
}

// VerifyPKCS1v15 checks em against the encoding of hashed. The expected
// message is rebuilt and compared as a whole in constant time, so there
// is no parsing of the padding at all.
func VerifyPKCS1v15(h digest.Hash, hashed, em []byte) error {
	expected, err := EncodePKCS1v15(h, hashed, len(em))
	if err != nil {
		return ErrVerification
	}

	if subtle.ConstantTimeCompare(em, expected) != 1 {
		return ErrVerification
	}
	return nil
}

package rsassa

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jose-engine/jose/pkg/digest"
)

// MGF1 is the mask generation function of RFC 8017 Appendix B.2.1.
func MGF1(h digest.Hash, seed []byte, length int) ([]byte, error) {
	d, err := digest.New(h)
	if err != nil {
		return nil, err
	}

	var (
		mask    = make([]byte, 0, length+d.Size())
		counter [4]byte
	)
	for i := uint32(0); len(mask) < length; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		d.Init()
		d.Update(seed)
		d.Update(counter[:])
		mask = append(mask, d.Finish()...)
	}

	return mask[:length], nil
}

// EncodePSS is EMSA-PSS-ENCODE with a random salt of saltLen bytes.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-9.1.1
func EncodePSS(random io.Reader, h digest.Hash, mHash []byte, emBits, saltLen int) ([]byte, error) {
	d, err := digest.New(h)
	if err != nil {
		return nil, err
	}

	hLen := d.Size()
	if len(mHash) != hLen {
		return nil, fmt.Errorf("rsassa: digest length %d does not match %v", len(mHash), h)
	}

	emLen := (emBits + 7) / 8
	if emBits <= 0 || emLen < hLen+saltLen+2 {
		return nil, fmt.Errorf("%w: need %d bytes for PSS with %v, have %d", ErrEncoding, hLen+saltLen+2, h, emLen)
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, fmt.Errorf("rsassa: failed to read salt: %w", err)
	}

	// H = Hash(0x00 x 8 || mHash || salt)
	d.Init()
	d.Update(make([]byte, 8))
	d.Update(mHash)
	d.Update(salt)
	hh := d.Finish()

	// DB = PS || 0x01 || salt
	dbLen := emLen - hLen - 1
	db := make([]byte, dbLen)
	db[dbLen-saltLen-1] = 0x01
	copy(db[dbLen-saltLen:], salt)

	mask, err := MGF1(h, hh, dbLen)
	if err != nil {
		return nil, err
	}
	subtle.XORBytes(db, db, mask)
	db[0] &= 0xff >> (8*emLen - emBits)

	em := make([]byte, 0, emLen)
	em = append(em, db...)
	em = append(em, hh...)
	em = append(em, 0xbc)

	return em, nil
}

// VerifyPSS is EMSA-PSS-VERIFY for a salt of exactly saltLen bytes.
//
// https://datatracker.ietf.org/doc/html/rfc8017#section-9.1.2
func VerifyPSS(h digest.Hash, mHash, em []byte, emBits, saltLen int) error {
	d, err := digest.New(h)
	if err != nil {
		return ErrVerification
	}

	hLen := d.Size()
	emLen := (emBits + 7) / 8
	if len(mHash) != hLen || len(em) != emLen || emLen < hLen+saltLen+2 {
		return ErrVerification
	}

	if em[emLen-1] != 0xbc {
		return ErrVerification
	}

	dbLen := emLen - hLen - 1
	maskedDB, hh := em[:dbLen], em[dbLen:emLen-1]

	topBits := byte(0xff >> (8*emLen - emBits))
	if maskedDB[0]&^topBits != 0 {
		return ErrVerification
	}

	mask, err := MGF1(h, hh, dbLen)
	if err != nil {
		return ErrVerification
	}
	db := make([]byte, dbLen)
	subtle.XORBytes(db, maskedDB, mask)
	db[0] &= topBits

	psLen := dbLen - saltLen - 1
	for _, b := range db[:psLen] {
		if b != 0 {
			return ErrVerification
		}
	}
	if db[psLen] != 0x01 {
		return ErrVerification
	}
	salt := db[dbLen-saltLen:]

	d.Init()
	d.Update(make([]byte, 8))
	d.Update(mHash)
	d.Update(salt)

	if subtle.ConstantTimeCompare(hh, d.Finish()) != 1 {
		return ErrVerification
	}
	return nil
}

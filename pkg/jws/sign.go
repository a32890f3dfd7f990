package jws

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jose-engine/jose/pkg/base64"
	"github.com/jose-engine/jose/pkg/digest"
	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/rsassa"
)

// JSONMessage is the flattened JWS JSON serialization of a single
// signature.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-7.2.2
type JSONMessage struct {
	Protected string         `json:"protected"`
	Header    map[string]any `json:"header,omitempty"`
	Payload   string         `json:"payload"`
	Signature string         `json:"signature"`
}

// Compact signs payload and returns the compact serialization
//
//	BASE64URL(header) "." BASE64URL(payload) "." BASE64URL(signature)
//
// The signature segment is empty only for "none".
func (j *JWS) Compact(payload []byte) (_ string, err error) {
	start := time.Now()
	defer func() { j.record(false, err, start) }()

	hdr, encodedPayload, sig, err := j.signSegments(payload)
	if err != nil {
		return "", err
	}

	return hdr + "." + encodedPayload + "." + sig, nil
}

// JSON signs payload and returns the flattened JSON serialization. The
// unprotected header, if configured, is included as the "header" member
// and is not covered by the signature.
func (j *JWS) JSON(payload []byte) (_ []byte, err error) {
	start := time.Now()
	defer func() { j.record(false, err, start) }()

	hdr, encodedPayload, sig, err := j.signSegments(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(JSONMessage{
		Protected: hdr,
		Header:    j.unprotected,
		Payload:   encodedPayload,
		Signature: sig,
	})
}

func (j *JWS) signSegments(payload []byte) (hdr, encodedPayload, sig string, err error) {
	p, err := j.primitive()
	if err != nil {
		return "", "", "", err
	}

	hdr, err = j.CompactHeader()
	if err != nil {
		return "", "", "", err
	}

	encodedPayload = base64.Encode(payload)

	signature, err := j.sign(p, []byte(hdr+"."+encodedPayload))
	if err != nil {
		j.logger.Debug("jws signing failed", zap.String("alg", p.Algorithm), zap.Error(err))
		return "", "", "", err
	}

	return hdr, encodedPayload, base64.Encode(signature), nil
}

// sign computes the signature over the signing input.
func (j *JWS) sign(p jwa.Primitive, input []byte) ([]byte, error) {
	if p.Kind == jwa.KindNone {
		return nil, nil
	}

	key, err := j.signingKey(p)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case jwa.KindHMAC:
		s, _ := secret(key)
		mac, err := p.MAC(s)
		if err != nil {
			return nil, err
		}
		return digest.Sum(mac, input), nil
	case jwa.KindPKCS1v15, jwa.KindPSS:
		return rsassa.Sign(j.random, p.Scheme(), key.(*jwk.RSAPrivateKey), input)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, p.Algorithm)
}

package jws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jose-engine/jose/pkg/base64"
	"github.com/jose-engine/jose/pkg/digest"
	"github.com/jose-engine/jose/pkg/header"
	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/rsassa"
)

// Validation stages reported in debug logs.
const (
	stageSplit  = "split"
	stageHeader = "header"
	stageGate   = "gate"
	stageKey    = "key"
	stageCrypto = "crypto"
)

// Split splits a compact message into its three base64url segments
// without decoding or verifying them.
func Split(message string) ([3]string, error) {
	parts := strings.Split(message, ".")
	if len(parts) != 3 {
		return [3]string{}, fmt.Errorf("%w: incorrect number of segments: %d", ErrMalformedMessage, len(parts))
	}
	return [3]string{parts[0], parts[1], parts[2]}, nil
}

// Inspect decodes the protected header and payload of a compact message.
//
// # Warning
//
// Nothing is verified. Use ValidateCompact before trusting either value.
func Inspect(message string) (Header, []byte, error) {
	parts, err := Split(message)
	if err != nil {
		return Header{}, nil, err
	}

	h, err := header.Decode(parts[0])
	if err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	payload, err := base64.Decode(parts[1])
	if err != nil {
		return Header{}, nil, fmt.Errorf("%w: payload: %v", ErrMalformedMessage, err)
	}

	return h, payload, nil
}

// ValidateCompact verifies a compact message and returns its payload.
//
// The message's "typ" and "alg" must equal the configured values exactly.
// Verification then uses the configured algorithm and a key of the type
// that algorithm requires. Every cryptographic failure, and a header
// mismatch, is reported as ErrSignatureInvalid.
func (j *JWS) ValidateCompact(message string) (_ []byte, err error) {
	start := time.Now()
	defer func() { j.record(true, err, start) }()

	_, payload, err := j.validate(message)
	return payload, err
}

// Header returns the protected header of a message that validates.
func (j *JWS) Header(message string) (Header, error) {
	h, _, err := j.validate(message)
	return h, err
}

// Payload returns the payload of a message that validates.
func (j *JWS) Payload(message string) ([]byte, error) {
	return j.ValidateCompact(message)
}

// ValidateJSON verifies a flattened JSON serialization and returns its
// payload and unprotected header. The unprotected header is not covered
// by the signature and plays no part in verification.
func (j *JWS) ValidateJSON(data []byte) (_ []byte, _ map[string]any, err error) {
	start := time.Now()
	defer func() { j.record(true, err, start) }()

	var msg JSONMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		j.fail(stageSplit, err)
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Protected == "" {
		j.fail(stageSplit, nil)
		return nil, nil, fmt.Errorf("%w: missing protected header", ErrMalformedMessage)
	}

	_, payload, err := j.validate(msg.Protected + "." + msg.Payload + "." + msg.Signature)
	if err != nil {
		return nil, nil, err
	}

	return payload, msg.Header, nil
}

func (j *JWS) validate(message string) (Header, []byte, error) {
	parts, err := Split(message)
	if err != nil {
		j.fail(stageSplit, err)
		return Header{}, nil, err
	}

	h, err := header.Decode(parts[0])
	if err != nil {
		j.fail(stageHeader, err)
		return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	payload, err := base64.Decode(parts[1])
	if err != nil {
		j.fail(stageSplit, err)
		return Header{}, nil, fmt.Errorf("%w: payload: %v", ErrMalformedMessage, err)
	}

	sig, err := base64.Decode(parts[2])
	if err != nil {
		j.fail(stageSplit, err)
		return Header{}, nil, fmt.Errorf("%w: signature: %v", ErrMalformedMessage, err)
	}

	p, err := j.primitive()
	if err != nil {
		j.fail(stageGate, err)
		return Header{}, nil, err
	}

	// The declared "alg" is only ever compared, never resolved.
	if h.Type != j.header.Type || h.Algorithm != j.header.Algorithm {
		j.fail(stageGate, nil)
		return Header{}, nil, ErrSignatureInvalid
	}

	if err := h.CheckCritical(j.critical...); err != nil {
		j.fail(stageHeader, err)
		return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if err := j.verify(p, h.KeyID, []byte(parts[0]+"."+parts[1]), sig); err != nil {
		return Header{}, nil, err
	}

	return h, payload, nil
}

// verify checks sig over input with the primitive p.
func (j *JWS) verify(p jwa.Primitive, kid string, input, sig []byte) error {
	if p.Kind == jwa.KindNone {
		if len(sig) != 0 {
			j.fail(stageCrypto, nil)
			return ErrSignatureInvalid
		}
		return nil
	}

	key, err := j.verificationKey(p, kid)
	if err != nil {
		j.fail(stageKey, err)
		return err
	}

	switch p.Kind {
	case jwa.KindHMAC:
		s, _ := secret(key)
		mac, err := p.MAC(s)
		if err != nil {
			j.fail(stageCrypto, nil)
			return ErrSignatureInvalid
		}
		if !digest.Equal(digest.Sum(mac, input), sig) {
			j.fail(stageCrypto, nil)
			return ErrSignatureInvalid
		}
		return nil
	case jwa.KindPKCS1v15, jwa.KindPSS:
		if err := rsassa.Verify(p.Scheme(), key.(*jwk.RSAPublicKey), input, sig); err != nil {
			j.fail(stageCrypto, nil)
			return ErrSignatureInvalid
		}
		return nil
	}

	return ErrSignatureInvalid
}

func (j *JWS) fail(stage string, err error) {
	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("alg", j.header.Algorithm),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	j.logger.Debug("jws validation failed", fields...)
}

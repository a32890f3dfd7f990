// Package jws builds and validates JSON Web Signatures (RFC 7515) in the
// compact and flattened JSON serializations.
//
// A JWS value is configured once with the protected header it produces
// and expects, and the key material it signs or verifies with. Incoming
// messages must carry exactly the configured "typ" and "alg"; the
// primitive used for verification always comes from the configuration,
// never from the message.
//
// A configured JWS may be used for verification from multiple goroutines
// as long as none of them changes its configuration.
package jws

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jose-engine/jose/pkg/header"
	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/metrics"
)

// Header is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The JOSE (JSON Object Signing and Encryption) Header is comprised
// of a set of Header Parameters.
type Header = header.Header

// JWS is a signer and verifier bound to one protected header.
type JWS struct {
	header      Header
	unprotected map[string]any

	key  jwk.Key
	keys jwk.KeySet

	allowNone bool
	critical  []string
	random    io.Reader

	// compactHeader caches the encoded protected header; it is cleared
	// by every header mutation.
	compactHeader string

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a JWS.
type Option func(*JWS)

// WithAlgorithm sets the "alg" header parameter.
func WithAlgorithm(alg jwa.Algorithm) Option {
	return func(j *JWS) { j.header.Algorithm = alg }
}

// WithType sets the "typ" header parameter.
func WithType(typ string) Option {
	return func(j *JWS) { j.header.Type = typ }
}

// WithContentType sets the "cty" header parameter.
func WithContentType(cty string) Option {
	return func(j *JWS) { j.header.ContentType = cty }
}

// WithKeyID sets the "kid" header parameter.
func WithKeyID(kid string) Option {
	return func(j *JWS) { j.header.KeyID = kid }
}

// WithHeader replaces the whole protected header.
func WithHeader(h Header) Option {
	return func(j *JWS) { j.header = h }
}

// WithUnprotected sets the unprotected header emitted by JSON. It is
// never covered by the signature.
func WithUnprotected(params map[string]any) Option {
	return func(j *JWS) { j.unprotected = params }
}

// WithKey sets the key used for signing, and for verifying messages that
// cannot be matched against the key set.
func WithKey(key jwk.Key) Option {
	return func(j *JWS) { j.key = key }
}

// WithKeySet sets the keys that incoming messages are matched against by
// their "kid".
func WithKeySet(keys jwk.KeySet) Option {
	return func(j *JWS) { j.keys = keys }
}

// WithAllowNone permits the "none" algorithm for both signing and
// verification.
//
// # Warning
//
// Messages using "none" are not integrity protected.
func WithAllowNone(allow bool) Option {
	return func(j *JWS) { j.allowNone = allow }
}

// WithCritical declares the extension header parameters this verifier
// understands when they are listed in "crit".
func WithCritical(names ...string) Option {
	return func(j *JWS) { j.critical = names }
}

// WithRandom sets the randomness source for PSS salts.
func WithRandom(r io.Reader) Option {
	return func(j *JWS) { j.random = r }
}

// WithLogger sets the logger. Only debug messages are emitted and they
// never include keys, payloads or signatures.
func WithLogger(logger *zap.Logger) Option {
	return func(j *JWS) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithMetrics records sign and verify outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(j *JWS) { j.metrics = m }
}

// New returns a JWS configured with the given options.
func New(opts ...Option) *JWS {
	j := &JWS{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// SetAlgorithm sets the "alg" header parameter.
func (j *JWS) SetAlgorithm(alg jwa.Algorithm) *JWS {
	j.header.Algorithm = alg
	j.compactHeader = ""
	return j
}

// SetType sets the "typ" header parameter.
func (j *JWS) SetType(typ string) *JWS {
	j.header.Type = typ
	j.compactHeader = ""
	return j
}

// SetContentType sets the "cty" header parameter.
func (j *JWS) SetContentType(cty string) *JWS {
	j.header.ContentType = cty
	j.compactHeader = ""
	return j
}

// SetKeyID sets the "kid" header parameter.
func (j *JWS) SetKeyID(kid string) *JWS {
	j.header.KeyID = kid
	j.compactHeader = ""
	return j
}

// SetHeader replaces the whole protected header.
func (j *JWS) SetHeader(h Header) *JWS {
	j.header = h
	j.compactHeader = ""
	return j
}

// SetUnprotected sets the unprotected header emitted by JSON.
func (j *JWS) SetUnprotected(params map[string]any) *JWS {
	j.unprotected = params
	return j
}

// SetKey sets the signing and fallback verification key.
func (j *JWS) SetKey(key jwk.Key) *JWS {
	j.key = key
	return j
}

// SetKeySet sets the verification key set.
func (j *JWS) SetKeySet(keys jwk.KeySet) *JWS {
	j.keys = keys
	return j
}

// ProtectedHeader returns a copy of the configured protected header.
func (j *JWS) ProtectedHeader() Header {
	h := j.header
	if h.Critical != nil {
		h.Critical = append([]string(nil), h.Critical...)
	}
	return h
}

// Algorithm returns the configured "alg".
func (j *JWS) Algorithm() jwa.Algorithm {
	return j.header.Algorithm
}

// CompactHeader returns the base64url encoded protected header. The
// encoding is computed once and reused until the header changes.
func (j *JWS) CompactHeader() (string, error) {
	if j.compactHeader != "" {
		return j.compactHeader, nil
	}
	if j.header.Algorithm == "" {
		return "", ErrAlgorithmNotSet
	}

	encoded, err := j.header.Encode()
	if err != nil {
		return "", err
	}

	j.compactHeader = encoded
	return encoded, nil
}

// primitive resolves the configured algorithm, refusing "none" unless it
// was explicitly allowed.
func (j *JWS) primitive() (jwa.Primitive, error) {
	if j.header.Algorithm == "" {
		return jwa.Primitive{}, ErrAlgorithmNotSet
	}

	p, err := jwa.Resolve(j.header.Algorithm)
	if err != nil {
		return jwa.Primitive{}, err
	}

	if p.Kind == jwa.KindNone && !j.allowNone {
		return jwa.Primitive{}, fmt.Errorf("%w: %q is not allowed", ErrUnsupportedAlgorithm, jwa.None)
	}

	return p, nil
}

func (j *JWS) record(verify bool, err error, start time.Time) {
	if verify {
		j.metrics.RecordVerify(j.header.Algorithm, err, time.Since(start))
		return
	}
	j.metrics.RecordSign(j.header.Algorithm, err, time.Since(start))
}

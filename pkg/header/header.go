package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/jose-engine/jose/pkg/base64"
	"github.com/jose-engine/jose/pkg/jwa"
)

// There are three classes of Header Parameter names: Registered Header
// Parameter names, Public Header Parameter names, and Private Header
// Parameter names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4
type (
	ParamaterName = string

	Registered = ParamaterName
	Public     = ParamaterName
	Private    = ParamaterName
)

// Registered Header Paramater Names
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
const (
	Type                            Registered = "typ"
	Algorithm                       Registered = "alg"
	JWKSetURL                       Registered = "jku"
	JSONWebKey                      Registered = "jwk"
	X509URL                         Registered = "x5u"
	X509CertificateChain            Registered = "x5c"
	X509CertificateSHA1Thumbprint   Registered = "x5t"
	X509CertificateSHA256Thumbprint Registered = "x5t#S256"
	ContentType                     Registered = "cty"
	Critical                        Registered = "crit"
	KeyID                           Registered = "kid"
)

const TypeJWT = "JWT"

var registered = map[ParamaterName]bool{
	Type: true, Algorithm: true, JWKSetURL: true, JSONWebKey: true,
	X509URL: true, X509CertificateChain: true, X509CertificateSHA1Thumbprint: true,
	X509CertificateSHA256Thumbprint: true, ContentType: true, Critical: true, KeyID: true,
}

// ErrCritical is returned by CheckCritical.
var ErrCritical = errors.New("header: unsupported critical parameter")

// Header is a JOSE protected header. Members are encoded in the order
// alg, typ, cty, kid, crit followed by any extension parameters sorted
// by name.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4
type Header struct {
	Algorithm   jwa.Algorithm `json:"alg"`
	Type        string        `json:"typ,omitempty"`
	ContentType string        `json:"cty,omitempty"`
	KeyID       string        `json:"kid,omitempty"`
	Critical    []string      `json:"crit,omitempty"`

	// Extensions holds the raw JSON of every parameter not modeled above.
	Extensions map[ParamaterName]json.RawMessage `json:"-"`
}

// registeredFields mirrors Header without its methods so the default
// JSON encoding can be used for the modeled members.
type registeredFields struct {
	Algorithm   jwa.Algorithm `json:"alg"`
	Type        string        `json:"typ,omitempty"`
	ContentType string        `json:"cty,omitempty"`
	KeyID       string        `json:"kid,omitempty"`
	Critical    []string      `json:"crit,omitempty"`
}

func (h Header) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(registeredFields{
		Algorithm:   h.Algorithm,
		Type:        h.Type,
		ContentType: h.ContentType,
		KeyID:       h.KeyID,
		Critical:    h.Critical,
	})
	if err != nil || len(h.Extensions) == 0 {
		return b, err
	}

	names := make([]string, 0, len(h.Extensions))
	for name := range h.Extensions {
		if registered[name] {
			return nil, fmt.Errorf("header: extension %q shadows a registered parameter", name)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	buf := bytes.NewBuffer(b[:len(b)-1])
	for _, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(buf, h.Extensions[name]); err != nil {
			return nil, fmt.Errorf("header: invalid value for %q: %w", name, err)
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads the registered members by their exact names. Names
// that only differ in case are kept as extensions.
func (h *Header) UnmarshalJSON(b []byte) error {
	var all map[ParamaterName]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	if all == nil {
		return errors.New("header: not a JSON object")
	}

	*h = Header{}

	fields := map[ParamaterName]any{
		Algorithm:   &h.Algorithm,
		Type:        &h.Type,
		ContentType: &h.ContentType,
		KeyID:       &h.KeyID,
		Critical:    &h.Critical,
	}

	for name, raw := range all {
		if field, ok := fields[name]; ok {
			if err := json.Unmarshal(raw, field); err != nil {
				return fmt.Errorf("header: invalid %q: %w", name, err)
			}
			continue
		}
		if registered[name] {
			continue
		}
		if h.Extensions == nil {
			h.Extensions = make(map[ParamaterName]json.RawMessage)
		}
		h.Extensions[name] = raw
	}

	return nil
}

// Encode returns the base64url encoding of the minified JSON header.
func (h Header) Encode() (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode JOSE header: %w", err)
	}
	return base64.Encode(b), nil
}

// Decode parses a base64url encoded JSON header segment.
func Decode(segment string) (Header, error) {
	b, err := base64.Decode(segment)
	if err != nil {
		return Header{}, fmt.Errorf("failed to decode JOSE header: %w", err)
	}

	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return Header{}, fmt.Errorf("failed to parse JOSE header: %w", err)
	}

	return h, nil
}

// Has reports whether the named parameter is present.
func (h Header) Has(name ParamaterName) bool {
	switch name {
	case Algorithm:
		return h.Algorithm != ""
	case Type:
		return h.Type != ""
	case ContentType:
		return h.ContentType != ""
	case KeyID:
		return h.KeyID != ""
	case Critical:
		return h.Critical != nil
	}
	_, ok := h.Extensions[name]
	return ok
}

// CheckCritical validates the "crit" parameter against the extension
// names the recipient understands. The list must not be empty, must not
// name registered parameters, and every name must be understood and
// present in the header.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.11
func (h Header) CheckCritical(understood ...ParamaterName) error {
	if h.Critical == nil {
		return nil
	}
	if len(h.Critical) == 0 {
		return fmt.Errorf("%w: empty list", ErrCritical)
	}

	for _, name := range h.Critical {
		switch {
		case registered[name]:
			return fmt.Errorf("%w: %q is a registered parameter", ErrCritical, name)
		case !slices.Contains(understood, name):
			return fmt.Errorf("%w: %q", ErrCritical, name)
		case !h.Has(name):
			return fmt.Errorf("%w: %q is not present", ErrCritical, name)
		}
	}

	return nil
}

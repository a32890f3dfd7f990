package jwt

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jose-engine/jose/pkg/header"
	"github.com/jose-engine/jose/pkg/jws"
)

// Type "JWT" is the media type used by JSON Web Token (JWT).
//
// https://www.rfc-editor.org/rfc/rfc7519#section-5.1
const Type = header.TypeJWT

// JWT signs claims sets and validates tokens that carry them.
//
// JWTs contain three parts, separated by dots (".") which are:
//
//  1. Header
//  2. Claims (Payload)
//  3. Signature
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-1
type JWT struct {
	jws *jws.JWS
}

// New returns a JWT configured with the given JWS options. The "typ"
// header parameter is always set to "JWT", overriding any option that
// sets it.
//
// # Example
//
//	signer := jwt.New(
//		jws.WithAlgorithm(jwa.HS256),
//		jws.WithKey(jwk.SymmetricKey{Secret: secret}),
//	)
func New(opts ...jws.Option) *JWT {
	opts = append(opts[:len(opts):len(opts)], jws.WithType(Type))
	return &JWT{jws: jws.New(opts...)}
}

// JWS returns the underlying engine, for callers that need to change its
// key material or inspect its protected header.
func (t *JWT) JWS() *jws.JWS {
	return t.jws
}

// Sign encodes claims as minified JSON and signs them, returning the
// compact serialization.
//
// A ClaimsSet must not be empty. A time.Time held by "exp", "nbf" or
// "iat" is written as integer seconds and a fmt.Stringer held by "iss",
// "sub" or "jti" as its string. Nothing else about the claims is checked;
// any value encoding/json accepts is signed as is.
func (t *JWT) Sign(claims any) (string, error) {
	if claims == nil {
		return "", ErrNoClaimSet
	}

	if set, ok := claims.(ClaimsSet); ok {
		if len(set) == 0 {
			return "", ErrNoClaimSet
		}
		claims = set.normalize()
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", NewSigningError(err)
	}

	token, err := t.jws.Compact(payload)
	if err != nil {
		return "", NewSigningError(err)
	}

	return token, nil
}

// Validate verifies token and returns its claims set. Verification errors
// are those of jws.JWS.ValidateCompact; a payload that is not a JSON
// object fails with jws.ErrMalformedMessage.
//
// NumericDate claims without a fractional part are returned as int64.
// No claim is checked: expiry, audience and the like are the caller's
// concern.
func (t *JWT) Validate(token string) (ClaimsSet, error) {
	payload, err := t.jws.ValidateCompact(token)
	if err != nil {
		return nil, err
	}

	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// ValidateInto verifies token and decodes its payload into v.
func (t *JWT) ValidateInto(token string, v any) error {
	payload, err := t.jws.ValidateCompact(token)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: claims: %v", jws.ErrMalformedMessage, err)
	}

	return nil
}

// Inspect decodes the header and claims of token.
//
// # Warning
//
// Nothing is verified. The result must not be trusted; use Validate.
func Inspect(token string) (header.Header, ClaimsSet, error) {
	h, payload, err := jws.Inspect(token)
	if err != nil {
		return header.Header{}, nil, err
	}

	claims, err := decodeClaims(payload)
	if err != nil {
		return header.Header{}, nil, err
	}

	return h, claims, nil
}

func decodeClaims(payload []byte) (ClaimsSet, error) {
	var claims ClaimsSet
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: claims: %v", jws.ErrMalformedMessage, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: claims set is not a JSON object", jws.ErrMalformedMessage)
	}

	claims.decode()

	return claims, nil
}

// FromHTTPAuthorizationHeader extracts a JWT string from the Authorization header of an HTTP request.
// If the Authorization header is not set, then an error is returned.
//
// # Warning
//
// This value needs to be validated before it can be used safely.
func FromHTTPAuthorizationHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", ErrInvalidAuthorization
	}

	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidAuthorization
	}

	return parts[1], nil
}

// SetHTTPAuthorizationHeader sets the Authorization header of an HTTP request
// to the given JWT. The JWT is prefixed with "Bearer ", as required by the
// HTTP Authorization header specification.
//
// https://tools.ietf.org/html/rfc6750#section-2.1
func SetHTTPAuthorizationHeader(r *http.Request, token string) {
	r.Header.Set("Authorization", "Bearer "+token)
}

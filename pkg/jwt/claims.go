package jwt

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/slices"

	"github.com/jose-engine/jose/pkg/base64"
)

// There are three classes of JWT Claim Names:
// 1. Registered Claim Names
// 2. Public Claim Names
// 3. Private Claim Names
type (
	ClaimName string

	Registered = ClaimName
	Public     = ClaimName
	Private    = ClaimName
)

// ClaimValue is a piece of information asserted about a subject, represented
// as a name/value pair consisting of a ClaimName and a ClaimValue.
type ClaimValue = any

// Registered Claim Names
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-4.1
const (
	Issuer         Registered = "iss"
	Subject        Registered = "sub"
	Audience       Registered = "aud"
	ExpirationTime Registered = "exp"
	NotBefore      Registered = "nbf"
	IssuedAt       Registered = "iat"
	JWTID          Registered = "jti"
)

// ClaimsSet is a JSON object that contains the claims conveyed by the JWT.
//
// A claim is a piece of information asserted about a subject, represented
// as a name/value pair consisting of a Claim Name and a Claim Value.
type ClaimsSet map[ClaimName]ClaimValue

// String returns the claims set the way it appears in a token's payload
// segment.
func (claims ClaimsSet) String() string {
	b, err := json.Marshal(claims)
	if err != nil {
		return fmt.Sprintf("<invalid-claims-set %q: %#v>", err, claims)
	}

	return base64.Encode(b)
}

func (claims ClaimsSet) Get(name ClaimName) (ClaimValue, error) {
	value, ok := claims[name]
	if !ok {
		return nil, fmt.Errorf("claim %q not found in claims set", name)
	}
	return value, nil
}

func (claims ClaimsSet) Set(name ClaimName, value ClaimValue) {
	claims[name] = value
}

// Names returns the claim names in ascending order.
func (claims ClaimsSet) Names() []ClaimName {
	names := make([]ClaimName, 0, len(claims))

	for name := range claims {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Time returns a NumericDate claim such as "exp" as a time. The boolean
// is false when the claim is absent.
func (claims ClaimsSet) Time(name ClaimName) (time.Time, bool, error) {
	value, ok := claims[name]
	if !ok {
		return time.Time{}, false, nil
	}

	switch v := value.(type) {
	case int64:
		return time.Unix(v, 0), true, nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)), true, nil
	case time.Time:
		return v, true, nil
	default:
		return time.Time{}, true, NewInvalidTypeError(name, value)
	}
}

// StringClaim returns a StringOrURI claim such as "iss" or "sub".
func (claims ClaimsSet) StringClaim(name ClaimName) (string, bool, error) {
	value, ok := claims[name]
	if !ok {
		return "", false, nil
	}

	s, ok := value.(string)
	if !ok {
		return "", true, NewInvalidTypeError(name, value)
	}
	return s, true, nil
}

// Audiences returns the "aud" claim, which may be a single string or an
// array of strings.
func (claims ClaimsSet) Audiences() ([]string, error) {
	value, ok := claims[Audience]
	if !ok {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		auds := make([]string, 0, len(v))
		for _, a := range v {
			s, ok := a.(string)
			if !ok {
				return nil, NewInvalidTypeError(Audience, a)
			}
			auds = append(auds, s)
		}
		return auds, nil
	default:
		return nil, NewInvalidTypeError(Audience, value)
	}
}

// normalize returns a copy of the claims set with convenience values of
// registered claims converted to their wire form: time.Time NumericDates
// to integer seconds and fmt.Stringer StringOrURIs to strings. Every
// other value is left for encoding/json. The receiver is not modified.
func (claims ClaimsSet) normalize() ClaimsSet {
	out := make(ClaimsSet, len(claims))

	for name, value := range claims {
		switch name {
		case ExpirationTime, NotBefore, IssuedAt:
			if v, ok := value.(time.Time); ok {
				value = v.Unix()
			}
		case Issuer, Subject, JWTID:
			if v, ok := value.(fmt.Stringer); ok {
				value = v.String()
			}
		}
		out[name] = value
	}

	return out
}

// decode converts registered NumericDate claims decoded as float64 back to
// integer seconds when they have no fractional part.
func (claims ClaimsSet) decode() {
	for _, name := range []ClaimName{ExpirationTime, NotBefore, IssuedAt} {
		if v, ok := claims[name].(float64); ok && v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			claims[name] = int64(v)
		}
	}
}

// Package jwt signs and validates JSON Web Tokens (RFC 7519) carried in
// the JWS compact serialization.
//
// It is a thin layer over package jws: signing marshals a claims set to
// minified JSON and signs it, and validation verifies the token before
// decoding its payload. The "typ" header parameter is always "JWT".
//
// Claim semantics such as expiry, audience or nonce checks are left to
// the caller; ClaimsSet provides typed accessors to make them easy.
package jwt

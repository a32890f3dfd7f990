// Package base64 provides base64url encoding and decoding functions
// as defined in RFC 4648 Section 5, specifically for use in JSON Web
// Signatures (JWS) and JSON Web Tokens (JWT) as specified in RFC 7515.
//
// The key difference from standard base64 encoding is:
//   - Uses URL-safe characters (- and _ instead of + and /)
//   - Omits padding characters (=) in the encoded output
//   - Rejects padding, whitespace and non-zero trailing bits when decoding
//
// It also implements the Base64urlUInt representation used by JSON Web
// Keys for unsigned big-endian integers such as RSA moduli.
//
// http://www.rfc-editor.org/rfc/rfc4648#section-5
// https://datatracker.ietf.org/doc/html/rfc7518#section-2
package base64

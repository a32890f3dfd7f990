// Package jose implements the signing half of JavaScript Object Signing and
// Encryption (JOSE): JSON Web Signatures carrying HMAC and RSA signatures,
// the JSON Web Keys that hold their key material, and JSON Web Tokens built
// on top of them. Encryption (JWE) is not implemented.
//
// Related RFCs:
//   - RFC7515 https://datatracker.ietf.org/doc/html/rfc7515 JWS, JSON Web Signature
//   - RFC7517 https://datatracker.ietf.org/doc/html/rfc7517 JWK, JSON Web Key
//   - RFC7518 https://datatracker.ietf.org/doc/html/rfc7518 JWA, JSON Web Algorithms
//   - RFC7519 https://datatracker.ietf.org/doc/html/rfc7519 JWT, JSON Web Token
//   - RFC7638 https://datatracker.ietf.org/doc/html/rfc7638 JWK Thumbprint
//
// Related Information:
//   - https://datatracker.ietf.org/wg/jose/charter/
package jose

package jwt_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	jwxjwa "github.com/lestrrat-go/jwx/v2/jwa"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/jws"
	"github.com/jose-engine/jose/pkg/jwt"
)

func TestInteropGolangJWT(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	hmacSecret := []byte("interop-secret-that-is-at-least-64-bytes-long-for-hs512-aaaaaaaa")

	tests := []struct {
		method    gjwt.SigningMethod
		signKey   jwk.Key
		verifyKey jwk.Key
		gSign     any
		gVerify   any
	}{
		{gjwt.SigningMethodHS256, jwk.SymmetricKey{Secret: hmacSecret}, jwk.SymmetricKey{Secret: hmacSecret}, hmacSecret, hmacSecret},
		{gjwt.SigningMethodHS384, jwk.SymmetricKey{Secret: hmacSecret}, jwk.SymmetricKey{Secret: hmacSecret}, hmacSecret, hmacSecret},
		{gjwt.SigningMethodRS256, jwk.NewRSAPrivateKey(priv), jwk.NewRSAPublicKey(&priv.PublicKey), priv, &priv.PublicKey},
		{gjwt.SigningMethodRS512, jwk.NewRSAPrivateKey(priv), jwk.NewRSAPublicKey(&priv.PublicKey), priv, &priv.PublicKey},
		{gjwt.SigningMethodPS256, jwk.NewRSAPrivateKey(priv), jwk.NewRSAPublicKey(&priv.PublicKey), priv, &priv.PublicKey},
		{gjwt.SigningMethodPS384, jwk.NewRSAPrivateKey(priv), jwk.NewRSAPublicKey(&priv.PublicKey), priv, &priv.PublicKey},
	}

	exp := time.Now().Add(time.Hour).Unix()

	for _, test := range tests {
		alg := jwa.Algorithm(test.method.Alg())

		t.Run(alg, func(t *testing.T) {
			// Signed here, verified by golang-jwt.
			signed, err := jwt.New(jws.WithAlgorithm(alg), jws.WithKey(test.signKey)).
				Sign(jwt.ClaimsSet{jwt.Subject: "interop", jwt.ExpirationTime: exp})
			require.NoError(t, err)

			parsed, err := gjwt.Parse(signed, func(*gjwt.Token) (any, error) {
				return test.gVerify, nil
			}, gjwt.WithValidMethods([]string{alg}))
			require.NoError(t, err)

			sub, err := parsed.Claims.GetSubject()
			require.NoError(t, err)
			require.Equal(t, "interop", sub)

			// Signed by golang-jwt, verified here.
			signed, err = gjwt.NewWithClaims(test.method, gjwt.MapClaims{
				"sub": "interop",
				"exp": exp,
			}).SignedString(test.gSign)
			require.NoError(t, err)

			claims, err := jwt.New(jws.WithAlgorithm(alg), jws.WithKey(test.verifyKey)).Validate(signed)
			require.NoError(t, err)
			require.Equal(t, "interop", claims[jwt.Subject])
			require.Equal(t, exp, claims[jwt.ExpirationTime])
		})
	}
}

func TestInteropGolangJWTRejectsForgery(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	// A token golang-jwt signs with HS256 using the RSA modulus is not
	// accepted by an RS256 verifier.
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"admin": true}).
		SignedString(priv.N.Bytes())
	require.NoError(t, err)

	_, err = jwt.New(jws.WithAlgorithm(jwa.RS256), jws.WithKey(jwk.NewRSAPublicKey(&priv.PublicKey))).Validate(forged)
	require.ErrorIs(t, err, jws.ErrSignatureInvalid)
}

func TestInteropJWX(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	for alg, jwxAlg := range map[jwa.Algorithm]jwxjwa.SignatureAlgorithm{
		jwa.RS256: jwxjwa.RS256,
		jwa.PS512: jwxjwa.PS512,
	} {
		t.Run(alg, func(t *testing.T) {
			signed, err := jwt.New(jws.WithAlgorithm(alg), jws.WithKey(jwk.NewRSAPrivateKey(priv))).
				Sign(jwt.ClaimsSet{
					jwt.Issuer:         "https://issuer.example.com",
					jwt.Subject:        "interop",
					jwt.ExpirationTime: time.Now().Add(time.Hour),
				})
			require.NoError(t, err)

			token, err := jwxjwt.Parse([]byte(signed), jwxjwt.WithKey(jwxAlg, &priv.PublicKey))
			require.NoError(t, err)
			require.Equal(t, "interop", token.Subject())
			require.Equal(t, "https://issuer.example.com", token.Issuer())
		})
	}
}

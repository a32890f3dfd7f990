package jwk

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jose-engine/jose/pkg/base64"
	"github.com/jose-engine/jose/pkg/metrics"
)

// https://datatracker.ietf.org/doc/html/rfc7517#appendix-A.1
const rfc7517Modulus = "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw"

func decodeValue(t *testing.T, input string) Value {
	t.Helper()

	value := Value{}
	err := json.NewDecoder(strings.NewReader(input)).Decode(&value)
	require.NoError(t, err)
	require.NotEmpty(t, value)

	return value
}

func TestValueRSA(t *testing.T) {
	value := decodeValue(t, `
		{
			"kty":"RSA",
			"n": "`+rfc7517Modulus+`",
			"e":"AQAB",
			"alg":"RS256",
			"kid":"2011-04-29"
		}`)
	require.Equal(t, "2011-04-29", value[KeyID])

	pkey, err := RSAPublicKeyFromValue(value)
	require.NoError(t, err)
	require.NotNil(t, pkey.N)
	require.Equal(t, int64(65537), pkey.E.Int64())
	require.Equal(t, 256, pkey.Size())

	key, err := ParseKey(value)
	require.NoError(t, err)
	require.IsType(t, &RSAPublicKey{}, key)
	require.Equal(t, KeyTypeRSA, key.KeyType())
}

func TestValueRSAPrivate(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	value, err := ValueFromKey(NewRSAPrivateKey(priv))
	require.NoError(t, err)
	require.NotContains(t, value, E)

	key, err := ParseKey(value)
	require.NoError(t, err)

	pk, ok := key.(*RSAPrivateKey)
	require.True(t, ok)
	require.Zero(t, pk.N.Cmp(priv.N))
	require.Zero(t, pk.D.Cmp(priv.D))

	// A value with n, e and d also yields the minimal private form.
	value[E] = "AQAB"
	key, err = ParseKey(value)
	require.NoError(t, err)
	require.IsType(t, &RSAPrivateKey{}, key)
}

func TestValueSymmetric(t *testing.T) {
	// https://datatracker.ietf.org/doc/html/rfc7515#appendix-A.1.1
	value := decodeValue(t, `{"kty":"oct","k":"AyM1SysPpbyDfgZld3umj1qzKObwVMkoqQ-EstJQLr_T-1qS0gZH75aKtMN3Yj0iPS4hcgUuTwjAzZr1Z9CAow"}`)

	key, err := ParseKey(value)
	require.NoError(t, err)

	sk, ok := key.(SymmetricKey)
	require.True(t, ok)
	require.Len(t, sk.Secret, 64)
	require.Equal(t, byte(3), sk.Secret[0])

	back, err := ValueFromKey(sk)
	require.NoError(t, err)
	require.Equal(t, value[K], back[K])
}

func TestKeyFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		param string
	}{
		{
			name:  "missing kty",
			value: Value{N: rfc7517Modulus, E: "AQAB"},
			param: KeyType,
		},
		{
			name:  "unsupported kty",
			value: Value{KeyType: "EC", "crv": "P-256"},
			param: KeyType,
		},
		{
			name:  "missing n",
			value: Value{KeyType: KeyTypeRSA, E: "AQAB"},
			param: N,
		},
		{
			name:  "missing e",
			value: Value{KeyType: KeyTypeRSA, N: rfc7517Modulus},
			param: E,
		},
		{
			name:  "n not a string",
			value: Value{KeyType: KeyTypeRSA, N: 12345, E: "AQAB"},
			param: N,
		},
		{
			name:  "n not base64url",
			value: Value{KeyType: KeyTypeRSA, N: "not base64!", E: "AQAB"},
			param: N,
		},
		{
			name:  "zero modulus",
			value: Value{KeyType: KeyTypeRSA, N: "AA", E: "AQAB"},
			param: N,
		},
		{
			name:  "zero private exponent",
			value: Value{KeyType: KeyTypeRSA, N: rfc7517Modulus, D: "AAAA"},
			param: D,
		},
		{
			name:  "missing k",
			value: Value{KeyType: KeyTypeOctet},
			param: K,
		},
		{
			name:  "padded k",
			value: Value{KeyType: KeyTypeOctet, K: "QQ=="},
			param: K,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKey(tt.value)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrKeyFormat)

			var kfe *KeyFormatError
			require.ErrorAs(t, err, &kfe)
			require.Equal(t, tt.param, kfe.Param)
		})
	}
}

func TestRSAPrivateKeyFromValueRequiresD(t *testing.T) {
	_, err := RSAPrivateKeyFromValue(Value{KeyType: KeyTypeRSA, N: rfc7517Modulus, E: "AQAB"})
	require.ErrorIs(t, err, ErrKeyFormat)

	_, err = RSAPublicKeyFromValue(Value{KeyType: KeyTypeOctet, K: "AQAB"})
	require.ErrorIs(t, err, ErrKeyFormat)
}

func TestValueFromKeyRoundTrip(t *testing.T) {
	n, err := base64.DecodeUint(rfc7517Modulus)
	require.NoError(t, err)

	pub := &RSAPublicKey{N: n, E: big.NewInt(65537)}

	value, err := ValueFromKey(pub)
	require.NoError(t, err)
	require.Equal(t, rfc7517Modulus, value[N])
	require.Equal(t, "AQAB", value[E])

	_, err = ValueFromKey(SymmetricKey{})
	require.ErrorIs(t, err, ErrKeyFormat)

	_, err = ValueFromKey(nil)
	require.Error(t, err)
}

const testSetDocument = `
{
	"keys":[
		{
			"kty":"oct",
			"k":"AyM1SysPpbyDfgZld3umj1qzKObwVMkoqQ-EstJQLr_T-1qS0gZH75aKtMN3Yj0iPS4hcgUuTwjAzZr1Z9CAow",
			"kid":"hmac",
			"alg":"HS256"
		},
		{
			"kty":"EC",
			"crv":"P-256",
			"x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
			"y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM",
			"use":"enc",
			"kid":"1"
		},
		{
			"kty":"RSA",
			"n":"` + rfc7517Modulus + `",
			"e":"AQAB",
			"alg":"RS256",
			"kid":"2011-04-29"
		},
		{
			"kty":"RSA",
			"n":"` + rfc7517Modulus + `",
			"e":"AQAB",
			"kid":"any-alg"
		}
	]
}`

func TestSet(t *testing.T) {
	set := Set{}
	err := json.NewDecoder(strings.NewReader(testSetDocument)).Decode(&set)
	require.NoError(t, err)
	require.Len(t, set.Keys, 4)
	require.NoError(t, set.Validate())

	ks, err := set.KeySet()
	require.NoError(t, err)
	require.Len(t, ks, 3, "EC key is skipped")

	require.Equal(t, "hmac", ks[0].KeyID)
	require.Equal(t, "HS256", ks[0].Algorithm)
	require.IsType(t, SymmetricKey{}, ks[0].Key)
	require.IsType(t, &RSAPublicKey{}, ks[1].Key)
}

func TestKeySetLookup(t *testing.T) {
	set := Set{}
	require.NoError(t, json.Unmarshal([]byte(testSetDocument), &set))

	ks, err := set.KeySet()
	require.NoError(t, err)

	entry, err := ks.Lookup("2011-04-29", "RS256")
	require.NoError(t, err)
	require.Equal(t, "2011-04-29", entry.KeyID)

	// A key published for RS256 is not a candidate for PS256.
	_, err = ks.Lookup("2011-04-29", "PS256")
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Keys without "alg" match any algorithm.
	_, err = ks.Lookup("any-alg", "PS512")
	require.NoError(t, err)

	_, err = ks.Lookup("missing", "RS256")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSetValidate(t *testing.T) {
	require.Error(t, (&Set{}).Validate())

	bad := Set{Keys: []Value{{KeyType: KeyTypeRSA, N: "AA", E: "AQAB"}}}
	require.ErrorIs(t, bad.Validate(), ErrKeyFormat)

	_, err := bad.KeySet()
	require.ErrorIs(t, err, ErrKeyFormat)
}

func TestFetchSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jwks":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(testSetDocument))
		case "/broken":
			w.Write([]byte(`{"keys":[{"kty":"RSA","n":"AA","e":"AQAB"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	set, err := FetchSet(ctx, srv.URL+"/jwks", srv.Client())
	require.NoError(t, err)
	require.Len(t, set.Keys, 4)

	_, err = FetchSet(ctx, srv.URL+"/missing", srv.Client())
	require.Error(t, err)

	_, err = FetchSet(ctx, srv.URL+"/broken", srv.Client())
	require.ErrorIs(t, err, ErrKeyFormat)
}

func TestURLSetCache(t *testing.T) {
	var (
		hits    atomic.Int32
		rotated atomic.Bool
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		kid := "old"
		if rotated.Load() {
			kid = "new"
		}
		w.Write([]byte(`{"keys":[{"kty":"oct","k":"c2VjcmV0","kid":"` + kid + `"}]}`))
	}))
	t.Cleanup(srv.Close)

	m := metrics.New("test_cache")
	cache := NewURLSetCache(srv.Client(), time.Hour, WithCacheMetrics(m))

	ctx := context.Background()

	entry, err := cache.GetKey(ctx, srv.URL, "old", "HS256")
	require.NoError(t, err)
	require.Equal(t, "old", entry.KeyID)
	require.Equal(t, int32(1), hits.Load())

	// Served from cache.
	_, err = cache.Get(ctx, srv.URL)
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	// A miss triggers exactly one refetch.
	rotated.Store(true)
	entry, err = cache.GetKey(ctx, srv.URL, "new", "HS256")
	require.NoError(t, err)
	require.Equal(t, "new", entry.KeyID)
	require.Equal(t, int32(2), hits.Load())

	_, err = cache.GetKey(ctx, srv.URL, "unknown", "HS256")
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.Equal(t, int32(3), hits.Load())

	require.NoError(t, cache.RefreshAll(ctx))
	require.Equal(t, int32(4), hits.Load())

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)

	var fetches float64
	for _, mf := range mfs {
		if mf.GetName() != "test_cache_jwks_fetch_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			fetches += metric.GetCounter().GetValue()
		}
	}
	require.Equal(t, 4.0, fetches)
}

func TestURLSetCacheExpiry(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"keys":[{"kty":"oct","k":"c2VjcmV0","kid":"a"}]}`))
	}))
	t.Cleanup(srv.Close)

	now := time.Now()
	cache := NewURLSetCache(srv.Client(), time.Minute)
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	_, err = cache.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestURLSetCacheStart(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"keys":[{"kty":"oct","k":"c2VjcmV0","kid":"a"}]}`))
	}))
	t.Cleanup(srv.Close)

	cache := NewURLSetCache(srv.Client(), time.Hour)

	_, err := cache.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cache.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return hits.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

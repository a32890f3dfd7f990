package rsassa

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jose-engine/jose/pkg/digest"
	"github.com/jose-engine/jose/pkg/jwk"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func rsaKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	})
	return testKey
}

func keyPair(t testing.TB) (*jwk.RSAPrivateKey, *jwk.RSAPublicKey) {
	t.Helper()

	priv := rsaKey(t)
	return jwk.NewRSAPrivateKey(priv), jwk.NewRSAPublicKey(&priv.PublicKey)
}

func TestDigestInfo(t *testing.T) {
	sum := sha256.Sum256([]byte("abc"))

	info, err := DigestInfo(digest.SHA256, sum[:])
	require.NoError(t, err)

	// https://datatracker.ietf.org/doc/html/rfc8017#section-9.2 (note 1)
	prefix, err := hex.DecodeString("3031300d060960864801650304020105000420")
	require.NoError(t, err)
	require.Equal(t, append(prefix, sum[:]...), info)

	tests := []struct {
		hash   digest.Hash
		prefix string
	}{
		{digest.SHA384, "3041300d060960864801650304020205000430"},
		{digest.SHA512, "3051300d060960864801650304020305000440"},
	}

	for _, test := range tests {
		t.Run(test.hash.String(), func(t *testing.T) {
			hashed := make([]byte, test.hash.Size())
			info, err := DigestInfo(test.hash, hashed)
			require.NoError(t, err)
			require.Equal(t, test.prefix, hex.EncodeToString(info[:len(info)-len(hashed)]))
		})
	}

	_, err = DigestInfo(digest.SHA256, []byte("short"))
	require.Error(t, err)

	_, err = DigestInfo(digest.Hash(1), nil)
	require.ErrorIs(t, err, digest.ErrUnknownHash)
}

func TestEncodePKCS1v15(t *testing.T) {
	sum := sha256.Sum256([]byte("abc"))

	em, err := EncodePKCS1v15(digest.SHA256, sum[:], 62)
	require.NoError(t, err)
	require.Len(t, em, 62)
	require.Equal(t, []byte{0x00, 0x01}, em[:2])
	require.Equal(t, bytes.Repeat([]byte{0xff}, 8), em[2:10])
	require.Equal(t, byte(0x00), em[10])

	_, err = EncodePKCS1v15(digest.SHA256, sum[:], 61)
	require.ErrorIs(t, err, ErrEncoding)
}

func TestPKCS1v15(t *testing.T) {
	priv, pub := keyPair(t)
	msg := []byte("The quick brown fox jumps over the lazy dog")

	for _, h := range []digest.Hash{digest.SHA256, digest.SHA384, digest.SHA512} {
		t.Run(h.String(), func(t *testing.T) {
			scheme := PKCS1v15{Hash: h}

			sig, err := Sign(nil, scheme, priv, msg)
			require.NoError(t, err)
			require.Len(t, sig, pub.Size())

			require.NoError(t, Verify(scheme, pub, msg, sig))

			// The encoding is deterministic and matches the standard library.
			hashed := h.Crypto().New()
			hashed.Write(msg)
			want, err := rsa.SignPKCS1v15(nil, rsaKey(t), h.Crypto(), hashed.Sum(nil))
			require.NoError(t, err)
			require.Equal(t, want, sig)

			require.NoError(t, rsa.VerifyPKCS1v15(&rsaKey(t).PublicKey, h.Crypto(), hashed.Sum(nil), sig))
		})
	}
}

func TestPKCS1v15Tamper(t *testing.T) {
	priv, pub := keyPair(t)
	msg := []byte("payload")
	scheme := PKCS1v15{Hash: digest.SHA256}

	sig, err := Sign(nil, scheme, priv, msg)
	require.NoError(t, err)

	for _, i := range []int{0, 1, len(sig) / 2, len(sig) - 1} {
		tampered := bytes.Clone(sig)
		tampered[i] ^= 0x01
		require.ErrorIs(t, Verify(scheme, pub, msg, tampered), ErrVerification)
	}

	require.ErrorIs(t, Verify(scheme, pub, []byte("other"), sig), ErrVerification)
	require.ErrorIs(t, Verify(PKCS1v15{Hash: digest.SHA384}, pub, msg, sig), ErrVerification)
	require.ErrorIs(t, Verify(PSS{Hash: digest.SHA256}, pub, msg, sig), ErrVerification)

	// Wrong length and out of range signatures.
	require.ErrorIs(t, Verify(scheme, pub, msg, sig[1:]), ErrVerification)
	require.ErrorIs(t, Verify(scheme, pub, msg, append([]byte{0}, sig...)), ErrVerification)
	require.ErrorIs(t, Verify(scheme, pub, msg, pub.N.Bytes()), ErrVerification)
}

func TestSmallModulus(t *testing.T) {
	// A 400 bit modulus gives k = 50, short of the 62 bytes a SHA-256
	// DigestInfo needs.
	n := new(big.Int).Lsh(big.NewInt(1), 399)
	n.Add(n, big.NewInt(1))

	key := &jwk.RSAPrivateKey{N: n, D: big.NewInt(3)}
	require.Equal(t, 50, key.Size())

	_, err := Sign(nil, PKCS1v15{Hash: digest.SHA256}, key, []byte("msg"))
	require.ErrorIs(t, err, ErrEncoding)

	_, err = Sign(nil, PSS{Hash: digest.SHA512}, key, []byte("msg"))
	require.ErrorIs(t, err, ErrEncoding)
}

func TestPSS(t *testing.T) {
	priv, pub := keyPair(t)
	msg := []byte("The quick brown fox jumps over the lazy dog")

	for _, h := range []digest.Hash{digest.SHA256, digest.SHA384, digest.SHA512} {
		t.Run(h.String(), func(t *testing.T) {
			scheme := PSS{Hash: h}

			sig1, err := Sign(rand.Reader, scheme, priv, msg)
			require.NoError(t, err)
			sig2, err := Sign(rand.Reader, scheme, priv, msg)
			require.NoError(t, err)

			require.Len(t, sig1, pub.Size())
			require.NotEqual(t, sig1, sig2, "salted signatures must differ")

			require.NoError(t, Verify(scheme, pub, msg, sig1))
			require.NoError(t, Verify(scheme, pub, msg, sig2))

			hasher := h.Crypto().New()
			hasher.Write(msg)
			hashed := hasher.Sum(nil)

			opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h.Crypto()}
			require.NoError(t, rsa.VerifyPSS(&rsaKey(t).PublicKey, h.Crypto(), hashed, sig1, opts))

			std, err := rsa.SignPSS(rand.Reader, rsaKey(t), h.Crypto(), hashed, opts)
			require.NoError(t, err)
			require.NoError(t, Verify(scheme, pub, msg, std))

			tampered := bytes.Clone(sig1)
			tampered[len(tampered)-1] ^= 0x80
			require.ErrorIs(t, Verify(scheme, pub, msg, tampered), ErrVerification)
		})
	}
}

func TestMGF1(t *testing.T) {
	mask, err := MGF1(digest.SHA256, []byte("seed"), 80)
	require.NoError(t, err)
	require.Len(t, mask, 80)

	// The first block is Hash(seed || 0x00000000).
	first := sha256.Sum256(append([]byte("seed"), 0, 0, 0, 0))
	require.Equal(t, first[:], mask[:32])

	second := sha256.Sum256(append([]byte("seed"), 0, 0, 0, 1))
	require.Equal(t, second[:], mask[32:64])

	short, err := MGF1(digest.SHA256, []byte("seed"), 10)
	require.NoError(t, err)
	require.Equal(t, mask[:10], short)
}

func TestInvalidKeys(t *testing.T) {
	scheme := PKCS1v15{Hash: digest.SHA256}

	_, err := Sign(nil, scheme, nil, []byte("msg"))
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = Sign(nil, scheme, &jwk.RSAPrivateKey{N: big.NewInt(0), D: big.NewInt(1)}, []byte("msg"))
	require.ErrorIs(t, err, ErrInvalidKey)

	require.ErrorIs(t, Verify(scheme, nil, []byte("msg"), nil), ErrInvalidKey)
	require.ErrorIs(t, Verify(scheme, &jwk.RSAPublicKey{N: big.NewInt(7)}, []byte("msg"), nil), ErrInvalidKey)
}

func BenchmarkSign(b *testing.B) {
	priv, _ := keyPair(b)
	msg := []byte("benchmark")

	for _, scheme := range []Scheme{PKCS1v15{Hash: digest.SHA256}, PSS{Hash: digest.SHA256}} {
		b.Run(schemeName(scheme), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, err := Sign(rand.Reader, scheme, priv, msg)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func schemeName(s Scheme) string {
	switch s.(type) {
	case PKCS1v15:
		return "PKCS1v15"
	case PSS:
		return "PSS"
	}
	return "unknown"
}

package jwk_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	jwxjwk "github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"

	"github.com/jose-engine/jose/pkg/jwk"
)

func TestInteropJWXKeys(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	t.Run("jwx reads exported public key", func(t *testing.T) {
		value, err := jwk.ValueFromKey(jwk.NewRSAPublicKey(&priv.PublicKey))
		require.NoError(t, err)

		b, err := json.Marshal(value)
		require.NoError(t, err)

		key, err := jwxjwk.ParseKey(b)
		require.NoError(t, err)

		var raw rsa.PublicKey
		require.NoError(t, key.Raw(&raw))
		require.Zero(t, raw.N.Cmp(priv.N))
		require.Equal(t, priv.E, raw.E)
	})

	t.Run("jwx keys parse here", func(t *testing.T) {
		key, err := jwxjwk.FromRaw(&priv.PublicKey)
		require.NoError(t, err)
		require.NoError(t, key.Set(jwxjwk.KeyIDKey, "jwx-1"))

		set := jwxjwk.NewSet()
		require.NoError(t, set.AddKey(key))

		b, err := json.Marshal(set)
		require.NoError(t, err)

		var parsed jwk.Set
		require.NoError(t, json.Unmarshal(b, &parsed))

		ks, err := parsed.KeySet()
		require.NoError(t, err)

		entry, err := ks.Lookup("jwx-1", "RS256")
		require.NoError(t, err)

		pub, ok := entry.Key.(*jwk.RSAPublicKey)
		require.True(t, ok)
		require.Zero(t, pub.N.Cmp(priv.N))
		require.Equal(t, int64(priv.E), pub.E.Int64())
	})

	t.Run("symmetric", func(t *testing.T) {
		key, err := jwxjwk.FromRaw([]byte("shared-secret"))
		require.NoError(t, err)

		b, err := json.Marshal(key)
		require.NoError(t, err)

		var value jwk.Value
		require.NoError(t, json.Unmarshal(b, &value))

		parsed, err := jwk.ParseKey(value)
		require.NoError(t, err)
		require.Equal(t, jwk.SymmetricKey{Secret: []byte("shared-secret")}, parsed)
	})
}

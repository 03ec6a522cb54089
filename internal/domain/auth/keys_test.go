package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T, dir, kid string) *rsa.PrivateKey {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}
	path := filepath.Join(dir, "private-"+kid+".pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	return priv
}

func TestLoadKeys(t *testing.T) {
	t.Run("loads every private key in the directory", func(t *testing.T) {
		dir := t.TempDir()
		writeTestKey(t, dir, "a")
		writeTestKey(t, dir, "b")

		ks, err := LoadKeys(dir, "a")
		require.NoError(t, err)
		assert.Equal(t, 2, ks.KeySet.Len())

		key, err := ks.GetActiveKey()
		require.NoError(t, err)
		kid, _ := key.KeyID()
		assert.Equal(t, "key-a", kid)
	})

	t.Run("missing directory reports an error", func(t *testing.T) {
		_, err := LoadKeys("/nonexistent", "a")
		assert.Error(t, err)
	})

	t.Run("unknown active kid fails on signing", func(t *testing.T) {
		dir := t.TempDir()
		writeTestKey(t, dir, "a")

		ks, err := LoadKeys(dir, "missing")
		require.NoError(t, err)

		_, err = ks.GetActiveKey()
		assert.ErrorIs(t, err, ErrUnknownKey)
	})
}

func TestKeyStore_SignAndVerify(t *testing.T) {
	dir := t.TempDir()
	writeTestKey(t, dir, "a")

	ks, err := LoadKeys(dir, "a")
	require.NoError(t, err)

	token, err := jwt.NewBuilder().
		Subject("1").
		Expiration(time.Now().Add(time.Minute)).
		Build()
	require.NoError(t, err)

	raw, err := ks.Sign(token)
	require.NoError(t, err)

	parsed, err := ks.Verify(raw)
	require.NoError(t, err)
	sub, ok := parsed.Subject()
	require.True(t, ok)
	assert.Equal(t, "1", sub)
}

func TestKeyStore_JWKS(t *testing.T) {
	dir := t.TempDir()
	writeTestKey(t, dir, "a")

	ks, err := LoadKeys(dir, "a")
	require.NoError(t, err)

	public := ks.JWKS()
	require.Equal(t, 1, public.Len())

	key, ok := public.Key(0)
	require.True(t, ok)

	// Only the public half may leave the process.
	var raw any
	require.NoError(t, jwk.Export(key, &raw))
	_, isPublic := raw.(*rsa.PublicKey)
	assert.True(t, isPublic, "exported key must be the public half")
}

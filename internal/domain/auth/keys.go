package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// KeyStore holds the RSA signing keys and the id of the active one
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
}

// NewKeyStore builds a KeyStore around a single private key. Used by tests
// and deployments that inject a key instead of a key directory.
func NewKeyStore(priv *rsa.PrivateKey, kid string) (*KeyStore, error) {
	jwkKey, err := jwk.Import(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to JWK: %w", err)
	}

	keyID := kid
	if !strings.HasPrefix(keyID, "key-") {
		keyID = "key-" + keyID
	}

	if err := jwkKey.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	keySet := jwk.NewSet()
	if err := keySet.AddKey(jwkKey); err != nil {
		return nil, fmt.Errorf("failed to add key to set: %w", err)
	}

	return &KeyStore{ActiveKid: kid, KeySet: keySet}, nil
}

// LoadKeys reads every private-<kid>.pem / public-<kid>.pem pair from the
// directory and returns a KeyStore with activeKid selected for signing.
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keys directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keys path %s is not a directory", path)
	}

	keySet := jwk.NewSet()

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		if !strings.HasPrefix(fileName, "private") || filepath.Ext(fileName) != ".pem" {
			continue
		}

		kid := strings.TrimPrefix(fileName, "private-")
		kid = strings.TrimSuffix(kid, ".pem")
		if kid == "" {
			continue
		}

		priv, err := readPrivateKey(filepath.Join(path, fileName))
		if err != nil {
			return nil, err
		}

		jwkKey, err := jwk.Import(priv)
		if err != nil {
			return nil, fmt.Errorf("failed to convert private key to JWK: %w", err)
		}

		if err := jwkKey.Set(jwk.KeyIDKey, "key-"+kid); err != nil {
			return nil, fmt.Errorf("failed to set key ID: %w", err)
		}
		if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
			return nil, fmt.Errorf("failed to set algorithm: %w", err)
		}

		if err := keySet.AddKey(jwkKey); err != nil {
			return nil, fmt.Errorf("failed to add key to set: %w", err)
		}
	}

	return &KeyStore{ActiveKid: activeKid, KeySet: keySet}, nil
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM in %s", path)
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return priv, nil
	}

	pkcs8Key, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err2 != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key %s is not RSA", path)
	}
	return rsaKey, nil
}

// GetActiveKey returns the signing key selected by ActiveKid
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	activeKid := ks.ActiveKid
	if !strings.HasPrefix(activeKid, "key-") {
		activeKid = "key-" + activeKid
	}

	key, ok := ks.KeySet.LookupKeyID(activeKid)
	if !ok {
		return nil, ErrUnknownKey
	}

	return key, nil
}

// Sign signs the token with the active key using RS256
func (ks *KeyStore) Sign(token jwt.Token) (string, error) {
	key, err := ks.GetActiveKey()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), key))
	if err != nil {
		return "", err
	}

	return string(signed), nil
}

// Verify parses and verifies a raw token against the key set
func (ks *KeyStore) Verify(raw string) (jwt.Token, error) {
	return jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(ks.KeySet, jws.WithInferAlgorithmFromKey(true)),
	)
}

// JWKS returns the public half of the key set
func (ks *KeyStore) JWKS() jwk.Set {
	publicSet, err := jwk.PublicSetOf(ks.KeySet)
	if err != nil {
		return jwk.NewSet()
	}
	return publicSet
}

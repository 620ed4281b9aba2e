package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethod(t *testing.T) {
	for _, alg := range []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"} {
		m, err := Method(alg)
		require.NoError(t, err, alg)
		assert.Equal(t, alg, m.Alg())
	}

	for _, alg := range []string{"HS256", "none", "", "XX999"} {
		_, err := Method(alg)
		assert.True(t, errors.Is(err, ErrUnsupportedAlgorithm), alg)
	}
}

func TestGenerateAndParse(t *testing.T) {
	tests := []struct {
		alg      string
		wantPriv any
		wantPub  any
	}{
		{"RS256", &rsa.PrivateKey{}, &rsa.PublicKey{}},
		{"PS256", &rsa.PrivateKey{}, &rsa.PublicKey{}},
		{"ES256", &ecdsa.PrivateKey{}, &ecdsa.PublicKey{}},
		{"ES384", &ecdsa.PrivateKey{}, &ecdsa.PublicKey{}},
		{"ES512", &ecdsa.PrivateKey{}, &ecdsa.PublicKey{}},
		{"EdDSA", ed25519.PrivateKey{}, ed25519.PublicKey{}},
	}
	for _, tt := range tests {
		t.Run(tt.alg, func(t *testing.T) {
			priv, pub, err := Generate(tt.alg)
			require.NoError(t, err)
			assert.Contains(t, string(priv), "BEGIN PRIVATE KEY")
			assert.Contains(t, string(pub), "BEGIN PUBLIC KEY")

			kp, err := ParseKeyPair(tt.alg, priv, pub)
			require.NoError(t, err)
			assert.Equal(t, tt.alg, kp.Method.Alg())
			assert.IsType(t, tt.wantPriv, kp.Private)
			assert.IsType(t, tt.wantPub, kp.Public)

			// sign with private, verify with public
			sig, err := kp.Method.Sign("payload", kp.Private)
			require.NoError(t, err)
			require.NoError(t, kp.Method.Verify("payload", sig, kp.Public))
		})
	}
}

func TestGenerate_ECCurves(t *testing.T) {
	_, pub, err := Generate("ES384")
	require.NoError(t, err)
	k, err := jwt.ParseECPublicKeyFromPEM(pub)
	require.NoError(t, err)
	assert.Equal(t, "P-384", k.Curve.Params().Name)
}

func TestParseKeyPair_Errors(t *testing.T) {
	rsaPriv, rsaPub, err := Generate("RS256")
	require.NoError(t, err)
	edPriv, _, err := Generate("EdDSA")
	require.NoError(t, err)

	_, err = ParseKeyPair("HS256", rsaPriv, rsaPub)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = ParseKeyPair("RS256", []byte("garbage"), rsaPub)
	assert.ErrorContains(t, err, "parse private key")

	_, err = ParseKeyPair("RS256", rsaPriv, []byte("garbage"))
	assert.ErrorContains(t, err, "parse public key")

	// ed25519 key under an RSA algorithm
	_, err = ParseKeyPair("RS256", edPriv, rsaPub)
	assert.Error(t, err)

	_, err = ParseKeyPair("ES256", rsaPriv, rsaPub)
	assert.Error(t, err)
}

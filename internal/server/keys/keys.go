// Package keys loads and generates the asymmetric key material used to sign
// and verify tokens.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const rsaBits = 2048

var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// KeyPair is a parsed signing key, its public half and the signing method
// they belong to.
type KeyPair struct {
	Method  jwt.SigningMethod
	Private crypto.PrivateKey
	Public  crypto.PublicKey
}

// Method resolves an algorithm name (RS256, PS384, ES512, EdDSA, ...) to its
// asymmetric jwt signing method. HMAC and "none" are rejected.
func Method(alg string) (jwt.SigningMethod, error) {
	m := jwt.GetSigningMethod(alg)
	switch m.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// ParseKeyPair parses PEM encoded keys for alg.
func ParseKeyPair(alg string, privatePEM, publicPEM []byte) (*KeyPair, error) {
	m, err := Method(alg)
	if err != nil {
		return nil, err
	}

	kp := &KeyPair{Method: m}
	switch m.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		if kp.Private, err = jwt.ParseRSAPrivateKeyFromPEM(privatePEM); err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		if kp.Public, err = jwt.ParseRSAPublicKeyFromPEM(publicPEM); err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
	case *jwt.SigningMethodECDSA:
		if kp.Private, err = jwt.ParseECPrivateKeyFromPEM(privatePEM); err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		if kp.Public, err = jwt.ParseECPublicKeyFromPEM(publicPEM); err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
	case *jwt.SigningMethodEd25519:
		if kp.Private, err = jwt.ParseEdPrivateKeyFromPEM(privatePEM); err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		if kp.Public, err = jwt.ParseEdPublicKeyFromPEM(publicPEM); err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
	}
	return kp, nil
}

// Generate creates a fresh key pair for alg and returns it PEM encoded
// (PKCS#8 private key, PKIX public key).
func Generate(alg string) (privatePEM, publicPEM []byte, err error) {
	m, err := Method(alg)
	if err != nil {
		return nil, nil, err
	}

	var (
		priv crypto.PrivateKey
		pub  crypto.PublicKey
	)
	switch m.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		k, err := rsa.GenerateKey(rand.Reader, rsaBits)
		if err != nil {
			return nil, nil, err
		}
		priv, pub = k, &k.PublicKey
	case *jwt.SigningMethodECDSA:
		k, err := ecdsa.GenerateKey(curveFor(alg), rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		priv, pub = k, &k.PublicKey
	case *jwt.SigningMethodEd25519:
		p, k, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		priv, pub = k, p
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}

	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}

func curveFor(alg string) elliptic.Curve {
	switch strings.ToUpper(alg) {
	case "ES384":
		return elliptic.P384()
	case "ES512":
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}

package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// LoadPEM returns s as bytes when it looks like inline PEM, otherwise reads the file at path s.
// Inline PEM from env files often carries literal "\n"; those are expanded.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// decodePEM loads s and returns its first PEM block.
func decodePEM(s string) (*pem.Block, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey parses a PKCS#1, PKCS#8 or SEC 1 private key. s may be inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrInvalidKey, block.Type)
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok || KeyAlg(signer.Public()) == "" {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

// ParseRSAPrivateKey parses a PEM private key and requires it to be RSA (CloudFront signing keys are).
func ParseRSAPrivateKey(s string) (*rsa.PrivateKey, error) {
	signer, err := ParsePrivateKey(s)
	if err != nil {
		return nil, err
	}
	key, ok := signer.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// ParsePublicKey parses a PKCS#1 or PKIX public key. s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	var pub any
	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrInvalidKey, block.Type)
	}
	if err != nil {
		return nil, err
	}
	if KeyAlg(pub) == "" {
		return nil, ErrInvalidKey
	}
	return pub, nil
}

// LoadKeyPair parses a private key and its public half. An empty publicKey is derived from the
// private key; otherwise both must use the same algorithm.
func LoadKeyPair(privateKey, publicKey string) (KeyPair, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("private key: %w", err)
	}
	if strings.TrimSpace(publicKey) == "" {
		return KeyPair{Private: priv, Public: priv.Public()}, nil
	}
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("public key: %w", err)
	}
	if KeyAlg(pub) != KeyAlg(priv.Public()) {
		return KeyPair{}, fmt.Errorf("%w: private and public key algorithms differ", ErrInvalidKey)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}

package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or signed by the wrong key.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Subject is the identity carried by both tokens of a pair.
type Subject struct {
	UserID   string
	Email    string
	UserType string
}

// Claims is the JWT body for access and refresh tokens. TokenUse keeps one kind from being
// accepted as the other even when both are signed with the same key.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	UserID   string `json:"id"`
	UserType string `json:"user_type"`
	TokenUse string `json:"token_use"`
}

// KeyPair is a signing key and the public key used to verify it (RSA or ECDSA P-256).
type KeyPair struct {
	Private crypto.Signer
	Public  crypto.PublicKey
}

// TokenPair is the result of issuing an access and a refresh token together.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenProvider issues and validates access and refresh JWTs. Each kind has its own key pair
// and lifetime; the subject claims are identical.
type TokenProvider struct {
	access     KeyPair
	refresh    KeyPair
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider. issuer and audience are set on claims and validated on decode.
func NewTokenProvider(access, refresh KeyPair, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		access:     access,
		refresh:    refresh,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints an access token and a refresh token for sub.
func (p *TokenProvider) IssuePair(sub Subject) (*TokenPair, error) {
	access, accessExp, err := p.issue(sub, tokenUseAccess, p.access.Private, p.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := p.issue(sub, tokenUseRefresh, p.refresh.Private, p.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (p *TokenProvider) issue(sub Subject, use string, key crypto.Signer, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   sub.UserID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    sub.Email,
		UserID:   sub.UserID,
		UserType: sub.UserType,
		TokenUse: use,
	}
	token, err := sign(key, claims)
	return token, expiresAt, err
}

func sign(key crypto.Signer, claims jwt.Claims) (string, error) {
	if key == nil {
		return "", ErrInvalidKey
	}
	var method jwt.SigningMethod
	switch key.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidKey
	}
	return jwt.NewWithClaims(method, claims).SignedString(key)
}

// ValidateAccess decodes an access token (signature, exp, iss, aud, token use) and returns its subject.
func (p *TokenProvider) ValidateAccess(tokenString string) (Subject, error) {
	return p.validate(tokenString, tokenUseAccess, p.access.Public)
}

// ValidateRefresh decodes a refresh token and returns its subject.
func (p *TokenProvider) ValidateRefresh(tokenString string) (Subject, error) {
	return p.validate(tokenString, tokenUseRefresh, p.refresh.Public)
}

func (p *TokenProvider) validate(tokenString, use string, pub crypto.PublicKey) (Subject, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return pub, nil
		}
		return nil, ErrInvalidToken
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Subject{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenUse != use || claims.UserID == "" {
		return Subject{}, ErrInvalidToken
	}
	return Subject{UserID: claims.UserID, Email: claims.Email, UserType: claims.UserType}, nil
}

func generateJTI() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

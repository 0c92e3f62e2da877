package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("token carries no usable user id")
)

// NameIdentifierClaim is the long-form user id claim some issuers emit instead of sub.
const NameIdentifierClaim = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"

type Claims struct {
	NameID         string `json:"nameid,omitempty"`
	NameIdentifier string `json:"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier,omitempty"`
	Email          string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID resolves the numeric user id from sub, nameid or the long-form claim, in
// that order. Ids that are not positive integers are rejected.
func (c *Claims) UserID() (int64, error) {
	for _, raw := range []string{c.Subject, c.NameID, c.NameIdentifier} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSubject, raw)
		}
		return id, nil
	}
	return 0, ErrInvalidSubject
}

type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

type JWTValidator struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
	leeway    time.Duration
	now       func() time.Time
}

type ValidatorOption func(*JWTValidator)

func WithIssuer(issuer string) ValidatorOption {
	return func(v *JWTValidator) { v.issuer = strings.TrimSpace(issuer) }
}

func WithAudience(audience string) ValidatorOption {
	return func(v *JWTValidator) { v.audience = strings.TrimSpace(audience) }
}

// WithLeeway sets the clock skew tolerated on exp and nbf.
func WithLeeway(d time.Duration) ValidatorOption {
	return func(v *JWTValidator) {
		if d >= 0 {
			v.leeway = d
		}
	}
}

func WithClock(now func() time.Time) ValidatorOption {
	return func(v *JWTValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewJWTValidator accepts RS256 tokens when publicKeyPEM is set and HS256 tokens
// signed with secret otherwise.
func NewJWTValidator(secret, publicKeyPEM string, opts ...ValidatorOption) (*JWTValidator, error) {
	v := &JWTValidator{
		secret: []byte(strings.TrimSpace(secret)),
		leeway: 2 * time.Minute,
		now:    time.Now,
	}
	if pem := strings.TrimSpace(publicKeyPEM); pem != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
	}
	if v.publicKey == nil && len(v.secret) == 0 {
		return nil, errors.New("jwt key not configured (neither public key nor secret)")
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *JWTValidator) keyFunc(t *jwt.Token) (interface{}, error) {
	if v.publicKey != nil {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v, expected RS256", t.Header["alg"])
		}
		return v.publicKey, nil
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return v.secret, nil
}

// Validate checks signature, lifetime, issuer and audience, and that the token names
// a usable user id.
func (v *JWTValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

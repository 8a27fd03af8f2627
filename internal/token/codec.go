// Package token signs and verifies the access/refresh token pair.
//
// Tokens are compact HS256 JWTs carrying the user's identity claims, an
// expiry window, and a type discriminator. Access and refresh tokens are
// signed with independent secrets so that a leaked access secret cannot be
// used to mint refresh tokens. Verification here is purely cryptographic;
// liveness is the session store's concern.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	// DefaultAccessTTL is the access token validity window.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the refresh token validity window.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrSigningKeyMissing means a signing secret was not configured.
	// Fatal at startup; never expected at request time.
	ErrSigningKeyMissing = errors.New("signing key missing")
	// ErrTokenExpired means the token's embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid means the signature, shape, or type discriminator
	// did not check out.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the identity assertion embedded in both token types.
// Immutable once minted.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type signedClaims struct {
	Claims
	TokenType Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Config holds the codec's signing secrets and validity windows.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec mints and verifies token pairs with two independent HS256 keys.
type Codec struct {
	config Config
}

// NewCodec validates the configuration and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("%w: access secret", ErrSigningKeyMissing)
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("%w: refresh secret", ErrSigningKeyMissing)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Codec{config: cfg}, nil
}

// AccessTTL returns the configured access token validity window.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL returns the configured refresh token validity window.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// Issue mints a fresh access+refresh pair for the given claims.
func (c *Codec) Issue(claims Claims) (access string, refresh string, err error) {
	access, err = c.sign(claims, KindAccess, c.config.AccessSecret, c.config.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = c.sign(claims, KindRefresh, c.config.RefreshSecret, c.config.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// VerifyAccess checks an access token's signature and expiry and returns
// the embedded claims.
func (c *Codec) VerifyAccess(tokenStr string) (*Claims, error) {
	return c.verify(tokenStr, KindAccess, c.config.AccessSecret)
}

// VerifyRefresh checks a refresh token's signature and expiry and returns
// the embedded claims.
func (c *Codec) VerifyRefresh(tokenStr string) (*Claims, error) {
	return c.verify(tokenStr, KindRefresh, c.config.RefreshSecret)
}

func (c *Codec) sign(claims Claims, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	sc := signedClaims{
		Claims:    claims,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sc)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (c *Codec) verify(tokenStr string, kind Kind, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	tok, err := parser.ParseWithClaims(tokenStr, &signedClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sc, ok := tok.Claims.(*signedClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if sc.TokenType != kind {
		return nil, fmt.Errorf("%w: wrong token type", ErrTokenInvalid)
	}

	claims := sc.Claims
	return &claims, nil
}

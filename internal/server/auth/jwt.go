// Package auth holds the credential primitives of the catalog server:
// password hashing, access token issuance and verification, and the
// revocation denylist consulted by the authorization gate.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of an access token. Subject carries the username.
type Claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// Identity is what a verified access token asserts about its bearer.
type Identity struct {
	Username  string
	IsAdmin   bool
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies HS256 access tokens with one process secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer returns an issuer sealing tokens with secret.
func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret, now: time.Now}
}

// Issue returns a signed token for username that expires ttl from now.
func (i *TokenIssuer) Issue(username string, isAdmin bool, ttl time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString.
// It returns common.ErrTokenExpired for a well-signed token past its exp and
// common.ErrInvalidToken for anything else that does not verify.
func (i *TokenIssuer) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &Identity{
		Username:  claims.Subject,
		IsAdmin:   claims.IsAdmin,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Package auth issues and verifies access tokens, hashes passwords and
// decides the role a newly registered actor receives.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the actor identity inside an access token. The token id
// (jti) lets a single token be revoked on logout.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64       `json:"uid"`
	UserName string      `json:"username"`
	Role     models.Role `json:"role"`
}

func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.UserID, UserName: c.UserName, Role: c.Role}
}

// GenerateToken signs an HS256 access token for actor valid for
// validityDuration.
func GenerateToken(actor models.Actor, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(actor.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   actor.ID,
		UserName: actor.UserName,
		Role:     actor.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else unusable common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.ID == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

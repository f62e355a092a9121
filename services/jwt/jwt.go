package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// AccessTokenDuration is how long issued tokens stay valid.
const AccessTokenDuration = 24 * time.Hour

// GenerateToken issues a signed token carrying the user identity and the two
// capability claims the notification core consumes. Authorization itself is
// decided by the identity provider, not here.
func GenerateToken(userID uuid.UUID, canManage, canView bool, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":        userID.String(),
		"can_manage": canManage,
		"can_view":   canView,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(AccessTokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims parses and verifies a token, returning its claims.
func ValidateAndGetClaims(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

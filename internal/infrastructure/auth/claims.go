package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
)

// Claims is a short-lived signed assertion that a payer email has been
// verified by the caller's auth system. It is passed explicitly into
// each operation instead of living in process-wide state.
type Claims struct {
	Email string
}

const claimTTL = 10 * time.Minute

func IssueEmailClaim(email, secret string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(claimTTL).Unix(),
		"iat":   time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

func ParseEmailClaim(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, pkgerrors.ErrInvalidClaim
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, pkgerrors.ErrInvalidClaim
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return nil, pkgerrors.ErrInvalidClaim
	}

	return &Claims{Email: email}, nil
}

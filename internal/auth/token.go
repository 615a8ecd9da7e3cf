package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// Claims is the verified claim set expected on every bearer credential.
// The subject carries the numeric user id; customer-role users share their
// id with the customer record they own.
type Claims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed bearer tokens against the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks signature, expiry and claim shape, and produces the
// authenticated principal. Every failure maps to Unauthenticated; the caller
// learns nothing about which check failed beyond the details string.
func (v *Verifier) Verify(tokenString string) (*domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.ErrUnauthenticated.WithDetails(err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.ErrUnauthenticated
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, errors.ErrUnauthenticated.WithDetails("subject claim is not a valid user id")
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return nil, errors.ErrUnauthenticated.WithDetails("role claim missing or unknown")
	}
	if claims.Username == "" {
		return nil, errors.ErrUnauthenticated.WithDetails("username claim missing")
	}

	return &domain.Principal{
		UserID:   userID,
		Role:     role,
		Username: claims.Username,
	}, nil
}

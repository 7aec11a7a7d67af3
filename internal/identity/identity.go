// Package identity extracts the caller identity from a bearer token. The
// token is decoded, never validated: authorization is enforced server-side
// and the subject is only attached to uploads as object metadata.
package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject claim")
)

// Subject returns the subject claim of a JWT without verifying its signature.
func Subject(tokenString string) (string, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Token wraps a JWT for the sync gateway.
//
// Owner is the "sub" claim and keys every record in the delta store, so two
// tokens with the same subject share one replica. SignedString is the compact
// form presented by clients and is also the default signing credential of the
// HMAC envelope sealer.
type Token struct {
	*jwt.Token `json:"-"`

	jwt.RegisteredClaims

	SignedString string `json:"-"`
	Owner        string `json:"-"`
}

// GetOwner returns the subject claim.
func (t *Token) GetOwner() (string, error) {
	owner, err := t.GetSubject()
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", errors.New("empty subject")
	}

	return owner, nil
}

// String returns the compact JWS serialization of the token.
func (t *Token) String() string {
	return t.SignedString
}

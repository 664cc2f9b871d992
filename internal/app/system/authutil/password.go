// Package authutil hashes and checks admin account passwords.
package authutil

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength applies to every admin account, seeded or not.
	MinPasswordLength = 10
	MaxPasswordLength = 72 // bcrypt rejects longer input
	BcryptCost        = 12
)

var (
	ErrPasswordTooShort = errors.New("admin password must be at least 10 characters")
	ErrPasswordTooLong  = errors.New("admin password must be at most 72 bytes")
	ErrPasswordCommon   = errors.New("admin password is too common")
)

// blocked holds passwords that pass the length rule but show up in every
// credential-stuffing list aimed at shop back-offices.
var blocked = map[string]struct{}{
	"1234567890":    {},
	"password123":   {},
	"password1234":  {},
	"admin12345":    {},
	"admin123456":   {},
	"administrator": {},
	"qwerty1234":    {},
	"qwertyuiop":    {},
	"changeme123":   {},
	"letmein123":    {},
	"welcome123":    {},
	"storeadmin":    {},
	"shopadmin123":  {},
	"iloveyou123":   {},
}

// ValidatePassword reports why password cannot be used for an admin account,
// or nil when it can.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	if _, ok := blocked[strings.ToLower(password)]; ok {
		return ErrPasswordCommon
	}
	return nil
}

// HashPassword returns the bcrypt hash stored on the user document.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("no-such-admin-account"), BcryptCost)
	return h
})

// BurnCheck spends the same bcrypt work as CheckPassword and discards the
// result. Login calls it for unknown emails so timing does not reveal which
// addresses have accounts.
func BurnCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}

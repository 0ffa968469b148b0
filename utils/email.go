package utils

import (
	"errors"
	"strings"

	"github.com/badoux/checkmail"
)

var ErrInvalidEmailFormat = errors.New("email must be a valid email")

// ValidateEmailFormat checks address syntax only; no DNS or SMTP probing.
func ValidateEmailFormat(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmailFormat
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

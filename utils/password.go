package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// dummyHash is compared against when no account matches, so a miss costs
// the same bcrypt round as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck spends one bcrypt comparison and discards the result.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// PasswordPolicyViolations lists every rule password breaks.
func PasswordPolicyViolations(password string) []string {
	var violations []string
	if len(password) < MinPasswordLength {
		violations = append(violations, "Passwords must be at least 8 characters.")
	}

	var digit, lower, upper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	if !digit {
		violations = append(violations, "Passwords must have at least one digit ('0'-'9').")
	}
	if !lower {
		violations = append(violations, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if !upper {
		violations = append(violations, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	return violations
}

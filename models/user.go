package models

import (
	"crypto/subtle"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultRole = "Member"
	AdminRole   = "Admin"
)

// Authenticatable is what the sign-in workflow needs from an account.
type Authenticatable interface {
	LoginEmail() string
	Creds() *Credentials
	Active() bool
}

// Profileable is what display and profile editing need from an account.
type Profileable interface {
	Details() *Profile
	FullName() string
	Initials() string
}

// Profile holds the user-facing details of an account
type Profile struct {
	FirstName   string `gorm:"size:50;not null" json:"first_name" validate:"required,max=50"`
	LastName    string `gorm:"size:50;not null" json:"last_name" validate:"required,max=50"`
	PhoneNumber string `gorm:"size:30" json:"phone_number,omitempty" validate:"omitempty,max=30"`
	Position    string `gorm:"size:100" json:"position,omitempty" validate:"max=100"`
	Department  string `gorm:"size:100" json:"department,omitempty" validate:"max=100"`
	Company     string `gorm:"size:100" json:"company,omitempty" validate:"max=100"`
	Bio         string `gorm:"size:1000" json:"bio,omitempty" validate:"max=1000"`
	AvatarURL   string `gorm:"size:500" json:"avatar_url,omitempty" validate:"omitempty,url,max=500"`
	TimeZone    string `gorm:"size:50" json:"time_zone,omitempty" validate:"max=50"`
}

// Credentials is the sign-in state owned by the identity workflow
type Credentials struct {
	PasswordHash      string     `gorm:"not null" json:"-"`
	EmailConfirmed    bool       `gorm:"not null;default:false" json:"email_confirmed"`
	AccessFailedCount int        `gorm:"not null;default:0" json:"-"`
	LockoutEnd        *time.Time `json:"-"`
	TwoFactorEnabled  bool       `gorm:"not null;default:false" json:"two_factor_enabled"`
	TokenVersion      int        `gorm:"not null;default:0" json:"-"`

	ConfirmTokenHash string     `gorm:"size:64" json:"-"`
	ConfirmExpiresAt *time.Time `json:"-"`
	ResetTokenHash   string     `gorm:"size:64" json:"-"`
	ResetExpiresAt   *time.Time `json:"-"`
}

// User represents a user account in the system
type User struct {
	Base

	Email       string      `gorm:"size:256;not null;uniqueIndex" json:"email"`
	Profile     Profile     `gorm:"embedded" json:"profile"`
	Credentials Credentials `gorm:"embedded" json:"credentials"`
	Role        string      `gorm:"size:50;not null" json:"role"`

	// Account status
	IsActive     bool       `gorm:"not null;index" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

func (User) TableName() string { return "users" }
func (*User) EntityKind() EntityKind { return KindUser }
func (u *User) MarkDeleted(time.Time) { u.IsActive = false }
func (u *User) Hidden() bool { return !u.IsActive }

func (u *User) LoginEmail() string { return u.Email }
func (u *User) Creds() *Credentials { return &u.Credentials }
func (u *User) Active() bool { return u.IsActive }
func (u *User) Details() *Profile { return &u.Profile }

func (u *User) FullName() string {
	return strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}

func (u *User) Initials() string {
	var b strings.Builder
	for _, part := range []string{u.Profile.FirstName, u.Profile.LastName} {
		if r, _ := utf8.DecodeRuneInString(part); r != utf8.RuneError {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// AuditScope has no project or task.
func (u *User) AuditScope() (*uuid.UUID, *uuid.UUID) { return nil, nil }

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLockedOut reports whether the lockout window is still open.
func (c *Credentials) IsLockedOut(now time.Time) bool {
	return c.LockoutEnd != nil && c.LockoutEnd.After(now)
}

// RegisterFailure counts a bad password and opens the lockout window once limit is reached.
// It reports whether the account is now locked.
func (c *Credentials) RegisterFailure(now time.Time, limit int, window time.Duration) bool {
	c.AccessFailedCount++
	if c.AccessFailedCount < limit {
		return false
	}
	end := now.Add(window)
	c.LockoutEnd = &end
	c.AccessFailedCount = 0
	return true
}

func (c *Credentials) RegisterSuccess() {
	c.AccessFailedCount = 0
	c.LockoutEnd = nil
}

func (c *Credentials) SetConfirmToken(hash string, expires time.Time) {
	c.ConfirmTokenHash = hash
	c.ConfirmExpiresAt = &expires
}

func (c *Credentials) SetResetToken(hash string, expires time.Time) {
	c.ResetTokenHash = hash
	c.ResetExpiresAt = &expires
}

// ConfirmTokenMatches compares a hashed token against the stored one in constant time.
func (c *Credentials) ConfirmTokenMatches(hash string, now time.Time) bool {
	return tokenMatches(c.ConfirmTokenHash, c.ConfirmExpiresAt, hash, now)
}

func (c *Credentials) ResetTokenMatches(hash string, now time.Time) bool {
	return tokenMatches(c.ResetTokenHash, c.ResetExpiresAt, hash, now)
}

func (c *Credentials) ClearConfirmToken() {
	c.ConfirmTokenHash = ""
	c.ConfirmExpiresAt = nil
}

func (c *Credentials) ClearResetToken() {
	c.ResetTokenHash = ""
	c.ResetExpiresAt = nil
}

// SetPassword replaces the hash and invalidates issued sessions.
func (c *Credentials) SetPassword(hash string) {
	c.PasswordHash = hash
	c.TokenVersion++
}

func tokenMatches(stored string, expires *time.Time, given string, now time.Time) bool {
	if stored == "" || given == "" || expires == nil || !expires.After(now) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

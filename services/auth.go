package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"projectflow/models"
	"projectflow/store"
	"projectflow/utils"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgAccountInactive    = "Account is deactivated. Please contact administrator."
	msgAccountLocked      = "Account locked due to multiple failed attempts. Try again later."
	msgResetRequested     = "If an account with that email exists, a password reset link has been sent."
	msgConfirmationResent = "If an unconfirmed account with that email exists, a confirmation link has been sent."
)

// UserStore is the persistence the identity workflow needs.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string, opts store.ReadOptions) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID, opts store.ReadOptions) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	SaveCredentials(ctx context.Context, u *models.User) error
}

// EmailGateway delivers account emails. Calls are fire-and-forget; errors
// are logged by the caller and never fail the surrounding operation.
type EmailGateway interface {
	SendEmailConfirmation(address, displayName, token string) error
	SendPasswordReset(address, displayName, token string) error
	SendWelcome(address, displayName string) error
}

type AuthConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	ConfirmationTTL   time.Duration
	ResetTTL          time.Duration
	DefaultRole       string
	Retry             utils.RetryPolicy
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		MaxFailedAttempts: 5,
		LockoutDuration:   30 * time.Minute,
		ConfirmationTTL:   48 * time.Hour,
		ResetTTL:          24 * time.Hour,
		DefaultRole:       models.DefaultRole,
		Retry:             utils.DefaultRetryPolicy(),
	}
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,max=256"`
	Password string `json:"password" validate:"required"`
	models.Profile
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// AuthService runs sign-in, registration and credential recovery. Every
// store call is retried on connectivity failures only.
type AuthService struct {
	users UserStore
	mail  EmailGateway
	cfg   AuthConfig
	now   func() time.Time
}

type AuthOption func(*AuthService)

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(users UserStore, mail EmailGateway, cfg AuthConfig, opts ...AuthOption) *AuthService {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = models.DefaultRole
	}
	s := &AuthService{users: users, mail: mail, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) *Result {
	if req.Email == "" || req.Password == "" {
		var errs []string
		if req.Email == "" {
			errs = append(errs, "email is required")
		}
		if req.Password == "" {
			errs = append(errs, "password is required")
		}
		return Fail(CodeInvalidInput, "Email and password are required", errs...)
	}

	user, err := s.findByEmail(ctx, req.Email, store.ReadOptions{IncludeDeleted: true})
	if errors.Is(err, store.ErrNotFound) {
		utils.BurnPasswordCheck(req.Password)
		return Fail(CodeInvalidCredentials, msgInvalidCredentials)
	}
	if err != nil {
		return FromError(err)
	}

	if !user.Active() {
		return Fail(CodeAccountInactive, msgAccountInactive)
	}

	now := s.now()
	creds := user.Creds()
	if creds.IsLockedOut(now) {
		return Fail(CodeAccountLocked, msgAccountLocked)
	}

	if !utils.CheckPassword(creds.PasswordHash, req.Password) {
		if creds.RegisterFailure(now, s.cfg.MaxFailedAttempts, s.cfg.LockoutDuration) {
			utils.LogEvent("account_locked", map[string]interface{}{"user_id": user.ID.String()})
		}
		s.saveBestEffort(ctx, user, "auth_failed_attempt")
		return Fail(CodeInvalidCredentials, msgInvalidCredentials)
	}

	creds.RegisterSuccess()
	if creds.TwoFactorEnabled {
		s.saveBestEffort(ctx, user, "auth_two_factor")
		r := Fail(CodeTwoFactorRequired, "Two-factor authentication required")
		r.Data = map[string]interface{}{"user_id": user.ID}
		return r
	}

	user.LastLoginAt = &now
	user.LastActivity = &now
	s.saveBestEffort(ctx, user, "auth_last_login")

	logrus.WithField("user_id", user.ID).Info("User logged in")
	return OK("Login successful", user)
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) *Result {
	errs := utils.ValidateStruct(req)
	if req.Email != "" {
		if err := utils.ValidateEmailFormat(req.Email); err != nil {
			errs = append(errs, err.Error())
		}
	}
	errs = append(errs, utils.PasswordPolicyViolations(req.Password)...)
	if len(errs) > 0 {
		return Fail(CodeInvalidInput, "Validation failed", errs...)
	}

	_, err := s.findByEmail(ctx, req.Email, store.ReadOptions{IncludeDeleted: true})
	switch {
	case err == nil:
		return Fail(CodeEmailTaken, "Email already registered")
	case !errors.Is(err, store.ErrNotFound):
		return FromError(err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.LogError("password_hash", err, nil)
		return Fail(CodeInternal, msgInternal)
	}
	token, err := utils.GenerateSecureToken()
	if err != nil {
		utils.LogError("token_generation", err, nil)
		return Fail(CodeInternal, msgInternal)
	}

	user := &models.User{
		Email:    req.Email,
		Profile:  req.Profile,
		Role:     s.cfg.DefaultRole,
		IsActive: true,
	}
	user.Credentials.PasswordHash = hash
	user.Credentials.SetConfirmToken(utils.HashToken(token), s.now().Add(s.cfg.ConfirmationTTL))

	err = utils.Retry(ctx, s.cfg.Retry, store.ClassifyFailure, func(ctx context.Context) error {
		return s.users.CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrConflict) {
		return Fail(CodeEmailTaken, "Email already registered")
	}
	if err != nil {
		return FromError(err)
	}

	if err := s.mail.SendEmailConfirmation(user.Email, user.DisplayName(), token); err != nil {
		utils.LogError("email_confirmation_delivery", err, map[string]interface{}{"user_id": user.ID.String()})
	}

	utils.LogEvent("user_registered", map[string]interface{}{"user_id": user.ID.String()})
	return OK("Registration successful. Please check your email to confirm your account.", user)
}

func (s *AuthService) ConfirmEmail(ctx context.Context, email, token string) *Result {
	if email == "" || token == "" {
		return Fail(CodeInvalidInput, "Email and token are required")
	}
	user, err := s.findByEmail(ctx, email, store.ReadOptions{})
	if errors.Is(err, store.ErrNotFound) {
		return Fail(CodeInvalidToken, "Invalid confirmation token")
	}
	if err != nil {
		return FromError(err)
	}

	creds := user.Creds()
	if creds.EmailConfirmed {
		return OK("Email already confirmed", nil)
	}
	if !creds.ConfirmTokenMatches(utils.HashToken(token), s.now()) {
		return Fail(CodeInvalidToken, "Invalid confirmation token")
	}

	creds.EmailConfirmed = true
	creds.ClearConfirmToken()
	if err := s.saveCredentials(ctx, user); err != nil {
		return FromError(err)
	}

	if err := s.mail.SendWelcome(user.Email, user.DisplayName()); err != nil {
		utils.LogError("welcome_delivery", err, map[string]interface{}{"user_id": user.ID.String()})
	}
	return OK("Email confirmed successfully", nil)
}

func (s *AuthService) ResendEmailConfirmation(ctx context.Context, email string) *Result {
	if email == "" {
		return Fail(CodeInvalidInput, "Email is required")
	}
	user, err := s.findByEmail(ctx, email, store.ReadOptions{})
	if errors.Is(err, store.ErrNotFound) {
		return OK(msgConfirmationResent, nil)
	}
	if err != nil {
		return FromError(err)
	}
	if user.Creds().EmailConfirmed {
		return OK(msgConfirmationResent, nil)
	}

	token, err := utils.GenerateSecureToken()
	if err != nil {
		utils.LogError("token_generation", err, nil)
		return Fail(CodeInternal, msgInternal)
	}
	user.Creds().SetConfirmToken(utils.HashToken(token), s.now().Add(s.cfg.ConfirmationTTL))
	if err := s.saveCredentials(ctx, user); err != nil {
		return FromError(err)
	}
	if err := s.mail.SendEmailConfirmation(user.Email, user.DisplayName(), token); err != nil {
		utils.LogError("email_confirmation_delivery", err, map[string]interface{}{"user_id": user.ID.String()})
	}
	return OK(msgConfirmationResent, nil)
}

// RequestPasswordReset answers the same way whether or not the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) *Result {
	if email == "" {
		return Fail(CodeInvalidInput, "Email is required")
	}
	user, err := s.findByEmail(ctx, email, store.ReadOptions{})
	if errors.Is(err, store.ErrNotFound) {
		return OK(msgResetRequested, nil)
	}
	if err != nil {
		return FromError(err)
	}

	// Known and unknown addresses get the same answer, failures included.
	token, err := utils.GenerateSecureToken()
	if err != nil {
		utils.LogError("token_generation", err, nil)
		return OK(msgResetRequested, nil)
	}
	user.Creds().SetResetToken(utils.HashToken(token), s.now().Add(s.cfg.ResetTTL))
	if err := s.saveCredentials(ctx, user); err != nil {
		utils.LogError("password_reset_save", err, map[string]interface{}{"user_id": user.ID.String()})
		return OK(msgResetRequested, nil)
	}
	if err := s.mail.SendPasswordReset(user.Email, user.DisplayName(), token); err != nil {
		utils.LogError("password_reset_delivery", err, map[string]interface{}{"user_id": user.ID.String()})
	}
	return OK(msgResetRequested, nil)
}

func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) *Result {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return Fail(CodeInvalidInput, "Validation failed", errs...)
	}
	user, err := s.findByEmail(ctx, req.Email, store.ReadOptions{})
	if errors.Is(err, store.ErrNotFound) {
		return Fail(CodeInvalidToken, "Invalid reset token")
	}
	if err != nil {
		return FromError(err)
	}

	creds := user.Creds()
	if !creds.ResetTokenMatches(utils.HashToken(req.Token), s.now()) {
		return Fail(CodeInvalidToken, "Invalid reset token")
	}
	if errs := utils.PasswordPolicyViolations(req.NewPassword); len(errs) > 0 {
		return Fail(CodeInvalidInput, "Password does not meet requirements", errs...)
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.LogError("password_hash", err, nil)
		return Fail(CodeInternal, msgInternal)
	}
	creds.SetPassword(hash)
	creds.ClearResetToken()
	creds.RegisterSuccess()
	if err := s.saveCredentials(ctx, user); err != nil {
		return FromError(err)
	}

	utils.LogEvent("password_reset", map[string]interface{}{"user_id": user.ID.String()})
	return OK("Password reset successful. You can now login with your new password.", nil)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) *Result {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return Fail(CodeInvalidInput, "Validation failed", errs...)
	}
	user, err := s.findByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Fail(CodeNotFound, "User not found")
	}
	if err != nil {
		return FromError(err)
	}

	creds := user.Creds()
	if !utils.CheckPassword(creds.PasswordHash, req.CurrentPassword) {
		return Fail(CodeInvalidCredentials, "Incorrect password.")
	}
	if errs := utils.PasswordPolicyViolations(req.NewPassword); len(errs) > 0 {
		return Fail(CodeInvalidInput, "Password does not meet requirements", errs...)
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.LogError("password_hash", err, nil)
		return Fail(CodeInternal, msgInternal)
	}
	creds.SetPassword(hash)
	if err := s.saveCredentials(ctx, user); err != nil {
		return FromError(err)
	}
	return OK("Password changed successfully", user)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, profile models.Profile) *Result {
	if errs := utils.ValidateStruct(profile); len(errs) > 0 {
		return Fail(CodeInvalidInput, "Validation failed", errs...)
	}
	user, err := s.findByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Fail(CodeNotFound, "User not found")
	}
	if err != nil {
		return FromError(err)
	}

	user.Profile = profile
	err = utils.Retry(ctx, s.cfg.Retry, store.ClassifyFailure, func(ctx context.Context) error {
		return s.users.UpdateUser(ctx, user)
	})
	if err != nil {
		return FromError(err)
	}
	return OK("Profile updated successfully", user)
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) *Result {
	user, err := s.findByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Fail(CodeNotFound, "User not found")
	}
	if err != nil {
		return FromError(err)
	}
	return OK("", user)
}

func (s *AuthService) findByEmail(ctx context.Context, email string, opts store.ReadOptions) (*models.User, error) {
	return utils.RetryValue(ctx, s.cfg.Retry, store.ClassifyFailure, func(ctx context.Context) (*models.User, error) {
		return s.users.FindUserByEmail(ctx, email, opts)
	})
}

func (s *AuthService) findByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return utils.RetryValue(ctx, s.cfg.Retry, store.ClassifyFailure, func(ctx context.Context) (*models.User, error) {
		return s.users.FindUserByID(ctx, id, store.ReadOptions{})
	})
}

func (s *AuthService) saveCredentials(ctx context.Context, user *models.User) error {
	return utils.Retry(ctx, s.cfg.Retry, store.ClassifyFailure, func(ctx context.Context) error {
		return s.users.SaveCredentials(ctx, user)
	})
}

// saveBestEffort persists sign-in bookkeeping; a failure is logged only.
func (s *AuthService) saveBestEffort(ctx context.Context, user *models.User, op string) {
	if err := s.saveCredentials(ctx, user); err != nil {
		utils.LogError(op, err, map[string]interface{}{"user_id": user.ID.String()})
	}
}

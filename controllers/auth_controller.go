package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"projectflow/middleware"
	"projectflow/models"
	"projectflow/services"
	"projectflow/store"
	"projectflow/utils"
)

type AuthController struct {
	Auth         *services.AuthService
	Users        middleware.UserLoader
	JWTSecret    string
	SecureCookie bool
	Now          func() time.Time
}

func NewAuthController(auth *services.AuthService, users middleware.UserLoader, secret string, secureCookie bool) *AuthController {
	return &AuthController{
		Auth:         auth,
		Users:        users,
		JWTSecret:    secret,
		SecureCookie: secureCookie,
		Now:          time.Now,
	}
}

type emailInput struct {
	Email string `json:"email"`
}

type confirmInput struct {
	Email string `json:"email" query:"email"`
	Token string `json:"token" query:"token"`
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account and sends the confirmation email
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	r := ac.Auth.Register(c.UserContext(), req)
	if !r.Success {
		return respond(c, r)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// Login authenticates and issues a session
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	r := ac.Auth.Authenticate(c.UserContext(), req)
	if !r.Success {
		return respond(c, r)
	}
	return ac.issueSession(c, r.Data.(*models.User), req.RememberMe, r.Message)
}

// RefreshToken trades a valid refresh token for a new session
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var input refreshInput
	_ = c.BodyParser(&input)
	token := input.RefreshToken
	if token == "" {
		token = c.Cookies("refresh_token")
	}
	if token == "" {
		return respond(c, services.Fail(services.CodeInvalidToken, "Refresh token required"))
	}

	claims, err := utils.ParseSessionToken(ac.JWTSecret, token, utils.TokenTypeRefresh)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(services.Fail(services.CodeInvalidToken, "Invalid or expired refresh token"))
	}
	user, err := ac.Users.FindUserByID(c.UserContext(), claims.UserID, store.ReadOptions{IncludeDeleted: true})
	if err != nil {
		return storeFailure(c, err)
	}
	if !user.Active() {
		return respond(c, services.Fail(services.CodeAccountInactive, "Account is not active"))
	}
	if claims.TokenVersion != user.Credentials.TokenVersion {
		return c.Status(fiber.StatusUnauthorized).JSON(services.Fail(services.CodeInvalidToken, "Invalid token version"))
	}
	return ac.issueSession(c, user, claims.Remember, "Token refreshed")
}

// Logout drops the session cookies; tokens are stateless.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	c.ClearCookie("access_token", "refresh_token")
	logrus.WithField("user_id", middleware.CurrentUserID(c)).Info("User logged out")
	return ok(c, "Logged out successfully", nil)
}

func (ac *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var input emailInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return respond(c, ac.Auth.RequestPasswordReset(c.UserContext(), input.Email))
}

func (ac *AuthController) ResetPassword(c *fiber.Ctx) error {
	var req services.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return respond(c, ac.Auth.ResetPassword(c.UserContext(), req))
}

// ConfirmEmail accepts the email and token from the body or the link's query string.
func (ac *AuthController) ConfirmEmail(c *fiber.Ctx) error {
	var input confirmInput
	if c.Method() == fiber.MethodGet {
		if err := c.QueryParser(&input); err != nil {
			return badRequest(c, "Invalid query")
		}
	} else if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return respond(c, ac.Auth.ConfirmEmail(c.UserContext(), input.Email, input.Token))
}

func (ac *AuthController) ResendConfirmation(c *fiber.Ctx) error {
	var input emailInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return respond(c, ac.Auth.ResendEmailConfirmation(c.UserContext(), input.Email))
}

func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	return respond(c, ac.Auth.GetProfile(c.UserContext(), middleware.CurrentUserID(c)))
}

// ChangePassword re-issues the session since older tokens stop validating.
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	var req services.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	r := ac.Auth.ChangePassword(c.UserContext(), middleware.CurrentUserID(c), req)
	if !r.Success {
		return respond(c, r)
	}
	return ac.issueSession(c, r.Data.(*models.User), false, r.Message)
}

func (ac *AuthController) UpdateProfile(c *fiber.Ctx) error {
	var profile models.Profile
	if err := c.BodyParser(&profile); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return respond(c, ac.Auth.UpdateProfile(c.UserContext(), middleware.CurrentUserID(c), profile))
}

func (ac *AuthController) issueSession(c *fiber.Ctx, user *models.User, remember bool, message string) error {
	tokens, err := utils.GenerateSessionTokens(ac.JWTSecret, user, remember, ac.Now())
	if err != nil {
		utils.LogError("token_generation", err, map[string]interface{}{"user_id": user.ID.String()})
		return respond(c, services.Fail(services.CodeInternal, "Failed to create session"))
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    tokens.AccessToken,
		Expires:  tokens.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   ac.SecureCookie,
		SameSite: "Lax",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    tokens.RefreshToken,
		Expires:  tokens.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   ac.SecureCookie,
		SameSite: "Lax",
	})

	return ok(c, message, fiber.Map{
		"user":   user,
		"tokens": tokens,
	})
}

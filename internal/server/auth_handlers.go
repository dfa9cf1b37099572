package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"quill/internal/cache"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// rememberTTL is how long a "remember me" session lasts.
const rememberTTL = 7 * 24 * time.Hour

// RegisterForm handles GET /register
func (s *Server) RegisterForm(c *fiber.Ctx) error {
	return renderForm(c, fiber.StatusOK, "Register", "Join Today", validation.RegistrationForm{}, nil)
}

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	var form validation.RegistrationForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	user, err := s.accountService.Register(c.UserContext(), form)
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return renderForm(c, fiber.StatusUnprocessableEntity, "Register", "Join Today", form, fields)
		}
		return respondServiceError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "account registered", slog.Uint64("user_id", uint64(user.ID)))
	middleware.AddFlash(c, middleware.FlashSuccess, "Your account has been created! You are now able to log in")
	return redirect(c, "/login")
}

// LoginForm handles GET /login
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return renderForm(c, fiber.StatusOK, "Login", "Log In", validation.LoginForm{}, nil)
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	user, err := s.accountService.Authenticate(c.UserContext(), form)
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return renderForm(c, fiber.StatusUnprocessableEntity, "Login", "Log In", form, fields)
		}
		if models.CodeOf(err) == models.CodeUnauthorized {
			middleware.AddFlash(c, middleware.FlashDanger, service.MsgLoginFailed)
			return renderForm(c, fiber.StatusUnauthorized, "Login", "Log In", form, nil)
		}
		return respondServiceError(c, err)
	}

	ttl := time.Duration(s.config.SessionTTLHours) * time.Hour
	if form.Remember {
		ttl = rememberTTL
	}
	token, expiresAt, err := s.generateToken(user, ttl)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}
	s.setSessionCookie(c, token, expiresAt, form.Remember)

	if next := middleware.SafeNext(c.Query("next")); next != "" {
		return redirect(c, next)
	}
	return redirect(c, "/home")
}

// Logout handles GET /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.CurrentSession(c); claims != nil && claims.TokenID != "" {
		ttl := time.Until(claims.ExpiresAt)
		if ttl > 0 {
			if err := cache.Blacklist(c.UserContext(), claims.TokenID, ttl); err != nil && !errors.Is(err, cache.ErrUnavailable) {
				middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session token",
					slog.String("error", err.Error()))
			}
		}
	}

	middleware.ExpireCookie(c, middleware.SessionCookie)
	return redirect(c, "/home")
}

// ResetRequestForm handles GET /reset_password
func (s *Server) ResetRequestForm(c *fiber.Ctx) error {
	return renderForm(c, fiber.StatusOK, "Reset Password", "Reset Password", validation.RequestResetForm{}, nil)
}

// RequestReset handles POST /reset_password
func (s *Server) RequestReset(c *fiber.Ctx) error {
	var form validation.RequestResetForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	if err := s.accountService.RequestPasswordReset(c.UserContext(), form); err != nil {
		if fields, ok := formErrors(err); ok {
			return renderForm(c, fiber.StatusUnprocessableEntity, "Reset Password", "Reset Password", form, fields)
		}
		return respondServiceError(c, err)
	}

	middleware.AddFlash(c, middleware.FlashInfo, "An email has been sent with instructions to reset your password.")
	return redirect(c, "/login")
}

// ResetTokenForm handles GET /reset_password/:token
func (s *Server) ResetTokenForm(c *fiber.Ctx) error {
	if _, err := s.accountService.VerifyResetToken(c.UserContext(), c.Params("token")); err != nil {
		return s.invalidResetToken(c, err)
	}
	return renderForm(c, fiber.StatusOK, "Reset Password", "Reset Password", validation.ResetPasswordForm{}, nil)
}

// ResetPassword handles POST /reset_password/:token
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var form validation.ResetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	_, err := s.accountService.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		Token: c.Params("token"),
		Form:  form,
	})
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return renderForm(c, fiber.StatusUnprocessableEntity, "Reset Password", "Reset Password", form, fields)
		}
		if models.CodeOf(err) == models.CodeUnauthorized {
			return s.invalidResetToken(c, err)
		}
		return respondServiceError(c, err)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your password has been updated! You are now able to log in")
	return redirect(c, "/login")
}

func (s *Server) invalidResetToken(c *fiber.Ctx, err error) error {
	middleware.Logger.InfoContext(c.UserContext(), "rejected reset token", slog.String("error", err.Error()))
	middleware.AddFlash(c, middleware.FlashWarning, service.MsgInvalidToken)
	return redirect(c, "/reset_password")
}

// generateToken creates a session JWT for user valid for ttl.
func (s *Server) generateToken(user *models.User, ttl time.Duration) (string, time.Time, error) {
	if s.config.JWTSecret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10), // Subject (user ID as string)
		"username": user.Username,
		"iss":      middleware.TokenIssuer,
		"aud":      middleware.TokenAudience,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(), // revocation key
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// setSessionCookie stores token in the session cookie. Non-persistent
// cookies end with the browser session.
func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time, persistent bool) {
	cookie := &fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if persistent {
		cookie.Expires = expiresAt
	} else {
		cookie.SessionOnly = true
	}
	c.Cookie(cookie)
}

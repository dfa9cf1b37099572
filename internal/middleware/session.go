// Package middleware provides request-scoped session, logging, tracing and throttling middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie holding the signed session token.
const SessionCookie = "session"

// Token audience and issuer shared by session token issuance and parsing.
const (
	TokenIssuer   = "quill"
	TokenAudience = "quill-web"
)

var cfg *config.Config

// InitMiddleware initializes session middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// PrincipalLoader resolves the user named by a verified session token.
type PrincipalLoader func(ctx context.Context, id uint) (*models.User, error)

// SessionClaims is the subset of a verified session token the handlers need.
type SessionClaims struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

// ParseSessionToken verifies signature, issuer, audience and expiry of a session token.
func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	if cfg == nil {
		return nil, errors.New("session middleware not initialized")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}

	return &SessionClaims{
		UserID:    uint(userID),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(SessionCookie)
}

// LoadSession resolves the principal for the request. Requests without a
// valid, unrevoked token continue anonymously; a stale cookie is cleared.
func LoadSession(load PrincipalLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c)
		if raw == "" {
			return c.Next()
		}

		claims, err := ParseSessionToken(raw)
		if err != nil {
			ExpireCookie(c, SessionCookie)
			return c.Next()
		}

		ctx := c.UserContext()
		revoked, err := cache.IsBlacklisted(ctx, claims.TokenID)
		if err != nil {
			Logger.WarnContext(ctx, "token revocation check failed", slog.String("error", err.Error()))
		}
		if revoked {
			ExpireCookie(c, SessionCookie)
			return c.Next()
		}

		user, err := load(ctx, claims.UserID)
		if err != nil {
			if models.CodeOf(err) != models.CodeNotFound {
				return err
			}
			ExpireCookie(c, SessionCookie)
			return c.Next()
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.Locals("session", claims)
		return c.Next()
	}
}

// CurrentUser returns the authenticated principal, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// CurrentSession returns the verified claims of the request's session token.
func CurrentSession(c *fiber.Ctx) *SessionClaims {
	claims, _ := c.Locals("session").(*SessionClaims)
	return claims
}

// LoginRequired redirects anonymous requests to the login page, remembering
// where they were headed.
func LoginRequired(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Next()
	}
	AddFlash(c, FlashInfo, "Please log in to access this page.")
	return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusSeeOther)
}

// SafeNext returns target when it is a local absolute path and "" otherwise.
func SafeNext(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return target
}

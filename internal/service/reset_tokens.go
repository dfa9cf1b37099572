package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quill/internal/models"
	"quill/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultResetTokenTTL = 30 * time.Minute
	resetTokenAudience   = "quill-password-reset"
)

// ErrInvalidResetToken is wrapped by every reset token verification failure.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ResetTokenIssuer issues and verifies password reset tokens. A token is
// signed with the application secret plus the user's current password hash,
// so it stops verifying as soon as the password changes.
type ResetTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	users  repository.UserRepository
	now    func() time.Time
}

func NewResetTokenIssuer(secret string, ttl time.Duration, users repository.UserRepository) *ResetTokenIssuer {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}
}

func (r *ResetTokenIssuer) signingKey(passwordHash string) []byte {
	key := make([]byte, 0, len(r.secret)+len(passwordHash))
	key = append(key, r.secret...)
	return append(key, passwordHash...)
}

// Issue creates a token for user. user must carry its password hash.
func (r *ResetTokenIssuer) Issue(user *models.User) (string, error) {
	if user == nil || user.Password == "" {
		return "", errors.New("reset token requires the user's credentials")
	}

	now := r.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		Audience:  jwt.ClaimStrings{resetTokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.signingKey(user.Password))
}

// Verify returns the user a token was issued for.
func (r *ResetTokenIssuer) Verify(ctx context.Context, tokenString string) (*models.User, error) {
	var user *models.User
	claims := jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		id, err := strconv.ParseUint(claims.Subject, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid subject: %w", err)
		}
		u, err := r.users.GetCredentials(ctx, uint(id))
		if err != nil {
			return nil, err
		}
		user = u
		return r.signingKey(u.Password), nil
	},
		jwt.WithAudience(resetTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}
	return user, nil
}

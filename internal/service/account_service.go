package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Messages shown to the user by the account flows.
const (
	MsgLoginFailed   = "Login Unsuccessful. Please check email and password"
	MsgUsernameTaken = "That username is taken. Please choose a different one."
	MsgEmailTaken    = "That email is taken. Please choose a different one."
	MsgUnknownEmail  = "There is no account with that email. You must register first."
	MsgInvalidToken  = "That is an invalid or expired token"
)

type AccountService struct {
	users      repository.UserRepository
	pictures   *PictureService
	notifier   *MailNotifier
	tokens     *ResetTokenIssuer
	bcryptCost int
}

type UpdateAccountInput struct {
	Principal *models.User
	Form      validation.UpdateAccountForm
	// Picture is nil when no file was uploaded.
	Picture *PictureUpload
}

type ResetPasswordInput struct {
	Token string
	Form  validation.ResetPasswordForm
}

func NewAccountService(
	users repository.UserRepository,
	pictures *PictureService,
	notifier *MailNotifier,
	tokens *ResetTokenIssuer,
) *AccountService {
	return &AccountService{
		users:      users,
		pictures:   pictures,
		notifier:   notifier,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the password hashing cost.
func (s *AccountService) WithBcryptCost(cost int) *AccountService {
	s.bcryptCost = cost
	return s
}

func (s *AccountService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

// checkIdentity flags username and email values already held by a user other than self.
func (s *AccountService) checkIdentity(ctx context.Context, self *models.User, username, email string, fields models.FieldErrors) error {
	if self == nil || username != self.Username {
		existing, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil && (self == nil || existing.ID != self.ID) {
			fields.Add("username", MsgUsernameTaken)
		}
	}
	if self == nil || email != self.Email {
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil && (self == nil || existing.ID != self.ID) {
			fields.Add("email", MsgEmailTaken)
		}
	}
	return nil
}

// Register creates an account with the default avatar.
func (s *AccountService) Register(ctx context.Context, form validation.RegistrationForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	fields := form.Validate()
	if !fields.Any() {
		if err := s.checkIdentity(ctx, nil, form.Username, form.Email, fields); err != nil {
			return nil, err
		}
	}
	if fields.Any() {
		return nil, models.NewFormError(fields)
	}

	hash, err := s.hashPassword(form.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		Password:  hash,
		ImageFile: models.DefaultImageFile,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks email and password and returns the matching user.
func (s *AccountService) Authenticate(ctx context.Context, form validation.LoginForm) (*models.User, error) {
	form.Email = strings.TrimSpace(form.Email)
	if fields := form.Validate(); fields.Any() {
		return nil, models.NewFormError(fields)
	}

	user, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)) != nil {
		observability.LoginAttempts.WithLabelValues(observability.ResultFailure).Inc()
		return nil, models.NewUnauthorizedError(MsgLoginFailed)
	}

	observability.LoginAttempts.WithLabelValues(observability.ResultSuccess).Inc()
	user.Password = ""
	return user, nil
}

// UpdateAccount overwrites username and email and, when a picture was
// uploaded, the avatar. The replaced avatar file is removed afterwards.
func (s *AccountService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	if in.Principal == nil {
		return nil, models.NewUnauthorizedError("Please log in to access this page.")
	}

	form := in.Form
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if in.Picture != nil && form.PictureName == "" {
		form.PictureName = in.Picture.Filename
	}

	fields := form.Validate()
	if !fields.Any() {
		if err := s.checkIdentity(ctx, in.Principal, form.Username, form.Email, fields); err != nil {
			return nil, err
		}
	}
	if fields.Any() {
		return nil, models.NewFormError(fields)
	}

	updated := *in.Principal
	previousImage := updated.ImageFile

	if in.Picture != nil {
		name, err := s.pictures.SavePicture(ctx, *in.Picture)
		if err != nil {
			return nil, err
		}
		updated.ImageFile = name
	}
	updated.Username = form.Username
	updated.Email = form.Email

	if err := s.users.Update(ctx, &updated); err != nil {
		if in.Picture != nil {
			s.removeAvatar(ctx, updated.ImageFile)
		}
		return nil, err
	}

	if updated.ImageFile != previousImage {
		s.removeAvatar(ctx, previousImage)
	}
	return &updated, nil
}

// removeAvatar deletes an avatar file. The default avatar is never removed
// and failures are only logged.
func (s *AccountService) removeAvatar(ctx context.Context, name string) {
	if name == "" || name == models.DefaultImageFile || s.pictures == nil {
		return
	}
	path := filepath.Join(s.pictures.Dir(), filepath.Base(name))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		middleware.Logger.WarnContext(ctx, "failed to remove avatar",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
	}
}

// RequestPasswordReset emails a reset link to the account holding the address.
func (s *AccountService) RequestPasswordReset(ctx context.Context, form validation.RequestResetForm) error {
	form.Email = strings.TrimSpace(form.Email)
	fields := form.Validate()
	if fields.Any() {
		return models.NewFormError(fields)
	}

	user, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return err
	}
	if user == nil {
		fields.Add("email", MsgUnknownEmail)
		return models.NewFormError(fields)
	}

	if err := s.notifier.SendResetEmail(ctx, user); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// VerifyResetToken resolves the user a reset token belongs to.
func (s *AccountService) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	user, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, &models.AppError{
			Code:    models.CodeUnauthorized,
			Message: MsgInvalidToken,
			Err:     err,
		}
	}
	return user, nil
}

// ResetPassword sets a new password for the holder of a valid token. The
// token stops verifying once the password has changed.
func (s *AccountService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*models.User, error) {
	user, err := s.VerifyResetToken(ctx, in.Token)
	if err != nil {
		return nil, err
	}
	if fields := in.Form.Validate(); fields.Any() {
		return nil, models.NewFormError(fields)
	}

	hash, err := s.hashPassword(in.Form.Password)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

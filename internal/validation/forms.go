package validation

import "quill/internal/models"

// PostForm is submitted when creating or editing a post.
type PostForm struct {
	Title   string `form:"title" json:"title" validate:"notblank,max=100"`
	Content string `form:"content" json:"content" validate:"notblank"`
}

func (f *PostForm) Validate() models.FieldErrors { return Struct(f) }

// RegistrationForm creates an account.
type RegistrationForm struct {
	Username        string `form:"username" json:"username" validate:"notblank,min=2,max=20"`
	Email           string `form:"email" json:"email" validate:"notblank,email,max=120"`
	Password        string `form:"password" json:"-" validate:"notblank"`
	ConfirmPassword string `form:"confirm_password" json:"-" validate:"notblank,eqfield=Password"`
}

func (f *RegistrationForm) Validate() models.FieldErrors { return Struct(f) }

// LoginForm authenticates by email and password.
type LoginForm struct {
	Email    string `form:"email" json:"email" validate:"notblank,email"`
	Password string `form:"password" json:"-" validate:"notblank"`
	Remember bool   `form:"remember" json:"remember"`
}

func (f *LoginForm) Validate() models.FieldErrors { return Struct(f) }

// UpdateAccountForm edits the profile. PictureName is the uploaded file's
// original name and is empty when no picture was sent.
type UpdateAccountForm struct {
	Username    string `form:"username" json:"username" validate:"notblank,min=2,max=20"`
	Email       string `form:"email" json:"email" validate:"notblank,email,max=120"`
	PictureName string `form:"picture" json:"-" validate:"omitempty,picture"`
}

func (f *UpdateAccountForm) Validate() models.FieldErrors { return Struct(f) }

// RequestResetForm asks for a password reset email.
type RequestResetForm struct {
	Email string `form:"email" json:"email" validate:"notblank,email"`
}

func (f *RequestResetForm) Validate() models.FieldErrors { return Struct(f) }

// ResetPasswordForm sets a new password from a reset link.
type ResetPasswordForm struct {
	Password        string `form:"password" json:"-" validate:"notblank"`
	ConfirmPassword string `form:"confirm_password" json:"-" validate:"notblank,eqfield=Password"`
}

func (f *ResetPasswordForm) Validate() models.FieldErrors { return Struct(f) }

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostForm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		form       PostForm
		wantFields []string
	}{
		{"Valid", PostForm{Title: "Hello", Content: "World"}, nil},
		{"Empty Title", PostForm{Title: "", Content: "World"}, []string{"title"}},
		{"Blank Title", PostForm{Title: "   ", Content: "World"}, []string{"title"}},
		{"Long Title", PostForm{Title: strings.Repeat("x", 101), Content: "World"}, []string{"title"}},
		{"Both Missing", PostForm{}, []string{"title", "content"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.form.Validate()
			assert.Len(t, errs, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestRegistrationForm(t *testing.T) {
	t.Parallel()
	valid := RegistrationForm{Username: "alice", Email: "alice@example.com", Password: "secret", ConfirmPassword: "secret"}
	assert.False(t, valid.Validate().Any())

	mismatch := valid
	mismatch.ConfirmPassword = "other"
	errs := mismatch.Validate()
	assert.Equal(t, []string{"Field must be equal to password."}, errs["confirm_password"])

	short := valid
	short.Username = "a"
	assert.Equal(t, []string{"Field must be at least 2 characters long."}, short.Validate()["username"])

	long := valid
	long.Username = strings.Repeat("a", 21)
	assert.Contains(t, long.Validate(), "username")

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.Equal(t, []string{"Invalid email address."}, badEmail.Validate()["email"])
}

func TestLoginForm(t *testing.T) {
	t.Parallel()
	form := LoginForm{Email: "", Password: ""}
	errs := form.Validate()
	assert.Equal(t, []string{"This field is required."}, errs["email"])
	assert.Equal(t, []string{"This field is required."}, errs["password"])
}

func TestUpdateAccountForm_Picture(t *testing.T) {
	t.Parallel()
	tests := []struct {
		picture string
		wantErr bool
	}{
		{"", false},
		{"me.jpg", false},
		{"me.JPEG", false},
		{"me.png", false},
		{"me.gif", false},
		{"me.webp", false},
		{"me.bmp", true},
		{"me", true},
	}

	for _, tt := range tests {
		form := UpdateAccountForm{Username: "alice", Email: "alice@example.com", PictureName: tt.picture}
		errs := form.Validate()
		assert.Equal(t, tt.wantErr, errs.Any(), tt.picture)
		if tt.wantErr {
			assert.Equal(t, []string{"File does not have an approved extension: jpg, jpeg, png, gif, webp"}, errs["picture"])
		}
	}
}

func TestResetForms(t *testing.T) {
	t.Parallel()
	assert.True(t, (&RequestResetForm{Email: "x"}).Validate().Any())
	assert.False(t, (&RequestResetForm{Email: "x@example.com"}).Validate().Any())
	assert.True(t, (&ResetPasswordForm{Password: "a", ConfirmPassword: "b"}).Validate().Any())
	assert.False(t, (&ResetPasswordForm{Password: "a", ConfirmPassword: "a"}).Validate().Any())
}

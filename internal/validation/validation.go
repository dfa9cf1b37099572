// Package validation checks submitted forms and reports per-field messages.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"quill/internal/models"

	"github.com/go-playground/validator/v10"
)

// PictureExtensions are the avatar file extensions accepted on upload.
var PictureExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("picture", func(fl validator.FieldLevel) bool {
		return IsAllowedPicture(fl.Field().String())
	})
	return v
}

// IsAllowedPicture reports whether name carries an accepted image extension.
func IsAllowedPicture(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range PictureExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Struct validates a form and converts failures into field messages.
func Struct(form any) models.FieldErrors {
	fields := models.FieldErrors{}

	err := validate.Struct(form)
	if err == nil {
		return fields
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields.Add("form", err.Error())
		return fields
	}
	for _, fe := range verrs {
		fields.Add(fe.Field(), message(fe))
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "eqfield":
		return "Field must be equal to " + strings.ToLower(fe.Param()) + "."
	case "picture":
		exts := make([]string, 0, len(PictureExtensions))
		for _, e := range PictureExtensions {
			exts = append(exts, strings.TrimPrefix(e, "."))
		}
		return "File does not have an approved extension: " + strings.Join(exts, ", ")
	default:
		return "Invalid value."
	}
}

package server

import (
	"io"
	"mime/multipart"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const accountTitle = "Account"

// AccountForm handles GET /account
func (s *Server) AccountForm(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	form := validation.UpdateAccountForm{Username: user.Username, Email: user.Email}
	return s.renderAccount(c, fiber.StatusOK, user, form, nil)
}

// UpdateAccount handles POST /account
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var form validation.UpdateAccountForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	picture, fields, err := s.readPicture(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	if fields.Any() {
		return s.renderAccount(c, fiber.StatusUnprocessableEntity, user, form, fields)
	}

	_, err = s.accountService.UpdateAccount(c.UserContext(), service.UpdateAccountInput{
		Principal: user,
		Form:      form,
		Picture:   picture,
	})
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return s.renderAccount(c, fiber.StatusUnprocessableEntity, user, form, fields)
		}
		return respondServiceError(c, err)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your account has been updated!")
	return redirect(c, "/account")
}

func (s *Server) renderAccount(c *fiber.Ctx, status int, user *models.User, form validation.UpdateAccountForm, fields models.FieldErrors) error {
	return render(c, status, accountTitle, AccountView{
		FormView: FormView{
			Legend: "Account Info",
			Values: form,
			Errors: fields,
		},
		ImageFile: user.AvatarPath(),
	})
}

// readPicture returns the uploaded avatar, or nil when the form carried none.
// An oversized file is reported as a field error.
func (s *Server) readPicture(c *fiber.Ctx) (*service.PictureUpload, models.FieldErrors, error) {
	fields := models.FieldErrors{}

	file, err := c.FormFile("picture")
	if err != nil || file == nil || file.Filename == "" {
		// Not a multipart request, or no file chosen.
		return nil, fields, nil
	}

	limit := int64(s.config.AvatarMaxUploadMB) * 1024 * 1024
	if file.Size > limit {
		fields.Add("picture", "File is too large.")
		return nil, fields, nil
	}

	content, err := readFileHeader(file)
	if err != nil {
		return nil, fields, models.NewIOError(err)
	}
	return &service.PictureUpload{Filename: file.Filename, Content: content}, fields, nil
}

func readFileHeader(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return io.ReadAll(src)
}

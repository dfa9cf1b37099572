package server

import (
	"errors"
	"log/slog"
	"strconv"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError translates an AppError code into an HTTP status.
func mapServiceError(err error) int {
	switch models.CodeOf(err) {
	case models.CodeValidation:
		return fiber.StatusUnprocessableEntity
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status its code maps to. Server
// side failures are logged before the generic message goes out.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// formErrors returns the field errors carried by a form validation failure.
func formErrors(err error) (models.FieldErrors, bool) {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation && appErr.Fields != nil {
		return appErr.Fields, true
	}
	return nil, false
}

// parsePage reads the page query parameter. Missing, malformed and
// non-positive values all mean the first page.
func parsePage(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parseID extracts a route parameter by name as a positive uint. Routes
// constrain the parameter to integers, so a failure here is reported as 404.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError("Post", c.Params(param))
	}
	return uint(id), nil
}

// redirect sends a 303 so the browser follows up with a GET.
func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusSeeOther)
}

// anonymousOnly sends signed-in users away from the login and registration pages.
func (s *Server) anonymousOnly(c *fiber.Ctx) error {
	if middleware.CurrentUser(c) != nil {
		return redirect(c, "/home")
	}
	return c.Next()
}

// badForm reports a request body that could not be decoded into a form.
func badForm(err error) error {
	return &models.AppError{
		Code:    models.CodeValidation,
		Message: "Invalid form submission",
		Err:     err,
	}
}

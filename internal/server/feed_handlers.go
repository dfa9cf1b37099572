package server

import (
	"quill/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET / and GET /home
func (s *Server) Home(c *fiber.Ctx) error {
	page, err := s.postService.ListFeed(c.UserContext(), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return render(c, fiber.StatusOK, "Home", newFeedView(page, nil, middleware.CurrentUser(c)))
}

// About handles GET /about
func (s *Server) About(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, "About", nil)
}

// UserPosts handles GET /user/:username
func (s *Server) UserPosts(c *fiber.Ctx) error {
	author, page, err := s.postService.ListUserFeed(c.UserContext(), c.Params("username"), parsePage(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return render(c, fiber.StatusOK, "Posts by "+author.Username, newFeedView(page, author, middleware.CurrentUser(c)))
}

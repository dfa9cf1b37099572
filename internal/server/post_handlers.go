package server

import (
	"strconv"

	"quill/internal/middleware"
	"quill/internal/service"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	newPostTitle    = "New Post"
	updatePostTitle = "Update Post"
)

// NewPostForm handles GET /post/new
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return renderForm(c, fiber.StatusOK, newPostTitle, newPostTitle, validation.PostForm{}, nil)
}

// CreatePost handles POST /post/new
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	_, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Principal: middleware.CurrentUser(c),
		Form:      form,
	})
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return renderForm(c, fiber.StatusUnprocessableEntity, newPostTitle, newPostTitle, form, fields)
		}
		return respondServiceError(c, err)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your post has been created!")
	return redirect(c, "/home")
}

// GetPost handles GET /post/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return render(c, fiber.StatusOK, post.Title, newPostView(post, middleware.CurrentUser(c)))
}

// UpdatePostForm handles GET /post/:id/update
func (s *Server) UpdatePostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.GetPostForUpdate(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	form := validation.PostForm{Title: post.Title, Content: post.Content}
	return renderForm(c, fiber.StatusOK, updatePostTitle, updatePostTitle, form, nil)
}

// UpdatePost handles POST /post/:id/update
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return respondServiceError(c, badForm(err))
	}

	_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		Principal: middleware.CurrentUser(c),
		PostID:    id,
		Form:      form,
	})
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return renderForm(c, fiber.StatusUnprocessableEntity, updatePostTitle, updatePostTitle, form, fields)
		}
		return respondServiceError(c, err)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your post has been updated!")
	return redirect(c, "/post/"+strconv.FormatUint(uint64(id), 10))
}

// DeletePost handles POST /post/:id/delete
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	err = s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		Principal: middleware.CurrentUser(c),
		PostID:    id,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your post has been deleted!")
	return redirect(c, "/home")
}

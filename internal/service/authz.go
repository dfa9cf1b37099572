// Package service implements the blog's use cases on top of the repositories.
package service

import "quill/internal/models"

// AuthorizeOwner allows a post mutation only for the post's owner.
func AuthorizeOwner(principal *models.User, post *models.Post) error {
	if post == nil || !post.OwnedBy(principal) {
		return models.NewForbiddenError("You do not have permission to modify this post")
	}
	return nil
}

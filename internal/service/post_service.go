package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// FeedPageSize is the number of posts on one feed page.
const FeedPageSize = 5

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

type CreatePostInput struct {
	Principal *models.User
	Form      validation.PostForm
}

type UpdatePostInput struct {
	Principal *models.User
	PostID    uint
	Form      validation.PostForm
}

type DeletePostInput struct {
	Principal *models.User
	PostID    uint
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "CreatePost")
	defer func() { finish(err) }()

	if in.Principal == nil {
		return nil, models.NewUnauthorizedError("Please log in to access this page.")
	}
	if fields := in.Form.Validate(); fields.Any() {
		return nil, models.NewFormError(fields)
	}

	post = models.NewPost(in.Principal, in.Form.Title, in.Form.Content)
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	observability.RecordPostMutation("create")
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// GetPostForUpdate returns the post only when principal may edit it.
func (s *PostService) GetPostForUpdate(ctx context.Context, principal *models.User, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOwner(principal, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost overwrites title and content. The stored post is left untouched
// when the form is invalid.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "UpdatePost", attribute.Int("post.id", int(in.PostID)))
	defer func() { finish(err) }()

	post, err = s.GetPostForUpdate(ctx, in.Principal, in.PostID)
	if err != nil {
		return nil, err
	}
	if fields := in.Form.Validate(); fields.Any() {
		return nil, models.NewFormError(fields)
	}

	post.Title = in.Form.Title
	post.Content = in.Form.Content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	observability.RecordPostMutation("update")
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "DeletePost", attribute.Int("post.id", int(in.PostID)))
	defer func() { finish(err) }()

	if _, err := s.GetPostForUpdate(ctx, in.Principal, in.PostID); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return err
	}

	observability.RecordPostMutation("delete")
	return nil
}

// ListFeed returns one page of every author's posts, newest first.
func (s *PostService) ListFeed(ctx context.Context, page int) (*models.PostPage, error) {
	return s.postRepo.Paginate(ctx, repository.PostFilter{}, normalizePage(page), FeedPageSize)
}

// ListUserFeed returns one page of a single author's posts.
func (s *PostService) ListUserFeed(ctx context.Context, username string, page int) (*models.User, *models.PostPage, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if author == nil {
		return nil, nil, models.NewNotFoundError("User", username)
	}
	author.Password = ""

	posts, err := s.postRepo.Paginate(ctx, repository.PostFilter{AuthorID: author.ID}, normalizePage(page), FeedPageSize)
	if err != nil {
		return nil, nil, err
	}
	return author, posts, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

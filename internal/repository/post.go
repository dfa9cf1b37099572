package repository

import (
	"context"
	"errors"
	"math"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a feed query. A zero AuthorID means every author.
type PostFilter struct {
	AuthorID uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// Paginate returns one page of posts, newest first. A page past the end
	// is empty rather than an error.
	Paginate(ctx context.Context, filter PostFilter, page, perPage int) (*models.PostPage, error)
	// Update writes title and content only; the owner column is never written.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	post.Author.Password = ""
	return &post, nil
}

func (f PostFilter) scope(db *gorm.DB) *gorm.DB {
	if f.AuthorID != 0 {
		return db.Where("user_id = ?", f.AuthorID)
	}
	return db
}

func (r *postRepository) Paginate(ctx context.Context, filter PostFilter, page, perPage int) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Past the last page there is nothing to fetch, and a huge page number
	// would overflow the offset.
	if page-1 > math.MaxInt/perPage || int64((page-1)*perPage) >= total {
		return models.NewPostPage(nil, page, perPage, total), nil
	}

	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Scopes(filter.scope).
		Preload("Author").
		Order("date_posted DESC").
		Order("id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	for _, p := range posts {
		p.Author.Password = ""
	}
	return models.NewPostPage(posts, page, perPage, total), nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("Title", "Content").
		Updates(map[string]any{
			"title":   post.Title,
			"content": post.Content,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

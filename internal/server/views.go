package server

import (
	"time"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// View is the JSON document every page renders to.
type View struct {
	Title       string             `json:"title"`
	CurrentUser *AuthorView        `json:"current_user,omitempty"`
	Flashes     []middleware.Flash `json:"flashes"`
	Data        any                `json:"data,omitempty"`
}

// FormView is the state of a form page: submitted or prefilled values and
// the errors to show next to each field.
type FormView struct {
	Legend string             `json:"legend,omitempty"`
	Values any                `json:"values"`
	Errors models.FieldErrors `json:"errors,omitempty"`
}

// AuthorView is the public face of a user.
type AuthorView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
}

type PostView struct {
	ID         uint       `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	DatePosted time.Time  `json:"date_posted"`
	Author     AuthorView `json:"author"`
	CanEdit    bool       `json:"can_edit"`
}

// PaginationView carries the links a feed page offers.
type PaginationView struct {
	Page        int   `json:"page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	HasPrev     bool  `json:"has_prev"`
	HasNext     bool  `json:"has_next"`
	PrevNum     int   `json:"prev_num,omitempty"`
	NextNum     int   `json:"next_num,omitempty"`
	PageNumbers []int `json:"page_numbers"`
}

type FeedView struct {
	Author     *AuthorView    `json:"author,omitempty"`
	Posts      []PostView     `json:"posts"`
	Pagination PaginationView `json:"pagination"`
}

// AccountView is the account form plus the current avatar.
type AccountView struct {
	FormView
	ImageFile string `json:"image_file"`
}

func newAuthorView(u *models.User) *AuthorView {
	if u == nil {
		return nil
	}
	return &AuthorView{ID: u.ID, Username: u.Username, ImageURL: u.AvatarPath()}
}

func newPostView(p *models.Post, principal *models.User) PostView {
	author := p.Author
	if author.ID == 0 {
		author.ID = p.UserID
	}
	return PostView{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		DatePosted: p.DatePosted,
		Author:     *newAuthorView(&author),
		CanEdit:    p.OwnedBy(principal),
	}
}

func newFeedView(page *models.PostPage, author *models.User, principal *models.User) FeedView {
	posts := make([]PostView, 0, len(page.Items))
	for _, p := range page.Items {
		posts = append(posts, newPostView(p, principal))
	}
	return FeedView{
		Author: newAuthorView(author),
		Posts:  posts,
		Pagination: PaginationView{
			Page:        page.Page,
			PerPage:     page.PerPage,
			Total:       page.Total,
			Pages:       page.Pages,
			HasPrev:     page.HasPrev,
			HasNext:     page.HasNext,
			PrevNum:     page.PrevNum,
			NextNum:     page.NextNum,
			PageNumbers: page.PageNumbers,
		},
	}
}

// render writes a view with the given status, delivering pending notices.
func render(c *fiber.Ctx, status int, title string, data any) error {
	return c.Status(status).JSON(View{
		Title:       title,
		CurrentUser: newAuthorView(middleware.CurrentUser(c)),
		Flashes:     middleware.ConsumeFlashes(c),
		Data:        data,
	})
}

func renderForm(c *fiber.Ctx, status int, title, legend string, values any, fields models.FieldErrors) error {
	return render(c, status, title, FormView{
		Legend: legend,
		Values: values,
		Errors: fields,
	})
}

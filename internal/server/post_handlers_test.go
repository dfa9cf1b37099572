package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRoundTrip(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	cookie := h.sessionFor(t, alice)

	resp := h.do(t, http.MethodPost, "/post/new", url.Values{"title": {"Hello"}, "content": {"First post"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))

	var stored models.Post
	require.NoError(t, h.db.First(&stored).Error)
	assert.Equal(t, alice.ID, stored.UserID)

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/post/%d", stored.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeView(t, resp)
	var post PostView
	require.NoError(t, json.Unmarshal(view.Data, &post))
	assert.Equal(t, "Hello", view.Title)
	assert.Equal(t, "First post", post.Content)
	assert.Equal(t, "alice", post.Author.Username)
	assert.Equal(t, "/static/profile_pics/default.jpg", post.Author.ImageURL)
	assert.False(t, post.CanEdit)

	resp = h.do(t, http.MethodPost, fmt.Sprintf("/post/%d/update", stored.ID), url.Values{"title": {"Hello again"}, "content": {"Edited"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/post/%d", stored.ID), resp.Header.Get("Location"))

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/post/%d", stored.ID), nil, cookie)
	view = decodeView(t, resp)
	require.NoError(t, json.Unmarshal(view.Data, &post))
	assert.Equal(t, "Hello again", post.Title)
	assert.True(t, post.CanEdit)

	resp = h.do(t, http.MethodPost, fmt.Sprintf("/post/%d/delete", stored.ID), nil, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/post/%d", stored.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePost_FlashShownAfterRedirect(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	cookie := h.sessionFor(t, alice)

	resp := h.do(t, http.MethodPost, "/post/new", url.Values{"title": {"Hi"}, "content": {"There"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	flash := cookieFrom(resp, "flash")
	require.NotEmpty(t, flash)

	resp = h.do(t, http.MethodGet, "/home", nil, cookie+"; "+flash)
	view := decodeView(t, resp)
	require.Len(t, view.Flashes, 1)
	assert.Equal(t, "success", view.Flashes[0].Category)
	assert.Equal(t, "Your post has been created!", view.Flashes[0].Message)
	assert.Equal(t, "alice", view.CurrentUser.Username)

	// Shown once.
	resp = h.do(t, http.MethodGet, "/home", nil, cookie)
	assert.Empty(t, decodeView(t, resp).Flashes)
}

func TestUpdatePost_FlashClearedForWholeSite(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	post := testutil.CreatePost(t, h.db, alice, "Draft", time.Now())
	cookie := h.sessionFor(t, alice)

	target := fmt.Sprintf("/post/%d", post.ID)
	resp := h.do(t, http.MethodPost, target+"/update", url.Values{"title": {"Final"}, "content": {"Body"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, rawSetCookie(resp, "flash"), "path=/;")
	flash := cookieFrom(resp, "flash")
	require.NotEmpty(t, flash)

	resp = h.do(t, http.MethodGet, target, nil, cookie+"; "+flash)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeView(t, resp).Flashes, 1)

	cleared := rawSetCookie(resp, "flash")
	require.NotEmpty(t, cleared)
	assert.True(t, strings.HasPrefix(cleared, "flash=;"), cleared)
	assert.Contains(t, cleared, "path=/;")
	assert.Contains(t, cleared, "expires=Thu, 01 Jan 1970 00:00:00 GMT")
}

func TestCreatePost_InvalidForm(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")

	resp := h.do(t, http.MethodPost, "/post/new", url.Values{"title": {" "}, "content": {"body"}}, h.sessionFor(t, alice))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	view, form := decodeForm(t, resp)
	assert.Equal(t, "New Post", view.Title)
	assert.Equal(t, "New Post", form.Legend)
	assert.Equal(t, []string{"This field is required."}, form.Errors["title"])
	assert.Equal(t, "body", form.Values["content"])

	var count int64
	h.db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestNewPostForm(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")

	resp := h.do(t, http.MethodGet, "/post/new", nil, h.sessionFor(t, alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view, form := decodeForm(t, resp)
	assert.Equal(t, "New Post", view.Title)
	assert.Empty(t, form.Errors)
}

func TestUpdatePost_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	post := testutil.CreatePost(t, h.db, alice, "Mine", time.Now())

	path := fmt.Sprintf("/post/%d/update", post.ID)
	resp := h.do(t, http.MethodPost, path, url.Values{"title": {"Hijack"}, "content": {"x"}}, "")

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next="+url.QueryEscape(path), resp.Header.Get("Location"))
	assert.NotEmpty(t, cookieFrom(resp, "flash"))

	var stored models.Post
	require.NoError(t, h.db.First(&stored, post.ID).Error)
	assert.Equal(t, "Mine", stored.Title)
}

func TestUpdatePost_PrefillAndGuard(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	bob := testutil.CreateUser(t, h.db, "bob", "bob@example.com", "pw")
	post := testutil.CreatePost(t, h.db, alice, "Mine", time.Now())
	path := fmt.Sprintf("/post/%d/update", post.ID)

	resp := h.do(t, http.MethodGet, path, nil, h.sessionFor(t, alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view, form := decodeForm(t, resp)
	assert.Equal(t, "Update Post", view.Title)
	assert.Equal(t, "Mine", form.Values["title"])

	resp = h.do(t, http.MethodGet, path, nil, h.sessionFor(t, bob))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPost, path, url.Values{"title": {"Stolen"}, "content": {"x"}}, h.sessionFor(t, bob))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/post/999/update", nil, h.sessionFor(t, alice))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdatePost_EmptyTitleKeepsStoredPost(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	post := testutil.CreatePost(t, h.db, alice, "Original", time.Now())

	resp := h.do(t, http.MethodPost, fmt.Sprintf("/post/%d/update", post.ID),
		url.Values{"title": {""}, "content": {"new body"}}, h.sessionFor(t, alice))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	_, form := decodeForm(t, resp)
	assert.Contains(t, form.Errors, "title")

	var stored models.Post
	require.NoError(t, h.db.First(&stored, post.ID).Error)
	assert.Equal(t, "Original", stored.Title)
	assert.Equal(t, post.Content, stored.Content)
}

func TestDeletePost_NonOwnerForbidden(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice", "alice@example.com", "pw")
	bob := testutil.CreateUser(t, h.db, "bob", "bob@example.com", "pw")
	post := testutil.CreatePost(t, h.db, alice, "Keep me", time.Now())

	resp := h.do(t, http.MethodPost, fmt.Sprintf("/post/%d/delete", post.ID), nil, h.sessionFor(t, bob))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/post/%d", post.ID), nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetPost_NotFound(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/post/42", "/post/abc"} {
		resp := h.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

package repository

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	cache.Close()
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{Title: "Test Post", Content: "Content", UserID: 3, DatePosted: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateNeverWritesOwner(t *testing.T) {
	cache.Close()
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`^UPDATE "posts" SET "content"=\$1,"title"=\$2(,"updated_at"=\$3)? WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), &models.Post{ID: 1, Title: "New", Content: "Body", UserID: 99})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Delete(t *testing.T) {
	cache.Close()
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE "posts"."id" = $1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SQLite(t *testing.T) {
	cache.Close()
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", "alice@example.com", "password")
	bob := testutil.CreateUser(t, db, "bob", "bob@example.com", "password")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		testutil.CreatePost(t, db, alice, "alice post", base.Add(time.Duration(i)*time.Hour))
	}
	bobPost := testutil.CreatePost(t, db, bob, "bob post", base.Add(30*time.Minute))

	t.Run("round trip", func(t *testing.T) {
		post := models.NewPost(bob, "Hello", "World")
		require.NoError(t, repo.Create(ctx, post))

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", got.Title)
		assert.Equal(t, "World", got.Content)
		assert.Equal(t, bob.ID, got.UserID)
		assert.Equal(t, "bob", got.Author.Username)
		assert.Empty(t, got.Author.Password)

		require.NoError(t, repo.Delete(ctx, post.ID))
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
	})

	t.Run("feed is newest first and capped", func(t *testing.T) {
		page, err := repo.Paginate(ctx, PostFilter{}, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(8), page.Total)
		assert.Equal(t, 2, page.Pages)
		require.Len(t, page.Items, 5)
		for i := 1; i < len(page.Items); i++ {
			assert.False(t, page.Items[i].DatePosted.After(page.Items[i-1].DatePosted))
		}

		second, err := repo.Paginate(ctx, PostFilter{}, 2, 5)
		require.NoError(t, err)
		require.Len(t, second.Items, 3)
		assert.Equal(t, bobPost.ID, second.Items[1].ID)
	})

	t.Run("out of range page is empty", func(t *testing.T) {
		page, err := repo.Paginate(ctx, PostFilter{}, 50, 5)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, int64(8), page.Total)
	})

	t.Run("page number too large for an offset is empty", func(t *testing.T) {
		for _, n := range []int{1<<61 + 1, math.MaxInt} {
			page, err := repo.Paginate(ctx, PostFilter{}, n, 5)
			require.NoError(t, err)
			assert.Empty(t, page.Items, n)
			assert.Equal(t, n, page.Page)
			assert.False(t, page.HasNext)
			assert.True(t, page.HasPrev)
		}
	})

	t.Run("author filter", func(t *testing.T) {
		page, err := repo.Paginate(ctx, PostFilter{AuthorID: bob.ID}, 1, 5)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "bob", page.Items[0].Author.Username)
	})

	t.Run("update keeps owner", func(t *testing.T) {
		tampered := *bobPost
		tampered.Title = "edited"
		tampered.UserID = alice.ID
		require.NoError(t, repo.Update(ctx, &tampered))

		got, err := repo.GetByID(ctx, bobPost.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Title)
		assert.Equal(t, bob.ID, got.UserID)
	})

	t.Run("delete missing", func(t *testing.T) {
		err := repo.Delete(ctx, 9999)
		assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
	})
}

func TestPostRepository_CacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(cache.Close)

	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "carol", "carol@example.com", "password")
	post := testutil.CreatePost(t, db, author, "cached", time.Now())

	_, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.PostKey(post.ID)))

	post.Title = "changed"
	require.NoError(t, repo.Update(ctx, post))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title)

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err = repo.GetByID(ctx, post.ID)
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
}

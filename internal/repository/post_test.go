package repository

import (
	"context"
	"regexp"
	"testing"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_IncrementViews(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantNotFound bool
	}{
		{name: "Success", rowsAffected: 1},
		{name: "Missing post", rowsAffected: 0, wantNotFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewPostRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "views"=views + $1 WHERE id = $2`)).
				WithArgs(1, 7).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			mock.ExpectCommit()

			err := repo.IncrementViews(context.Background(), 7)
			if tt.wantNotFound {
				assert.True(t, models.IsNotFound(err))
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, db, 1)
	post := &models.Post{
		Title:    "Hello",
		Content:  "World",
		AuthorID: author.ID,
		Category: models.CategoryTechnology,
		Tags:     []string{"go", "web"},
	}
	require.NoError(t, repo.Create(ctx, post))
	require.NotZero(t, post.ID)

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.Equal(t, author.Email, got.Author.Email)
	assert.ElementsMatch(t, []string{"go", "web"}, got.Tags)
	assert.False(t, got.IsLiked)

	_, err = repo.GetByID(ctx, 999, 0)
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_ToggleLike(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, db, 1)
	reader := createUser(t, db, 2)
	post := createPost(t, db, author, "Likeable")

	res, err := repo.ToggleLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, res.IsLiked)
	assert.Equal(t, int64(1), res.LikesCount)

	res, err = repo.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LikesCount)

	got, err := repo.GetByID(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLiked)
	assert.Equal(t, int64(2), got.LikesCount)

	res, err = repo.ToggleLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, res.IsLiked)
	assert.Equal(t, int64(1), res.LikesCount)

	_, err = repo.ToggleLike(ctx, 999, reader.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_ListFiltersAndSort(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, db, 1)
	reader := createUser(t, db, 2)

	first := createPost(t, db, author, "Go concurrency")
	second := createPost(t, db, author, "Baking bread")
	draft := &models.Post{Title: "Draft", Content: "wip", AuthorID: author.ID, Category: "other", Status: models.PostStatusDraft}
	require.NoError(t, repo.Create(ctx, draft))

	require.NoError(t, repo.Update(ctx, first.ID, nil, []string{"go"}))
	require.NoError(t, repo.IncrementViews(ctx, second.ID))
	_, err := repo.ToggleLike(ctx, first.ID, reader.ID)
	require.NoError(t, err)

	page := models.PageRequest{Page: 1, Limit: 10}

	posts, total, err := repo.List(ctx, PostFilter{Status: models.PostStatusPublished}, page, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, posts, 2)

	posts, _, err = repo.List(ctx, PostFilter{Status: models.PostStatusPublished, Search: "CONCURRENCY"}, page, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, first.ID, posts[0].ID)

	posts, _, err = repo.List(ctx, PostFilter{Tags: []string{"Go"}}, page, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"go"}, posts[0].Tags)

	posts, _, err = repo.List(ctx, PostFilter{Status: models.PostStatusPublished, SortBy: "likes"}, page, reader.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, first.ID, posts[0].ID)
	assert.True(t, posts[0].IsLiked)

	posts, _, err = repo.List(ctx, PostFilter{Status: models.PostStatusPublished, SortBy: "views"}, page, 0)
	require.NoError(t, err)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, int64(1), posts[0].Views)

	posts, total, err = repo.List(ctx, PostFilter{AuthorID: author.ID}, models.PageRequest{Page: 2, Limit: 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, posts, 1)
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, db, 1)
	post := createPost(t, db, author, "Doomed")
	c := &models.Comment{Content: "first", AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, comments.Create(ctx, c))
	_, err := comments.ToggleLike(ctx, c.ID, author.ID)
	require.NoError(t, err)
	_, err = repo.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, post.ID))

	var n int64
	db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.CommentLike{}).Where("comment_id = ?", c.ID).Count(&n)
	assert.Zero(t, n)

	assert.True(t, models.IsNotFound(repo.Delete(ctx, post.ID)))
}

func TestPostRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := createUser(t, db, 1)

	plain := createPost(t, db, author, "plain title")
	discount := createPost(t, db, author, "discount 50% off")
	page := models.PageRequest{Page: 1, Limit: 10}

	tests := []struct {
		search string
		want   []uint
	}{
		{"%", []uint{discount.ID}},
		{"50%", []uint{discount.ID}},
		{"_", nil},
		{`\`, nil},
		{"plain", []uint{plain.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			posts, total, err := repo.List(ctx, PostFilter{Status: models.PostStatusPublished, Search: tt.search}, page, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			ids := make([]uint, 0, len(posts))
			for _, p := range posts {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%go%", likePattern("  Go "))
	assert.Equal(t, `%50\% off%`, likePattern("50% OFF"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\tmp%`, likePattern(`C:\tmp`))
}

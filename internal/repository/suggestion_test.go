package repository

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createSuggestion(t *testing.T, repo SuggestionRepository, by *models.User, title, priority string) *models.Suggestion {
	t.Helper()
	s := &models.Suggestion{
		Title:         title,
		Description:   "description of " + title,
		Category:      "feature",
		Priority:      priority,
		SubmittedByID: by.ID,
		Tags:          []string{"ux"},
	}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestSuggestionRepository_VoteReplacesPrevious(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSuggestionRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, 1)
	bob := createUser(t, db, 2)
	s := createSuggestion(t, repo, alice, "Dark mode", models.PriorityMedium)

	res, err := repo.Vote(ctx, s.ID, alice.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Upvotes)
	assert.Equal(t, models.VoteUp, res.UserVote)

	res, err = repo.Vote(ctx, s.ID, alice.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Upvotes)
	assert.Equal(t, int64(1), res.Downvotes)
	assert.Equal(t, int64(-1), res.VoteCount)
	assert.Equal(t, int64(1), res.TotalVotes)

	res, err = repo.Vote(ctx, s.ID, bob.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.VoteCount)
	assert.Equal(t, int64(2), res.TotalVotes)

	got, err := repo.GetByID(ctx, s.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoteDown, got.UserVote)
	assert.Equal(t, int64(1), got.Upvotes)
	assert.Equal(t, int64(1), got.Downvotes)
	assert.Equal(t, int64(2), got.TotalVotes)
	assert.Equal(t, []string{"ux"}, got.Tags)

	res, err = repo.RemoveVote(ctx, s.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, res.UserVote)
	assert.Equal(t, int64(1), res.TotalVotes)

	_, err = repo.Vote(ctx, 999, alice.ID, models.VoteUp)
	assert.True(t, models.IsNotFound(err))
}

func TestSuggestionRepository_AnonymousReadHasNoUserVote(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSuggestionRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, 1)
	s := createSuggestion(t, repo, alice, "Dark mode", models.PriorityMedium)
	_, err := repo.Vote(ctx, s.ID, alice.ID, models.VoteUp)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, got.UserVote)
	assert.Equal(t, int64(1), got.VoteCount)
	assert.Equal(t, alice.ID, got.SubmittedBy.ID)
	assert.NotNil(t, got.Comments)
	assert.NotNil(t, got.Attachments)
}

func TestSuggestionRepository_ListSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSuggestionRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, 1)
	bob := createUser(t, db, 2)
	low := createSuggestion(t, repo, alice, "Low one", models.PriorityLow)
	critical := createSuggestion(t, repo, bob, "Critical one", models.PriorityCritical)
	high := createSuggestion(t, repo, alice, "High one", models.PriorityHigh)

	for _, u := range []*models.User{alice, bob} {
		_, err := repo.Vote(ctx, low.ID, u.ID, models.VoteUp)
		require.NoError(t, err)
	}
	_, err := repo.Vote(ctx, critical.ID, alice.ID, models.VoteDown)
	require.NoError(t, err)

	page := models.PageRequest{Page: 1, Limit: 10}

	list, total, err := repo.List(ctx, SuggestionFilter{SortBy: "votes"}, page, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{low.ID, high.ID, critical.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})

	list, _, err = repo.List(ctx, SuggestionFilter{SortBy: "priority"}, page, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{critical.ID, high.ID, low.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})

	list, total, err = repo.List(ctx, SuggestionFilter{SubmittedByID: bob.ID}, page, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Empty(t, list[0].UserVote)

	_, total, err = repo.List(ctx, SuggestionFilter{Search: "high", Priority: models.PriorityHigh}, page, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSuggestionRepository_UpdateCommentAndStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSuggestionRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, 1)
	s := createSuggestion(t, repo, alice, "Export", models.PriorityMedium)
	createSuggestion(t, repo, alice, "Import", models.PriorityHigh)

	require.NoError(t, repo.Update(ctx, s.ID, map[string]any{"status": models.SuggestionApproved, "admin_notes": "queued"}, []string{"data", "io"}))

	comment := &models.SuggestionComment{SuggestionID: s.ID, UserID: alice.ID, Message: "+1"}
	require.NoError(t, repo.AddComment(ctx, comment))
	assert.Equal(t, alice.Email, comment.User.Email)

	got, err := repo.GetByID(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, got.Status)
	assert.Equal(t, "queued", got.AdminNotes)
	assert.ElementsMatch(t, []string{"data", "io"}, got.Tags)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "+1", got.Comments[0].Message)

	_, err = repo.Vote(ctx, s.ID, alice.ID, models.VoteUp)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.TotalVotes)
	assert.Equal(t, int64(1), stats.ByStatus[models.SuggestionApproved])
	assert.Equal(t, int64(1), stats.ByStatus[models.SuggestionPending])
	assert.Equal(t, int64(2), stats.ByCategory["feature"])
	assert.Equal(t, int64(1), stats.ByPriority[models.PriorityHigh])

	assert.True(t, models.IsNotFound(repo.AddComment(ctx, &models.SuggestionComment{SuggestionID: 999, UserID: alice.ID, Message: "x"})))
}

func TestSuggestionRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSuggestionRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, 1)
	s := createSuggestion(t, repo, alice, "Gone", models.PriorityLow)
	_, err := repo.Vote(ctx, s.ID, alice.ID, models.VoteUp)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, s.ID))

	var votes int64
	db.Model(&models.SuggestionVote{}).Count(&votes)
	assert.Zero(t, votes)

	_, err = repo.GetByID(ctx, s.ID, 0)
	assert.True(t, models.IsNotFound(err))
	assert.ErrorIs(t, db.First(&models.Suggestion{}, s.ID).Error, gorm.ErrRecordNotFound)
	assert.True(t, models.IsNotFound(repo.Delete(ctx, s.ID)))
}

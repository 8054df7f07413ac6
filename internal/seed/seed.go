package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers           int
	NumPosts           int
	MaxCommentsPerPost int
	NumSuggestions     int
	ShouldClean        bool

	// MaxDays bounds how far back generated timestamps reach.
	MaxDays int

	// FastHash hashes the shared password at bcrypt.MinCost.
	FastHash bool

	// RandSeed makes a run reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions returns the sizes used by cmd/seed when no flags are given.
func DefaultOptions() Options {
	return Options{
		NumUsers:           25,
		NumPosts:           100,
		MaxCommentsPerPost: 8,
		NumSuggestions:     20,
		MaxDays:            90,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users              int
	Posts              int
	Comments           int
	PostLikes          int
	Suggestions        int
	SuggestionVotes    int
	SuggestionComments int
}

// Seed populates db with users, posts, threaded comments, likes and
// suggestions with votes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	logger := observability.GlobalLogger().With(slog.String("component", "seed"))
	if opts.NumUsers < 1 {
		return nil, fmt.Errorf("at least one user is required")
	}

	db = db.WithContext(ctx)
	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	logger.Info("users created", slog.Int("count", sum.Users))

	for i := 0; i < opts.NumPosts; i++ {
		author := users[gofakeit.Number(0, len(users)-1)]
		post, err := f.CreatePost(author)
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++
		if !post.IsPublished() {
			continue
		}

		likers := sample(users, gofakeit.Number(0, len(users)-1), author.ID)
		if err := f.LikePost(post, likers); err != nil {
			return nil, fmt.Errorf("like post %d: %w", post.ID, err)
		}
		sum.PostLikes += len(likers)

		n, err := seedThread(f, post, users, opts.MaxCommentsPerPost)
		if err != nil {
			return nil, err
		}
		sum.Comments += n
	}
	logger.Info("posts created",
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.PostLikes),
	)

	for i := 0; i < opts.NumSuggestions; i++ {
		submitter := users[gofakeit.Number(0, len(users)-1)]
		s, err := f.CreateSuggestion(submitter)
		if err != nil {
			return nil, fmt.Errorf("create suggestion: %w", err)
		}
		sum.Suggestions++

		for _, voter := range sample(users, gofakeit.Number(0, len(users)), 0) {
			voteType := models.VoteUp
			if gofakeit.Number(1, 4) == 1 {
				voteType = models.VoteDown
			}
			if err := f.Vote(s, voter, voteType); err != nil {
				return nil, fmt.Errorf("vote on suggestion %d: %w", s.ID, err)
			}
			sum.SuggestionVotes++
		}
		for j := gofakeit.Number(0, 3); j > 0; j-- {
			if _, err := f.CommentOnSuggestion(s, users[gofakeit.Number(0, len(users)-1)]); err != nil {
				return nil, fmt.Errorf("comment on suggestion %d: %w", s.ID, err)
			}
			sum.SuggestionComments++
		}
	}
	logger.Info("suggestions created",
		slog.Int("suggestions", sum.Suggestions),
		slog.Int("votes", sum.SuggestionVotes),
	)

	return sum, nil
}

// seedThread adds up to max comments to post, about a third of them replies.
func seedThread(f *Factory, post *models.Post, users []*models.User, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	var roots []*models.Comment
	count := gofakeit.Number(0, max)
	for i := 0; i < count; i++ {
		var parent *models.Comment
		if len(roots) > 0 && gofakeit.Number(1, 3) == 1 {
			parent = roots[gofakeit.Number(0, len(roots)-1)]
		}
		author := users[gofakeit.Number(0, len(users)-1)]
		c, err := f.CreateComment(author, post, parent)
		if err != nil {
			return i, fmt.Errorf("comment on post %d: %w", post.ID, err)
		}
		if parent == nil {
			roots = append(roots, c)
		}
		if likers := sample(users, gofakeit.Number(0, 3), author.ID); len(likers) > 0 {
			if err := f.LikeComment(c, likers); err != nil {
				return i, fmt.Errorf("like comment %d: %w", c.ID, err)
			}
		}
	}
	return count, nil
}

// Clean removes every seeded table's rows, children first.
func Clean(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE suggestion_votes, suggestion_comments, suggestion_tags, suggestions,
			comment_likes, comments, post_likes, post_tags, posts, users RESTART IDENTITY CASCADE`).Error
	}
	tables := []any{
		&models.SuggestionVote{}, &models.SuggestionComment{}, &models.SuggestionTag{}, &models.Suggestion{},
		&models.CommentLike{}, &models.Comment{}, &models.PostLike{}, &models.PostTag{}, &models.Post{}, &models.User{},
	}
	for _, t := range tables {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(t).Error; err != nil {
			return err
		}
	}
	return nil
}

// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/feed"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account is created with.
const DefaultPassword = "Inkwell123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and by tests.
type Factory struct {
	db       *gorm.DB
	opts     Options
	password string
	seq      int
}

// NewFactory creates a Factory bound to db. The default password is hashed
// once so large batches do not pay the bcrypt cost per user.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	if opts.RandSeed != 0 {
		gofakeit.Seed(opts.RandSeed)
	} else {
		gofakeit.Seed(time.Now().UnixNano())
	}
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, opts: opts, password: string(hash)}, nil
}

// pastTime returns a random moment within the configured MaxDays window.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	now := time.Now()
	return gofakeit.DateRange(now.AddDate(0, 0, -maxDays), now)
}

// after returns a random moment between t and now.
func after(t time.Time) time.Time {
	now := time.Now()
	if !t.Before(now) {
		return now
	}
	return gofakeit.DateRange(t, now)
}

// BuildUser constructs a sample user without persisting it. Emails are
// numbered so repeated calls never collide.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.seq++
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	user := &models.User{
		Email:           fmt.Sprintf("%s.%s%d@example.com", letters(first), letters(last), f.seq),
		Password:        f.password,
		FirstName:       first,
		LastName:        last,
		Avatar:          feed.AvatarURL(first + " " + last),
		Role:            models.RoleUser,
		IsActive:        true,
		IsEmailVerified: gofakeit.Bool(),
		CreatedAt:       f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a sample post by author without persisting it.
// Roughly one in ten posts is left as a draft.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	status := models.PostStatusPublished
	if gofakeit.Number(1, 10) == 1 {
		status = models.PostStatusDraft
	}
	title := strings.TrimSuffix(gofakeit.Sentence(gofakeit.Number(3, 8)), ".")
	post := &models.Post{
		Title:     title,
		Content:   gofakeit.Paragraph(gofakeit.Number(2, 5), gofakeit.Number(3, 6), 12, "\n\n"),
		AuthorID:  author.ID,
		Category:  gofakeit.RandomString(models.PostCategories),
		Status:    status,
		Tags:      models.NormalizeTags(randomWords(gofakeit.Number(1, 4))),
		Views:     int64(gofakeit.Number(0, 2000)),
		CreatedAt: after(author.CreatedAt),
	}
	if gofakeit.Number(1, 10) <= 4 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/450", gofakeit.UUID())
	}
	if status == models.PostStatusDraft {
		post.Views = 0
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample post.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.db.Omit("Author").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment by author on post. A non-nil parent makes
// it a reply; parents must be top-level comments of the same post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		Content:   gofakeit.Sentence(gofakeit.Number(4, 20)),
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: after(post.CreatedAt),
	}
	if parent != nil {
		if parent.PostID != post.ID || parent.ParentID != nil {
			return nil, fmt.Errorf("comment %d cannot be a parent on post %d", parent.ID, post.ID)
		}
		comment.ParentID = &parent.ID
		comment.CreatedAt = after(parent.CreatedAt)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	post.CommentsCount++
	return comment, nil
}

// LikePost records likes on post from each of users.
func (f *Factory) LikePost(post *models.Post, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	likes := make([]models.PostLike, 0, len(users))
	for _, u := range users {
		likes = append(likes, models.PostLike{UserID: u.ID, PostID: post.ID})
	}
	return f.db.Create(&likes).Error
}

// LikeComment records likes on comment from each of users.
func (f *Factory) LikeComment(comment *models.Comment, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	likes := make([]models.CommentLike, 0, len(users))
	for _, u := range users {
		likes = append(likes, models.CommentLike{UserID: u.ID, CommentID: comment.ID})
	}
	return f.db.Create(&likes).Error
}

// CreateSuggestion persists a sample suggestion from submitter.
func (f *Factory) CreateSuggestion(submitter *models.User, overrides ...func(*models.Suggestion)) (*models.Suggestion, error) {
	suggestion := &models.Suggestion{
		Title:         strings.TrimSuffix(gofakeit.Sentence(gofakeit.Number(3, 7)), "."),
		Description:   gofakeit.Paragraph(1, gofakeit.Number(2, 4), 14, " "),
		Category:      gofakeit.RandomString(models.SuggestionCategories),
		Priority:      gofakeit.RandomString(models.SuggestionPriorities),
		Status:        gofakeit.RandomString(models.SuggestionStatuses),
		SubmittedByID: submitter.ID,
		Tags:          models.NormalizeTags(randomWords(gofakeit.Number(0, 3))),
		Attachments:   []models.Attachment{},
		CreatedAt:     after(submitter.CreatedAt),
	}
	for _, override := range overrides {
		override(suggestion)
	}
	if err := f.db.Omit("SubmittedBy", "AssignedTo").Create(suggestion).Error; err != nil {
		return nil, err
	}
	return suggestion, nil
}

// Vote records a vote of voteType from user on suggestion.
func (f *Factory) Vote(suggestion *models.Suggestion, user *models.User, voteType string) error {
	return f.db.Create(&models.SuggestionVote{
		SuggestionID: suggestion.ID,
		UserID:       user.ID,
		Type:         voteType,
	}).Error
}

// CommentOnSuggestion adds a discussion message from user to suggestion.
func (f *Factory) CommentOnSuggestion(suggestion *models.Suggestion, user *models.User) (*models.SuggestionComment, error) {
	comment := &models.SuggestionComment{
		SuggestionID: suggestion.ID,
		UserID:       user.ID,
		Message:      gofakeit.Sentence(gofakeit.Number(5, 15)),
		CreatedAt:    after(suggestion.CreatedAt),
	}
	if err := f.db.Omit("User").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// letters lower-cases s and drops everything but ASCII letters.
func letters(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomWords(n int) []string {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, gofakeit.Word())
	}
	return words
}

// sample returns up to n distinct users from pool, never including skip.
func sample(pool []*models.User, n int, skip uint) []*models.User {
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	gofakeit.ShuffleInts(idx)
	out := make([]*models.User, 0, n)
	for _, i := range idx {
		if len(out) == n {
			break
		}
		if pool[i].ID == skip {
			continue
		}
		out = append(out, pool[i])
	}
	return out
}

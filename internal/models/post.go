package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post statuses.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

// PostStatuses lists every valid post status.
var PostStatuses = []string{PostStatusDraft, PostStatusPublished, PostStatusArchived}

// CategoryTechnology is referenced by the technology feed.
const CategoryTechnology = "technology"

// PostCategories lists every valid post category.
var PostCategories = []string{
	CategoryTechnology, "lifestyle", "travel", "food", "health",
	"business", "education", "entertainment", "sports", "other",
}

// MaxPostTags bounds the number of tags stored per post.
const MaxPostTags = 10

// Post is a user-authored article.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
	AuthorID uint   `gorm:"not null;index" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	Category string `gorm:"size:32;not null;default:other;index" json:"category"`
	Status   string `gorm:"size:16;not null;default:published;index" json:"status"`

	// Views and CommentsCount are persisted counters, only ever changed
	// through single-statement SQL expressions.
	Views         int64 `gorm:"not null;default:0" json:"views"`
	CommentsCount int64 `gorm:"not null;default:0" json:"commentsCount"`

	// LikesCount is not persisted; computed at query time from post_likes
	LikesCount int64 `gorm:"->;-:migration" json:"likesCount"`
	// IsLiked reports whether the requesting user likes this post (computed)
	IsLiked bool `gorm:"->;-:migration" json:"isLiked"`

	Tags    []string  `gorm:"-" json:"tags"`
	TagRows []PostTag `gorm:"foreignKey:PostID" json:"-"`

	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostTag stores one tag of a post.
type PostTag struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	PostID uint   `gorm:"not null;uniqueIndex:idx_post_tag" json:"-"`
	Name   string `gorm:"size:50;not null;uniqueIndex:idx_post_tag;index" json:"name"`
}

// BeforeCreate turns Tags into child rows so they are inserted with the post.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if len(p.TagRows) == 0 && len(p.Tags) > 0 {
		p.TagRows = TagRowsFor(p.Tags)
	}
	return nil
}

// AfterFind exposes the preloaded tag rows as plain names.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.Tags = make([]string, 0, len(p.TagRows))
	for _, t := range p.TagRows {
		p.Tags = append(p.Tags, t.Name)
	}
	return nil
}

// IsPublished reports whether anonymous readers may see the post.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// NormalizeTags lower-cases, trims and de-duplicates tags, keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TagRowsFor builds PostTag rows for the given names.
func TagRowsFor(names []string) []PostTag {
	rows := make([]PostTag, 0, len(names))
	for _, n := range names {
		rows = append(rows, PostTag{Name: n})
	}
	return rows
}

// PostLike records that a user likes a post. The (user, post) pair is unique,
// so the table is the set of likers for each post.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_like_user" json:"userId"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like_user;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeResult is returned by like toggles.
type LikeResult struct {
	IsLiked    bool  `json:"isLiked"`
	LikesCount int64 `json:"likesCount"`
}

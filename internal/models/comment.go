package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment length bounds, counted in runes after trimming.
const (
	MinCommentLength = 1
	MaxCommentLength = 1000
)

// CommentEditWindow is how long after creation an author may edit a comment.
const CommentEditWindow = 24 * time.Hour

// Comment is a comment on a post. A nil ParentID marks a top-level comment;
// otherwise it is a reply to ParentID.
type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	AuthorID uint   `gorm:"not null;index" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	PostID   uint   `gorm:"not null;index:idx_comment_post_parent" json:"postId"`
	ParentID *uint  `gorm:"index:idx_comment_post_parent" json:"parentId"`

	IsEdited bool       `gorm:"not null;default:false" json:"isEdited"`
	EditedAt *time.Time `json:"editedAt,omitempty"`

	// LikesCount is not persisted; computed at query time from comment_likes
	LikesCount int64 `gorm:"->;-:migration" json:"likesCount"`
	// IsLiked reports whether the requesting user likes this comment (computed)
	IsLiked bool `gorm:"->;-:migration" json:"isLiked"`

	// Replies and RepliesCount are filled for top-level comments in thread listings.
	Replies      []*Comment `gorm:"-" json:"replies,omitempty"`
	RepliesCount int64      `gorm:"-" json:"repliesCount"`

	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeUpdate marks the comment edited whenever its content changes.
func (c *Comment) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("Content") {
		now := time.Now().UTC()
		tx.Statement.SetColumn("IsEdited", true)
		tx.Statement.SetColumn("EditedAt", &now)
	}
	return nil
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// Editable reports whether the edit window is still open at now.
func (c *Comment) Editable(now time.Time) bool {
	return now.Sub(c.CreatedAt) <= CommentEditWindow
}

// CommentLike records that a user likes a comment. The (user, comment) pair is unique.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_user" json:"userId"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_user;index" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	now         func() time.Time
}

type CreateCommentInput struct {
	Actor    *models.User
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	ActorID   uint
	CommentID uint
	Content   string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		now:         time.Now,
	}
}

// CreateComment adds a comment or reply. Replies are kept one level deep:
// answering a reply attaches the new comment to that reply's parent.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content, err := normalizeCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, in.PostID, in.Actor); err != nil {
		return nil, err
	}

	var parentID *uint
	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID, 0)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		id := parent.ID
		if parent.ParentID != nil {
			id = *parent.ParentID
		}
		parentID = &id
	}

	comment := &models.Comment{
		Content:  content,
		AuthorID: in.Actor.ID,
		PostID:   in.PostID,
		ParentID: parentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "comments", "create", map[string]any{"comment_id": comment.ID, "post_id": comment.PostID})
	return s.commentRepo.GetByID(ctx, comment.ID, in.Actor.ID)
}

// ListComments pages through a post's top-level comments and attaches every
// direct reply to each of them. Pagination counts top-level comments only.
func (s *CommentService) ListComments(ctx context.Context, postID uint, page models.PageRequest, viewer *models.User) ([]*models.Comment, models.Pagination, error) {
	if _, err := s.visiblePost(ctx, postID, viewer); err != nil {
		return nil, models.Pagination{}, err
	}

	comments, total, err := s.commentRepo.ListTopLevel(ctx, postID, page, viewerID(viewer))
	if err != nil {
		return nil, models.Pagination{}, err
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	replies, err := s.commentRepo.RepliesFor(ctx, ids, viewerID(viewer))
	if err != nil {
		return nil, models.Pagination{}, err
	}
	for _, c := range comments {
		c.Replies = replies[c.ID]
		if c.Replies == nil {
			c.Replies = []*models.Comment{}
		}
		c.RepliesCount = int64(len(c.Replies))
	}

	return comments, models.NewPagination(page.Page, page.Limit, total), nil
}

func (s *CommentService) ListReplies(ctx context.Context, commentID uint, page models.PageRequest, viewer *models.User) ([]*models.Comment, models.Pagination, error) {
	parent, err := s.commentRepo.GetByID(ctx, commentID, 0)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	if _, err := s.visiblePost(ctx, parent.PostID, viewer); err != nil {
		return nil, models.Pagination{}, err
	}

	replies, total, err := s.commentRepo.ListReplies(ctx, commentID, page, viewerID(viewer))
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return replies, models.NewPagination(page.Page, page.Limit, total), nil
}

// UpdateComment edits a comment. Only the author may edit, and only within
// the edit window.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("You can only update your own comments")
	}
	if !comment.Editable(s.now()) {
		return nil, models.NewValidationError("Comments can only be edited within 24 hours of posting")
	}
	content, err := normalizeCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	if err := s.commentRepo.UpdateContent(ctx, comment, content); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID, in.ActorID)
}

// DeleteComment removes a comment with its replies and returns how many
// comments were deleted. The author or an admin may delete.
func (s *CommentService) DeleteComment(ctx context.Context, actor *models.User, commentID uint) (int64, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, 0)
	if err != nil {
		return 0, err
	}
	if comment.AuthorID != actor.ID && !actor.IsAdmin() {
		return 0, models.NewForbiddenError("You can only delete your own comments")
	}
	return s.commentRepo.DeleteCascade(ctx, comment)
}

// ToggleLike flips the actor's like on a comment. Comments on posts the
// actor cannot see are reported as missing.
func (s *CommentService) ToggleLike(ctx context.Context, commentID uint, actor *models.User) (models.LikeResult, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, 0)
	if err != nil {
		return models.LikeResult{}, err
	}
	if _, err := s.visiblePost(ctx, comment.PostID, actor); err != nil {
		return models.LikeResult{}, err
	}
	return s.commentRepo.ToggleLike(ctx, commentID, actor.ID)
}

func (s *CommentService) visiblePost(ctx context.Context, postID uint, viewer *models.User) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	if !canSee(post, viewer) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

func normalizeCommentContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(content)
	if n < models.MinCommentLength {
		return "", models.NewValidationError("Content is required")
	}
	if n > models.MaxCommentLength {
		return "", models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", models.MaxCommentLength))
	}
	return content, nil
}

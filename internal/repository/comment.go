package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error)
	ListTopLevel(ctx context.Context, postID uint, page models.PageRequest, viewerID uint) ([]*models.Comment, int64, error)
	RepliesFor(ctx context.Context, parentIDs []uint, viewerID uint) (map[uint][]*models.Comment, error)
	ListReplies(ctx context.Context, parentID uint, page models.PageRequest, viewerID uint) ([]*models.Comment, int64, error)
	UpdateContent(ctx context.Context, comment *models.Comment, content string) error
	DeleteCascade(ctx context.Context, comment *models.Comment) (int64, error)
	ToggleLike(ctx context.Context, commentID, userID uint) (models.LikeResult, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

// Create inserts the comment and bumps the post's comments_count in the same
// transaction. A missing post rolls the insert back.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", comment.PostID)
		}
		return tx.Omit(clause.Associations).Create(comment).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return wrapInternal(err)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	observability.CommentsWritten.WithLabelValues("create").Inc()
	r.log.LogCreate(ctx, map[string]any{"comment_id": comment.ID, "post_id": comment.PostID, "parent_id": comment.ParentID})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		First(&comment, id).Error
	if err != nil {
		return nil, mapFindError(err, "Comment", id)
	}
	return &comment, nil
}

// ListTopLevel pages through a post's top-level comments, newest first.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, page models.PageRequest, viewerID uint) ([]*models.Comment, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Comment{}).
			Where("comments.post_id = ? AND comments.parent_id IS NULL", postID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []*models.Comment
	err := r.applyCommentDetails(query(), viewerID).
		Preload("Author").
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

// RepliesFor loads every direct reply of the given comments, oldest first, grouped by parent.
func (r *commentRepository) RepliesFor(ctx context.Context, parentIDs []uint, viewerID uint) (map[uint][]*models.Comment, error) {
	grouped := make(map[uint][]*models.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return grouped, nil
	}

	var replies []*models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx).Model(&models.Comment{}), viewerID).
		Preload("Author").
		Where("comments.parent_id IN ?", parentIDs).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, reply := range replies {
		grouped[*reply.ParentID] = append(grouped[*reply.ParentID], reply)
	}
	return grouped, nil
}

// ListReplies pages through the direct replies of one comment, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, page models.PageRequest, viewerID uint) ([]*models.Comment, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Comment{}).Where("comments.parent_id = ?", parentID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var replies []*models.Comment
	err := r.applyCommentDetails(query(), viewerID).
		Preload("Author").
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&replies).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return replies, total, nil
}

// applyCommentDetails adds like count and liked-by-viewer subqueries.
func (r *commentRepository) applyCommentDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "comments.*, " +
		"(SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) AS likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) AS is_liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS is_liked")
}

// UpdateContent changes the comment text. The model's BeforeUpdate hook
// stamps is_edited and edited_at, so comment must hold the current content.
func (r *commentRepository) UpdateContent(ctx context.Context, comment *models.Comment, content string) error {
	err := r.db.WithContext(ctx).Model(comment).
		Omit(clause.Associations).
		Updates(map[string]any{"content": content}).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.log.LogUpdate(ctx, map[string]any{"comment_id": comment.ID})
	return nil
}

// DeleteCascade removes the comment and its direct replies, their likes, and
// decrements the post's comments_count by the number of removed comments,
// all in one transaction. It returns that number.
func (r *commentRepository) DeleteCascade(ctx context.Context, comment *models.Comment) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", comment.ID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		ids = append(ids, comment.ID)

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}

		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", comment.ID)
		}
		deleted = res.RowsAffected

		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count",
				gorm.Expr("CASE WHEN comments_count >= ? THEN comments_count - ? ELSE 0 END", deleted, deleted)).
			Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return 0, wrapInternal(err)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	observability.CommentsWritten.WithLabelValues("delete").Add(float64(deleted))
	r.log.LogDelete(ctx, map[string]any{"comment_id": comment.ID, "deleted": deleted})
	return deleted, nil
}

// ToggleLike flips the (user, comment) membership in comment_likes.
func (r *commentRepository) ToggleLike(ctx context.Context, commentID, userID uint) (models.LikeResult, error) {
	var result models.LikeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("Comment", commentID)
		}

		res := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.CommentLike{UserID: userID, CommentID: commentID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			result.IsLiked = true
		}

		return tx.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&result.LikesCount).Error
	})
	if err != nil {
		return models.LikeResult{}, wrapInternal(err)
	}
	observability.LikesToggled.WithLabelValues("comment", observability.LikeState(result.IsLiked)).Inc()
	return result, nil
}

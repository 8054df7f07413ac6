package repository

import (
	"context"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuggestionFilter narrows suggestion listings.
type SuggestionFilter struct {
	Status        string
	Category      string
	Priority      string
	Search        string
	SubmittedByID uint
	SortBy        string
	SortOrder     string
}

// SuggestionRepository defines persistence operations for suggestions.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *models.Suggestion) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Suggestion, error)
	List(ctx context.Context, filter SuggestionFilter, page models.PageRequest, viewerID uint) ([]*models.Suggestion, int64, error)
	Update(ctx context.Context, id uint, fields map[string]any, tags []string) error
	Delete(ctx context.Context, id uint) error
	Vote(ctx context.Context, suggestionID, userID uint, voteType string) (models.VoteResult, error)
	RemoveVote(ctx context.Context, suggestionID, userID uint) (models.VoteResult, error)
	AddComment(ctx context.Context, comment *models.SuggestionComment) error
	Stats(ctx context.Context) (*models.SuggestionStats, error)
}

type suggestionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSuggestionRepository returns a new SuggestionRepository implementation.
func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db, log: observability.NewRepoLogger("suggestions")}
}

func (r *suggestionRepository) Create(ctx context.Context, suggestion *models.Suggestion) error {
	if err := r.db.WithContext(ctx).Omit("SubmittedBy", "AssignedTo", "Comments").Create(suggestion).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.InvalidateSuggestionStats(ctx)
	r.log.LogCreate(ctx, map[string]any{"suggestion_id": suggestion.ID, "category": suggestion.Category})
	return nil
}

func (r *suggestionRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Suggestion, error) {
	var suggestion models.Suggestion
	err := r.applyVoteDetails(r.db.WithContext(ctx), viewerID).
		Preload("SubmittedBy").
		Preload("AssignedTo").
		Preload("TagRows").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Comments.User").
		First(&suggestion, id).Error
	if err != nil {
		return nil, mapFindError(err, "Suggestion", id)
	}
	return &suggestion, nil
}

func (r *suggestionRepository) List(ctx context.Context, filter SuggestionFilter, page models.PageRequest, viewerID uint) ([]*models.Suggestion, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Suggestion{})
		if filter.Status != "" {
			q = q.Where("suggestions.status = ?", filter.Status)
		}
		if filter.Category != "" {
			q = q.Where("suggestions.category = ?", filter.Category)
		}
		if filter.Priority != "" {
			q = q.Where("suggestions.priority = ?", filter.Priority)
		}
		if filter.SubmittedByID != 0 {
			q = q.Where("suggestions.submitted_by_id = ?", filter.SubmittedByID)
		}
		if filter.Search != "" {
			p := likePattern(filter.Search)
			q = q.Where("(LOWER(suggestions.title) LIKE ?"+likeEscape+" OR LOWER(suggestions.description) LIKE ?"+likeEscape+")", p, p)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	dir := orderDirection(filter.SortOrder)
	q := r.applyVoteDetails(query(), viewerID)
	switch filter.SortBy {
	case "votes":
		q = q.Order("vote_score " + dir)
	case "priority":
		q = q.Order("CASE suggestions.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4 ELSE 0 END " + dir)
	default:
		q = q.Order("suggestions.created_at " + dir)
	}

	var suggestions []*models.Suggestion
	err := q.Order("suggestions.id " + dir).
		Preload("SubmittedBy").
		Preload("AssignedTo").
		Preload("TagRows").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&suggestions).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return suggestions, total, nil
}

// applyVoteDetails selects vote tallies and the viewer's own vote.
func (r *suggestionRepository) applyVoteDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "suggestions.*, " +
		"(SELECT COUNT(*) FROM suggestion_votes v WHERE v.suggestion_id = suggestions.id AND v.type = 'upvote') AS upvotes, " +
		"(SELECT COUNT(*) FROM suggestion_votes v WHERE v.suggestion_id = suggestions.id AND v.type = 'downvote') AS downvotes, " +
		"(SELECT COALESCE(SUM(CASE WHEN v.type = 'upvote' THEN 1 ELSE -1 END), 0) FROM suggestion_votes v WHERE v.suggestion_id = suggestions.id) AS vote_score"

	if viewerID != 0 {
		return db.Select(selectQuery+", COALESCE((SELECT v.type FROM suggestion_votes v WHERE v.suggestion_id = suggestions.id AND v.user_id = ?), '') AS user_vote", viewerID)
	}
	return db.Select(selectQuery + ", '' AS user_vote")
}

// Update applies fields; a non-nil tags slice replaces the tag set.
func (r *suggestionRepository) Update(ctx context.Context, id uint, fields map[string]any, tags []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// attachments go through a struct update so the json serializer applies
		if attachments, ok := fields["attachments"].([]models.Attachment); ok {
			delete(fields, "attachments")
			res := tx.Model(&models.Suggestion{}).Where("id = ?", id).
				Select("attachments").Updates(&models.Suggestion{Attachments: attachments})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.NewNotFoundError("Suggestion", id)
			}
		}
		if len(fields) > 0 {
			res := tx.Model(&models.Suggestion{}).Where("id = ?", id).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.NewNotFoundError("Suggestion", id)
			}
		}
		if tags != nil {
			if err := tx.Where("suggestion_id = ?", id).Delete(&models.SuggestionTag{}).Error; err != nil {
				return err
			}
			for _, name := range tags {
				if err := tx.Create(&models.SuggestionTag{SuggestionID: id, Name: name}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return wrapInternal(err)
	}
	cache.InvalidateSuggestionStats(ctx)
	r.log.LogUpdate(ctx, map[string]any{"suggestion_id": id})
	return nil
}

func (r *suggestionRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.SuggestionVote{}, &models.SuggestionComment{}, &models.SuggestionTag{}} {
			if err := tx.Where("suggestion_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Suggestion{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Suggestion", id)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return wrapInternal(err)
	}
	cache.InvalidateSuggestionStats(ctx)
	r.log.LogDelete(ctx, map[string]any{"suggestion_id": id})
	return nil
}

// Vote records the user's vote; the unique (suggestion, user) index makes a
// second vote replace the first instead of adding to it.
func (r *suggestionRepository) Vote(ctx context.Context, suggestionID, userID uint, voteType string) (models.VoteResult, error) {
	var result models.VoteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureExists(tx, suggestionID); err != nil {
			return err
		}
		vote := models.SuggestionVote{SuggestionID: suggestionID, UserID: userID, Type: voteType}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "suggestion_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"type": voteType, "updated_at": time.Now().UTC()}),
		}).Create(&vote).Error
		if err != nil {
			return err
		}
		result, err = r.tally(tx, suggestionID, userID)
		return err
	})
	if err != nil {
		return models.VoteResult{}, wrapInternal(err)
	}
	cache.InvalidateSuggestionStats(ctx)
	observability.SuggestionVotes.WithLabelValues(voteType).Inc()
	return result, nil
}

func (r *suggestionRepository) RemoveVote(ctx context.Context, suggestionID, userID uint) (models.VoteResult, error) {
	var result models.VoteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureExists(tx, suggestionID); err != nil {
			return err
		}
		if err := tx.Where("suggestion_id = ? AND user_id = ?", suggestionID, userID).
			Delete(&models.SuggestionVote{}).Error; err != nil {
			return err
		}
		var err error
		result, err = r.tally(tx, suggestionID, userID)
		return err
	})
	if err != nil {
		return models.VoteResult{}, wrapInternal(err)
	}
	cache.InvalidateSuggestionStats(ctx)
	return result, nil
}

func (r *suggestionRepository) ensureExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Suggestion{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFoundError("Suggestion", id)
	}
	return nil
}

func (r *suggestionRepository) tally(tx *gorm.DB, suggestionID, userID uint) (models.VoteResult, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	if err := tx.Model(&models.SuggestionVote{}).
		Select("type, COUNT(*) AS count").
		Where("suggestion_id = ?", suggestionID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return models.VoteResult{}, err
	}

	var result models.VoteResult
	for _, row := range rows {
		switch row.Type {
		case models.VoteUp:
			result.Upvotes = row.Count
		case models.VoteDown:
			result.Downvotes = row.Count
		}
	}
	result.VoteCount = result.Upvotes - result.Downvotes
	result.TotalVotes = result.Upvotes + result.Downvotes

	var own []string
	if err := tx.Model(&models.SuggestionVote{}).
		Where("suggestion_id = ? AND user_id = ?", suggestionID, userID).
		Pluck("type", &own).Error; err != nil {
		return models.VoteResult{}, err
	}
	if len(own) > 0 {
		result.UserVote = own[0]
	}
	return result, nil
}

func (r *suggestionRepository) AddComment(ctx context.Context, comment *models.SuggestionComment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureExists(tx, comment.SuggestionID); err != nil {
			return err
		}
		if err := tx.Omit("User").Create(comment).Error; err != nil {
			return err
		}
		return tx.First(&comment.User, comment.UserID).Error
	})
	if err != nil {
		return wrapInternal(err)
	}
	return nil
}

// Stats aggregates suggestion counts; results are cached until the next write.
func (r *suggestionRepository) Stats(ctx context.Context) (*models.SuggestionStats, error) {
	var stats models.SuggestionStats
	err := cache.Aside(ctx, cache.SuggestionStatsKey, &stats, cache.SuggestionStatsTTL, func() error {
		db := r.db.WithContext(ctx)
		if err := db.Model(&models.Suggestion{}).Count(&stats.Total).Error; err != nil {
			return err
		}
		if err := db.Model(&models.SuggestionVote{}).
			Joins("JOIN suggestions ON suggestions.id = suggestion_votes.suggestion_id AND suggestions.deleted_at IS NULL").
			Count(&stats.TotalVotes).Error; err != nil {
			return err
		}

		var err error
		if stats.ByStatus, err = r.countBy(db, "status"); err != nil {
			return err
		}
		if stats.ByCategory, err = r.countBy(db, "category"); err != nil {
			return err
		}
		stats.ByPriority, err = r.countBy(db, "priority")
		return err
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return &stats, nil
}

func (r *suggestionRepository) countBy(db *gorm.DB, column string) (map[string]int64, error) {
	var rows []struct {
		Bucket string
		Count  int64
	}
	if err := db.Model(&models.Suggestion{}).
		Select(column + " AS bucket, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Bucket] = row.Count
	}
	return out, nil
}

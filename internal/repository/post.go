package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows post listings. An empty Status matches every status.
type PostFilter struct {
	Status    string
	Category  string
	Search    string
	Tags      []string
	AuthorID  uint
	SortBy    string
	SortOrder string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter, page models.PageRequest, viewerID uint) ([]*models.Post, int64, error)
	Update(ctx context.Context, id uint, fields map[string]any, tags []string) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID, userID uint) (models.LikeResult, error)
	IncrementViews(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "author_id": post.AuthorID, "status": post.Status})
	return nil
}

// GetByID loads a post with author, tags and like details. Anonymous reads
// are served through the cache since they carry no per-viewer state.
func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	load := func() error {
		err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
			Preload("Author").
			Preload("TagRows").
			First(&post, id).Error
		if err != nil {
			return mapFindError(err, "Post", id)
		}
		return nil
	}

	var err error
	if viewerID == 0 {
		err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, page models.PageRequest, viewerID uint) ([]*models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()
	query := func() *gorm.DB {
		return r.applyFilter(r.db.WithContext(ctx).Model(&models.Post{}), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := r.applySort(r.applyPostDetails(query(), viewerID), filter).
		Preload("Author").
		Preload("TagRows").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) applyFilter(db *gorm.DB, f PostFilter) *gorm.DB {
	if f.Status != "" {
		db = db.Where("posts.status = ?", f.Status)
	}
	if f.Category != "" {
		db = db.Where("posts.category = ?", f.Category)
	}
	if f.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		db = db.Where("(LOWER(posts.title) LIKE ?"+likeEscape+" OR LOWER(posts.content) LIKE ?"+likeEscape+")", p, p)
	}
	if tags := models.NormalizeTags(f.Tags); len(tags) > 0 {
		db = db.Where("posts.id IN (SELECT post_id FROM post_tags WHERE name IN ?)", tags)
	}
	return db
}

// applySort appends the ORDER BY clause. likes_count is a SELECT alias from
// applyPostDetails; both PostgreSQL and SQLite accept bare aliases in ORDER BY.
func (r *postRepository) applySort(db *gorm.DB, f PostFilter) *gorm.DB {
	dir := orderDirection(f.SortOrder)
	column := "posts.created_at"
	switch f.SortBy {
	case "views":
		column = "posts.views"
	case "likes":
		column = "likes_count"
	case "comments":
		column = "posts.comments_count"
	case "title":
		column = "posts.title"
	}
	return db.Order(column + " " + dir).Order("posts.id " + dir)
}

// applyPostDetails adds subqueries to fetch like counts and liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS is_liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS is_liked")
}

// Update applies fields to the post; a non-nil tags slice replaces the tag set.
func (r *postRepository) Update(ctx context.Context, id uint, fields map[string]any, tags []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(&models.Post{}).Where("id = ?", id).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.NewNotFoundError("Post", id)
			}
		}
		if tags != nil {
			if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
				return err
			}
			if len(tags) > 0 {
				rows := models.TagRowsFor(tags)
				for i := range rows {
					rows[i].PostID = id
				}
				if err := tx.Create(&rows).Error; err != nil {
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
	cache.InvalidatePost(ctx, id)
	r.log.LogUpdate(ctx, map[string]any{"post_id": id})
	return nil
}

// Delete soft-deletes the post with its comments and removes its likes and tags,
// all in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return wrapInternal(err)
	}
	cache.InvalidatePost(ctx, id)
	r.log.LogDelete(ctx, map[string]any{"post_id": id})
	return nil
}

// ToggleLike flips the (user, post) membership in post_likes inside one
// transaction and returns the resulting state.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (models.LikeResult, error) {
	var result models.LikeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("Post", postID)
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.PostLike{UserID: userID, PostID: postID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			result.IsLiked = true
		}

		return tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&result.LikesCount).Error
	})
	if err != nil {
		return models.LikeResult{}, wrapInternal(err)
	}
	cache.InvalidatePost(ctx, postID)
	observability.LikesToggled.WithLabelValues("post", observability.LikeState(result.IsLiked)).Inc()
	return result, nil
}

// IncrementViews bumps the view counter with a single atomic UPDATE.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

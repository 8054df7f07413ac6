package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/storage"
)

const (
	maxPostTitleLen   = 200
	maxPostContentLen = 50000
	maxTagLen         = 50
)

// StatusAll lists posts of every status.
const StatusAll = "all"

// ErrImagesUnavailable is returned when no image host is configured.
var ErrImagesUnavailable = errors.New("image uploads are not configured")

type PostService struct {
	postRepo repository.PostRepository
	images   storage.ImageUploader
}

type CreatePostInput struct {
	AuthorID uint
	Title    string
	Content  string
	Category string
	Tags     []string
	Status   string
	ImageURL string
	Image    *storage.Upload
}

type ListPostsInput struct {
	Filter repository.PostFilter
	Page   models.PageRequest
	Viewer *models.User
}

// UpdatePostInput carries optional changes; nil fields are left untouched
// and a nil Tags slice keeps the current tags.
type UpdatePostInput struct {
	ActorID  uint
	PostID   uint
	Title    *string
	Content  *string
	Category *string
	Status   *string
	ImageURL *string
	Tags     []string
	Image    *storage.Upload
}

// NewPostService wires the post flows. images may be nil when no image
// host is configured; uploads then fail with ErrImagesUnavailable.
func NewPostService(postRepo repository.PostRepository, images storage.ImageUploader) *PostService {
	return &PostService{postRepo: postRepo, images: images}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := validatePostText(title, content); err != nil {
		return nil, err
	}

	category := in.Category
	if category == "" {
		category = "other"
	}
	status := in.Status
	if status == "" {
		status = models.PostStatusPublished
	}
	if err := validatePostEnums(category, status); err != nil {
		return nil, err
	}
	tags, err := normalizePostTags(in.Tags)
	if err != nil {
		return nil, err
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if in.Image != nil {
		if imageURL, err = s.UploadImage(ctx, *in.Image); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		ImageURL: imageURL,
		AuthorID: in.AuthorID,
		Category: category,
		Status:   status,
		Tags:     tags,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "posts", "create", map[string]any{"post_id": post.ID})
	return s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
}

// ListPosts lists posts visible to the viewer. Published posts are public;
// any other status is narrowed to the viewer's own posts.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, models.Pagination, error) {
	filter := in.Filter
	if filter.Status == "" {
		filter.Status = models.PostStatusPublished
	}
	if filter.Status != models.PostStatusPublished {
		if in.Viewer == nil {
			return nil, models.Pagination{}, models.NewUnauthorizedError("Authentication required to list unpublished posts")
		}
		if filter.Status != StatusAll && !slices.Contains(models.PostStatuses, filter.Status) {
			return nil, models.Pagination{}, models.NewValidationError("Invalid status")
		}
		if filter.AuthorID != 0 && filter.AuthorID != in.Viewer.ID {
			return nil, models.Pagination{}, models.NewForbiddenError("You can only list your own unpublished posts")
		}
		filter.AuthorID = in.Viewer.ID
		if filter.Status == StatusAll {
			filter.Status = ""
		}
	}
	return s.list(ctx, filter, in.Page, in.Viewer)
}

// MyPosts lists the viewer's own posts of any status unless one is given.
func (s *PostService) MyPosts(ctx context.Context, viewer *models.User, filter repository.PostFilter, page models.PageRequest) ([]*models.Post, models.Pagination, error) {
	if filter.Status == StatusAll {
		filter.Status = ""
	}
	if filter.Status != "" && !slices.Contains(models.PostStatuses, filter.Status) {
		return nil, models.Pagination{}, models.NewValidationError("Invalid status")
	}
	filter.AuthorID = viewer.ID
	return s.list(ctx, filter, page, viewer)
}

func (s *PostService) list(ctx context.Context, filter repository.PostFilter, page models.PageRequest, viewer *models.User) ([]*models.Post, models.Pagination, error) {
	if filter.Category != "" && !slices.Contains(models.PostCategories, filter.Category) {
		return nil, models.Pagination{}, models.NewValidationError("Invalid category")
	}
	posts, total, err := s.postRepo.List(ctx, filter, page, viewerID(viewer))
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return posts, models.NewPagination(page.Page, page.Limit, total), nil
}

// GetPost returns a post the viewer may see. Unpublished posts are hidden
// from everyone but their author. A resolved viewer counts as one view.
func (s *PostService) GetPost(ctx context.Context, id uint, viewer *models.User) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	if !canSee(post, viewer) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if viewer != nil {
		if err := s.postRepo.IncrementViews(ctx, id); err != nil {
			return nil, err
		}
		post.Views++
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	title, content := post.Title, post.Content
	fields := map[string]any{}
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		fields["title"] = title
	}
	if in.Content != nil {
		content = strings.TrimSpace(*in.Content)
		fields["content"] = content
	}
	if err := validatePostText(title, content); err != nil {
		return nil, err
	}

	category, status := post.Category, post.Status
	if in.Category != nil {
		category = *in.Category
		fields["category"] = category
	}
	if in.Status != nil {
		status = *in.Status
		fields["status"] = status
	}
	if err := validatePostEnums(category, status); err != nil {
		return nil, err
	}

	var tags []string
	if in.Tags != nil {
		if tags, err = normalizePostTags(in.Tags); err != nil {
			return nil, err
		}
	}

	if in.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.Image != nil {
		url, err := s.UploadImage(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		fields["image_url"] = url
	}

	if err := s.postRepo.Update(ctx, post.ID, fields, tags); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.ActorID)
}

func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, actorID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

func (s *PostService) ToggleLike(ctx context.Context, postID uint, viewer *models.User) (models.LikeResult, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewer.ID)
	if err != nil {
		return models.LikeResult{}, err
	}
	if !canSee(post, viewer) {
		return models.LikeResult{}, models.NewNotFoundError("Post", postID)
	}
	return s.postRepo.ToggleLike(ctx, postID, viewer.ID)
}

// UploadImage stores an image on the image host and returns its URL.
func (s *PostService) UploadImage(ctx context.Context, in storage.Upload) (string, error) {
	if s.images == nil {
		return "", models.NewInternalError(ErrImagesUnavailable)
	}
	url, err := s.images.Upload(ctx, in)
	if err != nil {
		if _, ok := models.AsAppError(err); ok {
			return "", err
		}
		return "", models.NewInternalError(err)
	}
	return url, nil
}

func canSee(post *models.Post, viewer *models.User) bool {
	return post.IsPublished() || (viewer != nil && viewer.ID == post.AuthorID)
}

func viewerID(viewer *models.User) uint {
	if viewer == nil {
		return 0
	}
	return viewer.ID
}

func validatePostText(title, content string) error {
	fields := map[string]string{}
	if n := utf8.RuneCountInString(title); n == 0 {
		fields["title"] = "title is required"
	} else if n > maxPostTitleLen {
		fields["title"] = fmt.Sprintf("title must not exceed %d characters", maxPostTitleLen)
	}
	if n := utf8.RuneCountInString(content); n == 0 {
		fields["content"] = "content is required"
	} else if n > maxPostContentLen {
		fields["content"] = fmt.Sprintf("content must not exceed %d characters", maxPostContentLen)
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func validatePostEnums(category, status string) error {
	if !slices.Contains(models.PostCategories, category) {
		return models.NewFieldValidationError(map[string]string{"category": "category must be one of: " + strings.Join(models.PostCategories, ", ")})
	}
	if !slices.Contains(models.PostStatuses, status) {
		return models.NewFieldValidationError(map[string]string{"status": "status must be one of: " + strings.Join(models.PostStatuses, ", ")})
	}
	return nil
}

func normalizePostTags(raw []string) ([]string, error) {
	tags := models.NormalizeTags(raw)
	if len(tags) > models.MaxPostTags {
		return nil, models.NewFieldValidationError(map[string]string{"tags": fmt.Sprintf("at most %d tags are allowed", models.MaxPostTags)})
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > maxTagLen {
			return nil, models.NewFieldValidationError(map[string]string{"tags": fmt.Sprintf("tags must not exceed %d characters", maxTagLen)})
		}
	}
	return tags, nil
}

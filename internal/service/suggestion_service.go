package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const (
	maxSuggestionTags        = 10
	maxSuggestionAttachments = 5
	maxSuggestionMessageLen  = 1000
)

// statusTransitions is the admin triage workflow: the statuses each status
// may move to. Setting the current status again is always allowed.
var statusTransitions = map[string][]string{
	models.SuggestionPending:     {models.SuggestionInReview, models.SuggestionApproved, models.SuggestionRejected},
	models.SuggestionInReview:    {models.SuggestionPending, models.SuggestionApproved, models.SuggestionRejected, models.SuggestionImplemented},
	models.SuggestionApproved:    {models.SuggestionInReview, models.SuggestionImplemented},
	models.SuggestionRejected:    {models.SuggestionInReview},
	models.SuggestionImplemented: {},
}

// CanTransition reports whether a suggestion may move from one status to another.
func CanTransition(from, to string) bool {
	return from == to || slices.Contains(statusTransitions[from], to)
}

type SuggestionService struct {
	suggestionRepo repository.SuggestionRepository
	userRepo       repository.UserRepository
}

type CreateSuggestionInput struct {
	SubmittedByID uint                `json:"-"`
	Title         string              `json:"title" validate:"min=5,max=200"`
	Description   string              `json:"description" validate:"min=10,max=5000"`
	Category      string              `json:"category" validate:"required,oneof=feature bug improvement ui-ux performance content other"`
	Priority      string              `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Tags          []string            `json:"tags" validate:"max=10,dive,max=50"`
	Attachments   []models.Attachment `json:"attachments" validate:"max=5,dive"`
}

// UpdateSuggestionInput carries owner edits; nil fields are left untouched.
type UpdateSuggestionInput struct {
	ActorID      uint
	SuggestionID uint
	Title        *string
	Description  *string
	Category     *string
	Priority     *string
	Tags         []string
	Attachments  *[]models.Attachment
}

// AdminUpdateInput carries triage changes. A zero AssignedToID clears the assignee.
type AdminUpdateInput struct {
	Actor        *models.User
	SuggestionID uint
	Status       *string
	Priority     *string
	AssignedToID *uint
	AdminNotes   *string
}

func NewSuggestionService(suggestionRepo repository.SuggestionRepository, userRepo repository.UserRepository) *SuggestionService {
	return &SuggestionService{suggestionRepo: suggestionRepo, userRepo: userRepo}
}

func (s *SuggestionService) Create(ctx context.Context, in CreateSuggestionInput) (*models.Suggestion, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = models.NormalizeTags(in.Tags)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}

	suggestion := &models.Suggestion{
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Priority:      in.Priority,
		Status:        models.SuggestionPending,
		SubmittedByID: in.SubmittedByID,
		Tags:          in.Tags,
		Attachments:   in.Attachments,
	}
	if suggestion.Attachments == nil {
		suggestion.Attachments = []models.Attachment{}
	}
	if err := s.suggestionRepo.Create(ctx, suggestion); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "suggestions", "create", map[string]any{"suggestion_id": suggestion.ID})
	return s.suggestionRepo.GetByID(ctx, suggestion.ID, in.SubmittedByID)
}

func (s *SuggestionService) List(ctx context.Context, filter repository.SuggestionFilter, page models.PageRequest, viewerID uint) ([]*models.Suggestion, models.Pagination, error) {
	if err := validateSuggestionFilter(filter); err != nil {
		return nil, models.Pagination{}, err
	}
	items, total, err := s.suggestionRepo.List(ctx, filter, page, viewerID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(page.Page, page.Limit, total), nil
}

func (s *SuggestionService) MySuggestions(ctx context.Context, actorID uint, page models.PageRequest) ([]*models.Suggestion, models.Pagination, error) {
	return s.List(ctx, repository.SuggestionFilter{SubmittedByID: actorID}, page, actorID)
}

func (s *SuggestionService) Get(ctx context.Context, id, viewerID uint) (*models.Suggestion, error) {
	return s.suggestionRepo.GetByID(ctx, id, viewerID)
}

func (s *SuggestionService) Update(ctx context.Context, in UpdateSuggestionInput) (*models.Suggestion, error) {
	current, err := s.suggestionRepo.GetByID(ctx, in.SuggestionID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if current.SubmittedByID != in.ActorID {
		return nil, models.NewForbiddenError("You can only update your own suggestions")
	}

	candidate := CreateSuggestionInput{
		Title:       current.Title,
		Description: current.Description,
		Category:    current.Category,
		Priority:    current.Priority,
		Tags:        current.Tags,
		Attachments: current.Attachments,
	}
	fields := map[string]any{}
	if in.Title != nil {
		candidate.Title = strings.TrimSpace(*in.Title)
		fields["title"] = candidate.Title
	}
	if in.Description != nil {
		candidate.Description = strings.TrimSpace(*in.Description)
		fields["description"] = candidate.Description
	}
	if in.Category != nil {
		candidate.Category = *in.Category
		fields["category"] = candidate.Category
	}
	if in.Priority != nil && *in.Priority != current.Priority {
		if current.Status != models.SuggestionPending {
			return nil, models.NewValidationError("Priority can only be changed while the suggestion is pending")
		}
		candidate.Priority = *in.Priority
		fields["priority"] = candidate.Priority
	}
	var tags []string
	if in.Tags != nil {
		tags = models.NormalizeTags(in.Tags)
		candidate.Tags = tags
	}
	if in.Attachments != nil {
		candidate.Attachments = *in.Attachments
		fields["attachments"] = candidate.Attachments
	}
	if err := validation.Struct(candidate); err != nil {
		return nil, err
	}

	if err := s.suggestionRepo.Update(ctx, in.SuggestionID, fields, tags); err != nil {
		return nil, err
	}
	return s.suggestionRepo.GetByID(ctx, in.SuggestionID, in.ActorID)
}

func (s *SuggestionService) Delete(ctx context.Context, actor *models.User, id uint) error {
	current, err := s.suggestionRepo.GetByID(ctx, id, 0)
	if err != nil {
		return err
	}
	if current.SubmittedByID != actor.ID && !actor.IsAdmin() {
		return models.NewForbiddenError("You can only delete your own suggestions")
	}
	return s.suggestionRepo.Delete(ctx, id)
}

func (s *SuggestionService) Vote(ctx context.Context, id, userID uint, voteType string) (models.VoteResult, error) {
	if voteType != models.VoteUp && voteType != models.VoteDown {
		return models.VoteResult{}, models.NewValidationError("voteType must be upvote or downvote")
	}
	return s.suggestionRepo.Vote(ctx, id, userID, voteType)
}

func (s *SuggestionService) RemoveVote(ctx context.Context, id, userID uint) (models.VoteResult, error) {
	return s.suggestionRepo.RemoveVote(ctx, id, userID)
}

func (s *SuggestionService) AddComment(ctx context.Context, id, userID uint, message string) (*models.SuggestionComment, error) {
	message = strings.TrimSpace(message)
	n := utf8.RuneCountInString(message)
	if n == 0 {
		return nil, models.NewValidationError("Message is required")
	}
	if n > maxSuggestionMessageLen {
		return nil, models.NewValidationError(fmt.Sprintf("Message too long (max %d characters)", maxSuggestionMessageLen))
	}

	comment := &models.SuggestionComment{SuggestionID: id, UserID: userID, Message: message}
	if err := s.suggestionRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *SuggestionService) Stats(ctx context.Context) (*models.SuggestionStats, error) {
	return s.suggestionRepo.Stats(ctx)
}

// AdminUpdate applies triage changes. Status changes must follow the workflow.
func (s *SuggestionService) AdminUpdate(ctx context.Context, in AdminUpdateInput) (*models.Suggestion, error) {
	if !in.Actor.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	current, err := s.suggestionRepo.GetByID(ctx, in.SuggestionID, in.Actor.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Status != nil {
		if !slices.Contains(models.SuggestionStatuses, *in.Status) {
			return nil, models.NewValidationError("Invalid status")
		}
		if !CanTransition(current.Status, *in.Status) {
			return nil, models.NewValidationError(fmt.Sprintf("Cannot move suggestion from %s to %s", current.Status, *in.Status))
		}
		fields["status"] = *in.Status
	}
	if in.Priority != nil {
		if !slices.Contains(models.SuggestionPriorities, *in.Priority) {
			return nil, models.NewValidationError("Invalid priority")
		}
		fields["priority"] = *in.Priority
	}
	if in.AssignedToID != nil {
		if *in.AssignedToID == 0 {
			fields["assigned_to_id"] = nil
		} else {
			if _, err := s.userRepo.GetByID(ctx, *in.AssignedToID); err != nil {
				if models.IsNotFound(err) {
					return nil, models.NewFieldValidationError(map[string]string{"assignedTo": "assigned user does not exist"})
				}
				return nil, err
			}
			fields["assigned_to_id"] = *in.AssignedToID
		}
	}
	if in.AdminNotes != nil {
		const maxNotesLen = 2000
		notes := strings.TrimSpace(*in.AdminNotes)
		if utf8.RuneCountInString(notes) > maxNotesLen {
			return nil, models.NewValidationError("Admin notes too long (max 2000 characters)")
		}
		fields["admin_notes"] = notes
	}

	if err := s.suggestionRepo.Update(ctx, in.SuggestionID, fields, nil); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "suggestions", "admin_update", map[string]any{"suggestion_id": in.SuggestionID, "admin_id": in.Actor.ID})
	return s.suggestionRepo.GetByID(ctx, in.SuggestionID, in.Actor.ID)
}

func validateSuggestionFilter(f repository.SuggestionFilter) error {
	if f.Status != "" && !slices.Contains(models.SuggestionStatuses, f.Status) {
		return models.NewValidationError("Invalid status")
	}
	if f.Category != "" && !slices.Contains(models.SuggestionCategories, f.Category) {
		return models.NewValidationError("Invalid category")
	}
	if f.Priority != "" && !slices.Contains(models.SuggestionPriorities, f.Priority) {
		return models.NewValidationError("Invalid priority")
	}
	switch f.SortBy {
	case "", "createdAt", "votes", "priority":
	default:
		return models.NewValidationError("Invalid sortBy")
	}
	return nil
}

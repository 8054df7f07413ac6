package server

import (
	"strings"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetSuggestions handles GET /api/suggestions
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	filter := repository.SuggestionFilter{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Priority:  c.Query("priority"),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sortBy", "createdAt"),
		SortOrder: c.Query("sortOrder", "desc"),
	}
	if filter.SortOrder != "asc" && filter.SortOrder != "desc" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid sortOrder"))
	}

	items, pagination, err := s.suggestionService.List(c.UserContext(), filter, parsePagination(c), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse("suggestions", items, pagination))
}

// GetMySuggestions handles GET /api/suggestions/user/my-suggestions
func (s *Server) GetMySuggestions(c *fiber.Ctx) error {
	items, pagination, err := s.suggestionService.MySuggestions(c.UserContext(), viewerID(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse("suggestions", items, pagination))
}

// GetSuggestionStats handles GET /api/suggestions/stats
func (s *Server) GetSuggestionStats(c *fiber.Ctx) error {
	stats, err := s.suggestionService.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetSuggestion handles GET /api/suggestions/:id
func (s *Server) GetSuggestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	suggestion, err := s.suggestionService.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"suggestion": suggestion})
}

// CreateSuggestion handles POST /api/suggestions
func (s *Server) CreateSuggestion(c *fiber.Ctx) error {
	var in service.CreateSuggestionInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	in.SubmittedByID = viewerID(c)

	suggestion, err := s.suggestionService.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"suggestion": suggestion})
}

// UpdateSuggestion handles PUT /api/suggestions/:id
func (s *Server) UpdateSuggestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title       *string              `json:"title"`
		Description *string              `json:"description"`
		Category    *string              `json:"category"`
		Priority    *string              `json:"priority"`
		Tags        []string             `json:"tags"`
		Attachments *[]models.Attachment `json:"attachments"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	suggestion, err := s.suggestionService.Update(c.UserContext(), service.UpdateSuggestionInput{
		ActorID:      viewerID(c),
		SuggestionID: id,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		Tags:         req.Tags,
		Attachments:  req.Attachments,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"suggestion": suggestion})
}

// DeleteSuggestion handles DELETE /api/suggestions/:id
func (s *Server) DeleteSuggestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.suggestionService.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Suggestion deleted successfully"})
}

// VoteSuggestion handles POST /api/suggestions/:id/vote
func (s *Server) VoteSuggestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		VoteType string `json:"voteType"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	result, err := s.suggestionService.Vote(c.UserContext(), id, viewerID(c), req.VoteType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// RemoveSuggestionVote handles DELETE /api/suggestions/:id/vote
func (s *Server) RemoveSuggestionVote(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.suggestionService.RemoveVote(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// CommentOnSuggestion handles POST /api/suggestions/:id/comments
func (s *Server) CommentOnSuggestion(c *fiber.Ctx) error {
	if !s.flags.Enabled(featureflags.SuggestionComments, viewerID(c)) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Suggestion comments are disabled"))
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	comment, err := s.suggestionService.AddComment(c.UserContext(), id, viewerID(c), req.Message)
	if err != nil {
		return respondError(c, err)
	}
	comment.User = *currentUser(c)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// AdminUpdateSuggestion handles PATCH /api/suggestions/:id/admin
func (s *Server) AdminUpdateSuggestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status     *string `json:"status"`
		Priority   *string `json:"priority"`
		AssignedTo *uint   `json:"assignedTo"`
		AdminNotes *string `json:"adminNotes"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	suggestion, err := s.suggestionService.AdminUpdate(c.UserContext(), service.AdminUpdateInput{
		Actor:        currentUser(c),
		SuggestionID: id,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedToID: req.AssignedTo,
		AdminNotes:   req.AdminNotes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"suggestion": suggestion})
}

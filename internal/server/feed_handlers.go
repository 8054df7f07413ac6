package server

import (
	"inkwell/internal/featureflags"
	"inkwell/internal/feed"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed/:preset
func (s *Server) GetFeed(c *fiber.Ctx) error {
	preset, ok := feed.Lookup(c.Params("preset"))
	if !ok || !s.flags.Enabled(featureflags.Feed, viewerID(c)) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Feed", c.Params("preset")))
	}

	page := parsePagination(c)
	page.Page = 1
	viewer := currentUser(c)

	var posts []*models.Post
	var err error
	if preset.Own {
		if viewer == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Access token required"))
		}
		posts, _, err = s.postService.MyPosts(c.UserContext(), viewer, preset.Filter, page)
	} else {
		posts, _, err = s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
			Filter: preset.Filter,
			Page:   page,
			Viewer: viewer,
		})
	}
	if err != nil {
		return respondError(c, err)
	}

	articles := feed.Filter(feed.ToArticles(posts), c.Query("search"))
	return c.JSON(fiber.Map{
		"preset":   preset.Name,
		"articles": articles,
	})
}

// GetFeatures handles GET /api/features
func (s *Server) GetFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"features": s.flags.Snapshot(viewerID(c))})
}

package server

import (
	"mime/multipart"
	"strconv"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the body of create and update. Pointer fields distinguish
// "not sent" from "sent empty" for partial updates.
type postRequest struct {
	Title    *string  `json:"title" form:"title"`
	Content  *string  `json:"content" form:"content"`
	Category *string  `json:"category" form:"category"`
	Status   *string  `json:"status" form:"status"`
	ImageURL *string  `json:"imageUrl" form:"imageUrl"`
	Tags     []string `json:"tags" form:"tags"`
}

// parsePostRequest reads a JSON or multipart body. Multipart tags may be
// sent as repeated fields or one comma-separated value.
func parsePostRequest(c *fiber.Ctx) (*postRequest, *storage.Upload, error) {
	var req postRequest
	if !isMultipart(c) {
		if err := bindJSON(c, &req); err != nil {
			return nil, nil, err
		}
		return &req, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid multipart form"))
		return nil, nil, errResponseWritten
	}
	value := func(key string) *string {
		if v, ok := form.Value[key]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}
	req.Title = value("title")
	req.Content = value("content")
	req.Category = value("category")
	req.Status = value("status")
	req.ImageURL = value("imageUrl")
	if raw, ok := form.Value["tags"]; ok {
		req.Tags = []string{}
		for _, v := range raw {
			req.Tags = append(req.Tags, splitList(v)...)
		}
	}

	upload, err := imageUpload(c, form)
	if err != nil {
		return nil, nil, err
	}
	return &req, upload, nil
}

// imageUpload returns the "image" file of a multipart form, or nil when none was sent.
func imageUpload(c *fiber.Ctx, form *multipart.Form) (*storage.Upload, error) {
	files := form.File["image"]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid image file"))
		return nil, errResponseWritten
	}
	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, nil
}

func closeUpload(u *storage.Upload) {
	if u == nil {
		return
	}
	if closer, ok := u.Body.(multipart.File); ok {
		_ = closer.Close()
	}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// postFilter reads the shared listing query parameters.
func postFilter(c *fiber.Ctx) (repository.PostFilter, error) {
	filter := repository.PostFilter{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Search:    strings.TrimSpace(c.Query("search")),
		Tags:      splitList(c.Query("tags")),
		SortBy:    c.Query("sortBy", "createdAt"),
		SortOrder: c.Query("sortOrder", "desc"),
	}
	switch filter.SortBy {
	case "createdAt", "views", "likes", "comments", "title":
	default:
		return filter, models.NewValidationError("Invalid sortBy")
	}
	if filter.SortOrder != "asc" && filter.SortOrder != "desc" {
		return filter, models.NewValidationError("Invalid sortOrder")
	}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return filter, models.NewValidationError("Invalid author ID")
		}
		filter.AuthorID = uint(id)
	}
	return filter, nil
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	filter, err := postFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	posts, pagination, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Filter: filter,
		Page:   parsePagination(c),
		Viewer: currentUser(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse("posts", posts, pagination))
}

// GetMyPosts handles GET /api/posts/my-posts
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	filter, err := postFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	posts, pagination, err := s.postService.MyPosts(c.UserContext(), currentUser(c), filter, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse("posts", posts, pagination))
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, upload, err := parsePostRequest(c)
	if err != nil {
		return nil
	}
	defer closeUpload(upload)

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: viewerID(c),
		Title:    deref(req.Title),
		Content:  deref(req.Content),
		Category: deref(req.Category),
		Status:   deref(req.Status),
		ImageURL: deref(req.ImageURL),
		Tags:     req.Tags,
		Image:    upload,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, upload, err := parsePostRequest(c)
	if err != nil {
		return nil
	}
	defer closeUpload(upload)

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		ActorID:  viewerID(c),
		PostID:   id,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Status:   req.Status,
		ImageURL: req.ImageURL,
		Tags:     req.Tags,
		Image:    upload,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), viewerID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.postService.ToggleLike(c.UserContext(), id, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// UploadImage handles POST /api/posts/upload-image
func (s *Server) UploadImage(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid multipart form"))
	}
	upload, err := imageUpload(c, form)
	if err != nil {
		return nil
	}
	if upload == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	defer closeUpload(upload)

	url, err := s.postService.UploadImage(c.UserContext(), *upload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

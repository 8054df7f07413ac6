// Package storage uploads user images to the external image host.
package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"inkwell/internal/models"
)

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageUploader stores an image and returns its public HTTPS URL.
type ImageUploader interface {
	Upload(ctx context.Context, in Upload) (string, error)
}

// Validate rejects empty, oversized and non-image uploads. It sniffs the
// leading bytes so a spoofed Content-Type header is not trusted, and returns
// a reader that still yields the full body.
func Validate(in Upload, maxBytes int64) (io.Reader, error) {
	if in.Body == nil || in.Size == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if maxBytes > 0 && in.Size > maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes>>20))
	}
	if declared := normalizeContentType(in.ContentType); declared != "" && !strings.HasPrefix(declared, "image/") {
		return nil, models.NewValidationError("Only image files are allowed")
	}

	br := bufio.NewReaderSize(in.Body, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return nil, models.NewValidationError("Only image files are allowed")
	}
	return br, nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

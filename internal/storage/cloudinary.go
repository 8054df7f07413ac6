package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/observability"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.opentelemetry.io/otel/codes"
)

const postImageTransformation = "c_limit,w_1600,h_1600,q_auto"

// CloudinaryUploader stores post images on Cloudinary.
type CloudinaryUploader struct {
	cld      *cloudinary.Cloudinary
	folder   string
	maxBytes int64
	now      func() time.Time
}

// NewCloudinaryUploader builds an uploader from CLOUDINARY_URL or the
// individual cloud name, key and secret settings.
func NewCloudinaryUploader(cfg *config.Config) (*CloudinaryUploader, error) {
	if !cfg.CloudinaryConfigured() {
		return nil, errors.New("cloudinary credentials not configured")
	}

	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryUploader{
		cld:      cld,
		folder:   cfg.CloudinaryFolder,
		maxBytes: cfg.ImageMaxUploadBytes(),
		now:      time.Now,
	}, nil
}

// Upload validates the image and forwards it to Cloudinary.
func (u *CloudinaryUploader) Upload(ctx context.Context, in Upload) (string, error) {
	body, err := Validate(in, u.maxBytes)
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return "", err
	}

	ctx, span := observability.TraceImageUpload(ctx, "cloudinary")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := u.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		Folder:         u.folder,
		PublicID:       fmt.Sprintf("post_%d", u.now().UnixNano()),
		Transformation: postImageTransformation,
	})
	if err == nil && res.Error.Message != "" {
		err = errors.New(res.Error.Message)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.ImageUploads.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("image upload failed: %w", err)
	}

	observability.ImageUploads.WithLabelValues("uploaded").Inc()
	return res.SecureURL, nil
}

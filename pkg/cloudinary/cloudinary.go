package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads images and removes them again.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url, thumbnailURL string, err error)
	DeleteByURL(ctx context.Context, url string) error
}

var ErrNotConfigured = errors.New("image uploads are not configured")

// Optimized image params for fast frontend loading
const (
	ImageWidth = 1200
	ThumbWidth = 300
)

// Uploads are transcoded to a compressed web format (f_auto picks webp/avif per browser).
const imageEager = "q_auto,f_auto,w_1200,c_limit|q_auto,f_auto,w_300,c_fill"

var eagerAsyncFalse = false

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for optimized delivery.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadImage uploads an image with eager optimizations (auto quality, format, resize).
func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url, thumbnailURL string, err error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", "", err
	}
	if result.Error.Message != "" {
		return "", "", errors.New(result.Error.Message)
	}
	url = result.SecureURL
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		url = result.Eager[0].SecureURL
	}
	if len(result.Eager) > 1 {
		thumbnailURL = result.Eager[1].SecureURL
	}
	if thumbnailURL == "" {
		thumbnailURL = BuildOptimizedImageURL(c.cloudName, result.PublicID, ThumbWidth)
	}
	return url, thumbnailURL, nil
}

// DeleteByURL destroys the asset a delivery URL points at.
func (c *clientImpl) DeleteByURL(ctx context.Context, url string) error {
	publicID := PublicIDFromURL(url)
	if publicID == "" {
		return nil
	}
	_, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL extracts the public id from a res.cloudinary.com delivery URL.
// Returns "" for URLs that are not Cloudinary uploads.
func PublicIDFromURL(url string) string {
	_, rest, ok := strings.Cut(url, "/upload/")
	if !ok || rest == "" {
		return ""
	}
	parts := strings.Split(rest, "/")
	// skip transformation and version segments
	for len(parts) > 1 && (strings.Contains(parts[0], ",") || isTransformation(parts[0]) || versionSegment.MatchString(parts[0])) {
		parts = parts[1:]
	}
	id := strings.Join(parts, "/")
	return strings.TrimSuffix(id, path.Ext(id))
}

func isTransformation(seg string) bool {
	for _, p := range []string{"q_", "f_", "w_", "h_", "c_", "g_", "e_", "t_"} {
		if strings.HasPrefix(seg, p) {
			return true
		}
	}
	return false
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}

// Disabled is used when no Cloudinary credentials are configured.
type Disabled struct{}

func (Disabled) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, string, error) {
	return "", "", ErrNotConfigured
}

func (Disabled) DeleteByURL(ctx context.Context, url string) error { return nil }

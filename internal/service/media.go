package service

import (
	"context"
	"errors"
	"net/http"

	"tourhub/internal/apperr"
	"tourhub/internal/logger"
	"tourhub/pkg/cloudinary"

	"github.com/google/uuid"
)

// Media stores images on the image host under one folder.
type Media struct {
	client cloudinary.Client
	folder string
}

func NewMedia(client cloudinary.Client, folder string) *Media {
	if client == nil {
		client = cloudinary.Disabled{}
	}
	return &Media{client: client, folder: folder}
}

// Upload stores each image and returns their URLs in order. Already uploaded images are removed on failure.
func (m *Media) Upload(ctx context.Context, sub string, files []Upload) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, _, err := m.client.UploadImage(ctx, f.Reader, m.folder+"/"+sub, uuid.New().String())
		if err != nil {
			m.Delete(context.Background(), urls...)
			if errors.Is(err, cloudinary.ErrNotConfigured) {
				return nil, apperr.New(http.StatusServiceUnavailable, "Image uploads are not configured")
			}
			return nil, apperr.Internal("Image upload failed", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// UploadOne is Upload for an optional single file. A nil file yields "".
func (m *Media) UploadOne(ctx context.Context, sub string, f *Upload) (string, error) {
	if f == nil {
		return "", nil
	}
	urls, err := m.Upload(ctx, sub, []Upload{*f})
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

// Delete removes images by URL. Failures are logged.
func (m *Media) Delete(ctx context.Context, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := m.client.DeleteByURL(ctx, u); err != nil {
			logger.For("media").WithError(err).WithField("url", u).Warn("delete image")
		}
	}
}

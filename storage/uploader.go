package storage

import (
	"context"
	"io"
)

// MaxImageSize ограничивает размер картинки турнира.
const MaxImageSize = 5 << 20

type UploadResult struct {
	Key         string
	Location    string
	ETag        string
	ContentType string
}

// FileUploader хранит картинки турниров.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	// GetPublicURL возвращает пустую строку, если URL построить нельзя.
	GetPublicURL(key string) string
}

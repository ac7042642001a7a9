package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// MemoryUploader держит объекты в памяти. Для локального запуска без R2 и для тестов.
type MemoryUploader struct {
	mu      sync.Mutex
	base    *url.URL
	objects map[string][]byte
}

func NewMemoryUploader(publicBaseURL string) (*MemoryUploader, error) {
	base, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid public base url %q: %w", publicBaseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &MemoryUploader{base: base, objects: make(map[string][]byte)}, nil
}

func (u *MemoryUploader) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(reader, MaxImageSize+1)); err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if buf.Len() > MaxImageSize {
		return nil, fmt.Errorf("object %s is larger than %d bytes", key, MaxImageSize)
	}

	u.mu.Lock()
	u.objects[key] = buf.Bytes()
	u.mu.Unlock()

	return &UploadResult{Key: key, Location: u.GetPublicURL(key), ContentType: contentType}, nil
}

func (u *MemoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *MemoryUploader) GetPublicURL(key string) string {
	return joinPublicURL(u.base, key)
}

// Has reports whether an object with the key is stored.
func (u *MemoryUploader) Has(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (u *MemoryUploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}

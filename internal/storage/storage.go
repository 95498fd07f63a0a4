// Package storage persists uploaded files (product images, purchase logos
// and documents) and reads them back for PDF rendering.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotExist = errors.New("stored file does not exist")

type File struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type FileStorage interface {
	// Store writes the file under folder and returns its storage path.
	Store(ctx context.Context, file File, folder string) (string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	URL(path string) string
}

// Rules restrict what may be uploaded for one kind of file.
type Rules struct {
	MaxSize    int64
	Extensions []string
}

var (
	ProductImageRules = Rules{
		MaxSize:    5 * 1024 * 1024,
		Extensions: []string{".jpeg", ".jpg", ".png", ".gif", ".webp"},
	}
	PurchaseFileRules = Rules{
		MaxSize:    10 * 1024 * 1024,
		Extensions: []string{".pdf", ".doc", ".docx", ".jpeg", ".jpg", ".png", ".gif", ".webp", ".zip"},
	}
)

func (r Rules) Check(file File) error {
	if r.MaxSize > 0 && file.Size > r.MaxSize {
		return fmt.Errorf("file %s exceeds maximum allowed size of %d MB", file.Name, r.MaxSize/(1024*1024))
	}
	if len(r.Extensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	for _, allowed := range r.Extensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("file type %s is not allowed", ext)
}

// DeleteAll removes every path and returns the first error.
func DeleteAll(ctx context.Context, s FileStorage, paths []string) error {
	var first error
	for _, p := range paths {
		if err := s.Delete(ctx, p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func generateFileName(originalName, folder string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	filename := fmt.Sprintf("%s_%s%s", now.Format("20060102150405"), uuid.New().String()[:8], ext)
	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}

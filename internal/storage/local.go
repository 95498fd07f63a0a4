package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps files on disk below root. Paths returned by Store are
// relative to root and always use forward slashes.
type LocalStorage struct {
	root      string
	publicURL string
}

func NewLocalStorage(root, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStorage) Store(ctx context.Context, file File, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := generateFileName(file.Name, folder, time.Now())
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	out, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, file.Reader); err != nil {
		out.Close()
		os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return rel, nil
}

func (s *LocalStorage) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return f, err
}

func (s *LocalStorage) URL(path string) string {
	return s.publicURL + "/" + path
}

func (s *LocalStorage) resolve(rel string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(rel))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid storage path %q", rel)
	}
	return filepath.Join(s.root, clean), nil
}

// internal/services/storage_service.go
package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/storage"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const (
	FolderProducts          = "products"
	FolderPurchaseLogos     = "purchases/logos"
	FolderPurchaseDocuments = "purchases/documents"
)

// checkFiles validates every file against rules before anything is stored.
func checkFiles(rules storage.Rules, files []storage.File) error {
	for _, file := range files {
		if err := rules.Check(file); err != nil {
			return utils.NewValidationError(err.Error())
		}
	}
	return nil
}

// uploadBatch tracks the files stored during one request so a failed
// request can remove them again.
type uploadBatch struct {
	storage storage.FileStorage
	stored  []string
}

func newUploadBatch(s storage.FileStorage) *uploadBatch {
	return &uploadBatch{storage: s}
}

func (b *uploadBatch) store(ctx context.Context, file storage.File, folder string) (string, error) {
	path, err := b.storage.Store(ctx, file, folder)
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", file.Name, err)
	}
	b.stored = append(b.stored, path)
	return path, nil
}

func (b *uploadBatch) storeAll(ctx context.Context, files []storage.File, folder string) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		path, err := b.store(ctx, file, folder)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (b *uploadBatch) rollback(ctx context.Context) {
	if len(b.stored) == 0 {
		return
	}
	if err := storage.DeleteAll(ctx, b.storage, b.stored); err != nil {
		logrus.WithError(err).WithField("files", b.stored).Warn("Failed to remove uploaded files")
	}
	b.stored = nil
}

// deleteFiles removes files whose owning record is already gone. Failures
// leave orphans behind and are only logged.
func deleteFiles(ctx context.Context, s storage.FileStorage, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := storage.DeleteAll(ctx, s, paths); err != nil {
		logrus.WithError(err).WithField("files", paths).Warn("Failed to delete stored files")
	}
}

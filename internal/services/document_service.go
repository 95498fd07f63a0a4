// internal/services/document_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/documents"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/storage"
)

// DocumentService builds the downloadable PDFs with company branding and
// stored images inlined.
type DocumentService struct {
	renderer documents.Renderer
	storage  storage.FileStorage
	branding config.BrandingConfig
	now      func() time.Time
}

func NewDocumentService(renderer documents.Renderer, files storage.FileStorage, branding config.BrandingConfig) *DocumentService {
	return &DocumentService{
		renderer: renderer,
		storage:  files,
		branding: branding,
		now:      time.Now,
	}
}

// Invoice renders the invoice for a paid purchase. The purchase must carry
// its product and buyer.
func (s *DocumentService) Invoice(ctx context.Context, purchase *models.Purchase) (*documents.Document, error) {
	now := s.now()
	number := documents.InvoiceNumber(purchase.ID.String())

	content, err := s.renderer.Render(ctx, documents.TemplateInvoice, documents.InvoiceData{
		Number:   number,
		Date:     now,
		Purchase: purchase,
		Product:  purchase.Product,
		Customer: purchase.User,
		Branding: s.branding,
		Logo:     s.logo(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}

	return &documents.Document{
		Filename:    documents.InvoiceFilename(number, now),
		ContentType: documents.ContentTypePDF,
		Content:     content,
	}, nil
}

func (s *DocumentService) ProductSheet(ctx context.Context, product *models.Product) (*documents.Document, error) {
	now := s.now()

	content, err := s.renderer.Render(ctx, documents.TemplateProductDetails, documents.ProductSheetData{
		Product:  product,
		Images:   s.images(ctx, product.Images),
		Date:     now,
		Branding: s.branding,
		Logo:     s.logo(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render product sheet: %w", err)
	}

	return &documents.Document{
		Filename:    documents.ProductSheetFilename(product.Code, now),
		ContentType: documents.ContentTypePDF,
		Content:     content,
	}, nil
}

// logo reads the company logo from disk. A missing logo renders the
// document without one.
func (s *DocumentService) logo() *documents.Image {
	if s.branding.LogoPath == "" {
		return nil
	}
	imageType := documents.ImageType(s.branding.LogoPath)
	if imageType == "" {
		return nil
	}
	data, err := os.ReadFile(s.branding.LogoPath)
	if err != nil {
		logrus.WithError(err).WithField("path", s.branding.LogoPath).Warn("Company logo unavailable")
		return nil
	}
	return &documents.Image{Name: filepath.Base(s.branding.LogoPath), Type: imageType, Data: data}
}

// images loads the stored product images the PDF writer can embed and
// skips the rest.
func (s *DocumentService) images(ctx context.Context, paths []string) []documents.Image {
	images := make([]documents.Image, 0, len(paths))
	for _, path := range paths {
		imageType := documents.ImageType(path)
		if imageType == "" {
			continue
		}
		data, err := s.read(ctx, path)
		if err != nil {
			logrus.WithError(err).WithField("path", path).Warn("Product image unavailable")
			continue
		}
		images = append(images, documents.Image{Name: filepath.Base(path), Type: imageType, Data: data})
	}
	return images
}

func (s *DocumentService) read(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

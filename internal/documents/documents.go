// Package documents renders the downloadable PDFs: purchase invoices and
// product detail sheets.
package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/models"
)

const (
	TemplateInvoice        = "invoice"
	TemplateProductDetails = "product-details"

	ContentTypePDF = "application/pdf"
)

type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Renderer interface {
	Render(ctx context.Context, templateID string, data interface{}) ([]byte, error)
}

// Image is an inline picture. Type is one of JPG, PNG or GIF.
type Image struct {
	Name string
	Type string
	Data []byte
}

// ImageType maps a file name to the image type understood by the PDF
// writer. Formats it cannot embed return "".
func ImageType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "JPG"
	case ".png":
		return "PNG"
	case ".gif":
		return "GIF"
	default:
		return ""
	}
}

type InvoiceData struct {
	Number   string
	Date     time.Time
	Purchase *models.Purchase
	Product  *models.Product
	Customer *models.User
	Branding config.BrandingConfig
	Logo     *Image
}

type ProductSheetData struct {
	Product  *models.Product
	Images   []Image
	Date     time.Time
	Branding config.BrandingConfig
	Logo     *Image
}

// InvoiceNumber derives the invoice number from the purchase id.
func InvoiceNumber(purchaseID string) string {
	hex := strings.ReplaceAll(purchaseID, "-", "")
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return "INV-" + strings.ToUpper(hex)
}

func InvoiceFilename(number string, date time.Time) string {
	return fmt.Sprintf("invoice-%s-%s.pdf", number, date.Format("2006-01-02"))
}

func ProductSheetFilename(code string, date time.Time) string {
	return fmt.Sprintf("product-%s-%s.pdf", code, date.Format("2006-01-02"))
}

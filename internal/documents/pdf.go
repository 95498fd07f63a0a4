package documents

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/javajoker/bulkwear-backend/internal/models"
)

const (
	pageWidth   = 210.0
	margin      = 15.0
	contentW    = pageWidth - 2*margin
	lineHeight  = 7.0
	companyName = "Bulkwear"
)

// PDFRenderer draws documents with fpdf. It is safe for concurrent use;
// every call builds its own document.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, templateID string, data interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pdf *fpdf.Fpdf
	switch templateID {
	case TemplateInvoice:
		d, ok := data.(InvoiceData)
		if !ok {
			return nil, fmt.Errorf("invoice template expects InvoiceData, got %T", data)
		}
		pdf = renderInvoice(d)
	case TemplateProductDetails:
		d, ok := data.(ProductSheetData)
		if !ok {
			return nil, fmt.Errorf("product-details template expects ProductSheetData, got %T", data)
		}
		pdf = renderProductSheet(d)
	default:
		return nil, fmt.Errorf("unknown document template %q", templateID)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", templateID, err)
	}
	return buf.Bytes(), nil
}

type page struct {
	*fpdf.Fpdf
	tr func(string) string
}

func newPage() *page {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	return &page{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (p *page) header(title string, brandingName string, logo *Image) {
	if logo != nil && len(logo.Data) > 0 && logo.Type != "" {
		opts := fpdf.ImageOptions{ImageType: logo.Type, ReadDpi: true}
		p.RegisterImageOptionsReader("logo", opts, bytes.NewReader(logo.Data))
		p.ImageOptions("logo", margin, margin, 0, 18, false, opts, 0, "")
	}

	p.SetFont("Helvetica", "B", 20)
	p.SetTextColor(13, 27, 42)
	p.CellFormat(contentW, 10, p.tr(title), "", 1, "R", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(contentW, 6, p.tr(brandingName), "", 1, "R", false, 0, "")
	p.Ln(8)
}

func (p *page) section(title string) {
	p.Ln(3)
	p.SetFont("Helvetica", "B", 12)
	p.SetFillColor(23, 113, 163)
	p.SetTextColor(255, 255, 255)
	p.CellFormat(contentW, 8, p.tr(title), "", 1, "L", true, 0, "")
	p.SetTextColor(13, 27, 42)
	p.Ln(1)
}

func (p *page) field(label, value string) {
	p.SetFont("Helvetica", "B", 10)
	p.CellFormat(55, lineHeight, p.tr(label), "", 0, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.MultiCell(contentW-55, lineHeight, p.tr(value), "", "L", false)
}

func (p *page) row(widths []float64, cells []string, bold bool, fill bool) {
	style := ""
	if bold {
		style = "B"
	}
	p.SetFont("Helvetica", style, 9)
	if fill {
		p.SetFillColor(240, 246, 252)
	}
	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		p.CellFormat(widths[i], lineHeight, p.tr(cell), "1", 0, align, fill, 0, "")
	}
	p.Ln(-1)
}

func (p *page) footer(text, company string, year int) {
	p.Ln(10)
	p.SetFont("Helvetica", "I", 8)
	p.SetTextColor(100, 100, 100)
	p.CellFormat(contentW, 5, p.tr(text), "", 1, "C", false, 0, "")
	p.CellFormat(contentW, 5, p.tr(fmt.Sprintf("(c) %d %s. All rights reserved.", year, company)), "", 1, "C", false, 0, "")
}

func renderInvoice(d InvoiceData) *fpdf.Fpdf {
	p := newPage()
	purchase := d.Purchase
	company := brandName(d.Branding.CompanyName)

	p.header("INVOICE", company, d.Logo)

	p.section("Invoice Information")
	p.field("Invoice Number", d.Number)
	if purchase.ChargeRef != nil {
		p.field("Transaction ID", *purchase.ChargeRef)
	}
	p.field("Invoice Date", d.Date.Format("January 2, 2006"))
	p.field("Payment Type", paymentTypeLabel(purchase.PaymentType))
	p.field("Payment Status", strings.ToUpper(string(purchase.PaymentStatus)))

	p.section("Customer & Delivery Information")
	if d.Customer != nil {
		p.field("Customer", fmt.Sprintf("%s <%s>", d.Customer.Name, d.Customer.Email))
	}
	p.field("Organization", purchase.OrganizationName)
	p.field("Contact", fmt.Sprintf("%s, %s", purchase.DeliveryInfo.Email, purchase.Phone))
	p.field("Delivery Address", fmt.Sprintf("%s, %s, %s %s, %s",
		purchase.Address, purchase.City, purchase.State, purchase.ZipCode, purchase.Country))
	if purchase.AdditionalNotes != "" {
		p.field("Notes", purchase.AdditionalNotes)
	}

	if d.Product != nil {
		p.section("Product Information")
		p.field("Product Code", d.Product.Code)
		p.field("Product Name", d.Product.Name)
		p.field("Category", string(d.Product.Category))
		p.field("Fabric", d.Product.Fabric)
	}

	p.section("Order Breakdown")
	widths := []float64{50, 30, 40, 25, 35}
	p.row(widths, []string{"Audience", "Size", "Color", "Pieces", "Subtotal"}, true, true)
	for _, item := range purchase.LineItems {
		color := item.Color
		if color == "" {
			color = "N/A"
		}
		subtotal := purchase.PricePerPiece.Mul(decimal.NewFromInt(int64(item.Pieces)))
		p.row(widths, []string{item.Audience, item.Size, color, strconv.Itoa(item.Pieces), money(subtotal)}, false, false)
	}

	p.section("Pricing Details")
	discounted := d.Product != nil && purchase.PricePerPiece.LessThan(d.Product.PerPrice)
	if discounted {
		p.field("Pricing", "BULK DISCOUNT APPLIED")
		p.field("Regular Price", money(d.Product.PerPrice)+" / pc")
	} else {
		p.field("Pricing", "Standard Pricing (No Discount)")
	}
	p.field("Quantity", fmt.Sprintf("%d pcs", purchase.TotalPieces))
	p.field("Unit Price", money(purchase.PricePerPiece))
	if discounted {
		for _, tier := range d.Product.DiscountTiers {
			p.field(fmt.Sprintf("%d-%d pieces", tier.MinQuantity, tier.MaxQuantity), money(tier.Price)+"/pc")
		}
	}

	p.section("Cost Summary")
	p.field("Product Total", money(purchase.ProductTotal))
	p.field("Delivery Charge", money(purchase.DeliveryCharge))
	p.field("Grand Total", money(purchase.GrandTotal))
	if purchase.PaymentType == models.PaymentTypeHalf {
		p.field("Amount Paid (50%)", money(purchase.PaymentAmount))
		remaining := purchase.GrandTotal.Sub(purchase.PaymentAmount)
		p.Ln(2)
		p.SetFont("Helvetica", "I", 9)
		p.MultiCell(contentW, 5, p.tr(fmt.Sprintf(
			"Note: This is a partial payment. Remaining balance of %s is due.", money(remaining))), "", "L", false)
	} else {
		p.field("Amount Paid", money(purchase.PaymentAmount))
	}

	p.Ln(4)
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(contentW, 8, p.tr("Payment Confirmed. Thank you for your purchase!"), "", 1, "C", false, 0, "")

	p.footer("This is a computer-generated invoice. No signature required.", company, d.Date.Year())
	return p.Fpdf
}

func renderProductSheet(d ProductSheetData) *fpdf.Fpdf {
	p := newPage()
	product := d.Product
	company := brandName(d.Branding.CompanyName)

	p.header("PRODUCT DETAILS", company, d.Logo)

	p.section("Basic Information")
	p.field("Product Name", product.Name)
	p.field("Product Code", product.Code)
	p.field("Category", string(product.Category))
	p.field("Fabric Material", product.Fabric)

	p.section("Product Description")
	description := product.Description
	if description == "" {
		description = "No description available."
	}
	p.SetFont("Helvetica", "", 10)
	p.MultiCell(contentW, 5, p.tr(description), "", "L", false)

	p.section("Pricing Information")
	p.field("Base Price (Per Unit)", money(product.PerPrice))
	p.field("Minimum Order Quantity", fmt.Sprintf("%d units", product.MinimumQuantity))

	p.section("Quantity-Based Discount Tiers")
	if len(product.DiscountTiers) == 0 {
		p.SetFont("Helvetica", "I", 10)
		p.CellFormat(contentW, lineHeight, p.tr("No quantity-based discounts available for this product."), "", 1, "L", false, 0, "")
	} else {
		widths := []float64{30, 50, 50, 50}
		p.row(widths, []string{"Tier", "Min Quantity", "Max Quantity", "Discounted Price"}, true, true)
		for i, tier := range product.DiscountTiers {
			p.row(widths, []string{
				fmt.Sprintf("Tier %d", i+1),
				fmt.Sprintf("%d units", tier.MinQuantity),
				fmt.Sprintf("%d units", tier.MaxQuantity),
				money(tier.Price) + " per unit",
			}, false, false)
		}
	}

	p.section(fmt.Sprintf("Product Images (%d images)", len(d.Images)))
	if len(d.Images) == 0 {
		p.SetFont("Helvetica", "I", 10)
		p.CellFormat(contentW, lineHeight, p.tr("No images available for this product."), "", 1, "L", false, 0, "")
	}
	const imageW, imageH, gap = 85.0, 70.0, 10.0
	for i, img := range d.Images {
		if i%2 == 0 && p.GetY()+imageH > 297-margin {
			p.AddPage()
		}
		x := margin
		if i%2 == 1 {
			x += imageW + gap
		}
		y := p.GetY()
		opts := fpdf.ImageOptions{ImageType: img.Type, ReadDpi: true}
		name := fmt.Sprintf("product-image-%d", i)
		p.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		p.ImageOptions(name, x, y, imageW, 0, false, opts, 0, "")
		if i%2 == 1 || i == len(d.Images)-1 {
			p.SetY(y + imageH + gap/2)
		}
	}

	p.footer("This is a computer-generated document. No signature is required.", company, d.Date.Year())
	return p.Fpdf
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func paymentTypeLabel(t models.PaymentType) string {
	if t == models.PaymentTypeHalf {
		return "50% Partial Payment"
	}
	return "Full Payment"
}

func brandName(name string) string {
	if name == "" {
		return companyName
	}
	return name
}

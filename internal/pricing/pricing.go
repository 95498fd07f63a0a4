// Package pricing derives the per-piece price of a bulk order from a
// product's base price and its quantity discount tiers.
package pricing

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/javajoker/bulkwear-backend/internal/models"
)

const MaxTiers = 3

var (
	ErrTooManyTiers    = errors.New("A maximum of 3 quantity discounts is allowed.")
	ErrTierMinimum     = errors.New("Discount minimum quantity must be at least 1.")
	ErrTierRange       = errors.New("Discount maximum quantity must be greater than the minimum quantity.")
	ErrTierNegative    = errors.New("Discount price cannot be negative.")
	ErrTiersOverlap    = errors.New("Quantity discount ranges cannot overlap.")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// PriceForQuantity returns the unit price for an order of totalPieces.
//
// Tier bounds are inclusive. A quantity above the last tier's maximum keeps
// the last tier's price; a quantity below the first tier, or a product
// without tiers, pays the base price.
func PriceForQuantity(product *models.Product, totalPieces int) decimal.Decimal {
	tiers := sorted(product.DiscountTiers)
	if len(tiers) == 0 {
		return product.PerPrice
	}

	for _, tier := range tiers {
		if totalPieces >= tier.MinQuantity && totalPieces <= tier.MaxQuantity {
			return tier.Price
		}
	}

	last := tiers[len(tiers)-1]
	if totalPieces > last.MaxQuantity {
		return last.Price
	}

	return product.PerPrice
}

// ValidateTiers checks each tier and returns the tiers sorted by minimum
// quantity. Adjacent tiers must satisfy tier[i].max < tier[i+1].min.
func ValidateTiers(tiers []models.DiscountTier) (models.DiscountTiers, error) {
	if len(tiers) > MaxTiers {
		return nil, ErrTooManyTiers
	}

	for _, tier := range tiers {
		switch {
		case tier.MinQuantity < 1:
			return nil, ErrTierMinimum
		case tier.MaxQuantity <= tier.MinQuantity:
			return nil, ErrTierRange
		case tier.Price.IsNegative():
			return nil, ErrTierNegative
		}
	}

	out := sorted(tiers)
	for i := 0; i+1 < len(out); i++ {
		if out[i].MaxQuantity >= out[i+1].MinQuantity {
			return nil, ErrTiersOverlap
		}
	}

	return out, nil
}

// Totals is the priced breakdown of an order.
type Totals struct {
	TotalPieces   int
	PricePerPiece decimal.Decimal
	ProductTotal  decimal.Decimal
	GrandTotal    decimal.Decimal
	PaymentAmount decimal.Decimal
	// OldPrice is what the order would cost at the base price.
	OldPrice        decimal.Decimal
	DiscountApplied bool
}

// Compute prices totalPieces of product and adds the delivery charge.
// Money values are rounded to cents; a half payment is half the rounded
// grand total, rounded again.
func Compute(product *models.Product, totalPieces int, paymentType models.PaymentType, deliveryCharge decimal.Decimal) (Totals, error) {
	if totalPieces < 1 {
		return Totals{}, ErrInvalidQuantity
	}

	qty := decimal.NewFromInt(int64(totalPieces))
	ppp := PriceForQuantity(product, totalPieces)
	productTotal := qty.Mul(ppp).Round(2)
	grandTotal := productTotal.Add(deliveryCharge).Round(2)

	amount := grandTotal
	if paymentType == models.PaymentTypeHalf {
		amount = grandTotal.Div(decimal.NewFromInt(2)).Round(2)
	}

	return Totals{
		TotalPieces:     totalPieces,
		PricePerPiece:   ppp,
		ProductTotal:    productTotal,
		GrandTotal:      grandTotal,
		PaymentAmount:   amount,
		OldPrice:        qty.Mul(product.PerPrice).Round(2),
		DiscountApplied: ppp.LessThan(product.PerPrice),
	}, nil
}

// MinorUnits converts a two-decimal amount to an integer count of cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func sorted(tiers []models.DiscountTier) []models.DiscountTier {
	out := make([]models.DiscountTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinQuantity < out[j].MinQuantity
	})
	return out
}

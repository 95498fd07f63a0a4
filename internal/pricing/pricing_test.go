package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/bulkwear-backend/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tieredProduct() *models.Product {
	return &models.Product{
		PerPrice:        d("12.00"),
		MinimumQuantity: 1,
		DiscountTiers: models.DiscountTiers{
			{MinQuantity: 100, MaxQuantity: 499, Price: d("8.00")},
			{MinQuantity: 25, MaxQuantity: 49, Price: d("10.00")},
			{MinQuantity: 50, MaxQuantity: 99, Price: d("9.00")},
		},
	}
}

func TestPriceForQuantity(t *testing.T) {
	product := tieredProduct()

	tests := []struct {
		qty  int
		want string
	}{
		{1, "12.00"},
		{24, "12.00"},
		{25, "10.00"},
		{49, "10.00"},
		{50, "9.00"},
		{99, "9.00"},
		{100, "8.00"},
		{499, "8.00"},
		{500, "8.00"},
		{1000, "8.00"},
	}

	for _, tt := range tests {
		got := PriceForQuantity(product, tt.qty)
		assert.Truef(t, got.Equal(d(tt.want)), "qty %d: got %s want %s", tt.qty, got, tt.want)
	}
}

func TestPriceForQuantityWithoutTiers(t *testing.T) {
	product := &models.Product{PerPrice: d("7.50")}
	assert.True(t, PriceForQuantity(product, 10000).Equal(d("7.50")))
}

func TestPriceForQuantityGapBetweenTiers(t *testing.T) {
	product := &models.Product{
		PerPrice: d("5.00"),
		DiscountTiers: models.DiscountTiers{
			{MinQuantity: 10, MaxQuantity: 20, Price: d("4.00")},
			{MinQuantity: 40, MaxQuantity: 60, Price: d("3.00")},
		},
	}

	// 30 sits between tiers and is not above the last max.
	assert.True(t, PriceForQuantity(product, 30).Equal(d("5.00")))
	assert.True(t, PriceForQuantity(product, 61).Equal(d("3.00")))
}

func TestValidateTiers(t *testing.T) {
	t.Run("sorts valid tiers", func(t *testing.T) {
		out, err := ValidateTiers(tieredProduct().DiscountTiers)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, 25, out[0].MinQuantity)
		assert.Equal(t, 50, out[1].MinQuantity)
		assert.Equal(t, 100, out[2].MinQuantity)
	})

	t.Run("rejects overlap", func(t *testing.T) {
		_, err := ValidateTiers([]models.DiscountTier{
			{MinQuantity: 1, MaxQuantity: 50, Price: d("5")},
			{MinQuantity: 40, MaxQuantity: 100, Price: d("4")},
		})
		assert.ErrorIs(t, err, ErrTiersOverlap)
	})

	t.Run("rejects touching bounds", func(t *testing.T) {
		_, err := ValidateTiers([]models.DiscountTier{
			{MinQuantity: 1, MaxQuantity: 50, Price: d("5")},
			{MinQuantity: 50, MaxQuantity: 100, Price: d("4")},
		})
		assert.ErrorIs(t, err, ErrTiersOverlap)
	})

	t.Run("rejects too many", func(t *testing.T) {
		_, err := ValidateTiers([]models.DiscountTier{
			{MinQuantity: 1, MaxQuantity: 2, Price: d("5")},
			{MinQuantity: 3, MaxQuantity: 4, Price: d("4")},
			{MinQuantity: 5, MaxQuantity: 6, Price: d("3")},
			{MinQuantity: 7, MaxQuantity: 8, Price: d("2")},
		})
		assert.ErrorIs(t, err, ErrTooManyTiers)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := ValidateTiers([]models.DiscountTier{{MinQuantity: 10, MaxQuantity: 10, Price: d("1")}})
		assert.ErrorIs(t, err, ErrTierRange)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := ValidateTiers([]models.DiscountTier{{MinQuantity: 1, MaxQuantity: 10, Price: d("-1")}})
		assert.ErrorIs(t, err, ErrTierNegative)
	})

	t.Run("accepts none", func(t *testing.T) {
		out, err := ValidateTiers(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestCompute(t *testing.T) {
	product := tieredProduct()
	delivery := d("20.00")

	full, err := Compute(product, 60, models.PaymentTypeFull, delivery)
	require.NoError(t, err)
	assert.True(t, full.PricePerPiece.Equal(d("9.00")))
	assert.True(t, full.ProductTotal.Equal(d("540.00")))
	assert.True(t, full.GrandTotal.Equal(d("560.00")))
	assert.True(t, full.PaymentAmount.Equal(full.GrandTotal))
	assert.True(t, full.OldPrice.Equal(d("720.00")))
	assert.True(t, full.DiscountApplied)

	half, err := Compute(product, 60, models.PaymentTypeHalf, delivery)
	require.NoError(t, err)
	assert.True(t, half.PaymentAmount.Equal(d("280.00")))

	odd := &models.Product{PerPrice: d("3.33")}
	oddHalf, err := Compute(odd, 3, models.PaymentTypeHalf, d("20.01"))
	require.NoError(t, err)
	assert.True(t, oddHalf.GrandTotal.Equal(d("30.00")))
	assert.True(t, oddHalf.PaymentAmount.Equal(d("15.00")))
	assert.False(t, oddHalf.DiscountApplied)

	_, err = Compute(product, 0, models.PaymentTypeFull, delivery)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(28000), MinorUnits(d("280.00")))
	assert.Equal(t, int64(1999), MinorUnits(d("19.99")))
	assert.Equal(t, int64(1), MinorUnits(d("0.005")))
}

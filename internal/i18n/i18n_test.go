package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, "Product not found", T("en", KeyProductNotFound))
	assert.Equal(t, "Order status is already completed", T("en", KeyPurchaseStatusSame, "completed"))
	// unknown language falls back to the default
	assert.Equal(t, "Purchase not found", T("fr", KeyPurchaseNotFound))
	assert.Equal(t, "missing.key", T("en", "missing.key"))
	assert.Contains(t, GetSupportedLanguages(), "en")
}

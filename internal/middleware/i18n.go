// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
)

// I18nMiddleware stores the first supported language from Accept-Language
// under "lang", falling back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", negotiateLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// Handles values like "en-GB,en;q=0.9,fr;q=0.8".
func negotiateLanguage(header, defaultLang string) string {
	supported := make(map[string]bool)
	for _, lang := range i18n.GetSupportedLanguages() {
		supported[lang] = true
	}

	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		tag = strings.ReplaceAll(tag, "-", "_")
		if supported[tag] {
			return tag
		}
		if base := strings.ToLower(strings.Split(tag, "_")[0]); supported[base] {
			return base
		}
	}
	return defaultLang
}

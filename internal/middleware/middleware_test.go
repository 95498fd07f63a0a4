package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func TestNegotiateLanguage(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"en-GB,en;q=0.9", "en"},
		{"fr-FR,fr;q=0.9,en;q=0.8", "en"},
		{"de", "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, negotiateLanguage(tt.header, "en"), tt.header)
	}
}

func TestExtractResourceType(t *testing.T) {
	assert.Equal(t, "products", extractResourceType("/v1/admin/products/"+uuid.NewString()))
	assert.Equal(t, "purchases", extractResourceType("/v1/admin/purchases/123/status"))
	assert.Equal(t, "contacts", extractResourceType("/v1/contacts"))
	assert.Equal(t, "unknown", extractResourceType("/"))
}

func TestRedact(t *testing.T) {
	values := map[string]interface{}{"password": "x", "new_password": "y", "name": "Sam"}
	redact(values)
	assert.Equal(t, "[REDACTED]", values["password"])
	assert.Equal(t, "[REDACTED]", values["new_password"])
	assert.Equal(t, "Sam", values["name"])
}

func newAuthEngine() *gin.Engine {
	r := gin.New()
	r.GET("/private", AuthRequired(), func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.String(http.StatusOK, userID)
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/optional", OptionalAuth(), func(c *gin.Context) {
		_, ok := utils.GetUserIDFromContext(c)
		if ok {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r
}

func serve(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newAuthEngine()
	userID := uuid.New()
	token, err := utils.GenerateJWT(userID, "buyer@example.com", string(models.RoleUser), 1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "Bearer garbage").Code)

	w := serve(r, "/private", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	r := newAuthEngine()
	refresh, err := utils.GenerateRefreshToken(uuid.New(), 1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "Bearer "+refresh).Code)
}

func TestAdminRequired(t *testing.T) {
	r := newAuthEngine()
	userToken, err := utils.GenerateJWT(uuid.New(), "buyer@example.com", string(models.RoleUser), 1)
	require.NoError(t, err)
	adminToken, err := utils.GenerateJWT(uuid.New(), "admin@example.com", string(models.RoleAdmin), 1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(r, "/admin", "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "/admin", "Bearer "+adminToken).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newAuthEngine()
	token, err := utils.GenerateJWT(uuid.New(), "buyer@example.com", string(models.RoleUser), 1)
	require.NoError(t, err)

	assert.Equal(t, "anonymous", serve(r, "/optional", "").Body.String())
	assert.Equal(t, "anonymous", serve(r, "/optional", "Bearer garbage").Body.String())
	assert.Equal(t, "user", serve(r, "/optional", "Bearer "+token).Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	r.GET("/", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "/", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "/", "").Code)

	limiter.cleanupVisitors(time.Now().Add(time.Hour))
	assert.Empty(t, limiter.visitors)
	assert.Equal(t, http.StatusOK, serve(r, "/", "").Code)
}

type recorder struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	done    chan struct{}
}

func (r *recorder) RecordAction(_ context.Context, entry *models.AuditLog) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func TestAuditLogMiddleware(t *testing.T) {
	rec := &recorder{done: make(chan struct{}, 1)}
	r := gin.New()
	admin := r.Group("/v1/admin", AuditLogMiddleware(rec))
	admin.GET("/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	admin.PATCH("/products/:id/toggle-status", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/v1/admin/products", "")

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/admin/products/"+id.String()+"/toggle-status",
		strings.NewReader(`{"reason":"seasonal","password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was not recorded")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "PATCH /v1/admin/products/:id/toggle-status", entry.Action)
	assert.Equal(t, "products", entry.ResourceType)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, id, *entry.ResourceID)
	assert.Equal(t, http.StatusOK, entry.Status)
	assert.Equal(t, "seasonal", entry.NewValues["reason"])
	assert.Equal(t, "[REDACTED]", entry.NewValues["password"])
}

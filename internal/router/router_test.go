package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/documents"
	"github.com/javajoker/bulkwear-backend/internal/gateway"
	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/middleware"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/notification"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/storage"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const routerTestPassword = "Secret123!"

type stubGateway struct {
	mu      sync.Mutex
	charges int
}

func (g *stubGateway) FindOrCreateCustomer(context.Context, gateway.Customer) (string, error) {
	return "cus_router", nil
}

func (g *stubGateway) CreateCharge(context.Context, gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	return &gateway.ChargeResult{Outcome: gateway.Succeeded, ChargeRef: "pi_" + uuid.NewString()[:12], Status: "succeeded"}, nil
}

func (g *stubGateway) ParseWebhook([]byte, string) (*gateway.WebhookEvent, error) {
	return &gateway.WebhookEvent{Type: "charge.refunded"}, nil
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	store   *repository.Store
	gateway *stubGateway
	router  *gin.Engine

	mu   sync.Mutex
	mail []notification.Message
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	require.NoError(suite.T(), i18n.Initialize("en"))
	utils.SetJWTSecret("router-test-secret")
}

func (suite *RouterTestSuite) SetupTest() {
	suite.store = repository.NewMemoryStore()
	suite.gateway = &stubGateway{}
	suite.mail = nil

	root := suite.T().TempDir()
	files, err := storage.NewLocalStorage(root, "http://localhost/uploads")
	require.NoError(suite.T(), err)

	cfg := &config.Config{
		Server:  config.ServerConfig{AllowOrigins: []string{"http://localhost:3000"}, Metrics: true},
		Storage: config.StorageConfig{Driver: "local", LocalRoot: root},
		I18n:    config.I18nConfig{DefaultLocale: "en"},
	}
	jwtCfg := config.JWTConfig{AccessTokenTTL: 1, RefreshTokenTTL: 2, RememberAccessTokenTTL: 3, RememberRefreshTokenTTL: 4}
	resetCfg := config.ResetConfig{
		CodeTTL:      10 * time.Minute,
		EmailLimit:   30,
		EmailWindow:  15 * time.Minute,
		IPLimit:      40,
		IPWindow:     time.Hour,
		VerifyLimit:  30,
		VerifyWindow: 15 * time.Minute,
	}

	appCache := cache.NewMemoryCache(1000)
	mailer := services.MailerFunc(func(msg notification.Message) {
		suite.mu.Lock()
		defer suite.mu.Unlock()
		suite.mail = append(suite.mail, msg)
	})
	docs := services.NewDocumentService(documents.NewPDFRenderer(), files, config.BrandingConfig{CompanyName: "Bulkwear"})

	svc := &Services{
		Auth:          services.NewAuthService(suite.store.Users, jwtCfg),
		PasswordReset: services.NewPasswordResetService(suite.store.Users, suite.store.ResetCodes, appCache, mailer, resetCfg),
		User:          services.NewUserService(suite.store.Users, appCache),
		Product:       services.NewProductService(suite.store.Products, files, appCache, docs),
		Purchase:      services.NewPurchaseService(suite.store.Products, suite.store.Purchases, files, appCache, decimal.NewFromInt(20)),
		Payment:       services.NewPaymentService(suite.store.Purchases, suite.gateway, appCache, docs, config.PaymentConfig{Currency: "usd"}),
		Contact:       services.NewContactService(suite.store.Contacts, appCache, mailer, "admin@bulkwear.test"),
		Admin:         services.NewAdminService(suite.store),
	}

	limiters := &middleware.RateLimiters{
		General: middleware.NewRateLimiter(rate.Inf, 1),
		Auth:    middleware.NewRateLimiter(rate.Inf, 1),
		Upload:  middleware.NewRateLimiter(rate.Inf, 1),
	}
	suite.router = Initialize(cfg, svc, limiters)
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func (suite *RouterTestSuite) createUser(role models.Role) (*models.User, string) {
	user := &models.User{
		Name:     gofakeit.Name(),
		Email:    strings.ToLower(gofakeit.Email()),
		Role:     role,
		IsActive: true,
	}
	require.NoError(suite.T(), user.SetPassword(routerTestPassword))
	require.NoError(suite.T(), suite.store.Users.Create(context.Background(), user))

	token, err := utils.GenerateJWT(user.ID, user.Email, string(role), 1)
	require.NoError(suite.T(), err)
	return user, token
}

func (suite *RouterTestSuite) createProduct(minQty int) *models.Product {
	product := &models.Product{
		Name:            gofakeit.ProductName(),
		Category:        models.CategoryFootball,
		Code:            "FB" + gofakeit.DigitN(4),
		Description:     gofakeit.Sentence(6),
		Fabric:          "Polyester",
		MinimumQuantity: minQty,
		PerPrice:        decimal.RequireFromString("10.00"),
		Images:          []string{"products/front.png"},
		IsActive:        true,
	}
	require.NoError(suite.T(), suite.store.Products.Create(context.Background(), product))
	return product
}

func purchaseBody(pieces ...int) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(pieces))
	for _, n := range pieces {
		items = append(items, map[string]interface{}{"audience": "adult", "size": "M", "pieces": n})
	}
	return map[string]interface{}{
		"payment_type":      "half",
		"product_info":      items,
		"organization_name": "Riverside FC",
		"email":             "orders@riverside.test",
		"phone":             "5550100",
		"country":           "UK",
		"city":              "Leeds",
		"state":             "West Yorkshire",
		"zip_code":          "LS1 4AP",
		"address":           "1 Stadium Way",
	}
}

func (suite *RouterTestSuite) lastResetCode() string {
	suite.mu.Lock()
	defer suite.mu.Unlock()
	for i := len(suite.mail) - 1; i >= 0; i-- {
		if suite.mail[i].Template == notification.TemplatePasswordResetCode {
			code, _ := suite.mail[i].Data["Code"].(string)
			return code
		}
	}
	return ""
}

func (suite *RouterTestSuite) TestHealth() {
	w, _ := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestAuthRequired() {
	w, resp := suite.do(http.MethodGet, "/v1/auth/me", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.False(suite.T(), resp.Success)
	require.NotNil(suite.T(), resp.Error)
	assert.Equal(suite.T(), "UNAUTHORIZED", resp.Error.Code)

	w, _ = suite.do(http.MethodGet, "/v1/auth/me", "not-a-jwt", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestRegisterLoginAndProfile() {
	w, resp := suite.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":                  "Sam Carter",
		"email":                 "Sam@Example.com",
		"password":              routerTestPassword,
		"password_confirmation": routerTestPassword,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	assert.True(suite.T(), resp.Success)

	w, resp = suite.do(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    "sam@example.com",
		"password": routerTestPassword,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &login))
	require.NotEmpty(suite.T(), login.Token)

	w, resp = suite.do(http.MethodGet, "/v1/auth/me", login.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var profile struct {
		User models.User `json:"user"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &profile))
	assert.Equal(suite.T(), "sam@example.com", profile.User.Email)
}

func (suite *RouterTestSuite) TestAdminRoutesRejectCustomers() {
	_, token := suite.createUser(models.RoleUser)

	w, resp := suite.do(http.MethodGet, "/v1/admin/dashboard/stats", token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	require.NotNil(suite.T(), resp.Error)

	_, adminToken := suite.createUser(models.RoleAdmin)
	w, _ = suite.do(http.MethodGet, "/v1/admin/dashboard/stats", adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestPasswordResetFlow() {
	user, _ := suite.createUser(models.RoleUser)

	w, _ := suite.do(http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{"email": user.Email})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	code := suite.lastResetCode()
	require.Len(suite.T(), code, 6)

	w, resp := suite.do(http.MethodPost, "/v1/auth/reset-password", "", map[string]string{
		"email":                 user.Email,
		"token":                 code,
		"password":              "Guessed123!",
		"password_confirmation": "Guessed123!",
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	require.NotNil(suite.T(), resp.Error)
	assert.Equal(suite.T(), "Invalid or expired reset token.", resp.Error.Message)

	w, resp = suite.do(http.MethodPost, "/v1/auth/verify-code", "", map[string]string{"email": user.Email, "code": code})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	var verified struct {
		Token string `json:"token"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &verified))
	require.Len(suite.T(), verified.Token, 64)

	newPassword := "BrandNew456!"
	w, _ = suite.do(http.MethodPost, "/v1/auth/reset-password", "", map[string]string{
		"email":                 user.Email,
		"token":                 verified.Token,
		"password":              newPassword,
		"password_confirmation": newPassword,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": user.Email, "password": newPassword})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/auth/verify-code", "", map[string]string{"email": user.Email, "code": code})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *RouterTestSuite) TestPurchaseBelowMinimumQuantity() {
	_, token := suite.createUser(models.RoleUser)
	product := suite.createProduct(100)

	w, resp := suite.do(http.MethodPost, "/v1/products/"+product.ID.String()+"/purchases", token, purchaseBody(40, 20))
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code, w.Body.String())
	require.NotNil(suite.T(), resp.Error)
	assert.Equal(suite.T(), "VALIDATION_ERROR", resp.Error.Code)
}

func (suite *RouterTestSuite) TestOrderStatusRequiresPayment() {
	_, token := suite.createUser(models.RoleUser)
	_, adminToken := suite.createUser(models.RoleAdmin)
	product := suite.createProduct(50)

	w, resp := suite.do(http.MethodPost, "/v1/products/"+product.ID.String()+"/purchases", token, purchaseBody(40, 20))
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var submitted struct {
		Purchase services.PurchaseSummary `json:"purchase"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &submitted))
	id := submitted.Purchase.PurchaseID.String()
	assert.Equal(suite.T(), 60, submitted.Purchase.TotalPieces)

	statusPath := "/v1/admin/purchases/" + id + "/status"
	inProgress := map[string]string{"order_status": string(models.OrderStatusInProgress)}

	w, resp = suite.do(http.MethodPatch, statusPath, adminToken, inProgress)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	require.NotNil(suite.T(), resp.Error)
	assert.Equal(suite.T(), "Cannot update order status. Payment not completed.", resp.Error.Message)

	w, _ = suite.do(http.MethodPost, "/v1/purchases/"+id+"/pay", token, map[string]string{"payment_method": "pm_card_visa"})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), 1, suite.gateway.charges)

	w, _ = suite.do(http.MethodPost, "/v1/purchases/"+id+"/pay", token, map[string]string{"payment_method": "pm_card_visa"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), 1, suite.gateway.charges)

	w, resp = suite.do(http.MethodPatch, statusPath, adminToken, inProgress)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	var updated struct {
		Changed bool `json:"changed"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &updated))
	assert.True(suite.T(), updated.Changed)

	w, resp = suite.do(http.MethodPatch, statusPath, adminToken, inProgress)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var same struct {
		Message string `json:"message"`
		Changed bool   `json:"changed"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &same))
	assert.False(suite.T(), same.Changed)
	assert.Equal(suite.T(), "Order status is already in-progress", same.Message)
}

func (suite *RouterTestSuite) TestCustomersCannotSeeOthersPurchases() {
	_, owner := suite.createUser(models.RoleUser)
	_, stranger := suite.createUser(models.RoleUser)
	product := suite.createProduct(50)

	w, resp := suite.do(http.MethodPost, "/v1/products/"+product.ID.String()+"/purchases", owner, purchaseBody(60))
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var submitted struct {
		Purchase services.PurchaseSummary `json:"purchase"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Data, &submitted))

	w, _ = suite.do(http.MethodGet, "/v1/purchases/"+submitted.Purchase.PurchaseID.String(), stranger, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/purchases/"+submitted.Purchase.PurchaseID.String(), owner, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestContactSubmission() {
	w, _ := suite.do(http.MethodPost, "/v1/contacts", "", map[string]string{
		"name":    "Jordan Lee",
		"email":   "jordan@example.com",
		"phone":   "5550199",
		"address": "2 High Street",
		"subject": "Bulk pricing",
		"message": "Do you ship to Ireland?",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	_, adminToken := suite.createUser(models.RoleAdmin)
	w, _ = suite.do(http.MethodGet, "/v1/admin/contacts", adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))
}

func (suite *RouterTestSuite) TestInvalidIDIsBadRequest() {
	w, _ := suite.do(http.MethodGet, "/v1/products/not-a-uuid", "", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestUnknownRoute() {
	w, resp := suite.do(http.MethodGet, "/v1/does-not-exist", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	require.NotNil(suite.T(), resp.Error)
	assert.Equal(suite.T(), "NOT_FOUND", resp.Error.Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

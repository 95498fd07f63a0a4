package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/bulkwear-backend/internal/gateway"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/notification"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/storage"
)

const testPassword = "Secret123!"

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (m *recordingMailer) Dispatch(msg notification.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *recordingMailer) Messages() []notification.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Message{}, m.sent...)
}

// memoryStorage keeps files in a map. Stores beyond failAfter fail when
// failAfter is not negative.
type memoryStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	failAfter int
	stores    int
	deleted   []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}, failAfter: -1}
}

func (s *memoryStorage) Store(_ context.Context, file storage.File, folder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAfter >= 0 && s.stores >= s.failAfter {
		return "", errors.New("storage unavailable")
	}
	s.stores++

	data, err := io.ReadAll(file.Reader)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/%s-%s", folder, uuid.NewString()[:8], file.Name)
	s.files[path] = data
	return path, nil
}

func (s *memoryStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *memoryStorage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok, nil
}

func (s *memoryStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) URL(path string) string {
	return "https://cdn.test/" + path
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *memoryStorage) paths(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for path := range s.files {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	return out
}

type fakeGateway struct {
	mu          sync.Mutex
	customerErr error
	result      *gateway.ChargeResult
	chargeErr   error
	charges     []gateway.ChargeRequest
	customers   []gateway.Customer
	event       *gateway.WebhookEvent
	webhookErr  error
}

func (g *fakeGateway) FindOrCreateCustomer(_ context.Context, customer gateway.Customer) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers = append(g.customers, customer)
	if g.customerErr != nil {
		return "", g.customerErr
	}
	return "cus_test", nil
}

func (g *fakeGateway) CreateCharge(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	if g.result != nil {
		result := *g.result
		return &result, nil
	}
	return &gateway.ChargeResult{Outcome: gateway.Succeeded, ChargeRef: "pi_" + uuid.NewString()[:12], Status: "succeeded"}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (*gateway.WebhookEvent, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	if signature == "" {
		return nil, errors.New("missing signature")
	}
	return g.event, nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}

func createUser(t *testing.T, store *repository.Store) *models.User {
	t.Helper()
	user := &models.User{
		Name:     gofakeit.Name(),
		Email:    strings.ToLower(gofakeit.Email()),
		Phone:    gofakeit.Phone(),
		Role:     models.RoleUser,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword(testPassword))
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func createProduct(t *testing.T, store *repository.Store, minQty int, perPrice string, tiers ...models.DiscountTier) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:            gofakeit.ProductName(),
		Category:        models.ProductCategories[0],
		Code:            strings.ToUpper(gofakeit.LetterN(3)) + gofakeit.DigitN(4),
		Description:     gofakeit.Sentence(8),
		Fabric:          "Polyester",
		MinimumQuantity: minQty,
		PerPrice:        decimal.RequireFromString(perPrice),
		DiscountTiers:   tiers,
		Images:          []string{"products/front.png"},
		IsActive:        true,
	}
	require.NoError(t, store.Products.Create(context.Background(), product))
	return product
}

func tier(min, max int, price string) models.DiscountTier {
	return models.DiscountTier{MinQuantity: min, MaxQuantity: max, Price: decimal.RequireFromString(price)}
}

func deliveryInfo() models.DeliveryInfo {
	return models.DeliveryInfo{
		OrganizationName: gofakeit.Company(),
		Email:            strings.ToLower(gofakeit.Email()),
		Phone:            "555-0100",
		Country:          gofakeit.Country(),
		City:             gofakeit.City(),
		State:            gofakeit.State(),
		ZipCode:          gofakeit.Zip(),
		Address:          gofakeit.Street(),
	}
}

func purchaseRequest(paymentType models.PaymentType, pieces ...int) *PurchaseRequest {
	items := make([]models.LineItem, 0, len(pieces))
	for i, n := range pieces {
		items = append(items, models.LineItem{
			Audience: "adult",
			Size:     []string{"S", "M", "L", "XL"}[i%4],
			Pieces:   n,
			Color:    gofakeit.Color(),
		})
	}
	return &PurchaseRequest{
		PaymentType:  paymentType,
		LineItems:    items,
		DeliveryInfo: deliveryInfo(),
	}
}

func testFile(name string, size int) storage.File {
	data := bytes.Repeat([]byte("x"), size)
	return storage.File{Name: name, Size: int64(size), Reader: bytes.NewReader(data)}
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

// memoryDB backs the in-memory repositories. One mutex guards every table
// so multi-table operations stay atomic.
type memoryDB struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[uuid.UUID]models.User
	products  map[uuid.UUID]models.Product
	purchases map[uuid.UUID]models.Purchase
	codes     map[uuid.UUID]models.PasswordResetCode
	contacts  []models.ContactMessage
	audit     []models.AuditLog
	locks     map[string]bool
}

// NewMemoryStore returns repositories that keep everything in process.
func NewMemoryStore() *Store {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *Store {
	db := &memoryDB{
		now:       now,
		users:     map[uuid.UUID]models.User{},
		products:  map[uuid.UUID]models.Product{},
		purchases: map[uuid.UUID]models.Purchase{},
		codes:     map[uuid.UUID]models.PasswordResetCode{},
		locks:     map[string]bool{},
	}
	return &Store{
		Users:      memUsers{db},
		Products:   memProducts{db},
		Purchases:  memPurchases{db},
		ResetCodes: memResetCodes{db},
		Contacts:   memContacts{db},
		Audit:      memAudit{db},
		Locker:     memLocker{db},
	}
}

func (db *memoryDB) stamp(base *models.BaseModel) {
	now := db.now()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func paginate[T any](items []T, params utils.PaginationParams) []T {
	if params.Limit <= 0 {
		return items
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * params.Limit
	if start >= len(items) {
		return []T{}
	}
	end := start + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type memUsers struct{ db *memoryDB }

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	r.db.stamp(&user.BaseModel)
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email = normalizeEmail(email)
	for _, user := range r.db.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) Update(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[user.ID]; !ok {
		return ErrNotFound
	}
	r.db.stamp(&user.BaseModel)
	r.db.users[user.ID] = *user
	return nil
}

func (r memUsers) Count(context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.users)), nil
}

type memProducts struct{ db *memoryDB }

func (r memProducts) Create(_ context.Context, product *models.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.products {
		if existing.Code == product.Code {
			return ErrDuplicate
		}
	}
	r.db.stamp(&product.BaseModel)
	r.db.products[product.ID] = *product
	return nil
}

func (r memProducts) Update(_ context.Context, product *models.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[product.ID]; !ok {
		return ErrNotFound
	}
	r.db.stamp(&product.BaseModel)
	r.db.products[product.ID] = *product
	return nil
}

func (r memProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	product, ok := r.db.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &product, nil
}

func (r memProducts) CodeExists(_ context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, product := range r.db.products {
		if product.Code == code && (excludeID == nil || id != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (r memProducts) List(_ context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	lo, hi, moq := moqBounds(filter.MOQ)
	var out []models.Product
	for _, p := range r.db.products {
		switch {
		case filter.IsActive != nil && p.IsActive != *filter.IsActive:
			continue
		case filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.Code, filter.Search) && !containsFold(p.Description, filter.Search):
			continue
		case filter.Category != "" && string(p.Category) != filter.Category:
			continue
		case filter.Fabric != "" && !containsFold(p.Fabric, filter.Fabric):
			continue
		case moq && (p.MinimumQuantity < lo || (hi > 0 && p.MinimumQuantity >= hi)):
			continue
		case filter.MinPrice != nil && p.PerPrice.LessThan(*filter.MinPrice):
			continue
		case filter.MaxPrice != nil && p.PerPrice.GreaterThan(*filter.MaxPrice):
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		switch filter.Sort {
		case SortPriceLowHigh:
			return out[i].PerPrice.LessThan(out[j].PerPrice)
		case SortPriceHighLow:
			return out[i].PerPrice.GreaterThan(out[j].PerPrice)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return paginate(out, filter.PaginationParams), int64(len(out)), nil
}

func (r memProducts) Count(context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.products)), nil
}

type memPurchases struct{ db *memoryDB }

// hydrate attaches the product and buyer. Caller holds mu.
func (r memPurchases) hydrate(p models.Purchase) models.Purchase {
	if product, ok := r.db.products[p.ProductID]; ok {
		p.Product = &product
	}
	if user, ok := r.db.users[p.UserID]; ok {
		p.User = &user
	}
	return p
}

func (r memPurchases) Create(_ context.Context, purchase *models.Purchase) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&purchase.BaseModel)
	if purchase.PaymentStatus == "" {
		purchase.PaymentStatus = models.PaymentStatusPending
	}
	if purchase.OrderStatus == "" {
		purchase.OrderStatus = models.OrderStatusPending
	}
	stored := *purchase
	stored.Product, stored.User = nil, nil
	r.db.purchases[purchase.ID] = stored
	return nil
}

func (r memPurchases) FindByID(_ context.Context, id uuid.UUID) (*models.Purchase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.purchases[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = r.hydrate(p)
	return &p, nil
}

func (r memPurchases) FindByChargeRef(_ context.Context, chargeRef string) (*models.Purchase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.purchases {
		if p.ChargeRef != nil && *p.ChargeRef == chargeRef {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (r memPurchases) List(_ context.Context, filter PurchaseFilter) ([]models.Purchase, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Purchase
	for _, p := range r.db.purchases {
		switch {
		case filter.UserID != nil && p.UserID != *filter.UserID:
			continue
		case filter.PaymentStatus != "" && p.PaymentStatus != filter.PaymentStatus:
			continue
		case filter.OrderStatus != "" && p.OrderStatus != filter.OrderStatus:
			continue
		case filter.PaymentType != "" && p.PaymentType != filter.PaymentType:
			continue
		case filter.From != nil && p.CreatedAt.Before(*filter.From):
			continue
		case filter.To != nil && p.CreatedAt.After(*filter.To):
			continue
		}
		p = r.hydrate(p)
		if filter.Search != "" && !purchaseMatches(p, filter.Search) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.PaginationParams), int64(len(out)), nil
}

func purchaseMatches(p models.Purchase, term string) bool {
	if p.ChargeRef != nil && containsFold(*p.ChargeRef, term) {
		return true
	}
	if p.User != nil && (containsFold(p.User.Name, term) || containsFold(p.User.Email, term)) {
		return true
	}
	return p.Product != nil && (containsFold(p.Product.Name, term) || containsFold(p.Product.Code, term))
}

func (r memPurchases) MarkPaid(_ context.Context, id uuid.UUID, chargeRef string, paidAt time.Time) (*models.Purchase, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.purchases[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if p.IsPaid() {
		return &p, true, nil
	}
	for otherID, other := range r.db.purchases {
		if otherID != id && other.ChargeRef != nil && *other.ChargeRef == chargeRef {
			return nil, false, ErrChargeRefTaken
		}
	}

	ref := chargeRef
	p.PaymentStatus = models.PaymentStatusPaid
	p.ChargeRef = &ref
	p.PaidAt = &paidAt
	p.UpdatedAt = r.db.now()
	r.db.purchases[id] = p
	return &p, false, nil
}

func (r memPurchases) UpdateOrderStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) (*models.Purchase, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.purchases[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if !p.IsPaid() {
		return nil, false, ErrPaymentPending
	}
	if p.OrderStatus == status {
		return &p, false, nil
	}
	p.OrderStatus = status
	p.UpdatedAt = r.db.now()
	r.db.purchases[id] = p
	return &p, true, nil
}

func (r memPurchases) ListUnpaidBefore(_ context.Context, cutoff time.Time) ([]models.Purchase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.Purchase
	for _, p := range r.db.purchases {
		if p.PaymentStatus == models.PaymentStatusPending && !p.CreatedAt.After(cutoff) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memPurchases) DeleteUnpaid(_ context.Context, id uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.purchases[id]
	if !ok || p.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	delete(r.db.purchases, id)
	return true, nil
}

func (r memPurchases) Stats(context.Context) (PurchaseStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stats := PurchaseStats{TotalRevenue: decimal.Zero}
	for _, p := range r.db.purchases {
		if !p.IsPaid() {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(p.PaymentAmount)
		switch p.OrderStatus {
		case models.OrderStatusCompleted:
			stats.CompletedOrders++
		case models.OrderStatusPending:
			stats.PendingOrders++
		}
	}
	return stats, nil
}

type memResetCodes struct{ db *memoryDB }

func (r memResetCodes) Replace(_ context.Context, code *models.PasswordResetCode) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	code.Email = normalizeEmail(code.Email)
	for id, existing := range r.db.codes {
		if existing.Email == code.Email {
			delete(r.db.codes, id)
		}
	}
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	code.CreatedAt = r.db.now()
	code.UpdatedAt = code.CreatedAt
	r.db.codes[code.ID] = *code
	return nil
}

// active finds the matching usable row in the given verification state.
// Caller holds mu.
func (r memResetCodes) active(email, code string, verified bool, now time.Time) (models.PasswordResetCode, bool) {
	email = normalizeEmail(email)
	for _, row := range r.db.codes {
		if row.Email == email && row.Code == code && row.IsVerified == verified && row.Active(now) {
			return row, true
		}
	}
	return models.PasswordResetCode{}, false
}

func (r memResetCodes) Exchange(_ context.Context, email, code, token string, now time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.active(email, code, false, now)
	if !ok {
		return false, nil
	}
	row.Code = token
	row.IsVerified = true
	row.UpdatedAt = now
	r.db.codes[row.ID] = row
	return true, nil
}

func (r memResetCodes) Consume(_ context.Context, email, token, passwordHash string, now time.Time) (uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.active(email, token, true, now)
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	for id, user := range r.db.users {
		if user.Email == row.Email {
			user.PasswordHash = passwordHash
			user.UpdatedAt = now
			r.db.users[id] = user

			row.IsUsed = true
			row.UpdatedAt = now
			r.db.codes[row.ID] = row
			return id, nil
		}
	}
	return uuid.Nil, ErrNotFound
}

func (r memResetCodes) staleIDs(expiredBefore, usedBefore time.Time) []uuid.UUID {
	var ids []uuid.UUID
	for id, row := range r.db.codes {
		if row.ExpiresAt.Before(expiredBefore) || (row.IsUsed && row.UpdatedAt.Before(usedBefore)) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r memResetCodes) CountStale(_ context.Context, expiredBefore, usedBefore time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.staleIDs(expiredBefore, usedBefore))), nil
}

func (r memResetCodes) DeleteStale(_ context.Context, expiredBefore, usedBefore time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ids := r.staleIDs(expiredBefore, usedBefore)
	for _, id := range ids {
		delete(r.db.codes, id)
	}
	return int64(len(ids)), nil
}

type memContacts struct{ db *memoryDB }

func (r memContacts) Create(_ context.Context, contact *models.ContactMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&contact.BaseModel)
	r.db.contacts = append(r.db.contacts, *contact)
	return nil
}

func (r memContacts) List(_ context.Context, filter ContactFilter) ([]models.ContactMessage, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []models.ContactMessage
	for i := len(r.db.contacts) - 1; i >= 0; i-- {
		c := r.db.contacts[i]
		if filter.Search != "" && !containsFold(c.Name, filter.Search) && !containsFold(c.Email, filter.Search) &&
			!containsFold(c.Subject, filter.Search) && !containsFold(c.BusinessName, filter.Search) {
			continue
		}
		out = append(out, c)
	}
	return paginate(out, filter.PaginationParams), int64(len(out)), nil
}

type memAudit struct{ db *memoryDB }

func (r memAudit) Create(_ context.Context, entry *models.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&entry.BaseModel)
	r.db.audit = append(r.db.audit, *entry)
	return nil
}

type memLocker struct{ db *memoryDB }

func (l memLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	l.db.mu.Lock()
	if l.db.locks[name] {
		l.db.mu.Unlock()
		return false, nil
	}
	l.db.locks[name] = true
	l.db.mu.Unlock()

	defer func() {
		l.db.mu.Lock()
		delete(l.db.locks, name)
		l.db.mu.Unlock()
	}()
	return true, fn(ctx)
}

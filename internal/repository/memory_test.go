package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

func seedPurchase(t *testing.T, store *Store) (*models.User, *models.Purchase) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Name: gofakeit.Name(), Email: gofakeit.Email()}
	require.NoError(t, store.Users.Create(ctx, user))

	product := &models.Product{Name: "Jersey", Code: gofakeit.LetterN(6), MinimumQuantity: 25, PerPrice: decimal.NewFromInt(10), IsActive: true}
	require.NoError(t, store.Products.Create(ctx, product))

	purchase := &models.Purchase{
		UserID:        user.ID,
		ProductID:     product.ID,
		PaymentType:   models.PaymentTypeFull,
		PaymentAmount: decimal.RequireFromString("270.00"),
	}
	require.NoError(t, store.Purchases.Create(ctx, purchase))
	return user, purchase
}

func TestMemoryUsersRejectDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Users.Create(ctx, &models.User{Name: "A", Email: "Dup@Example.com"}))
	err := store.Users.Create(ctx, &models.User{Name: "B", Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryMarkPaid(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, purchase := seedPurchase(t, store)
	_, other := seedPurchase(t, store)

	paid, already, err := store.Purchases.MarkPaid(ctx, purchase.ID, "pi_1", time.Now())
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, paid.IsPaid())

	paid, already, err = store.Purchases.MarkPaid(ctx, purchase.ID, "pi_2", time.Now())
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, "pi_1", *paid.ChargeRef)

	_, _, err = store.Purchases.MarkPaid(ctx, other.ID, "pi_1", time.Now())
	assert.ErrorIs(t, err, ErrChargeRefTaken)

	found, err := store.Purchases.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, found.IsPaid())
	require.NotNil(t, found.Product)
	require.NotNil(t, found.User)
}

func TestMemoryOrderStatusGate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, purchase := seedPurchase(t, store)

	_, _, err := store.Purchases.UpdateOrderStatus(ctx, purchase.ID, models.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrPaymentPending)

	_, _, err = store.Purchases.MarkPaid(ctx, purchase.ID, "pi_9", time.Now())
	require.NoError(t, err)

	updated, changed, err := store.Purchases.UpdateOrderStatus(ctx, purchase.ID, models.OrderStatusInProgress)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.OrderStatusInProgress, updated.OrderStatus)

	_, changed, err = store.Purchases.UpdateOrderStatus(ctx, purchase.ID, models.OrderStatusInProgress)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMemoryDeleteUnpaidSkipsPaid(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, unpaid := seedPurchase(t, store)
	_, paid := seedPurchase(t, store)
	_, _, err := store.Purchases.MarkPaid(ctx, paid.ID, "pi_3", time.Now())
	require.NoError(t, err)

	stale, err := store.Purchases.ListUnpaidBefore(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, unpaid.ID, stale[0].ID)

	deleted, err := store.Purchases.DeleteUnpaid(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.Purchases.DeleteUnpaid(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestMemoryStats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, a := seedPurchase(t, store)
	_, b := seedPurchase(t, store)
	seedPurchase(t, store)

	_, _, err := store.Purchases.MarkPaid(ctx, a.ID, "pi_a", time.Now())
	require.NoError(t, err)
	_, _, err = store.Purchases.MarkPaid(ctx, b.ID, "pi_b", time.Now())
	require.NoError(t, err)
	_, _, err = store.Purchases.UpdateOrderStatus(ctx, b.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	stats, err := store.Purchases.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CompletedOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, "540.00", stats.TotalRevenue.StringFixed(2))
}

func TestMemoryResetCodes(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	user := &models.User{Name: "Sam", Email: "sam@example.com", PasswordHash: "old"}
	require.NoError(t, store.Users.Create(ctx, user))

	first := &models.PasswordResetCode{Email: "sam@example.com", Code: "111111", ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, store.ResetCodes.Replace(ctx, first))
	second := &models.PasswordResetCode{Email: "SAM@example.com", Code: "222222", ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, store.ResetCodes.Replace(ctx, second))

	_, err := store.ResetCodes.Consume(ctx, "sam@example.com", "222222", "hash", now)
	assert.ErrorIs(t, err, ErrNotFound, "an unverified code cannot reset the password")

	ok, err := store.ResetCodes.Exchange(ctx, "sam@example.com", "111111", "token-a", now)
	require.NoError(t, err)
	assert.False(t, ok, "superseded code must not verify")

	ok, err = store.ResetCodes.Exchange(ctx, "sam@example.com", "222222", "token-b", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ResetCodes.Exchange(ctx, "sam@example.com", "222222", "token-c", now)
	require.NoError(t, err)
	assert.False(t, ok, "code is replaced by the token")

	ok, err = store.ResetCodes.Exchange(ctx, "sam@example.com", "token-b", "token-d", now)
	require.NoError(t, err)
	assert.False(t, ok, "a token cannot be verified again")

	userID, err := store.ResetCodes.Consume(ctx, "sam@example.com", "token-b", "new-hash", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	updated, err := store.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.PasswordHash)

	_, err = store.ResetCodes.Consume(ctx, "sam@example.com", "token-b", "again", now)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := store.ResetCodes.CountStale(ctx, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	deleted, err := store.ResetCodes.DeleteStale(ctx, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestMemoryProductList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, p := range []models.Product{
		{Name: "Rugby Jersey", Code: "R1", Category: models.CategoryRugby, MinimumQuantity: 25, PerPrice: decimal.NewFromInt(12), IsActive: true},
		{Name: "Cricket Whites", Code: "C1", Category: models.CategoryCricket, MinimumQuantity: 100, PerPrice: decimal.NewFromInt(20), IsActive: true},
		{Name: "Swim Cap", Code: "S1", Category: models.CategoryAquatics, MinimumQuantity: 500, PerPrice: decimal.NewFromInt(2), IsActive: false},
	} {
		product := p
		require.NoError(t, store.Products.Create(ctx, &product))
	}

	active := true
	products, total, err := store.Products.List(ctx, ProductFilter{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 10, Sort: SortPriceHighLow},
		IsActive:         &active,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "C1", products[0].Code)

	products, total, err = store.Products.List(ctx, ProductFilter{MOQ: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "C1", products[0].Code)

	exists, err := store.Products.CodeExists(ctx, "R1", nil)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Products.CodeExists(ctx, "R1", &products[0].ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryLockerExcludesConcurrentHolders(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{})
	var runs int32
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Locker.WithLock(ctx, "cleanup-unpaid", func(context.Context) error {
			atomic.AddInt32(&runs, 1)
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	acquired, err := store.Locker.WithLock(ctx, "cleanup-unpaid", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, acquired)

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	acquired, err = store.Locker.WithLock(ctx, "cleanup-unpaid", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, acquired)
}

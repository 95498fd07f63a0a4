// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/repository"
)

type AdminService struct {
	users     repository.UserRepository
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	audit     repository.AuditRepository
}

type AdminDashboardStats struct {
	TotalProducts   int64  `json:"total_products"`
	TotalUsers      int64  `json:"total_users"`
	CompletedOrders int64  `json:"completed_orders"`
	PendingOrders   int64  `json:"pending_orders"`
	TotalRevenue    string `json:"total_revenue"`
}

func NewAdminService(store *repository.Store) *AdminService {
	return &AdminService{
		users:     store.Users,
		products:  store.Products,
		purchases: store.Purchases,
		audit:     store.Audit,
	}
}

// DashboardStats counts orders among paid purchases only.
func (s *AdminService) DashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	stats, err := s.purchases.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase stats: %w", err)
	}

	products, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return &AdminDashboardStats{
		TotalProducts:   products,
		TotalUsers:      users,
		CompletedOrders: stats.CompletedOrders,
		PendingOrders:   stats.PendingOrders,
		TotalRevenue:    stats.TotalRevenue.StringFixed(2),
	}, nil
}

// RecordAction stores an audit entry for an admin request. Failures are
// logged and never fail the request.
func (s *AdminService) RecordAction(ctx context.Context, entry *models.AuditLog) {
	if err := s.audit.Create(ctx, entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"action":        entry.Action,
			"resource_type": entry.ResourceType,
		}).Error("Failed to write audit log")
	}
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *models.ContactMessage) error {
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return fmt.Errorf("failed to store contact message: %w", err)
	}
	return nil
}

func (r *contactRepository) List(ctx context.Context, filter ContactFilter) ([]models.ContactMessage, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(subject) LIKE ? OR LOWER(business_name) LIKE ?",
			term, term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contact messages: %w", err)
	}

	var contacts []models.ContactMessage
	if err := utils.ApplyPagination(query.Order("created_at desc"), filter.PaginationParams).Find(&contacts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list contact messages: %w", err)
	}
	return contacts, total, nil
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

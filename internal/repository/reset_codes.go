package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/bulkwear-backend/internal/models"
)

type resetCodeRepository struct {
	db *gorm.DB
}

func NewResetCodeRepository(db *gorm.DB) ResetCodeRepository {
	return &resetCodeRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *resetCodeRepository) Replace(ctx context.Context, code *models.PasswordResetCode) error {
	code.Email = normalizeEmail(code.Email)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", code.Email).Delete(&models.PasswordResetCode{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous codes: %w", err)
		}
		if err := tx.Create(code).Error; err != nil {
			return fmt.Errorf("failed to store reset code: %w", err)
		}
		return nil
	})
}

// activeRow locks the unused, unexpired row for email in the given
// verification state.
func (r *resetCodeRepository) activeRow(tx *gorm.DB, email, code string, verified bool, now time.Time) (*models.PasswordResetCode, error) {
	var row models.PasswordResetCode
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ? AND code = ? AND is_verified = ? AND is_used = ? AND expires_at > ?",
			normalizeEmail(email), code, verified, false, now).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *resetCodeRepository) Exchange(ctx context.Context, email, code, token string, now time.Time) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := r.activeRow(tx, email, code, false, now)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(row).Updates(map[string]interface{}{"code": token, "is_verified": true}).Error; err != nil {
			return fmt.Errorf("failed to store reset token: %w", err)
		}
		found = true
		return nil
	})
	return found, err
}

func (r *resetCodeRepository) Consume(ctx context.Context, email, token, passwordHash string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := r.activeRow(tx, email, token, true, now)
		if err != nil {
			return err
		}

		var user models.User
		if err := tx.Where("email = ?", row.Email).First(&user).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Model(row).Update("is_used", true).Error; err != nil {
			return fmt.Errorf("failed to mark token used: %w", err)
		}
		userID = user.ID
		return nil
	})
	return userID, err
}

func (r *resetCodeRepository) stale(ctx context.Context, expiredBefore, usedBefore time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("expires_at < ? OR (is_used = ? AND updated_at < ?)", expiredBefore, true, usedBefore)
}

func (r *resetCodeRepository) CountStale(ctx context.Context, expiredBefore, usedBefore time.Time) (int64, error) {
	var total int64
	err := r.stale(ctx, expiredBefore, usedBefore).Model(&models.PasswordResetCode{}).Count(&total).Error
	return total, err
}

func (r *resetCodeRepository) DeleteStale(ctx context.Context, expiredBefore, usedBefore time.Time) (int64, error) {
	result := r.stale(ctx, expiredBefore, usedBefore).Delete(&models.PasswordResetCode{})
	return result.RowsAffected, result.Error
}

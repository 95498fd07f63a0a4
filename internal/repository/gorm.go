package repository

import (
	"errors"

	"gorm.io/gorm"
)

// NewGormStore wires every repository to db. db should be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:      NewUserRepository(db),
		Products:   NewProductRepository(db),
		Purchases:  NewPurchaseRepository(db),
		ResetCodes: NewResetCodeRepository(db),
		Contacts:   NewContactRepository(db),
		Audit:      NewAuditRepository(db),
		Locker:     NewAdvisoryLocker(db),
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

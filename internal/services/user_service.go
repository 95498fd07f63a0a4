// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const profileCacheTTL = 600 * time.Second

type UserService struct {
	users repository.UserRepository
	cache cache.Cache
}

type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=20"`
	Country string `json:"country,omitempty" validate:"max=100"`
	City    string `json:"city,omitempty" validate:"max=100"`
	State   string `json:"state,omitempty" validate:"max=100"`
	ZipCode string `json:"zip_code,omitempty" validate:"max=20"`
	Address string `json:"address,omitempty"`
}

type UpdatePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

func NewUserService(users repository.UserRepository, c cache.Cache) *UserService {
	return &UserService{users: users, cache: c}
}

func profileKey(userID uuid.UUID) string {
	return "user:profile:" + userID.String()
}

// Profile returns the user, read through the profile cache.
func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return cache.Remember(ctx, s.cache, profileKey(userID), profileCacheTTL, func(ctx context.Context) (*models.User, error) {
		return s.load(ctx, userID)
	})
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = req.Name
	user.Phone = req.Phone
	user.Country = req.Country
	user.City = req.City
	user.State = req.State
	user.ZipCode = req.ZipCode
	user.Address = req.Address

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	cache.Forget(ctx, s.cache, []string{profileKey(userID)})
	return user, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, req *UpdatePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return utils.NewValidationError("Current password is incorrect")
	}

	if err := user.SetPassword(req.Password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	cache.Forget(ctx, s.cache, []string{profileKey(userID)})
	return nil
}

func (s *UserService) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

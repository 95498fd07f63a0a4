// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type AuthService struct {
	users repository.UserRepository
	cfg   config.JWTConfig
	now   func() time.Time
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Phone                string `json:"phone,omitempty" validate:"max=20"`
	Country              string `json:"country,omitempty" validate:"max=100"`
	City                 string `json:"city,omitempty" validate:"max=100"`
	State                string `json:"state,omitempty" validate:"max=100"`
	ZipCode              string `json:"zip_code,omitempty" validate:"max=20"`
	Address              string `json:"address,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

func NewAuthService(users repository.UserRepository, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		now:   time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, utils.NewConflictError("A user with this email already exists", false)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Phone:    req.Phone,
		Country:  req.Country,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Address:  req.Address,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.NewConflictError("A user with this email already exists", false)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")

	return s.issueTokens(user, false)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewUnauthorizedError("Invalid email or password")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, utils.NewUnauthorizedError("Invalid email or password")
	}

	if !user.IsActive {
		return nil, utils.NewForbiddenError("Account is inactive")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	return s.issueTokens(user, req.RememberMe)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, utils.NewUnauthorizedError("Token is invalid or has expired")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, utils.NewUnauthorizedError("Token is invalid or has expired")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewUnauthorizedError("Token is invalid or has expired")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive {
		return nil, utils.NewForbiddenError("Account is inactive")
	}

	return s.issueTokens(user, false)
}

func (s *AuthService) issueTokens(user *models.User, remember bool) (*AuthResponse, error) {
	accessTTL, refreshTTL := s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL
	if remember {
		accessTTL, refreshTTL = s.cfg.RememberAccessTokenTTL, s.cfg.RememberRefreshTokenTTL
	}

	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL * 3600, // Convert hours to seconds
	}, nil
}

// internal/services/password_reset_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/notification"
	"github.com/javajoker/bulkwear-backend/internal/ratelimit"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const (
	resetCodeDigits  = 6
	resetTokenLength = 64
	invalidCodeMsg   = "Invalid or expired verification code."
	invalidTokenMsg  = "Invalid or expired reset token."
	forgotLimitedMsg = "Too many password reset requests. Please try again later."
	verifyLimitedMsg = "Too many verification attempts. Please try again later."
)

// PasswordResetService runs the three step reset: a six digit code is
// mailed, exchanged for a one-time token, and the token sets the password.
type PasswordResetService struct {
	users  repository.UserRepository
	codes  repository.ResetCodeRepository
	cache  cache.Cache
	mailer Mailer
	cfg    config.ResetConfig

	forgotByEmail  *ratelimit.Window
	forgotByIP     *ratelimit.Window
	verifyAttempts *ratelimit.Window

	now func() time.Time
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type VerifyCodeResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type ResetPasswordRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Token                string `json:"token" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

func NewPasswordResetService(
	users repository.UserRepository,
	codes repository.ResetCodeRepository,
	c cache.Cache,
	mailer Mailer,
	cfg config.ResetConfig,
) *PasswordResetService {
	return &PasswordResetService{
		users:          users,
		codes:          codes,
		cache:          c,
		mailer:         mailer,
		cfg:            cfg,
		forgotByEmail:  ratelimit.NewWindow(c, "forgot_password:", cfg.EmailLimit, cfg.EmailWindow),
		forgotByIP:     ratelimit.NewWindow(c, "forgot_password_ip:", cfg.IPLimit, cfg.IPWindow),
		verifyAttempts: ratelimit.NewWindow(c, "verify_attempts:", cfg.VerifyLimit, cfg.VerifyWindow),
		now:            time.Now,
	}
}

// ForgotPassword issues a new code for a registered email. Unknown emails
// get the same nil result so the endpoint does not reveal accounts.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest, ip string) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)

	if !s.allow(ctx, s.forgotByEmail, email) {
		return utils.NewRateLimitedError(forgotLimitedMsg)
	}
	if ip != "" && !s.allow(ctx, s.forgotByIP, ip) {
		return utils.NewRateLimitedError(forgotLimitedMsg)
	}

	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logrus.WithField("email", email).Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	code, err := utils.GenerateNumericCode(resetCodeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	record := &models.PasswordResetCode{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(s.cfg.CodeTTL),
	}
	if err := s.codes.Replace(ctx, record); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	s.mailer.Dispatch(notification.PasswordResetCodeMessage(email, code, int(s.cfg.CodeTTL.Minutes())))
	logrus.WithField("email", email).Info("Password reset code issued")
	return nil
}

// VerifyCode exchanges a valid code for a reset token.
func (s *PasswordResetService) VerifyCode(ctx context.Context, req *VerifyCodeRequest) (*VerifyCodeResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)

	exceeded, err := s.verifyAttempts.Exceeded(ctx, email)
	if err != nil {
		logrus.WithError(err).WithField("email", email).Warn("Verify attempt counter unavailable")
	}
	if exceeded {
		return nil, utils.NewRateLimitedError(verifyLimitedMsg)
	}

	token, err := utils.GenerateRandomString(resetTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	ok, err := s.codes.Exchange(ctx, email, req.Code, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to verify reset code: %w", err)
	}
	if !ok {
		if err := s.verifyAttempts.Record(ctx, email); err != nil {
			logrus.WithError(err).WithField("email", email).Warn("Failed to record verify attempt")
		}
		return nil, utils.NewValidationError(invalidCodeMsg)
	}

	if err := s.verifyAttempts.Reset(ctx, email); err != nil {
		logrus.WithError(err).WithField("email", email).Warn("Failed to clear verify attempts")
	}

	return &VerifyCodeResponse{Email: email, Token: token}, nil
}

// ResetPassword sets a new password with a token from VerifyCode. The token
// is spent by the same write that changes the password. The mailed code is
// never accepted here.
func (s *PasswordResetService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if len(req.Token) != resetTokenLength {
		return utils.NewValidationError(invalidTokenMsg)
	}
	email := normalizeEmail(req.Email)

	var hashed models.User
	if err := hashed.SetPassword(req.Password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.codes.Consume(ctx, email, req.Token, hashed.PasswordHash, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NewValidationError(invalidTokenMsg)
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	cache.Forget(ctx, s.cache, []string{profileKey(userID)})
	logrus.WithFields(logrus.Fields{"user_id": userID, "email": email}).Info("Password reset")
	return nil
}

// allow counts a request against w. A cache outage lets the request
// through rather than locking every user out.
func (s *PasswordResetService) allow(ctx context.Context, w *ratelimit.Window, subject string) bool {
	ok, err := w.Hit(ctx, subject)
	if err != nil {
		logrus.WithError(err).Warn("Rate limit counter unavailable")
		return true
	}
	return ok
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/notification"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

var testResetConfig = config.ResetConfig{
	CodeTTL:      10 * time.Minute,
	EmailLimit:   30,
	EmailWindow:  15 * time.Minute,
	IPLimit:      40,
	IPWindow:     time.Hour,
	VerifyLimit:  30,
	VerifyWindow: 15 * time.Minute,
}

type PasswordResetServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *repository.Store
	mailer  *recordingMailer
	service *PasswordResetService
	user    *models.User
	clock   time.Time
}

func (s *PasswordResetServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repository.NewMemoryStore()
	s.mailer = &recordingMailer{}
	s.service = NewPasswordResetService(s.store.Users, s.store.ResetCodes, cache.NewMemoryCache(1000), s.mailer, testResetConfig)
	s.clock = time.Now()
	s.service.now = func() time.Time { return s.clock }
	s.user = createUser(s.T(), s.store)
}

func (s *PasswordResetServiceTestSuite) forgot(email, ip string) error {
	return s.service.ForgotPassword(s.ctx, &ForgotPasswordRequest{Email: email}, ip)
}

// lastCode returns the code from the most recent mail.
func (s *PasswordResetServiceTestSuite) lastCode() string {
	sent := s.mailer.Messages()
	s.Require().NotEmpty(sent)
	msg := sent[len(sent)-1]
	s.Equal(notification.TemplatePasswordResetCode, msg.Template)
	code, ok := msg.Data["Code"].(string)
	s.Require().True(ok)
	return code
}

func (s *PasswordResetServiceTestSuite) verify(code string) (*VerifyCodeResponse, error) {
	return s.service.VerifyCode(s.ctx, &VerifyCodeRequest{Email: s.user.Email, Code: code})
}

func (s *PasswordResetServiceTestSuite) requireKind(err error, kind utils.ErrorKind, message string) {
	appErr, ok := utils.AsAppError(err)
	s.Require().True(ok, "expected *AppError, got %v", err)
	s.Equal(kind, appErr.Kind)
	if message != "" {
		s.Equal(message, appErr.Message)
	}
}

// wrongCode returns a well formed code different from code.
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func (s *PasswordResetServiceTestSuite) TestForgotPasswordMailsCode() {
	s.Require().NoError(s.forgot(s.user.Email, "10.0.0.1"))

	sent := s.mailer.Messages()
	s.Require().Len(sent, 1)
	s.Equal(s.user.Email, sent[0].To)
	s.Equal("10 minutes", sent[0].Data["ExpiresIn"])
	s.Regexp(`^\d{6}$`, s.lastCode())
}

func (s *PasswordResetServiceTestSuite) TestForgotPasswordUnknownEmailIsSilent() {
	s.Require().NoError(s.forgot("nobody@example.com", "10.0.0.1"))
	s.Empty(s.mailer.Messages())
}

func (s *PasswordResetServiceTestSuite) TestForgotPasswordRejectsInvalidEmail() {
	err := s.forgot("not-an-email", "10.0.0.1")
	s.Require().Error(err)
	s.NotEmpty(utils.GetValidationErrors(err))
}

func (s *PasswordResetServiceTestSuite) TestForgotPasswordLimitedPerEmail() {
	for i := 0; i < testResetConfig.EmailLimit; i++ {
		s.Require().NoError(s.forgot(s.user.Email, fmt.Sprintf("10.0.%d.1", i)))
	}

	err := s.forgot(s.user.Email, "10.9.9.9")
	s.requireKind(err, utils.KindRateLimited, forgotLimitedMsg)

	other := createUser(s.T(), s.store)
	s.NoError(s.forgot(other.Email, "10.9.9.9"))
}

func (s *PasswordResetServiceTestSuite) TestForgotPasswordLimitedPerIP() {
	for i := 0; i < testResetConfig.IPLimit; i++ {
		s.Require().NoError(s.forgot(fmt.Sprintf("user%d@example.com", i), "10.0.0.1"))
	}

	err := s.forgot("late@example.com", "10.0.0.1")
	s.requireKind(err, utils.KindRateLimited, forgotLimitedMsg)

	s.NoError(s.forgot("late@example.com", "10.0.0.2"))
}

func (s *PasswordResetServiceTestSuite) TestFullResetFlow() {
	s.Require().NoError(s.forgot(s.user.Email, "10.0.0.1"))

	resp, err := s.verify(s.lastCode())
	s.Require().NoError(err)
	s.Equal(s.user.Email, resp.Email)
	s.Len(resp.Token, 64)

	reset := &ResetPasswordRequest{
		Email:                s.user.Email,
		Token:                resp.Token,
		Password:             "BrandNew123",
		PasswordConfirmation: "BrandNew123",
	}
	s.Require().NoError(s.service.ResetPassword(s.ctx, reset))

	updated, err := s.store.Users.FindByID(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.NoError(updated.CheckPassword("BrandNew123"))
	s.Error(updated.CheckPassword(testPassword))

	// the token is single use
	err = s.service.ResetPassword(s.ctx, reset)
	s.requireKind(err, utils.KindValidation, invalidTokenMsg)
}

func (s *PasswordResetServiceTestSuite) TestCodeCannotBeVerifiedTwice() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	code := s.lastCode()

	_, err := s.verify(code)
	s.Require().NoError(err)

	_, err = s.verify(code)
	s.requireKind(err, utils.KindValidation, invalidCodeMsg)
}

func (s *PasswordResetServiceTestSuite) TestNewCodeSupersedesOld() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	first := s.lastCode()
	s.Require().NoError(s.forgot(s.user.Email, ""))
	second := s.lastCode()

	if first != second {
		_, err := s.verify(first)
		s.requireKind(err, utils.KindValidation, invalidCodeMsg)
	}

	_, err := s.verify(second)
	s.NoError(err)
}

func (s *PasswordResetServiceTestSuite) TestExpiredCodeRejected() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	code := s.lastCode()

	s.clock = s.clock.Add(testResetConfig.CodeTTL + time.Second)
	_, err := s.verify(code)
	s.requireKind(err, utils.KindValidation, invalidCodeMsg)
}

func (s *PasswordResetServiceTestSuite) TestVerifyAttemptsLimited() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	code := s.lastCode()
	wrong := wrongCode(code)

	for i := 0; i < testResetConfig.VerifyLimit; i++ {
		_, err := s.verify(wrong)
		s.requireKind(err, utils.KindValidation, invalidCodeMsg)
	}

	// even the right code is refused once the limit is reached
	_, err := s.verify(code)
	s.requireKind(err, utils.KindRateLimited, verifyLimitedMsg)
}

func (s *PasswordResetServiceTestSuite) TestSuccessfulVerifyClearsAttempts() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	code := s.lastCode()

	for i := 0; i < testResetConfig.VerifyLimit-1; i++ {
		_, err := s.verify(wrongCode(code))
		s.Require().Error(err)
	}
	_, err := s.verify(code)
	s.Require().NoError(err)

	s.Require().NoError(s.forgot(s.user.Email, ""))
	next := s.lastCode()
	_, err = s.verify(wrongCode(next))
	s.requireKind(err, utils.KindValidation, invalidCodeMsg)
	_, err = s.verify(next)
	s.NoError(err)
}

func (s *PasswordResetServiceTestSuite) resetWith(token string) error {
	return s.service.ResetPassword(s.ctx, &ResetPasswordRequest{
		Email:                s.user.Email,
		Token:                token,
		Password:             "BrandNew123",
		PasswordConfirmation: "BrandNew123",
	})
}

func (s *PasswordResetServiceTestSuite) requirePasswordUnchanged() {
	current, err := s.store.Users.FindByID(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.NoError(current.CheckPassword(testPassword))
}

func (s *PasswordResetServiceTestSuite) TestMailedCodeCannotResetPassword() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	code := s.lastCode()

	err := s.resetWith(code)
	s.requireKind(err, utils.KindValidation, invalidTokenMsg)
	s.requirePasswordUnchanged()

	// still refused once the code has been exchanged
	resp, err := s.verify(code)
	s.Require().NoError(err)
	err = s.resetWith(code)
	s.requireKind(err, utils.KindValidation, invalidTokenMsg)
	s.requirePasswordUnchanged()

	s.NoError(s.resetWith(resp.Token))
}

func (s *PasswordResetServiceTestSuite) TestRandomTokenRejectedBeforeVerification() {
	s.Require().NoError(s.forgot(s.user.Email, ""))

	// a well formed token is useless before the code is verified
	token, err := utils.GenerateRandomString(resetTokenLength)
	s.Require().NoError(err)
	err = s.resetWith(token)
	s.requireKind(err, utils.KindValidation, invalidTokenMsg)
	s.requirePasswordUnchanged()
}

func (s *PasswordResetServiceTestSuite) TestTokenCannotBeVerifiedAgain() {
	s.Require().NoError(s.forgot(s.user.Email, ""))
	resp, err := s.verify(s.lastCode())
	s.Require().NoError(err)

	_, err = s.verify(resp.Token)
	s.Require().Error(err)
	s.NotEmpty(utils.GetValidationErrors(err))

	s.NoError(s.resetWith(resp.Token))
}

func (s *PasswordResetServiceTestSuite) TestResetRejectsMismatchedConfirmation() {
	err := s.service.ResetPassword(s.ctx, &ResetPasswordRequest{
		Email:                s.user.Email,
		Token:                "whatever",
		Password:             "BrandNew123",
		PasswordConfirmation: "Different123",
	})
	s.Require().Error(err)
	errs := utils.GetValidationErrors(err)
	s.Require().Len(errs, 1)
	s.Equal("eqfield", errs[0].Tag)
}

func TestPasswordResetServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PasswordResetServiceTestSuite))
}

// internal/services/contact_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/notification"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const contactListCacheTTL = 300 * time.Second

type ContactService struct {
	contacts   repository.ContactRepository
	cache      cache.Cache
	mailer     Mailer
	adminEmail string
}

type ContactRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	Email            string `json:"email" validate:"required,email,max=191"`
	Phone            string `json:"phone" validate:"required,max=20"`
	BusinessName     string `json:"business_name,omitempty" validate:"max=100"`
	BusinessCategory string `json:"business_category,omitempty" validate:"max=100"`
	Address          string `json:"address" validate:"required,max=255"`
	Subject          string `json:"subject" validate:"required,max=255"`
	Message          string `json:"message" validate:"required"`
}

type ContactPage struct {
	Contacts []models.ContactMessage `json:"contacts"`
	Total    int64                   `json:"total"`
}

func NewContactService(contacts repository.ContactRepository, c cache.Cache, mailer Mailer, adminEmail string) *ContactService {
	return &ContactService{
		contacts:   contacts,
		cache:      c,
		mailer:     mailer,
		adminEmail: adminEmail,
	}
}

// SubmitContact stores the message and notifies the admin mailbox.
func (s *ContactService) SubmitContact(ctx context.Context, req *ContactRequest) (*models.ContactMessage, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	contact := &models.ContactMessage{
		Name:             strings.TrimSpace(req.Name),
		Email:            normalizeEmail(req.Email),
		Phone:            req.Phone,
		BusinessName:     req.BusinessName,
		BusinessCategory: req.BusinessCategory,
		Address:          req.Address,
		Subject:          strings.TrimSpace(req.Subject),
		Message:          req.Message,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to store contact message: %w", err)
	}

	cache.Forget(ctx, s.cache, nil, "contacts:list:*")

	if s.adminEmail != "" {
		s.mailer.Dispatch(notification.ContactUsMessage(s.adminEmail, notification.ContactDetails{
			Name:             contact.Name,
			Email:            contact.Email,
			Phone:            contact.Phone,
			BusinessName:     contact.BusinessName,
			BusinessCategory: contact.BusinessCategory,
			Address:          contact.Address,
			Subject:          contact.Subject,
			Message:          contact.Message,
			CreatedAt:        contact.CreatedAt.Format("02 Jan 2006, 3:04 PM"),
		}))
	} else {
		logrus.WithField("contact_id", contact.ID).Warn("No admin email configured; contact notification skipped")
	}

	return contact, nil
}

func (s *ContactService) ListContacts(ctx context.Context, filter repository.ContactFilter) (*ContactPage, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode contact filter: %w", err)
	}
	key := "contacts:list:" + utils.HashString(string(raw))

	return cache.Remember(ctx, s.cache, key, contactListCacheTTL, func(ctx context.Context) (*ContactPage, error) {
		contacts, total, err := s.contacts.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list contacts: %w", err)
		}
		return &ContactPage{Contacts: contacts, Total: total}, nil
	})
}

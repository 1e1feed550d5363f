package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/altostack/contactvault/internal/dto"
	apperrors "github.com/altostack/contactvault/internal/errors"
	"github.com/altostack/contactvault/internal/model"
	"github.com/altostack/contactvault/internal/repository"
	"github.com/altostack/contactvault/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTimezone = "UTC"

type ContactService struct {
	repoContact *repository.ContactRepository
}

func NewContactService(repo *repository.ContactRepository) *ContactService {
	return &ContactService{repoContact: repo}
}

func toContactResponse(contact *model.Contact) dto.ContactResponse {
	return dto.ContactResponse{
		ID:          contact.ID,
		Name:        contact.Name,
		Email:       contact.Email,
		PhoneNumber: contact.PhoneNumber,
		Address:     contact.Address,
		Timezone:    contact.Timezone,
		CreatedAt:   contact.CreatedAt,
		UpdatedAt:   contact.UpdatedAt,
	}
}

// Create persists a new contact owned by userID
func (s *ContactService) Create(ctx context.Context, userID uint, req *dto.CreateContactRequest) (*dto.ContactResponse, error) {
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = defaultTimezone
	}

	contact := &model.Contact{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Address:     strings.TrimSpace(req.Address),
		Timezone:    timezone,
	}

	if err := s.repoContact.Create(ctx, contact); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	response := toContactResponse(contact)
	return &response, nil
}

// List returns a page of the caller's contacts plus totals for page math
func (s *ContactService) List(ctx context.Context, userID uint, filter dto.ContactFilter) ([]dto.ContactResponse, int64, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	contacts, total, err := s.repoContact.List(ctx, userID, filter)
	if err != nil {
		return nil, 0, 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	pages := int(math.Ceil(float64(total) / float64(filter.Limit)))

	responses := make([]dto.ContactResponse, 0, len(contacts))
	for i := range contacts {
		responses = append(responses, toContactResponse(&contacts[i]))
	}

	return responses, total, pages, nil
}

// Update mutates an owned contact. A contact that does not exist and a
// contact owned by someone else produce the same error.
func (s *ContactService) Update(ctx context.Context, userID, contactID uint, req *dto.UpdateContactRequest) (*dto.ContactResponse, error) {
	updates := make(map[string]interface{})
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) != "" {
		updates["phone_number"] = strings.TrimSpace(*req.PhoneNumber)
	}
	// Address may be cleared with an explicit empty string
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	// An explicit empty timezone reverts to the default
	if req.Timezone != nil {
		timezone := strings.TrimSpace(*req.Timezone)
		if timezone == "" {
			timezone = defaultTimezone
		}
		updates["timezone"] = timezone
	}

	if len(updates) > 0 {
		if err := s.repoContact.Update(ctx, userID, contactID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrContactNotFound
			}
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
	}

	contact, err := s.repoContact.GetOwned(ctx, userID, contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrContactNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.GetLogger().Info("Contact updated",
		zap.Uint("contact_id", contactID),
		zap.Uint("user_id", userID),
	)

	response := toContactResponse(contact)
	return &response, nil
}

// SoftDelete marks an owned contact deleted
func (s *ContactService) SoftDelete(ctx context.Context, userID, contactID uint) error {
	if err := s.repoContact.SoftDelete(ctx, userID, contactID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrContactNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/altostack/contactvault/internal/dto"
	"github.com/altostack/contactvault/internal/model"
	"github.com/altostack/contactvault/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sortColumns whitelists fields a client may sort by. Anything else falls
// back to created_at so raw query input never reaches the ORDER BY clause.
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// DB exposes the underlying handle for transaction scoping by services.
func (r *ContactRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts a new contact
func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	start := time.Now()
	result := r.db.WithContext(ctx).Create(contact)
	if result.Error != nil {
		logger.GetLogger().Error("Failed to create contact",
			zap.Uint("user_id", contact.UserID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(result.Error),
		)
		return result.Error
	}

	logger.GetLogger().Debug("Contact created",
		zap.Uint("contact_id", contact.ID),
		zap.Uint("user_id", contact.UserID),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// CreateBatch inserts contacts inside the supplied transaction handle.
// Used by bulk import so all rows commit or roll back together.
func (r *ContactRepository) CreateBatch(ctx context.Context, tx *gorm.DB, contacts []model.Contact) error {
	return tx.WithContext(ctx).Create(&contacts).Error
}

// GetOwned returns the contact only when it belongs to userID and is not
// soft-deleted. Missing rows and cross-tenant rows are indistinguishable.
func (r *ContactRepository) GetOwned(ctx context.Context, userID, contactID uint) (*model.Contact, error) {
	var contact model.Contact
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", contactID, userID, false).
		First(&contact)
	if result.Error != nil {
		return nil, result.Error
	}
	return &contact, nil
}

// List returns a filtered, sorted page of the user's contacts plus the
// pre-pagination total of the filtered set.
func (r *ContactRepository) List(ctx context.Context, userID uint, filter dto.ContactFilter) ([]model.Contact, int64, error) {
	start := time.Now()

	query := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("user_id = ? AND is_deleted = ?", userID, false)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	if filter.Timezone != "" {
		query = query.Where("timezone = ?", filter.Timezone)
	}

	if filter.StartDate != nil && filter.EndDate != nil {
		query = query.Where("created_at BETWEEN ? AND ?", *filter.StartDate, *filter.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.GetLogger().Error("Failed to count contacts",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, 0, err
	}

	column, ok := sortColumns[filter.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}

	offset := (filter.Page - 1) * filter.Limit

	var contacts []model.Contact
	if err := query.Order(column + " " + direction).Limit(filter.Limit).Offset(offset).Find(&contacts).Error; err != nil {
		logger.GetLogger().Error("Failed to list contacts",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, 0, err
	}

	logger.GetLogger().Debug("Contacts listed",
		zap.Uint("user_id", userID),
		zap.Int64("total", total),
		zap.Int("returned_count", len(contacts)),
		zap.Duration("duration", time.Since(start)),
	)

	return contacts, total, nil
}

// ListAllActive returns every non-deleted contact of the user, for export.
func (r *ContactRepository) ListAllActive(ctx context.Context, userID uint) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// Update applies non-empty fields to an owned contact
func (r *ContactRepository) Update(ctx context.Context, userID, contactID uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", contactID, userID, false).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete flags the contact as deleted without removing the row
func (r *ContactRepository) SoftDelete(ctx context.Context, userID, contactID uint) error {
	result := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", contactID, userID, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.GetLogger().Info("Contact soft-deleted",
		zap.Uint("contact_id", contactID),
		zap.Uint("user_id", userID),
	)
	return nil
}

// CountActive returns the number of non-deleted contacts for the user
func (r *ContactRepository) CountActive(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Count(&count).Error
	return count, err
}

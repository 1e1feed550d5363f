package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/altostack/contactvault/internal/dto"
	apperrors "github.com/altostack/contactvault/internal/errors"
	"github.com/altostack/contactvault/internal/model"
	"github.com/altostack/contactvault/internal/repository"
	"github.com/altostack/contactvault/pkg/fileparse"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/altostack/contactvault/pkg/validation"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// exportHeader defines the fixed CSV column order for contact export
var exportHeader = []string{"Name", "Email", "Phone Number", "Address", "Timezone", "Created At"}

// TransferService runs the bulk import/export pipeline: uploaded tabular
// files become validated contact rows, and contact sets serialize back to CSV.
type TransferService struct {
	repoContact *repository.ContactRepository
	validate    *validator.Validate
}

func NewTransferService(repo *repository.ContactRepository) *TransferService {
	// Gin's binding validator reads "binding" tags; this instance must read
	// the same tags so imported rows face the same constraints as Create.
	v := validator.New()
	v.SetTagName("binding")

	return &TransferService{
		repoContact: repo,
		validate:    v,
	}
}

// Import parses the uploaded file by extension, stamps every row with the
// importing user, validates each against the same constraints as Create, and
// inserts all rows in one transaction. Any failure persists nothing.
func (s *TransferService) Import(ctx context.Context, userID uint, data []byte, extension string) (int, error) {
	var (
		rows []fileparse.Row
		err  error
	)

	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "csv":
		rows, err = fileparse.ParseCSV(bytes.NewReader(data))
	case "xlsx", "xls":
		rows, err = fileparse.ParseExcel(data)
	default:
		return 0, apperrors.ErrUnsupportedFormat
	}

	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInvalidInput, err)
	}

	if len(rows) == 0 {
		return 0, apperrors.WrapError(apperrors.ErrInvalidInput, fmt.Errorf("file contains no data rows"))
	}

	contacts := make([]model.Contact, 0, len(rows))
	for i, row := range rows {
		req := dto.CreateContactRequest{
			Name:        row["name"],
			Email:       row["email"],
			PhoneNumber: row["phone_number"],
			Address:     row["address"],
			Timezone:    row["timezone"],
		}

		if err := s.validate.Struct(&req); err != nil {
			messages := validation.FormatErrors(err)
			logger.GetLogger().Warn("Import row failed validation",
				zap.Uint("user_id", userID),
				zap.Int("row", i+1),
				zap.Strings("errors", messages),
			)
			return 0, apperrors.WrapError(apperrors.ErrInvalidInput,
				fmt.Errorf("row %d: %s", i+1, strings.Join(messages, "; ")))
		}

		timezone := strings.TrimSpace(req.Timezone)
		if timezone == "" {
			timezone = defaultTimezone
		}

		contacts = append(contacts, model.Contact{
			UserID:      userID,
			Name:        strings.TrimSpace(req.Name),
			Email:       strings.ToLower(strings.TrimSpace(req.Email)),
			PhoneNumber: strings.TrimSpace(req.PhoneNumber),
			Address:     strings.TrimSpace(req.Address),
			Timezone:    timezone,
		})
	}

	err = s.repoContact.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repoContact.CreateBatch(ctx, tx, contacts)
	})
	if err != nil {
		logger.GetLogger().Error("Import transaction rolled back",
			zap.Uint("user_id", userID),
			zap.Int("row_count", len(contacts)),
			zap.Error(err),
		)
		return 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.GetLogger().Info("Contacts imported",
		zap.Uint("user_id", userID),
		zap.Int("imported_count", len(contacts)),
	)

	return len(contacts), nil
}

// Export serializes the caller's non-deleted contacts to CSV in the fixed
// column order. Field values with embedded commas or quotes are escaped by
// the encoder.
func (s *TransferService) Export(ctx context.Context, userID uint) ([]byte, error) {
	contacts, err := s.repoContact.ListAllActive(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	records := make([][]string, 0, len(contacts))
	for _, contact := range contacts {
		records = append(records, []string{
			contact.Name,
			contact.Email,
			contact.PhoneNumber,
			contact.Address,
			contact.Timezone,
			contact.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := fileparse.WriteCSV(exportHeader, records)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.GetLogger().Info("Contacts exported",
		zap.Uint("user_id", userID),
		zap.Int("contact_count", len(records)),
	)

	return data, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/altostack/contactvault/internal/dto"
	apperrors "github.com/altostack/contactvault/internal/errors"
	"github.com/altostack/contactvault/internal/repository"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type transferFixture struct {
	db       *gorm.DB
	repo     *repository.ContactRepository
	svc      *TransferService
	contacts *ContactService
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewContactRepository(db)
	return &transferFixture{
		db:       db,
		repo:     repo,
		svc:      NewTransferService(repo),
		contacts: NewContactService(repo),
	}
}

func TestImportCSV(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	data := []byte("Name,Email,Phone Number,Address,Timezone\n" +
		"Alice,alice@example.com,+15550000001,1 Main St,America/New_York\n" +
		"Bob,bob@example.com,+15550000002,,\n" +
		"Carol,carol@example.com,+15550000003,3 Oak Ave,Europe/Berlin\n")

	count, err := f.svc.Import(ctx, 1, data, ".csv")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 imported rows, got %d", count)
	}

	total, err := f.repo.CountActive(ctx, 1)
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 contacts persisted, got %d", total)
	}

	// Omitted timezone falls back to UTC
	contacts, _, _, err := f.contacts.List(ctx, 1, dto.ContactFilter{Page: 1, Limit: 10, Search: "bob"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Timezone != "UTC" {
		t.Errorf("Expected imported Bob with UTC timezone, got %+v", contacts)
	}
}

func TestImportCSVHeaderVariants(t *testing.T) {
	f := newTransferFixture(t)

	// Headers normalize on case, spacing, and hyphens
	data := []byte("NAME,E-Mail,phone number\nDora,dora@example.com,+15550000004\n")

	count, err := f.svc.Import(context.Background(), 1, data, "csv")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 imported row, got %d", count)
	}
}

func TestImportAtomicity(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	// Row 3 has an invalid email; nothing may persist
	data := []byte("Name,Email,Phone Number\n" +
		"Alice,alice@example.com,+15550000001\n" +
		"Bob,bob@example.com,+15550000002\n" +
		"Broken,not-an-email,+15550000003\n")

	_, err := f.svc.Import(ctx, 1, data, ".csv")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("Expected error to name the offending row, got %v", err)
	}

	total, err := f.repo.CountActive(ctx, 1)
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected no contacts after failed import, got %d", total)
	}
}

func TestImportEnforcesCreateConstraints(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	// Every constraint the create endpoint enforces must also reject
	// import rows.
	tests := []struct {
		name string
		row  string
	}{
		{
			name: "Empty name",
			row:  ",alice@example.com,+15550000001",
		},
		{
			name: "Malformed email",
			row:  "Alice,not-an-email,+15550000001",
		},
		{
			name: "Empty phone number",
			row:  "Alice,alice@example.com,",
		},
		{
			name: "Phone number too short",
			row:  "Alice,alice@example.com,123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte("Name,Email,Phone Number\n" + tt.row + "\n")

			_, err := f.svc.Import(ctx, 1, data, ".csv")
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}

			total, err := f.repo.CountActive(ctx, 1)
			if err != nil {
				t.Fatalf("CountActive failed: %v", err)
			}
			if total != 0 {
				t.Errorf("Expected no contacts persisted, got %d", total)
			}
		})
	}
}

func TestImportUnsupportedFormat(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.svc.Import(context.Background(), 1, []byte("whatever"), ".txt")
	if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestImportEmptyFile(t *testing.T) {
	f := newTransferFixture(t)

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "Header only",
			data: []byte("Name,Email,Phone Number\n"),
		},
		{
			name: "Completely empty",
			data: []byte(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Import(context.Background(), 1, tt.data, ".csv")
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestImportXLSX(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{"Name", "Email", "Phone Number", "Address", "Timezone"},
		{"Alice", "alice@example.com", "+15550000001", "1 Main St", "America/New_York"},
		{"Bob", "bob@example.com", "+15550000002", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName failed: %v", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}

	count, err := f.svc.Import(ctx, 1, buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 imported rows, got %d", count)
	}

	total, err := f.repo.CountActive(ctx, 1)
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 contacts persisted, got %d", total)
	}
}

func TestExportRoundTrip(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	// Name with a comma must survive the encoding
	if _, err := f.contacts.Create(ctx, 1, &dto.CreateContactRequest{
		Name:        "Doe, Jane",
		Email:       "jane@example.com",
		PhoneNumber: "+15550000001",
		Address:     "5 \"Quoted\" Lane",
		Timezone:    "Europe/Paris",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	out, err := f.svc.Export(ctx, 1)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("Exported CSV does not parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header plus 1 record, got %d rows", len(records))
	}

	header := records[0]
	if header[0] != "Name" || header[5] != "Created At" {
		t.Errorf("Unexpected header row: %v", header)
	}

	row := records[1]
	if row[0] != "Doe, Jane" {
		t.Errorf("Expected comma preserved in name, got %q", row[0])
	}
	if row[3] != "5 \"Quoted\" Lane" {
		t.Errorf("Expected quotes preserved in address, got %q", row[3])
	}
	if row[4] != "Europe/Paris" {
		t.Errorf("Expected timezone column, got %q", row[4])
	}
}

func TestExportExcludesDeleted(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	kept, err := f.contacts.Create(ctx, 1, &dto.CreateContactRequest{
		Name:        "Kept",
		Email:       "kept@example.com",
		PhoneNumber: "+15550000001",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	removed, err := f.contacts.Create(ctx, 1, &dto.CreateContactRequest{
		Name:        "Removed",
		Email:       "removed@example.com",
		PhoneNumber: "+15550000002",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.contacts.SoftDelete(ctx, 1, removed.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	out, err := f.svc.Export(ctx, 1)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("Exported CSV does not parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header plus 1 record, got %d rows", len(records))
	}
	if records[1][0] != kept.Name {
		t.Errorf("Expected only the kept contact, got %q", records[1][0])
	}
}

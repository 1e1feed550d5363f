package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/altostack/contactvault/internal/constants"
	"github.com/altostack/contactvault/internal/dto"
	apperrors "github.com/altostack/contactvault/internal/errors"
	"github.com/altostack/contactvault/internal/middleware"
	"github.com/altostack/contactvault/internal/service"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/altostack/contactvault/pkg/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContactHandler struct {
	contactService  *service.ContactService
	transferService *service.TransferService
	maxFileSize     int64
}

func NewContactHandler(contactService *service.ContactService, transferService *service.TransferService, maxFileSize int64) *ContactHandler {
	return &ContactHandler{
		contactService:  contactService,
		transferService: transferService,
		maxFileSize:     maxFileSize,
	}
}

// Create handles POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, validation.FormatErrors(err)))
		return
	}

	contact, err := h.contactService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		logger.GetLogger().Error("Failed to create contact",
			zap.Uint("user_id", userID),
			zap.Error(err))
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to create contact", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// List handles GET /api/contacts with pagination, search, sort, and
// creation-date filters.
func (h *ContactHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	pagination := constants.ParsePaginationParams(c)

	filter := dto.ContactFilter{
		Page:     pagination.Page,
		Limit:    pagination.Limit,
		Sort:     c.DefaultQuery(constants.QueryParamSort, constants.DefaultSort),
		Order:    c.DefaultQuery(constants.QueryParamOrder, constants.DefaultOrder),
		Search:   c.Query(constants.QueryParamSearch),
		Timezone: c.Query(constants.QueryParamTimezone),
	}

	if startStr, endStr := c.Query(constants.QueryParamStartDate), c.Query(constants.QueryParamEndDate); startStr != "" && endStr != "" {
		start, errStart := parseDate(startStr)
		end, errEnd := parseDate(endStr)
		if errStart != nil || errEnd != nil {
			c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, "startDate and endDate must be YYYY-MM-DD or RFC 3339"))
			return
		}
		filter.StartDate = &start
		filter.EndDate = &end
	}

	contacts, total, pages, err := h.contactService.List(c.Request.Context(), userID, filter)
	if err != nil {
		logger.GetLogger().Error("Failed to list contacts",
			zap.Uint("user_id", userID),
			zap.Error(err))
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to retrieve contacts", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildContactListResponse(total, pages, contacts))
}

// Update handles PUT /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	contactID, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusNotFound, constants.BuildErrorResponse(constants.MsgNotFound, nil))
		return
	}

	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, validation.FormatErrors(err)))
		return
	}

	contact, err := h.contactService.Update(c.Request.Context(), userID, contactID, &req)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to update contact", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, contact)
}

// Delete handles DELETE /api/contacts/:id (soft delete)
func (h *ContactHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	contactID, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusNotFound, constants.BuildErrorResponse(constants.MsgNotFound, nil))
		return
	}

	if err := h.contactService.SoftDelete(c.Request.Context(), userID, contactID); err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to delete contact", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Contact deleted successfully"))
}

// Upload handles POST /api/contacts/upload (multipart CSV/XLSX import)
func (h *ContactHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, "multipart field 'file' is required"))
		return
	}

	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, "file exceeds the maximum allowed size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, nil))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, nil))
		return
	}

	extension := filepath.Ext(fileHeader.Filename)

	count, err := h.transferService.Import(c.Request.Context(), userID, data, extension)
	if err != nil {
		logger.GetLogger().Warn("Contact import failed",
			zap.Uint("user_id", userID),
			zap.String("filename", fileHeader.Filename),
			zap.Error(err))
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to import contacts", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Contacts imported successfully",
		"imported": count,
	})
}

// Download handles GET /api/contacts/download (CSV export)
func (h *ContactHandler) Download(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	data, err := h.transferService.Export(c.Request.Context(), userID)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to export contacts", apperrors.GetErrorMessage(err)))
		return
	}

	c.Header(constants.HeaderContentDisposition, "attachment; filename=contacts.csv")
	c.Data(http.StatusOK, constants.ContentTypeCSV, data)
}

func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// parseDate accepts YYYY-MM-DD or full RFC 3339 timestamps
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

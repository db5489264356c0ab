package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"planmark/api/internal/annotation"
	"planmark/api/internal/attachments"
	"planmark/api/internal/export"
	"planmark/api/internal/gitrepo"
	"planmark/api/internal/share"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *annotation.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid annotation", validationErr.Fields
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, gitrepo.ErrVersionNotFound):
		return http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found", nil
	case errors.Is(err, share.ErrNotFound):
		return http.StatusNotFound, "SHARE_NOT_FOUND", "Share link not found or expired", nil
	case errors.Is(err, share.ErrInvalidPayload):
		return http.StatusUnprocessableEntity, "INVALID_SHARE", "Share payload is invalid", nil
	case errors.Is(err, attachments.ErrDisabled):
		return http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachments are not configured", nil
	case errors.Is(err, attachments.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, attachments.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Only image attachments are accepted", nil
	case errors.Is(err, attachments.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "ATTACHMENT_TOO_LARGE", "Attachment is too large", nil
	case errors.Is(err, attachments.ErrInvalidPath):
		return http.StatusBadRequest, "INVALID_PATH", "Invalid attachment path", nil
	case export.IsDependencyMissing(err):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, export.ErrContentUnavailable):
		return http.StatusConflict, "EXPORT_CONTENT_UNAVAILABLE", "Plan has no content to export", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"internship/internal/attachments"
	"internship/internal/attendance"
	"internship/internal/internship"
	"internship/internal/store"
	"internship/internal/workflow"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{workflow.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{workflow.ErrAttachNotAllowed, http.StatusConflict, "attach_not_allowed"},
	{workflow.ErrMissingReason, http.StatusUnprocessableEntity, "missing_reason"},
	{attendance.ErrInvalidDate, http.StatusUnprocessableEntity, "invalid_date"},
	{attendance.ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},
	{attendance.ErrMissingStudent, http.StatusUnprocessableEntity, "missing_student"},
	{internship.ErrInvalidSubmission, http.StatusUnprocessableEntity, "invalid_submission"},
	{internship.ErrInvalidScore, http.StatusUnprocessableEntity, "invalid_score"},
	{attachments.ErrUnsupportedFile, http.StatusUnprocessableEntity, "unsupported_file"},
	{attachments.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{attendance.ErrDuplicateCheckin, http.StatusConflict, "duplicate_checkin"},
	{internship.ErrActiveRequestExists, http.StatusConflict, "active_request_exists"},
	{internship.ErrStaleRecord, http.StatusConflict, "stale_record"},
	{store.ErrDuplicate, http.StatusConflict, "duplicate"},
	{store.ErrConflict, http.StatusConflict, "stale_record"},
	{internship.ErrNotFound, http.StatusNotFound, "not_found"},
	{internship.ErrNotVisible, http.StatusNotFound, "not_found"},
	{attendance.ErrNotFound, http.StatusNotFound, "not_found"},
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{internship.ErrForbidden, http.StatusForbidden, "forbidden"},
	{attachments.ErrNotConfigured, http.StatusServiceUnavailable, "attachments_disabled"},
	{store.ErrStorageFailure, http.StatusServiceUnavailable, "storage_failure"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if errors.Is(err, internship.ErrNotVisible) {
		// indistinguishable from a missing request
		msg = internship.ErrNotFound.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
}

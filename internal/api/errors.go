package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/httputil"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeInternalError     = "internal_error"
	ErrCodeValidationError   = "validation_error"
	ErrCodeConflict          = "conflict"
	ErrCodeUnderModeration   = "under_moderation"
	ErrCodeAlreadyResolved   = "already_resolved"
	ErrCodeNotModerator      = "not_moderator"
	ErrCodeInconsistent      = "inconsistent_record"
	ErrCodeStoreFailure      = "store_failure"
	ErrCodeMasterPending     = "master_pending"
	ErrCodeInvalidMaster     = "invalid_master"
	ErrCodeInvalidDecision   = "invalid_decision"
	ErrCodeUnknownEntityType = "unknown_entity_type"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// errorMapping ties a sentinel error to its HTTP reply. Order matters: the
// first match wins, so wrapping errors come before the errors they wrap.
type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{models.ErrStoreFailure, http.StatusInternalServerError, ErrCodeStoreFailure, "the change could not be applied; the record is still pending"},
	{models.ErrAlreadyUnderModeration, http.StatusConflict, ErrCodeUnderModeration, ""},
	{models.ErrAlreadyResolved, http.StatusConflict, ErrCodeAlreadyResolved, "moderation record already resolved"},
	{models.ErrMasterPending, http.StatusConflict, ErrCodeMasterPending, "master record must be resolved first"},
	{models.ErrDuplicateKey, http.StatusConflict, ErrCodeConflict, "entity with this ID already exists"},
	{models.ErrNotModerator, http.StatusForbidden, ErrCodeNotModerator, "moderator privilege required"},
	{models.ErrInconsistentModerationRecord, http.StatusUnprocessableEntity, ErrCodeInconsistent, ""},
	{models.ErrSnapshotDecode, http.StatusUnprocessableEntity, ErrCodeInconsistent, "stored snapshot cannot be decoded"},
	{models.ErrRecordNotFound, http.StatusNotFound, ErrCodeNotFound, "moderation record not found"},
	{models.ErrEntityNotFound, http.StatusNotFound, ErrCodeNotFound, "entity not found"},
	{models.ErrUnknownEntityType, http.StatusNotFound, ErrCodeUnknownEntityType, ""},
	{models.ErrEntityTypeMismatch, http.StatusBadRequest, ErrCodeInvalidRequest, ""},
	{models.ErrInvalidMaster, http.StatusBadRequest, ErrCodeInvalidMaster, ""},
	{models.ErrInvalidDecision, http.StatusBadRequest, ErrCodeInvalidDecision, ""},
	{models.ErrValidation, http.StatusBadRequest, ErrCodeValidationError, ""},
}

// respondServiceError maps an error from the moderation engine or catalogue
// to a reply. Unmapped errors are logged and reported as 500.
func respondServiceError(c *gin.Context, log *logrus.Logger, op string, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}

		msg := m.message
		if msg == "" {
			msg = err.Error()
		}

		if m.status >= http.StatusInternalServerError {
			log.WithError(err).WithField("op", op).Error("request failed")
		}

		if m.code == ErrCodeUnderModeration {
			metrics.ErrorsTotal.WithLabelValues(m.code).Inc()
			httputil.Respond(c, m.status, httputil.ErrorResponse{
				Code:    m.code,
				Message: msg,
				Notice:  models.OutcomeUnderModeration.Notice(),
			})

			return
		}

		respondError(c, m.status, m.code, msg)

		return
	}

	log.WithError(err).WithField("op", op).Error("request failed")
	respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

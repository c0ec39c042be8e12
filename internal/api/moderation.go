package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/middleware"
	"github.com/mediate-project/mediate/internal/models"
)

// ModerationHandler serves the review queue: listing, diffs and decisions.
type ModerationHandler struct {
	svc ModerationService
	log *logrus.Logger
}

// NewModerationHandler creates a ModerationHandler.
func NewModerationHandler(svc ModerationService, log *logrus.Logger) *ModerationHandler {
	return &ModerationHandler{svc: svc, log: log}
}

// resolveRequest is the body of POST /moderation/:id/resolve.
type resolveRequest struct {
	Decision models.ModerationState `json:"decision" binding:"required"`
	Reason   string                 `json:"reason" binding:"max=2000"`
}

// List handles GET /moderation.
func (h *ModerationHandler) List(c *gin.Context) {
	opts, err := parseModerationQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	records, hasMore, err := h.svc.List(c.Request.Context(), opts)
	if err != nil {
		respondServiceError(c, h.log, "moderation.list", err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":  "moderation.list",
		"user_id": c.GetString(middleware.UserIDKey),
		"state":   opts.State,
		"count":   len(records),
	}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"records": records, "has_more": hasMore})
}

// Stats handles GET /moderation/stats.
func (h *ModerationHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, "moderation.stats", err)

		return
	}

	c.JSON(http.StatusOK, stats)
}

// Get handles GET /moderation/:id.
func (h *ModerationHandler) Get(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, "moderation.get", err)

		return
	}

	c.JSON(http.StatusOK, rec)
}

// Diff handles GET /moderation/:id/diff.
func (h *ModerationHandler) Diff(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	diff, err := h.svc.Diff(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, "moderation.diff", err)

		return
	}

	c.JSON(http.StatusOK, diff)
}

// Resolve handles POST /moderation/:id/resolve.
func (h *ModerationHandler) Resolve(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	actor := middleware.ActorFromContext(c)

	rec, err := h.svc.Resolve(c.Request.Context(), actor, id, req.Decision, req.Reason)
	if err != nil {
		respondServiceError(c, h.log, "moderation.resolve", err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "moderation.resolve",
		"user_id":   actor.UserID,
		"record_id": rec.ID,
		"decision":  rec.State,
	}).Info("audit")

	c.JSON(http.StatusOK, rec)
}

func recordID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return "", false
	}

	return id, true
}

// parseModerationQuery builds list filters from the query string.
func parseModerationQuery(c *gin.Context) (models.ModerationQueryOpts, error) {
	opts := models.ModerationQueryOpts{
		EditorID:   c.Query("editor"),
		ResolvedBy: c.Query("resolved_by"),
		State:      models.ModerationState(c.Query("state")),
		Action:     models.ModerationAction(c.Query("action")),
		TargetType: models.EntityType(c.Query("target_type")),
		TargetID:   c.Query("target_id"),
		Limit:      parseInt(c.DefaultQuery("limit", "50"), 50),
		Offset:     parseOffset(c.DefaultQuery("offset", "0")),
	}

	if opts.State != "" && !opts.State.Valid() {
		return opts, errInvalidParam("state")
	}

	if opts.Action != "" && !opts.Action.Valid() {
		return opts, errInvalidParam("action")
	}

	var err error
	if opts.Since, err = parseTime(c.Query("since")); err != nil {
		return opts, errInvalidParam("since")
	}

	if opts.Until, err = parseTime(c.Query("until")); err != nil {
		return opts, errInvalidParam("until")
	}

	if opts.Since != nil && opts.Until != nil && opts.Until.Before(*opts.Since) {
		return opts, errInvalidParam("until")
	}

	return opts, nil
}

// parseTime parses an RFC 3339 timestamp; empty input yields nil.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil //nolint:nilnil // absent filter.
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/middleware"
	"github.com/mediate-project/mediate/internal/models"
)

// EntityHandler serves catalogue entity endpoints. Writes go through the
// moderation gate; reads carry the pending-review badge.
type EntityHandler struct {
	gate      ModerationService
	catalogue CatalogueService
	factory   EntityFactory
	log       *logrus.Logger
}

// NewEntityHandler creates an EntityHandler.
func NewEntityHandler(gate ModerationService, catalogue CatalogueService, factory EntityFactory, log *logrus.Logger) *EntityHandler {
	return &EntityHandler{gate: gate, catalogue: catalogue, factory: factory, log: log}
}

// entityType reads and checks the :type path parameter.
func (h *EntityHandler) entityType(c *gin.Context) (models.EntityType, bool) {
	t := models.EntityType(c.Param("type"))
	if _, err := h.factory.New(t); err != nil {
		respondError(c, http.StatusNotFound, ErrCodeUnknownEntityType, "unknown entity type")

		return "", false
	}

	return t, true
}

// entityPath reads :type and :id.
func (h *EntityHandler) entityPath(c *gin.Context) (models.EntityType, string, bool) {
	t, ok := h.entityType(c)
	if !ok {
		return "", "", false
	}

	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return "", "", false
	}

	return t, id, true
}

// bindEntity decodes and validates the request body as an entity of type t.
func (h *EntityHandler) bindEntity(c *gin.Context, t models.EntityType) (models.Entity, bool) {
	e, err := h.factory.New(t)
	if err != nil {
		respondError(c, http.StatusNotFound, ErrCodeUnknownEntityType, "unknown entity type")

		return nil, false
	}

	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(e); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return nil, false
	}

	if err := models.ValidateEntity(e); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return nil, false
	}

	return e, true
}

func submitOptions(c *gin.Context) (models.SubmitOptions, bool) {
	master := c.Query("master_id")
	if master != "" {
		if err := validatePathID(master); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid master_id")

			return models.SubmitOptions{}, false
		}
	}

	return models.SubmitOptions{MasterID: master}, true
}

// List handles GET /entities/:type.
func (h *EntityHandler) List(c *gin.Context) {
	t, ok := h.entityType(c)
	if !ok {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	views, hasMore, err := h.catalogue.ListEntities(c.Request.Context(), t, limit, offset)
	if err != nil {
		respondServiceError(c, h.log, "entity.list", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"entities": views, "has_more": hasMore})
}

// Get handles GET /entities/:type/:id.
func (h *EntityHandler) Get(c *gin.Context) {
	t, id, ok := h.entityPath(c)
	if !ok {
		return
	}

	view, err := h.catalogue.GetEntity(c.Request.Context(), t, id)
	if err != nil {
		respondServiceError(c, h.log, "entity.get", err)

		return
	}

	c.JSON(http.StatusOK, view)
}

// Create handles POST /entities/:type.
func (h *EntityHandler) Create(c *gin.Context) {
	t, ok := h.entityType(c)
	if !ok {
		return
	}

	e, ok := h.bindEntity(c, t)
	if !ok {
		return
	}

	opts, ok := submitOptions(c)
	if !ok {
		return
	}

	res, err := h.gate.SubmitCreate(c.Request.Context(), middleware.ActorFromContext(c), e, opts)
	h.respondSubmission(c, "entity.create", t, http.StatusCreated, res, err)
}

// Update handles PUT /entities/:type/:id.
func (h *EntityHandler) Update(c *gin.Context) {
	t, id, ok := h.entityPath(c)
	if !ok {
		return
	}

	e, ok := h.bindEntity(c, t)
	if !ok {
		return
	}

	if bodyID := e.EntityID(); bodyID != "" && bodyID != id {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "body id does not match path id")

		return
	}

	opts, ok := submitOptions(c)
	if !ok {
		return
	}

	res, err := h.gate.SubmitUpdate(c.Request.Context(), middleware.ActorFromContext(c), t, id, e, opts)
	h.respondSubmission(c, "entity.update", t, http.StatusOK, res, err)
}

// Delete handles DELETE /entities/:type/:id.
func (h *EntityHandler) Delete(c *gin.Context) {
	t, id, ok := h.entityPath(c)
	if !ok {
		return
	}

	opts, ok := submitOptions(c)
	if !ok {
		return
	}

	res, err := h.gate.SubmitDelete(c.Request.Context(), middleware.ActorFromContext(c), t, id, opts)
	h.respondSubmission(c, "entity.delete", t, http.StatusOK, res, err)
}

// respondSubmission replies appliedStatus for applied changes and 202 for
// changes queued for review.
func (h *EntityHandler) respondSubmission(
	c *gin.Context, action string, t models.EntityType, appliedStatus int, res *models.SubmitResult, err error,
) {
	if err != nil {
		respondServiceError(c, h.log, action, err)

		return
	}

	if res == nil {
		respondServiceError(c, h.log, action, errors.New("gate returned no result"))

		return
	}

	h.audit(c, action, t, res)

	status := appliedStatus
	if res.Outcome == models.OutcomeSubmitted {
		status = http.StatusAccepted
	}

	c.JSON(status, res)
}

func (h *EntityHandler) audit(c *gin.Context, action string, t models.EntityType, res *models.SubmitResult) {
	fields := logrus.Fields{
		"action":  action,
		"user_id": c.GetString(middleware.UserIDKey),
		"type":    t,
		"outcome": res.Outcome,
	}
	if res.Entity != nil {
		fields["entity_id"] = res.Entity.EntityID()
	}
	if res.Record != nil {
		fields["record_id"] = res.Record.ID
	}

	h.log.WithFields(fields).Info("audit")
}

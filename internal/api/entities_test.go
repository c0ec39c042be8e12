package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mediate-project/mediate/internal/api"
	"github.com/mediate-project/mediate/internal/httputil"
	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

func entityRouter(gate *mockModeration, cat *mockCatalogue, privilege models.Privilege) *gin.Engine {
	if cat == nil {
		cat = &mockCatalogue{}
	}

	r := newTestRouter(privilege)
	h := api.NewEntityHandler(gate, cat, schema.Default(), testLogger())
	r.GET("/entities/:type", h.List)
	r.POST("/entities/:type", h.Create)
	r.GET("/entities/:type/:id", h.Get)
	r.PUT("/entities/:type/:id", h.Update)
	r.DELETE("/entities/:type/:id", h.Delete)

	return r
}

func TestEntityCreate_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome models.Outcome
		want    int
	}{
		{"applied", models.OutcomeApplied, http.StatusCreated},
		{"submitted", models.OutcomeSubmitted, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotActor models.Actor
			gate := &mockModeration{
				submitCreateFn: func(_ context.Context, actor models.Actor, e models.Entity, _ models.SubmitOptions) (*models.SubmitResult, error) {
					gotActor = actor
					if e.EntityType() != models.EntityPlace {
						return nil, fmt.Errorf("unexpected type %s", e.EntityType())
					}

					return models.NewSubmitResult(tt.outcome, e, nil), nil
				},
			}

			r := entityRouter(gate, nil, models.PrivilegeEditor)
			w := doRequest(r, http.MethodPost, "/entities/place", `{"name":"Leiden","country":"NL"}`)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}

			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["outcome"] != string(tt.outcome) || body["notice"] != tt.outcome.Notice() {
				t.Errorf("unexpected body %v", body)
			}
			if gotActor.UserID != testUserID || gotActor.Privilege != models.PrivilegeEditor {
				t.Errorf("unexpected actor %+v", gotActor)
			}
		})
	}
}

func TestEntityCreate_RejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown type", "/entities/planet", `{"name":"Mars"}`, http.StatusNotFound},
		{"malformed json", "/entities/place", `{"name":`, http.StatusBadRequest},
		{"unknown field", "/entities/place", `{"name":"Leiden","mayor":"x"}`, http.StatusBadRequest},
		{"missing required", "/entities/place", `{"country":"NL"}`, http.StatusBadRequest},
		{"latitude out of range", "/entities/place", `{"name":"Leiden","latitude":123}`, http.StatusBadRequest},
		{"bad sex", "/entities/person", `{"short_name":"Smith","sex":"x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gate := &mockModeration{}
			w := doRequest(entityRouter(gate, nil, models.PrivilegeEditor), http.MethodPost, tt.path, tt.body)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if len(gate.called()) != 0 {
				t.Errorf("gate should not be called, got %v", gate.called())
			}
		})
	}
}

func TestEntityCreate_PassesMaster(t *testing.T) {
	t.Parallel()

	var got models.SubmitOptions
	gate := &mockModeration{
		submitCreateFn: func(_ context.Context, _ models.Actor, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error) {
			got = opts
			return models.NewSubmitResult(models.OutcomeSubmitted, e, &models.ModerationRecord{ID: "r2"}), nil
		},
	}

	w := doRequest(entityRouter(gate, nil, models.PrivilegeEditor), http.MethodPost,
		"/entities/person?master_id=r1", `{"short_name":"Plantin"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if got.MasterID != "r1" {
		t.Errorf("MasterID = %q, want r1", got.MasterID)
	}
}

func TestEntityUpdate_UnderModeration(t *testing.T) {
	t.Parallel()

	gate := &mockModeration{
		submitUpdateFn: func(context.Context, models.Actor, models.EntityType, string, models.Entity, models.SubmitOptions) (*models.SubmitResult, error) {
			return nil, fmt.Errorf("submitting update: %w", models.ErrAlreadyUnderModeration)
		},
	}

	w := doRequest(entityRouter(gate, nil, models.PrivilegeEditor), http.MethodPut, "/entities/place/p1", `{"name":"Leiden"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var body httputil.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Code != api.ErrCodeUnderModeration || body.Notice != models.OutcomeUnderModeration.Notice() {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestEntityUpdate_Outcomes(t *testing.T) {
	t.Parallel()

	for outcome, want := range map[models.Outcome]int{
		models.OutcomeApplied:   http.StatusOK,
		models.OutcomeSubmitted: http.StatusAccepted,
	} {
		var gotID string
		gate := &mockModeration{
			submitUpdateFn: func(_ context.Context, _ models.Actor, _ models.EntityType, id string, e models.Entity, _ models.SubmitOptions) (*models.SubmitResult, error) {
				gotID = id
				return models.NewSubmitResult(outcome, e, nil), nil
			},
		}

		w := doRequest(entityRouter(gate, nil, models.PrivilegeEditor), http.MethodPut, "/entities/place/p1", `{"name":"Leiden"}`)
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", outcome, want, w.Code)
		}
		if gotID != "p1" {
			t.Errorf("%s: id = %q", outcome, gotID)
		}
	}
}

func TestEntityUpdate_BodyIDMismatch(t *testing.T) {
	t.Parallel()

	gate := &mockModeration{}
	w := doRequest(entityRouter(gate, nil, models.PrivilegeEditor), http.MethodPut, "/entities/place/p1", `{"id":"p2","name":"Leiden"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEntityDelete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
		code string
	}{
		{models.ErrEntityNotFound, http.StatusNotFound, api.ErrCodeNotFound},
		{models.ErrInvalidMaster, http.StatusBadRequest, api.ErrCodeInvalidMaster},
		{errors.New("boom"), http.StatusInternalServerError, api.ErrCodeInternalError},
	}

	for _, tt := range tests {
		gate := &mockModeration{
			submitDeleteFn: func(context.Context, models.Actor, models.EntityType, string, models.SubmitOptions) (*models.SubmitResult, error) {
				return nil, tt.err
			},
		}

		w := doRequest(entityRouter(gate, nil, models.PrivilegeEditor), http.MethodDelete, "/entities/person/x1", "")
		if w.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, w.Code)
		}

		var body httputil.ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Code != tt.code {
			t.Errorf("%v: code = %q, want %q", tt.err, body.Code, tt.code)
		}
	}
}

func TestEntityGet_Badge(t *testing.T) {
	t.Parallel()

	cat := &mockCatalogue{
		getFn: func(_ context.Context, typ models.EntityType, id string) (*models.EntityView, error) {
			return &models.EntityView{
				Type:            typ,
				Entity:          &models.Place{ID: id, Name: "Leiden"},
				UnderModeration: true,
				PendingRecordID: "r1",
			}, nil
		},
	}

	w := doRequest(entityRouter(&mockModeration{}, cat, models.PrivilegeEditor), http.MethodGet, "/entities/place/p1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		UnderModeration bool           `json:"under_moderation"`
		PendingRecordID string         `json:"pending_record_id"`
		Entity          map[string]any `json:"entity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.UnderModeration || body.PendingRecordID != "r1" || body.Entity["name"] != "Leiden" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestEntityList_Pagination(t *testing.T) {
	t.Parallel()

	var gotLimit, gotOffset int
	cat := &mockCatalogue{
		listFn: func(_ context.Context, _ models.EntityType, limit, offset int) ([]models.EntityView, bool, error) {
			gotLimit, gotOffset = limit, offset
			return []models.EntityView{}, true, nil
		},
	}

	r := entityRouter(&mockModeration{}, cat, models.PrivilegeEditor)
	w := doRequest(r, http.MethodGet, "/entities/collection?limit=5000&offset=-3", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotLimit != 1000 || gotOffset != 0 {
		t.Errorf("limit/offset = %d/%d, want 1000/0", gotLimit, gotOffset)
	}

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["has_more"] != true {
		t.Errorf("expected has_more, got %v", body)
	}
}

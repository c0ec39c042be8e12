package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mediate-project/mediate/internal/api"
	"github.com/mediate-project/mediate/internal/httputil"
	"github.com/mediate-project/mediate/internal/models"
)

func moderationRouter(svc *mockModeration, privilege models.Privilege) *gin.Engine {
	r := newTestRouter(privilege)
	h := api.NewModerationHandler(svc, testLogger())
	r.GET("/moderation", h.List)
	r.GET("/moderation/stats", h.Stats)
	r.GET("/moderation/:id", h.Get)
	r.GET("/moderation/:id/diff", h.Diff)
	r.POST("/moderation/:id/resolve", h.Resolve)

	return r
}

func TestModerationList_Filters(t *testing.T) {
	t.Parallel()

	var got models.ModerationQueryOpts
	svc := &mockModeration{
		listFn: func(_ context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error) {
			got = opts
			return []models.ModerationRecord{{ID: "r1", State: models.StatePending}}, false, nil
		},
	}

	w := doRequest(moderationRouter(svc, models.PrivilegeModerator), http.MethodGet,
		"/moderation?state=pending&action=update&target_type=place&editor=u7&since=2026-01-01T00:00:00Z&limit=10&offset=20", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if got.State != models.StatePending || got.Action != models.ActionUpdate ||
		got.TargetType != models.EntityPlace || got.EditorID != "u7" {
		t.Errorf("unexpected filters %+v", got)
	}
	if got.Limit != 10 || got.Offset != 20 {
		t.Errorf("limit/offset = %d/%d", got.Limit, got.Offset)
	}
	if got.Since == nil || !got.Since.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v", got.Since)
	}

	var body struct {
		Records []models.ModerationRecord `json:"records"`
		HasMore bool                      `json:"has_more"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Records) != 1 || body.Records[0].ID != "r1" || body.HasMore {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestModerationList_InvalidQuery(t *testing.T) {
	t.Parallel()

	for _, q := range []string{
		"state=archived",
		"action=merge",
		"since=yesterday",
		"since=2026-02-01T00:00:00Z&until=2026-01-01T00:00:00Z",
	} {
		svc := &mockModeration{}
		w := doRequest(moderationRouter(svc, models.PrivilegeModerator), http.MethodGet, "/moderation?"+q, "")

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
		if len(svc.called()) != 0 {
			t.Errorf("%s: service should not be called", q)
		}
	}
}

func TestModerationResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		err  error
		want int
		code string
	}{
		{"approved", `{"decision":"approved"}`, nil, http.StatusOK, ""},
		{"not moderator", `{"decision":"approved"}`, models.ErrNotModerator, http.StatusForbidden, api.ErrCodeNotModerator},
		{"already resolved", `{"decision":"rejected"}`, models.ErrAlreadyResolved, http.StatusConflict, api.ErrCodeAlreadyResolved},
		{"master pending", `{"decision":"approved"}`, models.ErrMasterPending, http.StatusConflict, api.ErrCodeMasterPending},
		{"store failure", `{"decision":"approved"}`, models.ErrStoreFailure, http.StatusInternalServerError, api.ErrCodeStoreFailure},
		{"store failure on duplicate", `{"decision":"approved"}`, fmt.Errorf("%w: approve: %w", models.ErrStoreFailure, models.ErrDuplicateKey), http.StatusInternalServerError, api.ErrCodeStoreFailure},
		{"store failure on vanished target", `{"decision":"approved"}`, fmt.Errorf("%w: approve: %w", models.ErrStoreFailure, models.ErrEntityNotFound), http.StatusInternalServerError, api.ErrCodeStoreFailure},
		{"inconsistent", `{"decision":"approved"}`, models.ErrInconsistentModerationRecord, http.StatusUnprocessableEntity, api.ErrCodeInconsistent},
		{"bad decision", `{"decision":"pending"}`, models.ErrInvalidDecision, http.StatusBadRequest, api.ErrCodeInvalidDecision},
		{"missing decision", `{}`, nil, http.StatusBadRequest, api.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotActor models.Actor
			var gotDecision models.ModerationState
			svc := &mockModeration{
				resolveFn: func(_ context.Context, actor models.Actor, id string, decision models.ModerationState, _ string) (*models.ModerationRecord, error) {
					gotActor, gotDecision = actor, decision
					if tt.err != nil {
						return nil, fmt.Errorf("resolving %s: %w", id, tt.err)
					}

					return &models.ModerationRecord{ID: id, State: decision}, nil
				},
			}

			w := doRequest(moderationRouter(svc, models.PrivilegeModerator), http.MethodPost, "/moderation/r1/resolve", tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}

			if tt.code != "" {
				var body httputil.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatal(err)
				}
				if body.Code != tt.code {
					t.Errorf("code = %q, want %q", body.Code, tt.code)
				}

				return
			}

			if gotActor.Privilege != models.PrivilegeModerator || gotDecision != models.StateApproved {
				t.Errorf("unexpected call: %+v %s", gotActor, gotDecision)
			}
		})
	}
}

func TestModerationGet_NotFound(t *testing.T) {
	t.Parallel()

	svc := &mockModeration{
		getFn: func(context.Context, string) (*models.ModerationRecord, error) {
			return nil, models.ErrRecordNotFound
		},
	}

	w := doRequest(moderationRouter(svc, models.PrivilegeEditor), http.MethodGet, "/moderation/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestModerationDiff(t *testing.T) {
	t.Parallel()

	target := "p1"
	svc := &mockModeration{
		diffFn: func(_ context.Context, id string) (*models.RecordDiff, error) {
			return &models.RecordDiff{
				RecordID:   id,
				Action:     models.ActionUpdate,
				TargetType: models.EntityPlace,
				TargetID:   &target,
				State:      models.StatePending,
				Fields: []models.FieldDiff{
					{Field: "name", Changed: true},
					{Field: "country", Changed: false},
				},
			}, nil
		},
	}

	w := doRequest(moderationRouter(svc, models.PrivilegeModerator), http.MethodGet, "/moderation/r9/diff", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var diff models.RecordDiff
	if err := json.Unmarshal(w.Body.Bytes(), &diff); err != nil {
		t.Fatal(err)
	}
	if diff.RecordID != "r9" || len(diff.Fields) != 2 || diff.Fields[0].Field != "name" || !diff.Fields[0].Changed {
		t.Errorf("unexpected diff %+v", diff)
	}
}

func TestModerationStats(t *testing.T) {
	t.Parallel()

	svc := &mockModeration{
		statsFn: func(context.Context) (*models.ModerationStats, error) {
			return &models.ModerationStats{
				Total:         3,
				ByState:       map[models.ModerationState]int{models.StatePending: 2, models.StateApproved: 1},
				PendingByType: map[models.EntityType]int{models.EntityPerson: 2},
			}, nil
		},
	}

	w := doRequest(moderationRouter(svc, models.PrivilegeEditor), http.MethodGet, "/moderation/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats models.ModerationStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.ByState[models.StatePending] != 2 || stats.PendingByType[models.EntityPerson] != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

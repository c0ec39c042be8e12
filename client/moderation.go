package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// ModerationService handles the review queue.
type ModerationService struct {
	c *Client
}

type moderationListResponse struct {
	Records []ModerationRecord `json:"records"`
	HasMore bool               `json:"has_more"`
}

func recordPath(id string, suffix ...string) string {
	p := apiPrefix + "/moderation/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// List returns moderation records matching opts.
func (s *ModerationService) List(ctx context.Context, opts *ModerationListOptions) ([]ModerationRecord, bool, error) {
	params := url.Values{}
	if opts != nil {
		for key, val := range map[string]string{
			"editor":      opts.Editor,
			"resolved_by": opts.ResolvedBy,
			"state":       opts.State,
			"action":      opts.Action,
			"target_type": opts.TargetType,
			"target_id":   opts.TargetID,
		} {
			if val != "" {
				params.Set(key, val)
			}
		}
		if opts.Since != nil {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if opts.Until != nil {
			params.Set("until", opts.Until.Format(time.RFC3339))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp moderationListResponse
	if err := s.c.get(ctx, apiPrefix+"/moderation", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Records, resp.HasMore, nil
}

// Get returns one moderation record.
func (s *ModerationService) Get(ctx context.Context, id string) (*ModerationRecord, error) {
	var rec ModerationRecord
	if err := s.c.get(ctx, recordPath(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Diff returns the field-by-field review view of a record.
func (s *ModerationService) Diff(ctx context.Context, id string) (*RecordDiff, error) {
	var diff RecordDiff
	if err := s.c.get(ctx, recordPath(id, "diff"), nil, &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

// Stats returns queue counts.
func (s *ModerationService) Stats(ctx context.Context) (*ModerationStats, error) {
	var stats ModerationStats
	if err := s.c.get(ctx, apiPrefix+"/moderation/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Resolve records a moderator decision and returns the resolved record.
func (s *ModerationService) Resolve(ctx context.Context, id string, req *ResolveRequest) (*ModerationRecord, error) {
	var rec ModerationRecord
	if err := s.c.post(ctx, recordPath(id, "resolve"), req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Approve applies a pending record.
func (s *ModerationService) Approve(ctx context.Context, id, reason string) (*ModerationRecord, error) {
	return s.Resolve(ctx, id, &ResolveRequest{Decision: StateApproved, Reason: reason})
}

// Reject discards a pending record.
func (s *ModerationService) Reject(ctx context.Context, id, reason string) (*ModerationRecord, error) {
	return s.Resolve(ctx, id, &ResolveRequest{Decision: StateRejected, Reason: reason})
}

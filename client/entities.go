package client

import (
	"context"
	"net/url"
	"strconv"
)

// EntityService reads and writes catalogue entities. Writes may be queued
// for review; check SubmitResult.Outcome.
type EntityService struct {
	c *Client
}

type entityListResponse struct {
	Entities []EntityView `json:"entities"`
	HasMore  bool         `json:"has_more"`
}

func entityPath(entityType string, id ...string) string {
	p := apiPrefix + "/entities/" + url.PathEscape(entityType)
	if len(id) > 0 {
		p += "/" + url.PathEscape(id[0])
	}
	return p
}

func submitParams(opts *SubmitOptions) url.Values {
	params := url.Values{}
	if opts != nil && opts.MasterID != "" {
		params.Set("master_id", opts.MasterID)
	}
	return params
}

// List returns entities of the given type with pagination.
func (s *EntityService) List(ctx context.Context, entityType string, limit, offset int) ([]EntityView, bool, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	var resp entityListResponse
	if err := s.c.get(ctx, entityPath(entityType), params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Entities, resp.HasMore, nil
}

// Get returns one entity and its badge.
func (s *EntityService) Get(ctx context.Context, entityType, id string) (*EntityView, error) {
	var view EntityView
	if err := s.c.get(ctx, entityPath(entityType, id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Create proposes a new entity. fields is the type-specific document.
func (s *EntityService) Create(ctx context.Context, entityType string, fields any, opts *SubmitOptions) (*SubmitResult, error) {
	var res SubmitResult
	if err := s.c.post(ctx, withQuery(entityPath(entityType), submitParams(opts)), fields, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Update proposes a full replacement of an entity.
func (s *EntityService) Update(ctx context.Context, entityType, id string, fields any, opts *SubmitOptions) (*SubmitResult, error) {
	var res SubmitResult
	if err := s.c.put(ctx, withQuery(entityPath(entityType, id), submitParams(opts)), fields, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete proposes removing an entity.
func (s *EntityService) Delete(ctx context.Context, entityType, id string, opts *SubmitOptions) (*SubmitResult, error) {
	var res SubmitResult
	if err := s.c.del(ctx, entityPath(entityType, id), submitParams(opts), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

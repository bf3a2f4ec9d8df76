// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Remote is the opaque boundary to the hosted API. The reconciler only
// needs create/update/delete per entity type; transport details stay
// behind this interface.
type Remote interface {
	Create(ctx context.Context, entityType string, data json.RawMessage) error
	Update(ctx context.Context, entityType string, data json.RawMessage) error
	Delete(ctx context.Context, entityType string, data json.RawMessage) error
}

// HTTPRemote applies mutations against {base}/{entityType}s REST
// endpoints with a Bearer token.
type HTTPRemote struct {
	BaseURL string
	Token   func(context.Context) (string, error) // returns JWT
	HTTP    *http.Client
}

// NewHTTPRemote creates a remote client for the given API root.
func NewHTTPRemote(baseURL string, token func(context.Context) (string, error)) *HTTPRemote {
	return &HTTPRemote{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Create posts a new record for entityType.
func (r *HTTPRemote) Create(ctx context.Context, entityType string, data json.RawMessage) error {
	return r.send(ctx, http.MethodPost, r.collectionURL(entityType), data)
}

// Update replaces the record identified by data's "id" field.
func (r *HTTPRemote) Update(ctx context.Context, entityType string, data json.RawMessage) error {
	id, err := extractID(data)
	if err != nil {
		return fmt.Errorf("offsync: update %s: %w", entityType, err)
	}
	return r.send(ctx, http.MethodPut, r.collectionURL(entityType)+"/"+id, data)
}

// Delete removes the record identified by data's "id" field.
func (r *HTTPRemote) Delete(ctx context.Context, entityType string, data json.RawMessage) error {
	id, err := extractID(data)
	if err != nil {
		return fmt.Errorf("offsync: delete %s: %w", entityType, err)
	}
	return r.send(ctx, http.MethodDelete, r.collectionURL(entityType)+"/"+id, nil)
}

func (r *HTTPRemote) collectionURL(entityType string) string {
	return r.BaseURL + "/" + entityType + "s"
}

func (r *HTTPRemote) send(ctx context.Context, method, url string, body json.RawMessage) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("offsync: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.Token != nil {
		token, err := r.Token(ctx)
		if err != nil {
			return fmt.Errorf("offsync: get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("offsync: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("offsync: server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func extractID(data json.RawMessage) (string, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("parse payload: %w", err)
	}
	if probe.ID == "" {
		return "", fmt.Errorf("payload missing id")
	}
	return probe.ID, nil
}

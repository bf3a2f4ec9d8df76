// Package offcache implements the cache strategy layer: an
// http.RoundTripper interceptor that serves designated API reads
// stale-while-revalidate, same-origin static assets cache-first, and a
// synthetic offline response when both cache and network fail. Cached
// responses live in named, versioned buckets in the offline store.
//
// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/furqan-debug/hisaabdost-sync/offstore"
	"github.com/furqan-debug/hisaabdost-sync/offsync"
)

// OfflineBody is the JSON body of the synthetic offline response.
const OfflineBody = `{"error":"Offline - data not available"}`

// revalidateTimeout bounds a background refresh; it is detached from
// the request context so a fast caller does not cancel it.
const revalidateTimeout = 30 * time.Second

// Transport is the request interceptor. Non-GET requests pass through
// untouched. Store failures degrade to network-only; they are logged,
// never surfaced to the caller.
type Transport struct {
	next         http.RoundTripper
	store        *offstore.Store
	reservations *offsync.Reservations
	logger       *slog.Logger

	apiPatterns []*regexp.Regexp
	manifest    []string
	origin      string

	staticBucket  string
	apiBucket     string
	generalBucket string
}

// Option customizes a Transport.
type Option func(*Transport)

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// WithTransport sets the underlying RoundTripper (default
// http.DefaultTransport).
func WithTransport(next http.RoundTripper) Option {
	return func(t *Transport) { t.next = next }
}

// New creates the interceptor over the given store.
func New(store *offstore.Store, cfg offsync.CacheConfig, reservations *offsync.Reservations, opts ...Option) (*Transport, error) {
	version := cfg.Version
	if version == "" {
		version = "v1"
	}

	t := &Transport{
		next:          http.DefaultTransport,
		store:         store,
		reservations:  reservations,
		logger:        slog.Default(),
		manifest:      cfg.StaticManifest,
		origin:        cfg.Origin,
		staticBucket:  "hisaabdost-static-" + version,
		apiBucket:     "hisaabdost-api-" + version,
		generalBucket: "hisaabdost-" + version,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.reservations == nil {
		t.reservations = offsync.NewReservations(revalidateTimeout)
	}

	for _, p := range cfg.APIPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("offcache: compile api pattern %q: %w", p, err)
		}
		t.apiPatterns = append(t.apiPatterns, re)
	}
	return t, nil
}

// Buckets returns the current known bucket names.
func (t *Transport) Buckets() []string {
	return []string{t.staticBucket, t.apiBucket, t.generalBucket}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}
	if t.isAPI(req) {
		return t.staleWhileRevalidate(req)
	}
	if t.isStatic(req) {
		return t.cacheFirst(req)
	}
	return t.next.RoundTrip(req)
}

func (t *Transport) isAPI(req *http.Request) bool {
	for _, re := range t.apiPatterns {
		if re.MatchString(req.URL.Path) {
			return true
		}
	}
	return false
}

func (t *Transport) isStatic(req *http.Request) bool {
	if t.origin == "" {
		return false
	}
	return req.URL.Host == t.origin
}

// staleWhileRevalidate serves a cached response immediately when one
// exists and refreshes the cache in the background; otherwise network
// first, caching on success, and a synthetic 503 when the network
// fails too.
func (t *Transport) staleWhileRevalidate(req *http.Request) (*http.Response, error) {
	key := req.URL.String()

	entry, err := t.store.GetEntry(req.Context(), t.apiBucket, key)
	if err == nil {
		t.revalidate(req, key)
		return responseFromEntry(req, entry), nil
	}
	if !errors.Is(err, offstore.ErrNotFound) {
		t.logger.Warn("cache read failed, falling through to network", "key", key, "error", err)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return offlineResponse(req), nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp = t.storeResponse(req.Context(), t.apiBucket, key, resp)
	}
	return resp, nil
}

// revalidate refreshes the cached entry for key in the background.
// Failures are swallowed: stale data stays authoritative until a
// refresh succeeds. The reservation collapses concurrent refreshes of
// the same key.
func (t *Transport) revalidate(req *http.Request, key string) {
	if !t.reservations.Reserve(key) {
		return
	}
	clone := req.Clone(context.Background())
	go func() {
		defer t.reservations.Release(key)

		ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
		defer cancel()

		resp, err := t.next.RoundTrip(clone.WithContext(ctx))
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return
		}
		if err := t.store.PutEntry(ctx, &offstore.Entry{
			Bucket: t.apiBucket,
			Key:    key,
			Status: resp.StatusCode,
			Header: resp.Header,
			Body:   body,
		}); err != nil {
			t.logger.Warn("background cache refresh write failed", "key", key, "error", err)
		}
	}()
}

// cacheFirst serves static assets from the cache, fetching and storing
// into the general bucket on a miss.
func (t *Transport) cacheFirst(req *http.Request) (*http.Response, error) {
	key := req.URL.String()

	// The shell manifest lands in the static bucket on install;
	// runtime-fetched assets land in the general bucket.
	for _, bucket := range []string{t.staticBucket, t.generalBucket} {
		entry, err := t.store.GetEntry(req.Context(), bucket, key)
		if err == nil {
			return responseFromEntry(req, entry), nil
		}
		if !errors.Is(err, offstore.ErrNotFound) {
			t.logger.Warn("cache read failed, falling through to network", "key", key, "error", err)
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp = t.storeResponse(req.Context(), t.generalBucket, key, resp)
	}
	return resp, nil
}

// Install pre-warms the static bucket with the shell asset manifest.
func (t *Transport) Install(ctx context.Context) error {
	for _, url := range t.manifest {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("offcache: install %q: %w", url, err)
		}
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return fmt.Errorf("offcache: install fetch %q: %w", url, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("offcache: install read %q: %w", url, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("offcache: install %q: status %d", url, resp.StatusCode)
		}
		if err := t.store.PutEntry(ctx, &offstore.Entry{
			Bucket: t.staticBucket,
			Key:    url,
			Status: resp.StatusCode,
			Header: resp.Header,
			Body:   body,
		}); err != nil {
			return fmt.Errorf("offcache: install store %q: %w", url, err)
		}
	}
	return nil
}

// Activate deletes every bucket not in the current known set, the
// version migration step.
func (t *Transport) Activate(ctx context.Context) error {
	buckets, err := t.store.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("offcache: activate: %w", err)
	}

	known := map[string]bool{
		t.staticBucket:  true,
		t.apiBucket:     true,
		t.generalBucket: true,
	}
	for _, b := range buckets {
		if known[b] {
			continue
		}
		t.logger.Debug("deleting stale cache bucket", "bucket", b)
		if err := t.store.DeleteBucket(ctx, b); err != nil {
			return fmt.Errorf("offcache: activate: %w", err)
		}
	}
	return nil
}

// storeResponse caches resp's body under (bucket, key) and returns a
// response whose body is readable again. A store failure downgrades
// caching to a no-op.
func (t *Transport) storeResponse(ctx context.Context, bucket, key string, resp *http.Response) *http.Response {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(nil))
		return resp
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if err := t.store.PutEntry(ctx, &offstore.Entry{
		Bucket: bucket,
		Key:    key,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}); err != nil {
		t.logger.Warn("cache write failed", "bucket", bucket, "key", key, "error", err)
	}
	return resp
}

func responseFromEntry(req *http.Request, entry *offstore.Entry) *http.Response {
	header := http.Header{}
	for k, vs := range entry.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	return &http.Response{
		Status:        strconv.Itoa(entry.Status) + " " + http.StatusText(entry.Status),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

// offlineResponse is the synthetic response for a cacheable API request
// with no cache entry and a failing network. Callers treat a 503 with
// this JSON shape as "offline, no data".
func offlineResponse(req *http.Request) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	body := []byte(OfflineBody)
	return &http.Response{
		Status:        "503 " + http.StatusText(http.StatusServiceUnavailable),
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

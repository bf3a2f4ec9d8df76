// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPRemoteCreate(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, func(context.Context) (string, error) { return "tok123", nil })
	err := remote.Create(context.Background(), "expense", json.RawMessage(`{"id":"e1","amount":"42"}`))
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/expenses", gotPath)
	require.Equal(t, "Bearer tok123", gotAuth)
	require.JSONEq(t, `{"id":"e1","amount":"42"}`, gotBody)
}

func TestHTTPRemoteUpdateAndDelete(t *testing.T) {
	type hit struct {
		method, path string
	}
	var hits []hit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, hit{r.Method, r.URL.Path})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, nil)
	ctx := context.Background()

	require.NoError(t, remote.Update(ctx, "budget", json.RawMessage(`{"id":"b7","limit":"100"}`)))
	require.NoError(t, remote.Delete(ctx, "budget", json.RawMessage(`{"id":"b7"}`)))

	require.Equal(t, []hit{
		{http.MethodPut, "/budgets/b7"},
		{http.MethodDelete, "/budgets/b7"},
	}, hits)
}

func TestHTTPRemoteRequiresID(t *testing.T) {
	remote := NewHTTPRemote("http://unreachable.invalid", nil)
	ctx := context.Background()

	err := remote.Update(ctx, "expense", json.RawMessage(`{"amount":"42"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing id")

	err = remote.Delete(ctx, "expense", json.RawMessage(`not json`))
	require.Error(t, err)
}

func TestHTTPRemoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"amount must be positive"}`))
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, nil)
	err := remote.Create(context.Background(), "expense", json.RawMessage(`{"id":"e1"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
	require.Contains(t, err.Error(), "amount must be positive")
}

func TestHTTPRemoteTokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent when the token source fails")
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, func(context.Context) (string, error) {
		return "", context.DeadlineExceeded
	})
	err := remote.Create(context.Background(), "expense", json.RawMessage(`{"id":"e1"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "get token")
}

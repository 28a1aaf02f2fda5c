package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	method, path, auth, body string
}

func newAuthorityServer(t *testing.T, handler http.HandlerFunc) (*HTTPAuthority, *[]request) {
	t.Helper()
	var mu sync.Mutex
	var seen []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, request{r.Method, r.URL.EscapedPath(), r.Header.Get("Authorization"), string(body)})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	a, err := NewHTTPAuthority(srv.URL+"/", nil, time.Second)
	require.NoError(t, err)
	return a, &seen
}

func TestHTTPAuthorityOperations(t *testing.T) {
	for name, body := range map[string]string{
		"object": `{"operations": ["select", "insert"]}`,
		"array":  ` ["select", "insert"]`,
	} {
		t.Run(name, func(t *testing.T) {
			a, seen := newAuthorityServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, body)
			})
			ops, err := a.AllowedOperations(context.Background(), "team/alice", "s3cret")
			require.NoError(t, err)
			assert.Equal(t, []string{"select", "insert"}, ops)

			require.Len(t, *seen, 1)
			got := (*seen)[0]
			assert.Equal(t, http.MethodGet, got.method)
			assert.Equal(t, "/subjects/team%2Falice/operations", got.path)
			assert.Equal(t, "Bearer s3cret", got.auth)
		})
	}
}

func TestHTTPAuthorityKeyspaces(t *testing.T) {
	a, seen := newAuthorityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, a.AddKeyspace(ctx, "alice", "tok", "shop"))
	require.NoError(t, a.RemoveKeyspace(ctx, "alice", "tok", "shop"))

	require.Len(t, *seen, 2)
	add := (*seen)[0]
	assert.Equal(t, http.MethodPost, add.method)
	assert.Equal(t, "/subjects/alice/keyspaces", add.path)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(add.body), &payload))
	assert.Equal(t, map[string]string{"keyspace": "shop"}, payload)

	remove := (*seen)[1]
	assert.Equal(t, http.MethodDelete, remove.method)
	assert.Equal(t, "/subjects/alice/keyspaces/shop", remove.path)
	assert.Equal(t, "Bearer tok", remove.auth)
}

func TestHTTPAuthorityErrors(t *testing.T) {
	a, _ := newAuthorityServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	_, err := a.AllowedOperations(context.Background(), "alice", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")

	b, _ := newAuthorityServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	})
	_, err = b.AllowedOperations(context.Background(), "alice", "")
	require.Error(t, err)

	_, err = NewHTTPAuthority("ftp://example.com", nil, 0)
	require.Error(t, err)
}

func TestHTTPAuthorityBacksCache(t *testing.T) {
	a, seen := newAuthorityServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"operations": ["all"]}`)
	})
	cache := newTestCache(t, a, nil, nil)

	for i := 0; i < 3; i++ {
		assert.True(t, cache.HasPermission(context.Background(), "alice", "drop", "tok"))
	}
	assert.Len(t, *seen, 1)
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgebrain/knowbrain/internal/client/auth"
	"github.com/knowledgebrain/knowbrain/internal/client/models"
	"github.com/knowledgebrain/knowbrain/internal/common"
)

func strptr(s string) *string { return &s }

func authorization(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newClient(t *testing.T, handler http.Handler) (*HTTPClient, *auth.Store) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	store := auth.NewStore()
	return NewHTTPClient(ts.URL, store, nil, nil), store
}

func TestHTTPClient_AttachesBearerCredential(t *testing.T) {
	var gotAuth string
	c, store := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, models.Page[models.Note]{First: true, Last: true})
	}))
	store.Set("tok-1", auth.Identity{UserID: "u1"})

	_, err := c.ListNotes(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestHTTPClient_RenewsAndRetriesOnceOnUnauthorized(t *testing.T) {
	var refreshCalls, noteCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(t, w, http.StatusOK, models.AuthResponse{
			AccessToken: "fresh", UserID: "u1", Email: "a@b.c", DisplayName: "A",
		})
	})
	mux.HandleFunc("GET /api/notes", func(w http.ResponseWriter, r *http.Request) {
		noteCalls.Add(1)
		if authorization(r) != "fresh" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(t, w, http.StatusOK, models.Page[models.Note]{
			Content: []models.Note{{ID: "n1", Title: "hello"}},
			Size:    20, TotalElements: 1, TotalPages: 1, First: true, Last: true,
		})
	})

	c, store := newClient(t, mux)
	store.Set("stale", auth.Identity{UserID: "u1"})

	page, err := c.ListNotes(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "n1", page.Content[0].ID)

	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), noteCalls.Load(), "original dispatch plus exactly one retry")

	tok, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "fresh", tok, "renewed credential must be stored")
	id, _ := store.Identity()
	assert.Equal(t, "a@b.c", id.Email)
}

func TestHTTPClient_RenewalFailureForcesLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "refresh token expired"})
	})
	mux.HandleFunc("GET /api/notes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})

	c, store := newClient(t, mux)
	store.Set("stale", auth.Identity{UserID: "u1"})

	_, err := c.ListNotes(context.Background(), 0, 20)
	require.ErrorIs(t, err, common.ErrSessionExpired)

	_, ok := store.Token()
	assert.False(t, ok, "failed renewal must clear the credential store")
}

func TestHTTPClient_AuthEndpointsAreNeverRetried(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(t, w, http.StatusOK, models.AuthResponse{AccessToken: "fresh"})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "bad credentials"})
	})

	c, _ := newClient(t, mux)

	_, err := c.Login(context.Background(), "a@b.c", "nope")
	require.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Equal(t, int32(0), refreshCalls.Load(), "a failing login must not drive renewal")
}

func TestHTTPClient_RetriesAtMostOnce(t *testing.T) {
	var refreshCalls, noteCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(t, w, http.StatusOK, models.AuthResponse{AccessToken: "fresh", UserID: "u1"})
	})
	mux.HandleFunc("GET /api/notes", func(w http.ResponseWriter, r *http.Request) {
		noteCalls.Add(1)
		// The server keeps rejecting even the fresh credential.
		writeJSON(t, w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	})

	c, store := newClient(t, mux)
	store.Set("stale", auth.Identity{UserID: "u1"})

	_, err := c.ListNotes(context.Background(), 0, 20)
	require.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), noteCalls.Load(), "must never loop beyond the single retry")
}

func TestHTTPClient_ConcurrentFailuresShareOneRenewal(t *testing.T) {
	const n = 12

	var refreshCalls, rejected atomic.Int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release
		writeJSON(t, w, http.StatusOK, models.AuthResponse{AccessToken: "fresh", UserID: "u1"})
	})
	mux.HandleFunc("GET /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		if authorization(r) != "fresh" {
			rejected.Add(1)
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(t, w, http.StatusOK, models.Note{ID: r.PathValue("id"), Title: "t"})
	})

	c, store := newClient(t, mux)
	store.Set("stale", auth.Identity{UserID: "u1"})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetNote(context.Background(), "n1")
		}(i)
	}

	// Wait until every request has failed authorization, give the callers time
	// to queue on the in-flight renewal, then settle it.
	require.Eventually(t, func() bool { return rejected.Load() == n }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load(), "exactly one renewal call for %d concurrent failures", n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "request %d", i)
	}
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "note not found"})
	})
	mux.HandleFunc("POST /api/notes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]string{"message": "Title is required"})
	})
	mux.HandleFunc("GET /api/notes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c, store := newClient(t, mux)
	store.Set("tok", auth.Identity{UserID: "u1"})

	_, err := c.GetNote(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Contains(t, err.Error(), "note not found")

	_, err = c.CreateNote(context.Background(), models.CreateNoteRequest{Title: ""})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "Title is required")

	_, err = c.ListNotes(context.Background(), 0, 20)
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestHTTPClient_CreateAndUpdatePayloads(t *testing.T) {
	var created models.CreateNoteRequest
	var updated models.UpdateNoteRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/notes", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		writeJSON(t, w, http.StatusCreated, models.Note{ID: "n1", Title: created.Title, Content: created.Content})
	})
	mux.HandleFunc("PUT /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
		writeJSON(t, w, http.StatusOK, models.Note{ID: r.PathValue("id"), Title: *updated.Title})
	})

	c, store := newClient(t, mux)
	store.Set("tok", auth.Identity{UserID: "u1"})

	note, err := c.CreateNote(context.Background(), models.CreateNoteRequest{Title: "hello", Content: strptr("body")})
	require.NoError(t, err)
	assert.Equal(t, "n1", note.ID)
	assert.Equal(t, "hello", created.Title)
	require.NotNil(t, created.Content)
	assert.Equal(t, "body", *created.Content)

	note, err = c.UpdateNote(context.Background(), "n1", models.UpdateNoteRequest{Title: strptr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", note.Title)
	assert.Nil(t, updated.Content, "omitted fields must stay nil")
}

func TestHTTPClient_SearchQueryParams(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notes/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(t, w, http.StatusOK, models.Page[models.NoteSearchResult]{
			Content: []models.NoteSearchResult{{Note: models.Note{ID: "n1"}, Rank: 0.8, Headline: "<b>alpha</b>"}},
			Page:    1, Size: 10, TotalElements: 11, TotalPages: 2, Last: true,
		})
	})

	c, store := newClient(t, mux)
	store.Set("tok", auth.Identity{UserID: "u1"})

	page, err := c.SearchNotes(context.Background(), "alpha", 1, 10)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "q=alpha")
	assert.Contains(t, gotQuery, "page=1")
	assert.Contains(t, gotQuery, "size=10")
	require.Len(t, page.Content, 1)
	assert.Equal(t, "<b>alpha</b>", page.Content[0].Headline)
}

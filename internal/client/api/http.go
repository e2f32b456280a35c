// Package api implements the request gateway: a thin typed client over the
// KnowBrain HTTP API that attaches the bearer credential to every call and,
// on an authorization failure outside the auth endpoints, drives a session
// renewal through the single-flight gate and re-dispatches exactly once.
package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/knowledgebrain/knowbrain/internal/client/auth"
	"github.com/knowledgebrain/knowbrain/internal/client/models"
	"github.com/knowledgebrain/knowbrain/internal/common"
	"github.com/knowledgebrain/knowbrain/internal/logging"
)

const (
	authPathPrefix = "/api/auth/"

	pathRegister = "/api/auth/register"
	pathLogin    = "/api/auth/login"
	pathRefresh  = "/api/auth/refresh"
	pathLogout   = "/api/auth/logout"
	pathNotes    = "/api/notes"
	pathSearch   = "/api/notes/search"
)

// HTTPClient is the concrete Client. The cookie jar carries the out-of-band
// refresh credential (an HttpOnly cookie set by the server); this client
// never reads or stores it directly.
type HTTPClient struct {
	baseURL   string
	http      *http.Client
	creds     *auth.Store
	refresher *auth.Refresher
	log       logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a gateway bound to the given credential store.
// The returned client owns its renewal gate: concurrent requests failing
// authorization at the same time share a single renewal call.
func NewHTTPClient(baseURL string, creds *auth.Store, httpClient *http.Client, log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		httpClient.Jar = jar
	}
	c := &HTTPClient{
		baseURL: baseURL,
		http:    httpClient,
		creds:   creds,
		log:     log,
	}
	c.refresher = auth.NewRefresher(creds, c.renewCredential, log)
	return c
}

// renewCredential performs the renewal network call for the gate. The refresh
// path is itself an auth endpoint, so a rejected renewal is never retried.
func (c *HTTPClient) renewCredential(ctx context.Context) (string, auth.Identity, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, pathRefresh, nil, nil, &out); err != nil {
		return "", auth.Identity{}, err
	}
	id := auth.Identity{UserID: out.UserID, Email: out.Email, DisplayName: out.DisplayName}
	return out.AccessToken, id, nil
}

// do dispatches one API call. The request body is marshalled once so the
// request can be rebuilt for the single post-renewal retry.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	resp, err := c.dispatch(ctx, method, path, query, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	if isAuthFailure(resp.StatusCode) && !isAuthPath(path) {
		discard(resp)
		c.log.Debug(ctx, "authorization failure, entering renewal gate", "path", path, "status", resp.StatusCode)
		if _, err := c.refresher.Renew(ctx); err != nil {
			return err
		}
		resp, err = c.dispatch(ctx, method, path, query, payload)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
	}

	defer discard(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// dispatch builds and sends a single attempt, attaching the current
// credential when present. Callers must not set their own auth header.
func (c *HTTPClient) dispatch(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body *bytes.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token, ok := c.creds.Token(); ok {
		req.Header.Set(common.AuthHeaderName, common.BearerPrefix+token)
	}

	return c.http.Do(req)
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func isAuthPath(path string) bool {
	return len(path) >= len(authPathPrefix) && path[:len(authPathPrefix)] == authPathPrefix
}

func (c *HTTPClient) Register(ctx context.Context, email, password, displayName string) (*models.AuthResponse, error) {
	req := models.RegisterRequest{Email: email, Password: password, DisplayName: displayName}
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, pathRegister, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	req := models.LoginRequest{Email: email, Password: password}
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, pathLogin, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Refresh(ctx context.Context) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, pathRefresh, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil, nil)
}

func (c *HTTPClient) ListNotes(ctx context.Context, page, size int) (*models.Page[models.Note], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out models.Page[models.Note]
	if err := c.do(ctx, http.MethodGet, pathNotes, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var out models.Note
	if err := c.do(ctx, http.MethodGet, pathNotes+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	var out models.Note
	if err := c.do(ctx, http.MethodPost, pathNotes, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateNote(ctx context.Context, id string, req models.UpdateNoteRequest) (*models.Note, error) {
	var out models.Note
	if err := c.do(ctx, http.MethodPut, pathNotes+"/"+url.PathEscape(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathNotes+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *HTTPClient) SearchNotes(ctx context.Context, query string, page, size int) (*models.Page[models.NoteSearchResult], error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out models.Page[models.NoteSearchResult]
	if err := c.do(ctx, http.MethodGet, pathSearch, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

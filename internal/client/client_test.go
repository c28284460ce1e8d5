package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves user-details behind a bearer check and a refresh exchange.
type fakeAPI struct {
	mu           sync.Mutex
	validAccess  string
	refreshToken string
	// nextAccess is handed out by the refresh exchange. When promote is set
	// it also becomes the accepted access credential.
	nextAccess   string
	promote      bool
	detailsCalls int
	refreshCalls int
	lastBearer   string
	server       *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		validAccess:  "access-1",
		refreshToken: "refresh-1",
		nextAccess:   "access-2",
		promote:      true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user/user-details", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.detailsCalls++
		f.lastBearer = r.Header.Get("Authorization")
		ok := f.lastBearer == "Bearer "+f.validAccess
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"message": "Token is expired", "error": true, "success": false, "code": "EXPIRED_TOKEN",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "ok", "error": false, "success": true,
			"data": map[string]any{"_id": "u1", "email": "jane@example.com"},
		})
	})
	mux.HandleFunc("POST /api/user/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.refreshCalls++
		ok := r.Header.Get("Authorization") == "Bearer "+f.refreshToken
		next := f.nextAccess
		if ok && f.promote {
			f.validAccess = next
		}
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"message": "Token is expired", "error": true, "success": false, "code": "EXPIRED_TOKEN",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "New Access token generated", "error": false, "success": true,
			"data": map[string]any{"accessToken": next},
		})
	})
	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "Invalid password", "error": true, "success": false, "code": "INVALID_PASSWORD",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Login successful", "error": false, "success": true,
			"data": map[string]any{"accesstoken": "access-1", "refreshToken": "refresh-1"},
		})
	})
	mux.HandleFunc("GET /api/user/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successfully", "error": false, "success": true})
	})
	mux.HandleFunc("PUT /api/user/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Email not available", "error": true, "success": false, "code": "EMAIL_NOT_AVAILABLE",
		})
	})
	mux.HandleFunc("PUT /api/user/update-user", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) counts() (details, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailsCalls, f.refreshCalls
}

func (f *fakeAPI) bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBearer
}

func newTestClient(f *fakeAPI, creds Credentials) (*Client, *MemoryStore) {
	store := NewMemoryStore()
	_ = store.Set(creds)
	return New(f.server.URL, store), store
}

func TestCall_AttachesAccessCredential(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(api, Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	user, err := c.UserDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Bearer access-1", api.bearer())

	details, refresh := api.counts()
	assert.Equal(t, 1, details)
	assert.Zero(t, refresh)
}

func TestCall_RefreshesOnceAndRetries(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newTestClient(api, Credentials{AccessToken: "stale", RefreshToken: "refresh-1"})

	user, err := c.UserDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	details, refresh := api.counts()
	assert.Equal(t, 2, details)
	assert.Equal(t, 1, refresh)
	assert.Equal(t, "Bearer access-2", api.bearer())

	creds, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken, "refresh credential is never rotated by the client")
}

func TestCall_SecondUnauthorizedIsPropagated(t *testing.T) {
	api := newFakeAPI(t)
	api.promote = false
	c, _ := newTestClient(api, Credentials{AccessToken: "stale", RefreshToken: "refresh-1"})

	_, err := c.UserDetails(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.NotErrorIs(t, err, ErrRefreshExhausted)

	details, refresh := api.counts()
	assert.Equal(t, 2, details, "one original request plus one retry")
	assert.Equal(t, 1, refresh, "exactly one refresh exchange")
}

func TestCall_NoRefreshCredentialSkipsRefresh(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(api, Credentials{AccessToken: "stale"})

	_, err := c.UserDetails(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "EXPIRED_TOKEN", apiErr.Code)

	details, refresh := api.counts()
	assert.Equal(t, 1, details)
	assert.Zero(t, refresh)
}

func TestCall_FailedRefreshIsExhausted(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newTestClient(api, Credentials{AccessToken: "stale", RefreshToken: "revoked"})

	_, err := c.UserDetails(context.Background())
	require.ErrorIs(t, err, ErrRefreshExhausted)

	details, refresh := api.counts()
	assert.Equal(t, 1, details, "no retry after a failed refresh")
	assert.Equal(t, 1, refresh)

	creds, _ := store.Get()
	assert.Equal(t, "stale", creds.AccessToken)
}

func TestCall_NonUnauthorizedErrorSkipsRefresh(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(api, Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	err := c.Call(context.Background(), OpForgotPassword, map[string]string{"email": "nobody@example.com"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "EMAIL_NOT_AVAILABLE", apiErr.Code)
	_, refresh := api.counts()
	assert.Zero(t, refresh)
}

func TestCall_TransportErrorSkipsRefresh(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(api, Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Call(ctx, OpUpdateUser, map[string]string{"name": "Jane"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsUnauthorized(err))
	assert.NotErrorIs(t, err, ErrRefreshExhausted)

	_, refresh := api.counts()
	assert.Zero(t, refresh)
}

func TestCall_RequiredFields(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(api, Credentials{})

	err := c.Call(context.Background(), OpLogin, map[string]string{"email": "jane@example.com"}, nil)
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "password")

	err = c.Call(context.Background(), OpRegister, nil, nil)
	require.ErrorIs(t, err, ErrMissingField)

	err = c.Call(context.Background(), Operation("upload_avatar"), nil, nil)
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestLoginAndLogout(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newTestClient(api, Credentials{})

	err := c.Login(context.Background(), "jane@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	require.NoError(t, c.Login(context.Background(), "jane@example.com", "pw"))
	creds, _ := store.Get()
	assert.Equal(t, Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, creds)

	require.NoError(t, c.Logout(context.Background()))
	creds, _ = store.Get()
	assert.Empty(t, creds)
}

func TestRefresh_Explicit(t *testing.T) {
	api := newFakeAPI(t)
	c, store := newTestClient(api, Credentials{RefreshToken: "refresh-1"})

	access, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	creds, _ := store.Get()
	assert.Equal(t, "access-2", creds.AccessToken)

	empty, _ := newTestClient(api, Credentials{})
	_, err = empty.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshExhausted)
}

func TestWithTimeout_CopiesCallerClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := New("http://example.invalid", NewMemoryStore(), WithHTTPClient(shared), WithTimeout(3*time.Second))
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 3*time.Second, c.http.Timeout)
	assert.NotSame(t, shared, c.http)

	c = New("http://example.invalid", NewMemoryStore(), WithTimeout(2*time.Second), WithHTTPClient(shared))
	assert.Equal(t, time.Minute, shared.Timeout, "option order does not matter")
	assert.Equal(t, 2*time.Second, c.http.Timeout)

	c = New("http://example.invalid", NewMemoryStore(), WithHTTPClient(shared))
	assert.Same(t, shared, c.http)
}

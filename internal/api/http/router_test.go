package http_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkeyit/storefront/internal/api/dto"
)

func (ta *testApp) login(t *testing.T) (*http.Response, dto.LoginResponse) {
	t.Helper()
	resp, env := ta.do(t, http.MethodPost, "/api/user/login",
		dto.UserLoginRequest{Email: testEmail, Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data dto.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return resp, data
}

func TestLogin_SetsCookiesAndBody(t *testing.T) {
	ta := newTestApp(t, true)

	resp, data := ta.login(t)
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEmpty(t, data.RefreshToken)

	for name, value := range map[string]string{"accessToken": data.AccessToken, "refreshToken": data.RefreshToken} {
		cookie := findCookie(resp, name)
		require.NotNil(t, cookie, name)
		assert.Equal(t, value, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	}
}

func TestLogin_FailuresAreNotUnauthorized(t *testing.T) {
	ta := newTestApp(t, true)

	resp, env := ta.do(t, http.MethodPost, "/api/user/login",
		dto.UserLoginRequest{Email: testEmail, Password: "wrong"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_PASSWORD", env.Code)

	resp, env = ta.do(t, http.MethodPost, "/api/user/login",
		dto.UserLoginRequest{Email: "nobody@example.com", Password: testPassword}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "USER_NOT_REGISTERED", env.Code)

	resp, env = ta.do(t, http.MethodPost, "/api/user/login", dto.UserLoginRequest{Email: testEmail}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)
}

func TestRegister(t *testing.T) {
	ta := newTestApp(t, true)

	resp, env := ta.do(t, http.MethodPost, "/api/user/register",
		dto.UserRegisterRequest{Name: "Sam", Email: "sam@example.com", Password: "pw-123456"}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	var user map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "sam@example.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "refresh_token")

	resp, env = ta.do(t, http.MethodPost, "/api/user/register",
		dto.UserRegisterRequest{Name: "Jane", Email: testEmail, Password: "pw"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.True(t, env.Error)
	assert.False(t, env.Success)
}

func TestProtectedRoute_CredentialFailures(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	tests := []struct {
		name   string
		header map[string]string
		code   string
	}{
		{"missing", nil, "MISSING_TOKEN"},
		{"malformed header", map[string]string{"Authorization": "Token abc"}, "MALFORMED_TOKEN"},
		{"garbage token", bearer("abc"), "MALFORMED_TOKEN"},
		{"refresh credential as access", bearer(tokens.RefreshToken), "BAD_SIGNATURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := ta.do(t, http.MethodGet, "/api/user/user-details", nil, tt.header)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.code, env.Code)
			assert.True(t, env.Error)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestProtectedRoute_ExpiredAccess(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	ta.clock.Advance(6 * time.Hour)

	resp, env := ta.do(t, http.MethodGet, "/api/user/user-details", nil, bearer(tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "EXPIRED_TOKEN", env.Code)
}

func TestUserDetails_HeaderAndCookie(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	resp, env := ta.do(t, http.MethodGet, "/api/user/user-details", nil, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, testEmail, user.Email)

	resp, _ = ta.do(t, http.MethodGet, "/api/user/user-details", nil,
		map[string]string{"Cookie": "accessToken=" + tokens.AccessToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshToken_Exchange(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	resp, env := ta.do(t, http.MethodPost, "/api/user/refresh-token", nil, bearer(tokens.RefreshToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data dto.RefreshResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEqual(t, tokens.AccessToken, data.AccessToken)
	cookie := findCookie(resp, "accessToken")
	require.NotNil(t, cookie)
	assert.Equal(t, data.AccessToken, cookie.Value)
	assert.Nil(t, findCookie(resp, "refreshToken"), "no new refresh credential is issued")

	resp, _ = ta.do(t, http.MethodPost, "/api/user/refresh-token", nil,
		map[string]string{"Cookie": "refreshToken=" + tokens.RefreshToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshToken_Failures(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	resp, env := ta.do(t, http.MethodPost, "/api/user/refresh-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", env.Code)

	resp, env = ta.do(t, http.MethodPost, "/api/user/refresh-token", nil, bearer(tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "BAD_SIGNATURE", env.Code)

	ta.clock.Advance(8 * 24 * time.Hour)
	resp, env = ta.do(t, http.MethodPost, "/api/user/refresh-token", nil, bearer(tokens.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "EXPIRED_TOKEN", env.Code)
}

func TestLogout_ClearsCookiesAndRevokes(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	resp, env := ta.do(t, http.MethodGet, "/api/user/logout", nil, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie := findCookie(resp, name)
		require.NotNil(t, cookie, name)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	}

	resp, env = ta.do(t, http.MethodPost, "/api/user/refresh-token", nil, bearer(tokens.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "REVOKED_TOKEN", env.Code)
}

func TestLogout_WithoutRevocationLeavesRefreshUsable(t *testing.T) {
	ta := newTestApp(t, false)
	_, tokens := ta.login(t)

	resp, _ := ta.do(t, http.MethodGet, "/api/user/logout", nil, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, "/api/user/refresh-token", nil, bearer(tokens.RefreshToken))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateUser(t *testing.T) {
	ta := newTestApp(t, true)
	_, tokens := ta.login(t)

	resp, env := ta.do(t, http.MethodPut, "/api/user/update-user",
		dto.UpdateUserRequest{Name: "Janet", Mobile: "555-0100"}, bearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Janet", user.Name)
	require.NotNil(t, user.Mobile)
	assert.Equal(t, "555-0100", *user.Mobile)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	ta := newTestApp(t, true)

	resp, env := ta.do(t, http.MethodPut, "/api/user/forgot-password",
		dto.ForgotPasswordRequest{Email: "nobody@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "EMAIL_NOT_AVAILABLE", env.Code)

	resp, _ = ta.do(t, http.MethodPut, "/api/user/forgot-password", dto.ForgotPasswordRequest{Email: testEmail}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ta := newTestApp(t, true)

	resp, _ := ta.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ta.login(t)
	resp, _ = ta.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnmatchedUserRoutesAreNotCredentialFailures(t *testing.T) {
	ta := newTestApp(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"wrong method", http.MethodGet, "/api/user/login", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/user/no-such-route", http.StatusNotFound},
		{"unknown path with body verb", http.MethodPost, "/api/user/no-such-route", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := ta.do(t, tt.method, tt.path, nil, nil)
			assert.NotEqual(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.True(t, env.Error)
			assert.NotEqual(t, "MISSING_TOKEN", env.Code)
		})
	}

	resp, env := ta.do(t, http.MethodGet, "/api/user/user-details", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", env.Code)
}

func TestCORS_CredentialedPreflight(t *testing.T) {
	ta := newTestApp(t, true)

	resp, _ := ta.do(t, http.MethodOptions, "/api/user/login", nil, map[string]string{
		"Origin":                        "https://shop.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	resp, _ = ta.do(t, http.MethodOptions, "/api/user/login", nil, map[string]string{
		"Origin":                        "https://evil.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = ta.do(t, http.MethodPost, "/api/user/login",
		dto.UserLoginRequest{Email: testEmail, Password: testPassword},
		map[string]string{"Origin": "https://shop.example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestSecurityHeaders(t *testing.T) {
	ta := newTestApp(t, true)

	resp, _ := ta.do(t, http.MethodGet, "/health/live", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "unsafe-none", resp.Header.Get("Cross-Origin-Opener-Policy"))
}

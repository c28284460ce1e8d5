package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/binkeyit/storefront/internal/api/dto"
)

const maxResponseBytes = 1 << 20

// Client calls the storefront API with the stored access credential and
// renews it once through the refresh exchange when a call answers 401.
// A Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	store   CredentialStore
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per request timeout. A client passed through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger enables debug logging of the refresh path.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New constructs a client for the API at baseURL.
func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		store:   store,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

type envelope struct {
	Message string          `json:"message"`
	Error   bool            `json:"error"`
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// Call performs op with body as the JSON request and decodes the response
// data into out. Either may be nil. OpRefreshToken runs the refresh exchange
// directly.
func (c *Client) Call(ctx context.Context, op Operation, body, out any) error {
	if op == OpRefreshToken {
		_, err := c.Refresh(ctx)
		return err
	}
	ep, ok := Endpoints[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	payload, err := encodeBody(ep, body)
	if err != nil {
		return err
	}
	return c.dispatch(ctx, op, ep, payload, out, 0)
}

// dispatch sends one attempt. A 401 on attempt 0 with a stored refresh
// credential runs the refresh exchange and dispatches attempt 1; any other
// outcome is returned to the caller.
func (c *Client) dispatch(ctx context.Context, op Operation, ep Endpoint, payload []byte, out any, attempt int) error {
	creds, err := c.store.Get()
	if err != nil {
		return err
	}

	err = c.send(ctx, ep, payload, creds.AccessToken, out)
	if err == nil || attempt > 0 || !IsUnauthorized(err) {
		return err
	}
	if creds.RefreshToken == "" {
		return err
	}

	c.logger.Debug("access credential rejected, refreshing", zap.String("op", string(op)))
	if _, rerr := c.exchange(ctx, creds.RefreshToken); rerr != nil {
		c.logger.Warn("refresh exchange failed", zap.String("op", string(op)), zap.Error(rerr))
		return fmt.Errorf("%w: %w", ErrRefreshExhausted, rerr)
	}

	attempt++
	return c.dispatch(ctx, op, ep, payload, out, attempt)
}

// Refresh exchanges the stored refresh credential for a new access
// credential and stores it.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	creds, err := c.store.Get()
	if err != nil {
		return "", err
	}
	if creds.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh credential stored", ErrRefreshExhausted)
	}
	access, err := c.exchange(ctx, creds.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshExhausted, err)
	}
	return access, nil
}

// exchange never enters the refresh path itself. Only the access credential
// is overwritten.
func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	var data dto.RefreshResponse
	if err := c.send(ctx, Endpoints[OpRefreshToken], nil, refreshToken, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", errors.New("refresh response carried no access credential")
	}

	creds, err := c.store.Get()
	if err != nil {
		return "", err
	}
	creds.AccessToken = data.AccessToken
	if err := c.store.Set(creds); err != nil {
		return "", err
	}
	return data.AccessToken, nil
}

func (c *Client) send(ctx context.Context, ep Endpoint, payload []byte, bearer string, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, ep.Method, c.baseURL+ep.Path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= http.StatusBadRequest || (decodeErr == nil && env.Error) {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func encodeBody(ep Endpoint, body any) ([]byte, error) {
	if body == nil {
		if len(ep.Required) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, ep.Required[0])
		}
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if len(ep.Required) == 0 {
		return payload, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	for _, name := range ep.Required {
		v, ok := fields[name]
		if !ok || v == nil || v == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return payload, nil
}

// Login authenticates and stores both credentials.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var data dto.LoginResponse
	err := c.Call(ctx, OpLogin, dto.UserLoginRequest{Email: email, Password: password}, &data)
	if err != nil {
		return err
	}
	return c.store.Set(Credentials{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken})
}

// Logout ends the server session and clears the stored credentials, even
// when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Call(ctx, OpLogout, nil, nil)
	if clearErr := c.store.Clear(); clearErr != nil {
		return errors.Join(err, clearErr)
	}
	return err
}

// UserDetails fetches the signed-in account.
func (c *Client) UserDetails(ctx context.Context) (dto.UserResponse, error) {
	var user dto.UserResponse
	err := c.Call(ctx, OpUserDetails, nil, &user)
	return user, err
}

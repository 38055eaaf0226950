package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/opencurrents/currents-cli/internal/logger"
	"github.com/opencurrents/currents-cli/internal/model"
)

// TokenSource supplies the current access token for request decoration.
// Implemented by the credential store.
type TokenSource interface {
	AccessToken() string
}

// Client issues authenticated calls against the Currents backend. The refresh
// endpoint is deliberately not reachable through it; see RefreshClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	instanceID string
}

// NewClient creates an authenticated API client. instanceID identifies this
// install to the backend and may be empty.
func NewClient(baseURL string, tokens TokenSource, instanceID string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		instanceID: instanceID,
	}
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, false, &resp)
	if err != nil {
		return nil, remap(err, map[int]Kind{
			http.StatusUnauthorized: KindInvalidCredentials,
			http.StatusBadRequest:   KindMalformedRequest,
		})
	}
	return &resp, nil
}

// Register creates a new account. The response token is optional; when
// present the caller treats registration as an implicit login.
func (c *Client) Register(ctx context.Context, username, email, password string) (*RegisterResponse, error) {
	var resp RegisterResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", registerRequest{Username: username, Email: email, Password: password}, false, &resp)
	if err != nil {
		return nil, remap(err, map[int]Kind{
			http.StatusConflict:   KindDuplicateAccount,
			http.StatusBadRequest: KindInvalidInput,
		})
	}
	return &resp, nil
}

// Validate presents the stored access token and returns the server's view of
// the user. A 401 is classified TokenExpired so the caller can run the
// refresh cascade.
func (c *Client) Validate(ctx context.Context) (*model.UserPatch, error) {
	var resp validateResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/validate", nil, true, &resp)
	if err != nil {
		return nil, remap(err, map[int]Kind{
			http.StatusUnauthorized: KindTokenExpired,
		})
	}
	return &resp.User, nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*model.UserPatch, error) {
	var patch model.UserPatch
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, true, &patch)
	if err != nil {
		return nil, remap(err, map[int]Kind{
			http.StatusUnauthorized: KindTokenExpired,
		})
	}
	return &patch, nil
}

// Logout notifies the backend that the session is ending. Callers treat this
// as best effort; local teardown proceeds regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, true, nil)
}

// FetchPassport returns the server's current passport for the authenticated
// user without forcing reconciliation.
func (c *Client) FetchPassport(ctx context.Context) (*model.Passport, error) {
	var p model.Passport
	err := c.do(ctx, http.MethodGet, "/api/user/passport", nil, true, &p)
	if err != nil {
		return nil, remap(err, map[int]Kind{
			http.StatusUnauthorized: KindTokenExpired,
		})
	}
	return &p, nil
}

// SyncPassport forces server-side reconciliation and returns the fresh
// passport.
func (c *Client) SyncPassport(ctx context.Context) (*model.Passport, error) {
	var p model.Passport
	err := c.do(ctx, http.MethodPost, "/api/user/passport/sync", nil, true, &p)
	if err != nil {
		return nil, remap(err, map[int]Kind{
			http.StatusUnauthorized: KindTokenExpired,
		})
	}
	return &p, nil
}

// do issues a single request. On non-2xx it returns *Error with a kind
// derived from the status class; endpoint wrappers remap the
// endpoint-specific statuses.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())
	}
	if c.instanceID != "" {
		req.Header.Set("X-Client-Instance", c.instanceID)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Request failed",
			logger.F("method", method),
			logger.F("path", path),
			logger.F("request_id", requestID),
			logger.F("error", err))
		return &Error{Kind: KindUnreachable, Message: err.Error()}
	}
	defer resp.Body.Close()

	logger.Debug("Request completed",
		logger.F("method", method),
		logger.F("path", path),
		logger.F("status", resp.StatusCode),
		logger.F("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindServerError, Status: resp.StatusCode, Message: "malformed response"}
	}
	return nil
}

func kindForStatus(status int) Kind {
	if status >= 500 {
		return KindServerError
	}
	return KindMalformedRequest
}

// errorMessage pulls the backend's error field out of a failure body, if any.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var e errorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		return ""
	}
	return e.Error
}

func remap(err error, kinds map[int]Kind) error {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if k, ok := kinds[apiErr.Status]; ok {
		apiErr.Kind = k
	}
	return apiErr
}

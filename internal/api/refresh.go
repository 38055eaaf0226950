package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/opencurrents/currents-cli/internal/logger"
)

// RefreshClient is the isolated transport path for token refresh. It never
// attaches an access token, so an expired token circulating elsewhere cannot
// recursively trigger this call's own failure handling.
type RefreshClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRefreshClient creates the refresh transport.
func NewRefreshClient(baseURL string) *RefreshClient {
	return &RefreshClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Refresh exchanges the refresh token for a new access token. The response
// may omit refresh_token when the server chooses not to rotate it. Any
// failure, including a missing access_token field, is KindRefreshFailed
// except for network errors, which stay KindUnreachable.
func (c *RefreshClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	data, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Refresh request failed", logger.F("error", err))
		return nil, &Error{Kind: KindUnreachable, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Info("Refresh rejected", logger.F("status", resp.StatusCode))
		return nil, &Error{
			Kind:    KindRefreshFailed,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	var out RefreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, &Error{Kind: KindRefreshFailed, Status: resp.StatusCode, Message: "malformed response"}
	}
	if out.AccessToken == "" {
		return nil, &Error{Kind: KindRefreshFailed, Status: resp.StatusCode, Message: "response missing access token"}
	}
	return &out, nil
}

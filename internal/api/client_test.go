package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opencurrents/currents-cli/internal/backendtest"
)

type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func TestLoginShouldClassify401AsInvalidCredentials(t *testing.T) {
	b := backendtest.New(t)
	c := NewClient(b.URL(), staticTokens(""), "test-instance")

	_, err := c.Login(context.Background(), "bad@x.com", "wrong")
	if err == nil {
		t.Fatal("Expected error")
	}
	if KindOf(err) != KindInvalidCredentials {
		t.Errorf("Expected KindInvalidCredentials, got %v", KindOf(err))
	}
}

func TestLoginShouldClassify400AsMalformedRequest(t *testing.T) {
	b := backendtest.New(t)
	c := NewClient(b.URL(), staticTokens(""), "")

	_, err := c.Login(context.Background(), "", "")
	if KindOf(err) != KindMalformedRequest {
		t.Errorf("Expected KindMalformedRequest, got %v", KindOf(err))
	}
}

func TestLoginShouldSurfaceBackendMessage(t *testing.T) {
	b := backendtest.New(t)
	c := NewClient(b.URL(), staticTokens(""), "")

	_, err := c.Login(context.Background(), "bad@x.com", "wrong")
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if apiErr.Message != "invalid credentials" {
		t.Errorf("Expected backend message, got %q", apiErr.Message)
	}
}

func TestLoginSuccessShouldReturnTokensAndUser(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("ada", "ada@example.com", "pw123456")
	c := NewClient(b.URL(), staticTokens(""), "")

	resp, err := c.Login(context.Background(), "ada@example.com", "pw123456")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("Expected a full token pair")
	}
	if resp.Username == nil || *resp.Username != "ada" {
		t.Errorf("Expected username ada, got %v", resp.Username)
	}
}

func TestValidateShouldClassify401AsTokenExpired(t *testing.T) {
	b := backendtest.New(t)
	c := NewClient(b.URL(), staticTokens("stale-token"), "")

	_, err := c.Validate(context.Background())
	if KindOf(err) != KindTokenExpired {
		t.Errorf("Expected KindTokenExpired, got %v", KindOf(err))
	}
}

func TestRegisterShouldClassify409AsDuplicateAccount(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("ada", "ada@example.com", "pw123456")
	c := NewClient(b.URL(), staticTokens(""), "")

	_, err := c.Register(context.Background(), "ada2", "ada@example.com", "pw123456")
	if KindOf(err) != KindDuplicateAccount {
		t.Errorf("Expected KindDuplicateAccount, got %v", KindOf(err))
	}
}

func TestUnreachableServerShouldClassifyAsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore
	c := NewClient(srv.URL, staticTokens(""), "")

	_, err := c.Login(context.Background(), "a@b.c", "pw")
	if KindOf(err) != KindUnreachable {
		t.Errorf("Expected KindUnreachable, got %v", KindOf(err))
	}
}

func TestServerErrorShouldClassifyAs5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, staticTokens(""), "")

	_, err := c.Login(context.Background(), "a@b.c", "pw")
	if KindOf(err) != KindServerError {
		t.Errorf("Expected KindServerError, got %v", KindOf(err))
	}
}

func TestRefreshShouldReturnNewPair(t *testing.T) {
	b := backendtest.New(t)
	b.RotateRefresh = true
	id := b.AddUser("ada", "ada@example.com", "pw123456")
	_, refresh := b.IssueTokens(id)

	rc := NewRefreshClient(b.URL())
	resp, err := rc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("Expected new access token")
	}
	if resp.RefreshToken == "" {
		t.Error("Expected rotated refresh token")
	}
}

func TestRefreshWithoutRotationShouldOmitRefreshToken(t *testing.T) {
	b := backendtest.New(t)
	id := b.AddUser("ada", "ada@example.com", "pw123456")
	_, refresh := b.IssueTokens(id)

	rc := NewRefreshClient(b.URL())
	resp, err := rc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if resp.RefreshToken != "" {
		t.Errorf("Expected no rotation, got %q", resp.RefreshToken)
	}
}

func TestRefreshRejectionShouldClassifyAsRefreshFailed(t *testing.T) {
	b := backendtest.New(t)

	rc := NewRefreshClient(b.URL())
	_, err := rc.Refresh(context.Background(), "bogus")
	if KindOf(err) != KindRefreshFailed {
		t.Errorf("Expected KindRefreshFailed, got %v", KindOf(err))
	}
}

func TestRefreshMissingAccessTokenShouldFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"refresh_token":"only-half"}`))
	}))
	defer srv.Close()

	rc := NewRefreshClient(srv.URL)
	_, err := rc.Refresh(context.Background(), "anything")
	if KindOf(err) != KindRefreshFailed {
		t.Errorf("Expected KindRefreshFailed on missing access_token, got %v", KindOf(err))
	}
}

func TestAuthedRequestShouldCarryBearerAndInstance(t *testing.T) {
	var gotAuth, gotInstance, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotInstance = r.Header.Get("X-Client-Instance")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"id":"u1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok-123"), "inst-9")
	if _, err := c.Validate(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if gotInstance != "inst-9" {
		t.Errorf("Expected instance header, got %q", gotInstance)
	}
	if gotRequestID == "" {
		t.Error("Expected a request ID header")
	}
}

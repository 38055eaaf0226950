package credstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencurrents/currents-cli/internal/model"
)

func TestOpenShouldCreateStoreWithInstanceID(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if s.InstanceID() == "" {
		t.Error("Expected a generated instance ID")
	}
	if s.AccessToken() != "" || s.RefreshToken() != "" {
		t.Error("Fresh store should hold no tokens")
	}
}

func TestTokensShouldSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SetTokens("access-1", "refresh-1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	instance := s.InstanceID()

	// Simulate a restart
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	if got := s2.AccessToken(); got != "access-1" {
		t.Errorf("Expected access-1 after reopen, got %q", got)
	}
	if got := s2.RefreshToken(); got != "refresh-1" {
		t.Errorf("Expected refresh-1 after reopen, got %q", got)
	}
	if s2.InstanceID() != instance {
		t.Errorf("Instance ID changed across reopen")
	}
}

func TestSetTokensWithEmptyRefreshShouldKeepExisting(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.SetTokens("access-1", "refresh-1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	// Server did not rotate the refresh token
	if err := s.SetTokens("access-2", ""); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	if got := s.AccessToken(); got != "access-2" {
		t.Errorf("Expected access-2, got %q", got)
	}
	if got := s.RefreshToken(); got != "refresh-1" {
		t.Errorf("Refresh token should be retained when not rotated, got %q", got)
	}
}

func TestTokensShouldBeSealedOnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SetTokens("super-secret-access", "super-secret-refresh"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, storeFile))
	if err != nil {
		t.Fatalf("Failed to read store file: %v", err)
	}
	if strings.Contains(string(raw), "super-secret") {
		t.Error("Token plaintext leaked into the store file")
	}
}

func TestTokensShouldReturnStoredPair(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if pair := s.Tokens(); pair.HasAccess() || pair.HasRefresh() {
		t.Errorf("Fresh store should report an empty pair, got %+v", pair)
	}

	if err := s.SetTokens("a1", "r1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	pair := s.Tokens()
	if !pair.HasAccess() || pair.AccessToken != "a1" {
		t.Errorf("Expected access a1, got %+v", pair)
	}
	if !pair.HasRefresh() || pair.RefreshToken != "r1" {
		t.Errorf("Expected refresh r1, got %+v", pair)
	}
}

func TestTokenExpiriesShouldTrackStoredTokens(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	access, refresh := s.TokenExpiries()
	if !access.IsZero() || !refresh.IsZero() {
		t.Error("Fresh store should report zero expiries")
	}

	if err := s.SetTokens("a1", "r1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	access, refresh = s.TokenExpiries()
	if access.IsZero() || refresh.IsZero() {
		t.Fatal("Expected advisory expiries after SetTokens")
	}
	if !refresh.After(access) {
		t.Errorf("Refresh expiry should outlast access expiry: %v vs %v", refresh, access)
	}
}

func TestUserSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	u := model.UserRecord{ID: "u1", Username: "ada", Email: "ada@example.com", Bio: "hi"}
	if err := s.SetSession("a1", "r1", u); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got := s2.User()
	if got == nil {
		t.Fatal("Expected user snapshot after reopen")
	}
	if got.Username != "ada" || got.Bio != "hi" {
		t.Errorf("Snapshot mismatch: %+v", got)
	}
}

func TestClearSessionShouldRemoveEverythingButInstance(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	instance := s.InstanceID()

	if err := s.SetSession("a1", "r1", model.UserRecord{ID: "u1"}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if err := s.ClearSession(); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	if s.AccessToken() != "" || s.RefreshToken() != "" || s.User() != nil {
		t.Error("ClearSession left session state behind")
	}
	if s.InstanceID() != instance {
		t.Error("ClearSession should not change the instance ID")
	}

	// Idempotent
	if err := s.ClearSession(); err != nil {
		t.Errorf("Second ClearSession failed: %v", err)
	}
}

func TestCorruptedStoreShouldStartFresh(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SetTokens("a1", "r1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, storeFile), []byte("{not json"), 0600); err != nil {
		t.Fatalf("Failed to corrupt store: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Open after corruption failed: %v", err)
	}
	if s2.AccessToken() != "" {
		t.Error("Corrupted store should not yield tokens")
	}
}

func TestSealRoundTrip(t *testing.T) {
	key, err := loadOrCreateKey(filepath.Join(t.TempDir(), "k"))
	if err != nil {
		t.Fatalf("loadOrCreateKey failed: %v", err)
	}
	box, err := newSealer(key)
	if err != nil {
		t.Fatalf("newSealer failed: %v", err)
	}

	sealed, err := box.seal("hello")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	plain, err := box.open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if plain != "hello" {
		t.Errorf("Expected hello, got %q", plain)
	}

	if _, err := box.open("not-base64!!"); err == nil {
		t.Error("Expected error opening garbage")
	}
}

package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencurrents/currents-cli/internal/model"
)

func TestRestoreWithNoTokensIsAnonymousOffline(t *testing.T) {
	env := newTestEnv(t)

	if !env.mgr.Loading() {
		t.Error("Loading should start true")
	}

	state := env.mgr.Restore(context.Background())

	if state != Anonymous {
		t.Errorf("Expected Anonymous, got %v", state)
	}
	if env.mgr.Loading() {
		t.Error("Loading should be false after restore")
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if env.backend.LoginCalls != 0 || env.backend.ValidateCalls != 0 || env.backend.RefreshCalls != 0 {
		t.Errorf("No network calls expected without tokens: login=%d validate=%d refresh=%d",
			env.backend.LoginCalls, env.backend.ValidateCalls, env.backend.RefreshCalls)
	}
}

func TestRestoreWithValidAccessToken(t *testing.T) {
	env := newTestEnv(t)
	id := env.backend.AddUser("ada", "ada@example.com", "pw123456")
	access, refresh := env.backend.IssueTokens(id)
	if err := env.creds.SetSession(access, refresh, model.UserRecord{ID: id, Username: "ada"}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	state := env.mgr.Restore(context.Background())
	env.mgr.WaitPassportSync()

	if state != Authenticated {
		t.Errorf("Expected Authenticated, got %v", state)
	}
	if user := env.mgr.User(); user == nil || user.ID != id {
		t.Errorf("Expected restored user %s, got %+v", id, user)
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if env.backend.ValidateCalls != 1 {
		t.Errorf("Expected 1 validate call, got %d", env.backend.ValidateCalls)
	}
	if env.backend.RefreshCalls != 0 {
		t.Errorf("Expected no refresh calls, got %d", env.backend.RefreshCalls)
	}
}

func TestRestoreWithExpiredAccessTokenFallsBackToRefresh(t *testing.T) {
	env := newTestEnv(t)
	id := env.backend.AddUser("ada", "ada@example.com", "pw123456")
	access, refresh := env.backend.IssueTokens(id)
	env.backend.ExpireAccess(access)
	if err := env.creds.SetSession(access, refresh, model.UserRecord{ID: id}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	state := env.mgr.Restore(context.Background())
	env.mgr.WaitPassportSync()

	if state != Authenticated {
		t.Errorf("Expected Authenticated after refresh fallback, got %v", state)
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if env.backend.ValidateCalls != 2 {
		t.Errorf("Expected validate before and after refresh, got %d calls", env.backend.ValidateCalls)
	}
	if env.backend.RefreshCalls != 1 {
		t.Errorf("Expected exactly 1 refresh call, got %d", env.backend.RefreshCalls)
	}
}

func TestRestoreWithOnlyRefreshTokenAvoidsAnonymousFlash(t *testing.T) {
	env := newTestEnv(t)
	id := env.backend.AddUser("ada", "ada@example.com", "pw123456")
	_, refresh := env.backend.IssueTokens(id)
	if err := env.creds.SetTokens("", refresh); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	env.backend.RefreshDelay = 50 * time.Millisecond

	// Observe state during restore: while loading, Anonymous must never show.
	var sawFlash atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for env.mgr.Loading() {
			if env.mgr.State() == Anonymous {
				sawFlash.Store(true)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	state := env.mgr.Restore(context.Background())
	env.mgr.WaitPassportSync()
	<-done

	if state != Authenticated {
		t.Errorf("Expected Authenticated, got %v", state)
	}
	if sawFlash.Load() {
		t.Error("Observed a transient Anonymous state while loading")
	}
	if env.creds.AccessToken() == "" {
		t.Error("Refresh should have persisted a new access token")
	}
}

func TestRestoreWithInvalidRefreshTokenTearsDown(t *testing.T) {
	env := newTestEnv(t)
	id := env.backend.AddUser("ada", "ada@example.com", "pw123456")
	access, refresh := env.backend.IssueTokens(id)
	env.backend.ExpireAccess(access)
	env.backend.ExpireRefresh(refresh)
	if err := env.creds.SetSession(access, refresh, model.UserRecord{ID: id}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	env.cache.PutPassport(model.Passport{UserID: id})
	env.cache.PutMembership(id, "t1", model.GroupMembership{TimelineID: "t1"})

	state := env.mgr.Restore(context.Background())

	if state != Anonymous {
		t.Errorf("Expected Anonymous after failed cascade, got %v", state)
	}
	if env.mgr.User() != nil {
		t.Error("User should be nil after teardown")
	}
	if env.creds.AccessToken() != "" || env.creds.RefreshToken() != "" || env.creds.User() != nil {
		t.Error("Credential store should be cleared after teardown")
	}
	if p, _ := env.cache.Passport(id); p != nil {
		t.Error("Passport should be purged after teardown")
	}
	if m, _ := env.cache.Membership(id, "t1"); m != nil {
		t.Error("Membership should be purged after teardown")
	}
}

func TestRestoreRunsOnce(t *testing.T) {
	env := newTestEnv(t)
	id := env.backend.AddUser("ada", "ada@example.com", "pw123456")
	access, refresh := env.backend.IssueTokens(id)
	if err := env.creds.SetSession(access, refresh, model.UserRecord{ID: id}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	first := env.mgr.Restore(context.Background())
	second := env.mgr.Restore(context.Background())
	env.mgr.WaitPassportSync()

	if first != Authenticated || second != Authenticated {
		t.Errorf("Expected Authenticated from both calls, got %v then %v", first, second)
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if env.backend.ValidateCalls != 1 {
		t.Errorf("Second restore must not re-run the cascade, got %d validate calls", env.backend.ValidateCalls)
	}
}

func TestRestoreKeepsFieldsTheServerOmits(t *testing.T) {
	env := newTestEnv(t)
	id := env.backend.AddUser("ada", "ada@example.com", "pw123456")
	access, refresh := env.backend.IssueTokens(id)

	// The validate response never carries preferences; the mirrored record
	// does. The merge must keep them.
	seed := model.UserRecord{
		ID:          id,
		Username:    "stale-name",
		Preferences: map[string]string{"theme": "dark"},
	}
	if err := env.creds.SetSession(access, refresh, seed); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	if state := env.mgr.Restore(context.Background()); state != Authenticated {
		t.Fatalf("Expected Authenticated, got %v", state)
	}
	env.mgr.WaitPassportSync()

	user := env.mgr.User()
	if user.Username != "ada" {
		t.Errorf("Server fields should win the merge, got username %q", user.Username)
	}
	if user.Preferences["theme"] != "dark" {
		t.Errorf("Omitted fields should survive the merge, got %+v", user.Preferences)
	}
}

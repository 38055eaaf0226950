// Package backendtest provides a scriptable in-process auth backend for
// tests. It implements the wire surface the session manager consumes and
// exposes knobs for failure injection and call counting.
package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opencurrents/currents-cli/internal/model"
)

// Account is a server-side user record.
type Account struct {
	ID       string
	Username string
	Email    string
	Password string
	Bio      string
}

// Backend is the fake server. All exported knobs are safe to set from the
// test goroutine before issuing requests; counters are read under Mu.
type Backend struct {
	Mu sync.Mutex

	srv *httptest.Server

	accounts      map[string]*Account // by email
	accessTokens  map[string]string   // access token -> user id
	refreshTokens map[string]string   // refresh token -> user id
	passports     map[string]model.Passport

	nextID int

	// Knobs
	RotateRefresh        bool          // rotate the refresh token on refresh
	FailRefresh          bool          // reject all refresh calls
	RefreshDelay         time.Duration // hold refresh responses open
	RegisterWithoutToken bool          // omit the implicit-login token on register

	// Counters
	LoginCalls    int
	ValidateCalls int
	RefreshCalls  int
	SyncCalls     int
	LogoutCalls   int
}

// New starts the fake backend and registers cleanup with t.
func New(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		accounts:      make(map[string]*Account),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		passports:     make(map[string]model.Passport),
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/api/auth/login", b.handleLogin)
	e.POST("/api/auth/register", b.handleRegister)
	e.POST("/api/auth/validate", b.handleValidate)
	e.GET("/api/auth/me", b.handleMe)
	e.POST("/api/auth/refresh", b.handleRefresh)
	e.POST("/api/auth/logout", b.handleLogout)
	e.GET("/api/user/passport", b.handlePassport)
	e.POST("/api/user/passport/sync", b.handlePassportSync)

	b.srv = httptest.NewServer(e)
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string {
	return b.srv.URL
}

// AddUser registers an account and returns its id.
func (b *Backend) AddUser(username, email, password string) string {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return b.addUserLocked(username, email, password)
}

func (b *Backend) addUserLocked(username, email, password string) string {
	b.nextID++
	id := fmt.Sprintf("u%d", b.nextID)
	b.accounts[email] = &Account{ID: id, Username: username, Email: email, Password: password}
	return id
}

// SetBio updates an account's bio server-side, as if edited elsewhere.
func (b *Backend) SetBio(email, bio string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if a, ok := b.accounts[email]; ok {
		a.Bio = bio
	}
}

// IssueTokens mints a valid token pair for a user, as if a login had
// happened on another device.
func (b *Backend) IssueTokens(userID string) (access, refresh string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return b.issueTokensLocked(userID)
}

func (b *Backend) issueTokensLocked(userID string) (string, string) {
	b.nextID++
	access := fmt.Sprintf("at-%s-%d", userID, b.nextID)
	refresh := fmt.Sprintf("rt-%s-%d", userID, b.nextID)
	b.accessTokens[access] = userID
	b.refreshTokens[refresh] = userID
	return access, refresh
}

// ExpireAccess invalidates an access token server-side.
func (b *Backend) ExpireAccess(token string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	delete(b.accessTokens, token)
}

// ExpireRefresh invalidates a refresh token server-side.
func (b *Backend) ExpireRefresh(token string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	delete(b.refreshTokens, token)
}

// SetPassport scripts the passport returned for a user.
func (b *Backend) SetPassport(userID string, p model.Passport) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	p.UserID = userID
	b.passports[userID] = p
}

func (b *Backend) bearerUser(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", false
	}
	id, ok := b.accessTokens[token]
	return id, ok
}

func (b *Backend) accountByID(id string) *Account {
	for _, a := range b.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func userJSON(a *Account) map[string]any {
	return map[string]any{
		"id":                 a.ID,
		"username":           a.Username,
		"email":              a.Email,
		"bio":                a.Bio,
		"can_post_or_report": true,
	}
}

func (b *Backend) handleLogin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.LoginCalls++

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password required"})
	}

	a, ok := b.accounts[req.Email]
	if !ok || a.Password != req.Password {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	access, refresh := b.issueTokensLocked(a.ID)
	resp := userJSON(a)
	resp["access_token"] = access
	resp["refresh_token"] = refresh
	return c.JSON(http.StatusOK, resp)
}

func (b *Backend) handleRegister(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username, email, and password required"})
	}
	if _, exists := b.accounts[req.Email]; exists {
		return c.JSON(http.StatusConflict, map[string]string{"error": "account already exists"})
	}

	b.addUserLocked(req.Username, req.Email, req.Password)
	a := b.accounts[req.Email]

	resp := userJSON(a)
	if !b.RegisterWithoutToken {
		access, _ := b.issueTokensLocked(a.ID)
		resp["token"] = access
	}
	return c.JSON(http.StatusOK, resp)
}

func (b *Backend) handleValidate(c echo.Context) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.ValidateCalls++

	id, ok := b.bearerUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
	a := b.accountByID(id)
	if a == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unknown user"})
	}
	return c.JSON(http.StatusOK, map[string]any{"user": userJSON(a)})
}

func (b *Backend) handleMe(c echo.Context) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	id, ok := b.bearerUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, userJSON(b.accountByID(id)))
}

func (b *Backend) handleRefresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	b.Mu.Lock()
	b.RefreshCalls++
	delay := b.RefreshDelay
	fail := b.FailRefresh
	id, ok := b.refreshTokens[req.RefreshToken]
	b.Mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fail || !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "refresh token invalid"})
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()

	b.nextID++
	access := fmt.Sprintf("at-%s-%d", id, b.nextID)
	b.accessTokens[access] = id

	resp := map[string]any{"access_token": access}
	if b.RotateRefresh {
		delete(b.refreshTokens, req.RefreshToken)
		b.nextID++
		rotated := fmt.Sprintf("rt-%s-%d", id, b.nextID)
		b.refreshTokens[rotated] = id
		resp["refresh_token"] = rotated
	}
	return c.JSON(http.StatusOK, resp)
}

func (b *Backend) handleLogout(c echo.Context) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.LogoutCalls++
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Backend) handlePassport(c echo.Context) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	id, ok := b.bearerUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, b.passports[id])
}

func (b *Backend) handlePassportSync(c echo.Context) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.SyncCalls++

	id, ok := b.bearerUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, b.passports[id])
}

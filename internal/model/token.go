package model

import "time"

// Stored lifetimes are advisory: they control when the client stops
// presenting a token, not when the server stops accepting it.
const (
	AccessTokenLifetime  = 7 * 24 * time.Hour
	RefreshTokenLifetime = 30 * 24 * time.Hour
)

// TokenPair holds the short-lived access token and the longer-lived refresh
// token. An access token is never persisted without at least attempting to
// persist its companion refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// HasAccess reports whether an access token is present.
func (t TokenPair) HasAccess() bool { return t.AccessToken != "" }

// HasRefresh reports whether a refresh token is present.
func (t TokenPair) HasRefresh() bool { return t.RefreshToken != "" }

package api

import "github.com/opencurrents/currents-cli/internal/model"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the login payload: a token pair plus the user fields
// inlined at the top level.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	model.UserPatch
}

// RegisterResponse carries an optional token; when present, registration
// doubles as an implicit login.
type RegisterResponse struct {
	Token string `json:"token,omitempty"`
	model.UserPatch
}

// RefreshResponse may omit refresh_token when the server does not rotate it.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type validateResponse struct {
	User model.UserPatch `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

package domain

import "time"

// AuthState is the authentication status observed by session dependents.
type AuthState string

const (
	// AuthUnknown holds until durable storage has been read at startup.
	AuthUnknown         AuthState = "unknown"
	AuthAuthenticated   AuthState = "authenticated"
	AuthUnauthenticated AuthState = "unauthenticated"
)

// Session models the signed-in user on this client.
// Credential and Identity are either both set or both empty.
type Session struct {
	Credential string    `json:"-"`
	Identity   string    `json:"username"`
	TokenType  string    `json:"token_type,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether both halves of the session are present.
func (s Session) Valid() bool {
	return s.Credential != "" && s.Identity != ""
}

// Credentials is the login/signup payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthGrant is what the remote service returns on login or signup.
type AuthGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

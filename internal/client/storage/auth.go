package storage

import "context"

// AuthStorage defines interface for storing the client session
type AuthStorage interface {
	// SaveSession stores session data
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves the stored session
	// Returns ErrAuthNotFound if no session exists
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the stored session (logout)
	DeleteSession(ctx context.Context) error
}

// Session represents the authenticated client session
type Session struct {
	Username    string `json:"username"`
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix seconds
}

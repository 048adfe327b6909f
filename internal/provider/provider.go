package provider

import (
	"context"
	"fmt"
)

// Session represents a remote VM session provisioned by the external provider
type Session struct {
	SessionID  string
	AdminToken string
	EmbedURL   string
}

// Client defines the external VM provider API the broker consumes
type Client interface {
	// CreateSession provisions a new remote VM session with the given lease duration (seconds)
	CreateSession(ctx context.Context, expiresIn int) (*Session, error)

	// DeleteSession terminates a remote VM session using its admin token
	DeleteSession(ctx context.Context, sessionID, adminToken string) error
}

// Error represents an error reported by the external VM provider
type Error struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (err *Error) Error() string {
	if err.StatusCode == 0 {
		return err.Message
	}
	return fmt.Sprintf("%s (status %d)", err.Message, err.StatusCode)
}

// Package client provides a transport-agnostic interface for the praevisio
// server and an HTTP/JSON implementation that talks to its REST and SSE API.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/events"
	"github.com/alfredjeanlab/praevisio/internal/model"
)

// VigilanceClient is the interface the praevisio CLI commands use to talk to
// a running server.
type VigilanceClient interface {
	// Tokens
	IssueToken(ctx context.Context, ttl *time.Duration) (*Token, error)

	// State
	State(ctx context.Context) (*model.State, error)
	Report(ctx context.Context) (string, error)

	// Admin
	Emit(ctx context.Context, message string) (*model.State, error)
	Clear(ctx context.Context) (*model.State, error)
	StartFlows(ctx context.Context) (bool, error)
	StopFlows(ctx context.Context) (bool, error)

	// Stream blocks, calling fn for every payload until ctx is cancelled,
	// the server closes the stream or fn returns an error.
	Stream(ctx context.Context, credential string, fn func(events.Vigilance) error) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// Token is an issued ephemeral stream credential.
type Token struct {
	Value     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Deadline returns ExpiresAt as a time.Time.
func (t Token) Deadline() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

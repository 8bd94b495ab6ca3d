// internal/session/store.go

// Package session persists SessionState between chat turns. The store is the
// authoritative copy; the workflow never assumes in-process memory survives
// across turns.
package session

import (
	"context"
	"errors"

	"rfp-workers/internal/models"
)

// ErrNotFound is returned when no state exists for a session identifier.
var ErrNotFound = errors.New("SESSION_NOT_FOUND")

// Store reads and writes session state.
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.SessionState, error)
	Put(ctx context.Context, state *models.SessionState) error
}

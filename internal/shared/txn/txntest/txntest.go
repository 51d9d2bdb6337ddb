// Package txntest provides a Transactor for in-memory repositories in tests.
package txntest

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Participant is an in-memory store that can roll back. Snapshot captures the
// current rows and returns a func that restores them.
type Participant interface {
	Snapshot() (restore func())
}

// Serial runs every outermost transaction one at a time. Nested calls join the
// caller's transaction, like the gorm transactor does. Registered participants
// are restored when the outermost fn returns an error.
type Serial struct {
	mu           sync.Mutex
	participants []Participant

	// Calls counts outermost transactions
	Calls int
	// RolledBack counts outermost transactions that returned an error
	RolledBack int
}

// Register enrols stores in rollback
func (s *Serial) Register(participants ...Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, participants...)
}

func (s *Serial) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(ctxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++

	restores := make([]func(), 0, len(s.participants))
	for _, p := range s.participants {
		restores = append(restores, p.Snapshot())
	}

	if err := fn(context.WithValue(ctx, ctxKey{}, true)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		s.RolledBack++
		return err
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mediation-bot/internal/domain"
)

const (
	refIDLength       = 6
	maxCreateAttempts = 5
)

// ErrNotFound is returned when a reference id has no live request. Lookups
// fail loudly rather than handing back an empty record, since every later
// step assumes the fields written by the steps before it.
var ErrNotFound = errors.New("repository: request not found")

// Store is the in-memory request store: the single source of truth for
// cross-party request data, keyed by reference id. All mutation goes through
// Update so concurrent handlers cannot interleave partial writes on the same
// record.
type Store struct {
	mu       sync.Mutex
	requests map[string]domain.Request
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{requests: make(map[string]domain.Request)}
}

// normalizeRefID upper-cases a reference id so user-echoed ids match.
func normalizeRefID(refID string) string {
	return strings.ToUpper(strings.TrimSpace(refID))
}

// Create mints a fresh reference id, inserts an empty request for the given
// requester and returns it. A generated id that collides with a live request
// is discarded and regenerated, never reused.
func (s *Store) Create(_ context.Context, requester domain.Requester) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		refID := newRefID()
		if _, exists := s.requests[refID]; exists {
			continue
		}
		req := domain.Request{
			RefID:     refID,
			Requester: requester,
			Stage:     domain.StageCreated,
		}
		s.requests[refID] = req
		return req, nil
	}
	return domain.Request{}, errors.New("repository: exhausted reference id generation attempts")
}

// Get returns a snapshot of the request for the given reference id.
func (s *Store) Get(_ context.Context, refID string) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[normalizeRefID(refID)]
	if !ok {
		return domain.Request{}, fmt.Errorf("%w: %s", ErrNotFound, refID)
	}
	return req, nil
}

// Update applies fn to the request under the store lock and returns the
// updated snapshot. If fn returns an error the record is left untouched, so a
// mutator that validates the current stage makes the first valid transition
// win and rejects the rest.
func (s *Store) Update(_ context.Context, refID string, fn func(*domain.Request) error) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeRefID(refID)
	req, ok := s.requests[key]
	if !ok {
		return domain.Request{}, fmt.Errorf("%w: %s", ErrNotFound, refID)
	}
	if err := fn(&req); err != nil {
		return domain.Request{}, err
	}
	s.requests[key] = req
	return req, nil
}

// newRefID returns a short human-readable reference token. Swappable for
// deterministic tests.
var newRefID = func() string {
	return strings.ToUpper(uuid.NewString()[:refIDLength])
}

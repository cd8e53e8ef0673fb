package session

import (
	"sync"

	"mediation-bot/internal/domain"
)

// Registry tracks each conversation party's current state and the reference
// id it is bound to. User sessions are keyed by party id; the single mediator
// has one session of its own. Sessions live only for the process lifetime.
type Registry struct {
	mu    sync.Mutex
	users map[int64]domain.UserSession
	admin domain.AdminSession
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]domain.UserSession)}
}

// User returns the session for a requesting party. Unknown parties are Idle.
func (r *Registry) User(partyID int64) domain.UserSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.users[partyID]
	if !ok {
		return domain.UserSession{State: domain.UserIdle}
	}
	return sess
}

// BindUser sets a party's state and bound reference id.
func (r *Registry) BindUser(partyID int64, state domain.UserState, refID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[partyID] = domain.UserSession{State: state, RefID: refID}
}

// ResetUser returns a party to Idle and drops its request binding. Any
// in-flight request stays in the store but is no longer reachable from this
// session.
func (r *Registry) ResetUser(partyID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, partyID)
}

// Admin returns the mediator's session.
func (r *Registry) Admin() domain.AdminSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.admin.State == "" {
		return domain.AdminSession{State: domain.AdminIdle}
	}
	return r.admin
}

// BindAdmin sets the mediator's state and bound reference id.
func (r *Registry) BindAdmin(state domain.AdminState, refID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = domain.AdminSession{State: state, RefID: refID}
}

// ResetAdmin returns the mediator to Idle. The next binding happens through a
// decision button payload, not a retained reference.
func (r *Registry) ResetAdmin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = domain.AdminSession{}
}

package domain

// Requester identifies the party that initiated a mediation request.
// Captured once at creation and immutable afterwards.
type Requester struct {
	ID       int64
	Username string
}

// MessageHandle references a delivered chat message so it can later be
// edited in place.
type MessageHandle struct {
	ChatID    int64
	MessageID int64
}

// IsZero reports whether the handle has never been set.
func (h MessageHandle) IsZero() bool {
	return h == MessageHandle{}
}

// Stage tracks how far a request has progressed through the mediation
// lifecycle. Stage transitions are validated inside store mutators so the
// first valid transition wins and a late or duplicate decision is rejected
// instead of overwriting the record.
type Stage string

const (
	StageCreated          Stage = "created"
	StageAwaitingDecision Stage = "awaiting_decision"
	StageAccepted         Stage = "accepted"
	StageProofReceived    Stage = "proof_received"
	StagePayoutPending    Stage = "payout_pending"
	StageAwaitingClaim    Stage = "awaiting_claim"
	StageClosed           Stage = "closed"
	StageRejected         Stage = "rejected"
)

// Request is the shared record both parties' sessions read and mutate,
// correlated everywhere by its reference id.
type Request struct {
	RefID        string
	Requester    Requester
	Amount       string
	AdminMessage MessageHandle
	Stage        Stage
}

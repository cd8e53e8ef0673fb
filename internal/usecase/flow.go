package usecase

import (
	"context"
	"errors"

	"mediation-bot/internal/domain"
	"mediation-bot/internal/repository"
)

// RequestStore is the request lifecycle store consumed by the flow engine.
type RequestStore interface {
	Create(ctx context.Context, requester domain.Requester) (domain.Request, error)
	Get(ctx context.Context, refID string) (domain.Request, error)
	Update(ctx context.Context, refID string, fn func(*domain.Request) error) (domain.Request, error)
}

// SessionStore tracks per-party conversational state.
type SessionStore interface {
	User(partyID int64) domain.UserSession
	BindUser(partyID int64, state domain.UserState, refID string)
	ResetUser(partyID int64)
	Admin() domain.AdminSession
	BindAdmin(state domain.AdminState, refID string)
	ResetAdmin()
}

// Notifier delivers messages and decision buttons to a party. Message
// handles returned by SendImageWithActions are reused later for in-place
// edits.
type Notifier interface {
	SendText(ctx context.Context, partyID int64, text string) error
	SendImageWithActions(ctx context.Context, partyID int64, imageRef, caption string, actions []domain.Action) (domain.MessageHandle, error)
	EditImageMessage(ctx context.Context, handle domain.MessageHandle, imageRef, caption string, actions []domain.Action) error
	AnswerAction(ctx context.Context, callbackID, text string) error
}

// errStageConflict marks a transition attempted against a request that has
// already moved past it. The first valid transition wins; the rest are
// rejected with an "already handled" notice.
var errStageConflict = errors.New("usecase: conflicting stage transition")

// advanceStage returns a store mutator that moves a request from one stage to
// the next, failing if any other transition got there first.
func advanceStage(from, to domain.Stage) func(*domain.Request) error {
	return func(r *domain.Request) error {
		if r.Stage != from {
			return errStageConflict
		}
		r.Stage = to
		return nil
	}
}

// FlowService is the conversation state machine: it routes classified inbound
// events by party and session state, mutates the request store, notifies both
// parties and advances their sessions in lockstep.
type FlowService struct {
	store    RequestStore
	sessions SessionStore
	notifier Notifier
	adminID  int64
}

func NewFlowService(store RequestStore, sessions SessionStore, notifier Notifier, adminID int64) (*FlowService, error) {
	if store == nil {
		return nil, errors.New("usecase: request store must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if adminID == 0 {
		return nil, errors.New("usecase: admin id must not be zero")
	}
	return &FlowService{
		store:    store,
		sessions: sessions,
		notifier: notifier,
		adminID:  adminID,
	}, nil
}

// Dispatch routes one inbound event. The begin command is a hard reset from
// any state; decision buttons carry their own reference id; everything else
// is gated on the sending party's current session state.
func (s *FlowService) Dispatch(ctx context.Context, ev domain.Event) error {
	switch {
	case ev.Kind == domain.EventCommand && ev.Command == domain.CommandBegin:
		return s.begin(ctx, ev)
	case ev.Kind == domain.EventAction:
		return s.decision(ctx, ev)
	case ev.FromAdmin:
		return s.adminInput(ctx, ev)
	default:
		return s.userInput(ctx, ev)
	}
}

// begin abandons any in-flight request for the party, mints a fresh one and
// prompts for the amount. The old request stays in the store but is no longer
// reachable from this session.
func (s *FlowService) begin(ctx context.Context, ev domain.Event) error {
	s.sessions.ResetUser(ev.Party)

	req, err := s.store.Create(ctx, domain.Requester{ID: ev.Party, Username: ev.Username})
	if err != nil {
		return newError(ErrorInternal, "request_create_error", err)
	}
	s.sessions.BindUser(ev.Party, domain.UserAmount, req.RefID)

	if err := s.notifier.SendText(ctx, ev.Party, welcomeText(ev.Username)); err != nil {
		return newError(ErrorNotify, "welcome_send_error", err)
	}
	return nil
}

func (s *FlowService) userInput(ctx context.Context, ev domain.Event) error {
	sess := s.sessions.User(ev.Party)
	switch sess.State {
	case domain.UserAmount:
		return s.amountStep(ctx, ev, sess)
	case domain.UserVicReadyScreenshot:
		return s.vicReadyStep(ctx, ev, sess)
	case domain.UserPaymentScreenshot:
		return s.paymentProofStep(ctx, ev, sess)
	case domain.UserWaitingClaim:
		return s.claimStep(ctx, ev, sess)
	case domain.UserWaitingAdmin:
		return s.rejectInput(ctx, ev.Party, waitingAdminText)
	default:
		return s.rejectInput(ctx, ev.Party, idlePromptText)
	}
}

// rejectInput is the cross-cutting invalid-input policy: re-prompt without
// mutating the request or advancing the session.
func (s *FlowService) rejectInput(ctx context.Context, partyID int64, prompt string) error {
	if err := s.notifier.SendText(ctx, partyID, prompt); err != nil {
		return newError(ErrorNotify, "reprompt_send_error", err)
	}
	return nil
}

func (s *FlowService) amountStep(ctx context.Context, ev domain.Event, sess domain.UserSession) error {
	if ev.Kind != domain.EventText || !validAmount(ev.Text) {
		return s.rejectInput(ctx, ev.Party, amountRePromptText)
	}

	// Amount is set once; entered verbatim, displayed verbatim later.
	if _, err := s.store.Update(ctx, sess.RefID, func(r *domain.Request) error {
		if r.Stage != domain.StageCreated {
			return errStageConflict
		}
		r.Amount = ev.Text
		return nil
	}); err != nil {
		return s.requestFault(ctx, ev.Party, "amount_store_error", err)
	}

	s.sessions.BindUser(ev.Party, domain.UserVicReadyScreenshot, sess.RefID)
	if err := s.notifier.SendText(ctx, ev.Party, vicReadyPromptText); err != nil {
		return newError(ErrorNotify, "screenshot_prompt_send_error", err)
	}
	return nil
}

func (s *FlowService) vicReadyStep(ctx context.Context, ev domain.Event, sess domain.UserSession) error {
	if ev.Kind != domain.EventImage {
		return s.rejectInput(ctx, ev.Party, screenshotOnlyText)
	}

	req, err := s.store.Get(ctx, sess.RefID)
	if err != nil {
		return s.requestFault(ctx, ev.Party, "vic_ready_request_lookup_error", err)
	}

	handle, err := s.notifier.SendImageWithActions(
		ctx, s.adminID, ev.ImageRef,
		adminSummaryCaption(req, statusProofReady),
		decisionActions(req.RefID),
	)
	if err != nil {
		return newError(ErrorNotify, "admin_summary_send_error", err)
	}

	if _, err := s.store.Update(ctx, sess.RefID, func(r *domain.Request) error {
		if r.Stage != domain.StageCreated {
			return errStageConflict
		}
		r.AdminMessage = handle
		r.Stage = domain.StageAwaitingDecision
		return nil
	}); err != nil {
		return s.requestFault(ctx, ev.Party, "vic_ready_store_error", err)
	}

	s.sessions.BindUser(ev.Party, domain.UserWaitingAdmin, sess.RefID)
	if err := s.notifier.SendText(ctx, ev.Party, submittedAckText); err != nil {
		return newError(ErrorNotify, "submitted_ack_send_error", err)
	}
	return nil
}

func (s *FlowService) paymentProofStep(ctx context.Context, ev domain.Event, sess domain.UserSession) error {
	if ev.Kind != domain.EventImage {
		return s.rejectInput(ctx, ev.Party, screenshotOnlyText)
	}

	req, err := s.store.Update(ctx, sess.RefID, advanceStage(domain.StageAccepted, domain.StageProofReceived))
	if err != nil {
		return s.requestFault(ctx, ev.Party, "payment_proof_store_error", err)
	}

	// Same handle as the original summary: the mediator message is replaced
	// in place with the updated status and the second decision point.
	if err := s.notifier.EditImageMessage(
		ctx, req.AdminMessage, ev.ImageRef,
		adminSummaryCaption(req, statusPaymentReceived),
		payoutActions(req.RefID),
	); err != nil {
		return newError(ErrorNotify, "admin_edit_error", err)
	}

	s.sessions.BindUser(ev.Party, domain.UserWaitingAdmin, sess.RefID)
	if err := s.notifier.SendText(ctx, ev.Party, paymentAckText); err != nil {
		return newError(ErrorNotify, "payment_ack_send_error", err)
	}
	return nil
}

func (s *FlowService) claimStep(ctx context.Context, ev domain.Event, sess domain.UserSession) error {
	if ev.Kind != domain.EventCommand || ev.Command != domain.CommandClaim {
		return s.rejectInput(ctx, ev.Party, claimRePromptText)
	}

	if _, err := s.store.Update(ctx, sess.RefID, advanceStage(domain.StageAwaitingClaim, domain.StageClosed)); err != nil {
		return s.requestFault(ctx, ev.Party, "claim_store_error", err)
	}

	s.sessions.ResetUser(ev.Party)
	if err := s.notifier.SendText(ctx, ev.Party, claimConfirmedText(ev.Username)); err != nil {
		return newError(ErrorNotify, "claim_ack_send_error", err)
	}
	return nil
}

func (s *FlowService) decision(ctx context.Context, ev domain.Event) error {
	if !ev.FromAdmin {
		// Decision buttons only exist in the mediator chat.
		return nil
	}

	verb, refID, err := domain.ParseActionPayload(ev.Payload)
	if err != nil {
		return newError(ErrorInvalidInput, "malformed_action_payload", err)
	}

	switch verb {
	case domain.ActionAccept:
		return s.accept(ctx, ev, refID)
	case domain.ActionReject:
		return s.reject(ctx, ev, refID)
	case domain.ActionPayout:
		return s.payout(ctx, ev, refID)
	default:
		// The fail button is declared but its consequence is undefined;
		// acknowledge the press and do nothing else.
		return s.answer(ctx, ev, "")
	}
}

func (s *FlowService) accept(ctx context.Context, ev domain.Event, refID string) error {
	req, err := s.store.Update(ctx, refID, advanceStage(domain.StageAwaitingDecision, domain.StageAccepted))
	if err != nil {
		return s.decisionFault(ctx, ev, "accept_store_error", err)
	}

	s.sessions.BindAdmin(domain.AdminWaitingPaypal, req.RefID)
	if err := s.notifier.SendText(ctx, s.adminID, paypalPromptText(req.Requester.Username)); err != nil {
		return newError(ErrorNotify, "paypal_prompt_send_error", err)
	}
	return s.answer(ctx, ev, "")
}

func (s *FlowService) reject(ctx context.Context, ev domain.Event, refID string) error {
	req, err := s.store.Update(ctx, refID, advanceStage(domain.StageAwaitingDecision, domain.StageRejected))
	if err != nil {
		return s.decisionFault(ctx, ev, "reject_store_error", err)
	}

	s.sessions.ResetUser(req.Requester.ID)
	if err := s.notifier.SendText(ctx, req.Requester.ID, rejectionText); err != nil {
		return newError(ErrorNotify, "rejection_send_error", err)
	}
	return s.answer(ctx, ev, rejectedAckText)
}

func (s *FlowService) payout(ctx context.Context, ev domain.Event, refID string) error {
	req, err := s.store.Update(ctx, refID, advanceStage(domain.StageProofReceived, domain.StagePayoutPending))
	if err != nil {
		return s.decisionFault(ctx, ev, "payout_store_error", err)
	}

	s.sessions.BindAdmin(domain.AdminWaitingPayoutText, req.RefID)
	if err := s.notifier.SendText(ctx, s.adminID, payoutPromptText); err != nil {
		return newError(ErrorNotify, "payout_prompt_send_error", err)
	}
	return s.answer(ctx, ev, "")
}

func (s *FlowService) adminInput(ctx context.Context, ev domain.Event) error {
	sess := s.sessions.Admin()
	switch sess.State {
	case domain.AdminWaitingPaypal:
		return s.paypalStep(ctx, ev, sess)
	case domain.AdminWaitingPayoutText:
		return s.payoutTextStep(ctx, ev, sess)
	default:
		// Nothing pending from the mediator.
		return nil
	}
}

// paypalStep forwards the payout destination verbatim to the requester and
// pushes the user session forward to the payment proof step.
func (s *FlowService) paypalStep(ctx context.Context, ev domain.Event, sess domain.AdminSession) error {
	req, err := s.store.Get(ctx, sess.RefID)
	if err != nil {
		s.sessions.ResetAdmin()
		return s.requestFault(ctx, s.adminID, "paypal_request_lookup_error", err)
	}
	if ev.Kind != domain.EventText {
		return s.rejectInput(ctx, s.adminID, paypalPromptText(req.Requester.Username))
	}
	if req.Stage != domain.StageAccepted {
		s.sessions.ResetAdmin()
		return s.requestFault(ctx, s.adminID, "paypal_stage_conflict", errStageConflict)
	}

	if err := s.notifier.SendText(ctx, req.Requester.ID, paymentInstructionsText(req.Amount, ev.Text)); err != nil {
		return newError(ErrorNotify, "payment_instructions_send_error", err)
	}

	s.sessions.BindUser(req.Requester.ID, domain.UserPaymentScreenshot, req.RefID)
	s.sessions.ResetAdmin()
	return nil
}

// payoutTextStep forwards the payout text with the claim instruction and
// pushes the user session to the final confirmation step.
func (s *FlowService) payoutTextStep(ctx context.Context, ev domain.Event, sess domain.AdminSession) error {
	if ev.Kind != domain.EventText {
		return s.rejectInput(ctx, s.adminID, payoutPromptText)
	}

	req, err := s.store.Update(ctx, sess.RefID, advanceStage(domain.StagePayoutPending, domain.StageAwaitingClaim))
	if err != nil {
		s.sessions.ResetAdmin()
		return s.requestFault(ctx, s.adminID, "payout_text_store_error", err)
	}

	if err := s.notifier.SendText(ctx, req.Requester.ID, payoutInstructionsText(ev.Text)); err != nil {
		return newError(ErrorNotify, "payout_instructions_send_error", err)
	}

	s.sessions.BindUser(req.Requester.ID, domain.UserWaitingClaim, req.RefID)
	s.sessions.ResetAdmin()
	return nil
}

// requestFault notifies the party of a request-scoped fault and returns the
// typed error. Faults never escape the affected request.
func (s *FlowService) requestFault(ctx context.Context, partyID int64, reason string, err error) error {
	code, notice := classifyFault(err)
	_ = s.notifier.SendText(ctx, partyID, notice)
	return newError(code, reason, err)
}

// decisionFault is requestFault for button presses: the notice rides on the
// callback acknowledgement instead of a separate message.
func (s *FlowService) decisionFault(ctx context.Context, ev domain.Event, reason string, err error) error {
	code, notice := classifyFault(err)
	_ = s.answer(ctx, ev, notice)
	return newError(code, reason, err)
}

func classifyFault(err error) (ErrorCode, string) {
	switch {
	case errors.Is(err, errStageConflict):
		return ErrorConflict, alreadyHandledText
	case errors.Is(err, repository.ErrNotFound):
		return ErrorNotFound, requestNotFoundText
	default:
		return ErrorInternal, internalFaultText
	}
}

func (s *FlowService) answer(ctx context.Context, ev domain.Event, text string) error {
	if ev.CallbackID == "" {
		return nil
	}
	if err := s.notifier.AnswerAction(ctx, ev.CallbackID, text); err != nil {
		return newError(ErrorNotify, "callback_answer_error", err)
	}
	return nil
}

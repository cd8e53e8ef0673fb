package domain

// UserState is the requesting party's position in its state graph.
type UserState string

const (
	UserIdle               UserState = "idle"
	UserAmount             UserState = "amount"
	UserVicReadyScreenshot UserState = "vic_ready_screenshot"
	UserWaitingAdmin       UserState = "waiting_admin"
	UserPaymentScreenshot  UserState = "payment_screenshot"
	UserWaitingClaim       UserState = "waiting_claim"
)

// AdminState is the mediator's position in its state graph. The mediator is
// only transiently bound to a request: each decision button rebinds via the
// reference id carried in its payload.
type AdminState string

const (
	AdminIdle              AdminState = "idle"
	AdminWaitingPaypal     AdminState = "waiting_paypal"
	AdminWaitingPayoutText AdminState = "waiting_payout_text"
)

// UserSession is one requesting party's current state and bound request.
type UserSession struct {
	State UserState
	RefID string
}

// AdminSession is the mediator's current state and bound request.
type AdminSession struct {
	State AdminState
	RefID string
}

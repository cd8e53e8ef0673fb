package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mediation-bot/internal/domain"
)

func TestUser_UnknownPartyIsIdle(t *testing.T) {
	r := NewRegistry()
	sess := r.User(42)
	require.Equal(t, domain.UserIdle, sess.State)
	require.Empty(t, sess.RefID)
}

func TestBindUser_SetsStateAndRef(t *testing.T) {
	r := NewRegistry()
	r.BindUser(42, domain.UserAmount, "AB12CD")

	sess := r.User(42)
	require.Equal(t, domain.UserAmount, sess.State)
	require.Equal(t, "AB12CD", sess.RefID)

	other := r.User(43)
	require.Equal(t, domain.UserIdle, other.State, "sessions are per party")
}

func TestResetUser_DropsBinding(t *testing.T) {
	r := NewRegistry()
	r.BindUser(42, domain.UserWaitingClaim, "AB12CD")
	r.ResetUser(42)

	sess := r.User(42)
	require.Equal(t, domain.UserIdle, sess.State)
	require.Empty(t, sess.RefID)
}

func TestAdmin_DefaultsToIdle(t *testing.T) {
	r := NewRegistry()
	sess := r.Admin()
	require.Equal(t, domain.AdminIdle, sess.State)
	require.Empty(t, sess.RefID)
}

func TestBindAdmin_Rebinds(t *testing.T) {
	r := NewRegistry()
	r.BindAdmin(domain.AdminWaitingPaypal, "AB12CD")
	require.Equal(t, domain.AdminWaitingPaypal, r.Admin().State)
	require.Equal(t, "AB12CD", r.Admin().RefID)

	// A later decision point rebinds to a different request.
	r.BindAdmin(domain.AdminWaitingPayoutText, "EF34GH")
	require.Equal(t, domain.AdminWaitingPayoutText, r.Admin().State)
	require.Equal(t, "EF34GH", r.Admin().RefID)
}

func TestResetAdmin(t *testing.T) {
	r := NewRegistry()
	r.BindAdmin(domain.AdminWaitingPaypal, "AB12CD")
	r.ResetAdmin()

	sess := r.Admin()
	require.Equal(t, domain.AdminIdle, sess.State)
	require.Empty(t, sess.RefID)
}

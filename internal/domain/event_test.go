package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActionPayload_RoundTrip(t *testing.T) {
	for _, verb := range []ActionVerb{ActionAccept, ActionReject, ActionPayout, ActionFail} {
		payload := ActionPayload(verb, "AB12CD")
		gotVerb, gotRef, err := ParseActionPayload(payload)
		require.NoError(t, err, "verb=%s", verb)
		require.Equal(t, verb, gotVerb)
		require.Equal(t, "AB12CD", gotRef)
	}
}

func TestParseActionPayload_Malformed(t *testing.T) {
	for _, payload := range []string{"", "accept", "accept:", ":AB12CD", "launch:AB12CD"} {
		_, _, err := ParseActionPayload(payload)
		require.Error(t, err, "payload=%q", payload)
	}
}

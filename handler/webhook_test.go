package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"mediation-bot/internal/domain"
	"mediation-bot/internal/usecase"
)

const adminID int64 = 99

type stubDispatcher struct {
	err    error
	events []domain.Event
}

func (s *stubDispatcher) Dispatch(_ context.Context, ev domain.Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func makeRequest(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/webhook",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func mustHandler(t *testing.T, d Dispatcher) *Handler {
	t.Helper()
	h, err := NewHandler(d, adminID)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewHandler(nil, adminID)
	require.Error(t, err)

	_, err = NewHandler(&stubDispatcher{}, 0)
	require.Error(t, err)
}

func TestHandle_TextMessage(t *testing.T) {
	d := &stubDispatcher{}
	h := mustHandler(t, d)

	resp, err := h.Handle(context.Background(), makeRequest(
		`{"update_id":1,"message":{"message_id":5,"from":{"id":7,"username":"alice"},"chat":{"id":7},"text":"42.50"}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, d.events, 1)
	ev := d.events[0]
	require.Equal(t, domain.EventText, ev.Kind)
	require.Equal(t, int64(7), ev.Party)
	require.Equal(t, "alice", ev.Username)
	require.Equal(t, "42.50", ev.Text)
	require.False(t, ev.FromAdmin)
}

func TestHandle_Commands(t *testing.T) {
	cases := []struct {
		text string
		want domain.Command
	}{
		{"/start", domain.CommandBegin},
		{"/start@mediation_bot", domain.CommandBegin},
		{"/claim now", domain.CommandClaim},
	}
	for _, tc := range cases {
		d := &stubDispatcher{}
		h := mustHandler(t, d)

		_, err := h.Handle(context.Background(), makeRequest(
			`{"message":{"from":{"id":7,"username":"alice"},"chat":{"id":7},"text":"`+tc.text+`"}}`))
		require.NoError(t, err)
		require.Len(t, d.events, 1, "text=%q", tc.text)
		require.Equal(t, domain.EventCommand, d.events[0].Kind)
		require.Equal(t, tc.want, d.events[0].Command)
	}
}

func TestHandle_PhotoUsesLargestSize(t *testing.T) {
	d := &stubDispatcher{}
	h := mustHandler(t, d)

	_, err := h.Handle(context.Background(), makeRequest(
		`{"message":{"from":{"id":7,"username":"alice"},"chat":{"id":7},"photo":[{"file_id":"small"},{"file_id":"medium"},{"file_id":"large"}]}}`))
	require.NoError(t, err)
	require.Len(t, d.events, 1)
	require.Equal(t, domain.EventImage, d.events[0].Kind)
	require.Equal(t, "large", d.events[0].ImageRef)
}

func TestHandle_CallbackQuery(t *testing.T) {
	d := &stubDispatcher{}
	h := mustHandler(t, d)

	_, err := h.Handle(context.Background(), makeRequest(
		`{"callback_query":{"id":"cb-1","from":{"id":99,"username":"mediator"},"data":"accept:AB12CD"}}`))
	require.NoError(t, err)
	require.Len(t, d.events, 1)

	ev := d.events[0]
	require.Equal(t, domain.EventAction, ev.Kind)
	require.Equal(t, "accept:AB12CD", ev.Payload)
	require.Equal(t, "cb-1", ev.CallbackID)
	require.True(t, ev.FromAdmin)
}

func TestHandle_AdminDiscrimination(t *testing.T) {
	d := &stubDispatcher{}
	h := mustHandler(t, d)

	_, err := h.Handle(context.Background(), makeRequest(
		`{"message":{"from":{"id":99,"username":"mediator"},"chat":{"id":99},"text":"paypal@x.com"}}`))
	require.NoError(t, err)
	require.Len(t, d.events, 1)
	require.True(t, d.events[0].FromAdmin)
}

func TestHandle_UnparseableBody(t *testing.T) {
	d := &stubDispatcher{}
	h := mustHandler(t, d)

	resp, err := h.Handle(context.Background(), makeRequest(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, d.events)
}

func TestHandle_MeaninglessUpdateDropped(t *testing.T) {
	d := &stubDispatcher{}
	h := mustHandler(t, d)

	resp, err := h.Handle(context.Background(), makeRequest(`{"update_id":1}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, d.events)

	// A sticker-only message has no flow meaning either.
	resp, err = h.Handle(context.Background(), makeRequest(
		`{"message":{"from":{"id":7},"chat":{"id":7}}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, d.events)
}

func TestHandle_FlowFaultAcknowledged(t *testing.T) {
	d := &stubDispatcher{err: &usecase.Error{Code: usecase.ErrorConflict, Reason: "accept_store_error"}}
	h := mustHandler(t, d)

	resp, err := h.Handle(context.Background(), makeRequest(
		`{"callback_query":{"id":"cb-1","from":{"id":99},"data":"accept:AB12CD"}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "faults must not trigger webhook redelivery")
}

func TestHandle_UnexpectedErrorIsServerError(t *testing.T) {
	d := &stubDispatcher{err: errors.New("boom")}
	h := mustHandler(t, d)

	resp, err := h.Handle(context.Background(), makeRequest(
		`{"message":{"from":{"id":7},"chat":{"id":7},"text":"hi"}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"mediation-bot/internal/domain"
	"mediation-bot/internal/usecase"
)

// update mirrors the subset of the Telegram Update shape the bot consumes.
type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *message       `json:"message"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type message struct {
	MessageID int64       `json:"message_id"`
	From      *user       `json:"from"`
	Chat      chat        `json:"chat"`
	Text      string      `json:"text"`
	Photo     []photoSize `json:"photo"`
}

type user struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type chat struct {
	ID int64 `json:"id"`
}

type photoSize struct {
	FileID string `json:"file_id"`
}

type callbackQuery struct {
	ID   string `json:"id"`
	From user   `json:"from"`
	Data string `json:"data"`
}

// Dispatcher routes one classified inbound event through the flow engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) error
}

// Handler is the Telegram webhook ingress: it classifies raw updates into
// flow events and dispatches them.
type Handler struct {
	dispatcher Dispatcher
	adminID    int64
	logger     *slog.Logger
}

func NewHandler(d Dispatcher, adminID int64) (*Handler, error) {
	if d == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	if adminID == 0 {
		return nil, errors.New("handler: admin id must not be zero")
	}
	return &Handler{
		dispatcher: d,
		adminID:    adminID,
		logger:     slog.Default(),
	}, nil
}

// Handle processes one webhook delivery. Request-scoped flow faults are
// acknowledged with 200 so the platform does not redeliver them; only an
// unparseable payload is a client error.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var upd update
	if err := json.Unmarshal([]byte(req.Body), &upd); err != nil {
		h.logger.Warn("unparseable webhook payload", "err", err)
		return respond(http.StatusBadRequest), nil
	}

	ev, ok := classify(upd, h.adminID)
	if !ok {
		// Update kinds without a flow meaning are acknowledged and dropped.
		return respond(http.StatusOK), nil
	}

	if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
		var flowErr *usecase.Error
		if errors.As(err, &flowErr) {
			h.logger.Warn("dispatch fault",
				"code", flowErr.Code, "reason", flowErr.Reason,
				"party", ev.Party, "kind", ev.Kind, "err", flowErr.Err)
			return respond(http.StatusOK), nil
		}
		h.logger.Error("dispatch failed", "party", ev.Party, "kind", ev.Kind, "err", err)
		return respond(http.StatusInternalServerError), nil
	}
	return respond(http.StatusOK), nil
}

// classify maps one update onto the flow engine's event shape.
func classify(upd update, adminID int64) (domain.Event, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		return domain.Event{
			Party:      cq.From.ID,
			Username:   cq.From.Username,
			FromAdmin:  cq.From.ID == adminID,
			Kind:       domain.EventAction,
			Payload:    cq.Data,
			CallbackID: cq.ID,
		}, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil {
		return domain.Event{}, false
	}
	ev := domain.Event{
		Party:     msg.Chat.ID,
		Username:  msg.From.Username,
		FromAdmin: msg.From.ID == adminID,
	}
	switch {
	case len(msg.Photo) > 0:
		ev.Kind = domain.EventImage
		// The last size variant is the largest.
		ev.ImageRef = msg.Photo[len(msg.Photo)-1].FileID
	case strings.HasPrefix(msg.Text, "/"):
		ev.Kind = domain.EventCommand
		ev.Command = parseCommand(msg.Text)
	case msg.Text != "":
		ev.Kind = domain.EventText
		ev.Text = msg.Text
	default:
		return domain.Event{}, false
	}
	return ev, true
}

// parseCommand extracts the bare command name, dropping arguments and the
// @botname suffix used in group chats.
func parseCommand(text string) domain.Command {
	cmd := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return domain.Command(cmd)
}

func respond(status int) events.APIGatewayProxyResponse {
	body := `{"ok":true}`
	if status >= http.StatusBadRequest {
		body = `{"ok":false}`
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

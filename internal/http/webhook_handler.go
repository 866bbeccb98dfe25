package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zxc1031408077/line-bot-ordering/internal/dispatch"
)

const (
	SignatureHeader = "X-Line-Signature"

	webhookEventTTL = 24 * time.Hour
)

type webhookRequest struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type           string `json:"type"`
	WebhookEventID string `json:"webhookEventId"`
	ReplyToken     string `json:"replyToken"`
	Source         struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message,omitempty"`
	Postback *struct {
		Data string `json:"data"`
	} `json:"postback,omitempty"`
}

type WebhookHandler struct {
	dispatcher    *dispatch.Dispatcher
	replier       Replier
	idempotency   IdempotencyStore
	channelSecret []byte
	maxBodySize   int64
	log           *slog.Logger
}

func NewWebhookHandler(
	dispatcher *dispatch.Dispatcher,
	replier Replier,
	idempotency IdempotencyStore,
	channelSecret string,
	maxBodySize int64,
	log *slog.Logger,
) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	if idempotency == nil {
		idempotency = NewMemoryIdempotencyStore()
	}
	return &WebhookHandler{
		dispatcher:    dispatcher,
		replier:       replier,
		idempotency:   idempotency,
		channelSecret: []byte(channelSecret),
		maxBodySize:   maxBodySize,
		log:           log,
	}
}

// POST /callback
func (h *WebhookHandler) Callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}

	if len(h.channelSecret) > 0 && !ValidSignature(h.channelSecret, body, r.Header.Get(SignatureHeader)) {
		h.log.WarnContext(r.Context(), "webhook signature mismatch", "request_id", getRequestID(r.Context()))
		respondError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	for _, ev := range req.Events {
		h.handleEvent(r, ev)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleEvent(r *http.Request, ev webhookEvent) {
	ctx := r.Context()
	userID := ev.Source.UserID

	cmd, ok := h.parseEvent(r, ev)
	if !ok || userID == "" {
		return
	}

	if ev.WebhookEventID != "" {
		claimed, err := h.idempotency.Claim(ctx, "webhook:"+ev.WebhookEventID, webhookEventTTL)
		if err != nil {
			h.log.WarnContext(ctx, "webhook dedupe unavailable", "event_id", ev.WebhookEventID, "error", err)
		} else if !claimed {
			h.log.InfoContext(ctx, "skipping redelivered webhook event", "event_id", ev.WebhookEventID)
			return
		}
	}

	res, err := h.dispatcher.Handle(ctx, userID, cmd)
	if err != nil {
		h.log.ErrorContext(ctx, "command failed", "user_id", userID, "event_id", ev.WebhookEventID, "error", err)
		if ev.WebhookEventID != "" {
			if relErr := h.idempotency.Release(ctx, "webhook:"+ev.WebhookEventID); relErr != nil {
				h.log.WarnContext(ctx, "webhook dedupe release failed", "error", relErr)
			}
		}
		return
	}

	if err := h.replier.Reply(ctx, ev.ReplyToken, userID, res); err != nil {
		h.log.ErrorContext(ctx, "reply failed", "user_id", userID, "error", err)
	}
}

func (h *WebhookHandler) parseEvent(r *http.Request, ev webhookEvent) (dispatch.Command, bool) {
	switch ev.Type {
	case "message":
		if ev.Message == nil || ev.Message.Type != "text" {
			return nil, false
		}
		return dispatch.ParseText(ev.Message.Text), true
	case "postback":
		if ev.Postback == nil {
			return nil, false
		}
		cmd, err := dispatch.ParsePostback(ev.Postback.Data)
		if err != nil {
			h.log.WarnContext(r.Context(), "unknown postback", "data", ev.Postback.Data, "error", err)
			return dispatch.Help{}, true
		}
		return cmd, true
	default:
		return nil, false
	}
}

// ValidSignature checks signature against base64(HMAC-SHA256(secret, body)).
func ValidSignature(secret, body []byte, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

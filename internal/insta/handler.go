package insta

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Handler struct {
	svc     Service
	timeout time.Duration
	log     *zap.Logger
}

func NewHandler(svc Service, timeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{svc: svc, timeout: timeout, log: log}
}

// Verify — GET-рукопожатие платформы: вернуть hub.challenge как есть.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("hub.challenge")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// HandleWebhook — вход от Instagram. Бизнес-исходы всегда 200: не-2xx
// платформа трактует как "доставить ещё раз".
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error("webhook body read failed", zap.Error(err))
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}

	p, err := ParsePayload(body)
	if err != nil {
		h.log.Info("webhook payload rejected", zap.Error(err))
		h.ack(w, OutcomeInvalidPayload)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	outcome := h.svc.HandleWebhook(ctx, p)
	h.log.Info("webhook handled", zap.String("outcome", string(outcome)))
	h.ack(w, outcome)
}

func (h *Handler) ack(w http.ResponseWriter, outcome Outcome) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(outcome))
}

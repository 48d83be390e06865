package controllers

import (
	"net/http"
	"strconv"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	"github.com/orderdeskhq/orderdesk-backend/internal/triage"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

// TriageDeadLetters lists recent dead letters for operator review.
func TriageDeadLetters(svc *triage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rows, err := svc.ListDeadLetters(ctx, queryLimit(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// TriageWebhookEvents lists claim rows, optionally filtered by status.
func TriageWebhookEvents(svc *triage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := enums.WebhookStatus(r.URL.Query().Get("status"))
		rows, err := svc.ListWebhookEvents(ctx, status, queryLimit(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type replayRequest struct {
	DeadLetterID string `json:"deadLetterId" validate:"required,uuid4"`
}

// TriageReplay re-publishes a dead-lettered delivery onto the orders topic.
func TriageReplay(svc *triage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req replayRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Replay(ctx, req.DeadLetterID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "replayed"})
	}
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	ingest "github.com/orderdeskhq/orderdesk-backend/internal/webhooks"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
)

type IngestService interface {
	Process(ctx context.Context, delivery ingest.Delivery) ingest.Result
}

// OrdersWebhook receives order webhooks from the store platform. The raw
// body is read exactly once and passed through untouched; the signature was
// computed over these bytes.
func OrdersWebhook(svc IngestService, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		delivery := ingest.Delivery{
			WebhookID:  r.Header.Get(ingest.HeaderWebhookID),
			ShopDomain: r.Header.Get(ingest.HeaderShopDomain),
			Topic:      r.Header.Get(ingest.HeaderTopic),
			StoreHint:  r.URL.Query().Get("store"),
			Signature:  r.Header.Get(ingest.HeaderSignature),
			Body:       body,
		}

		if logg != nil {
			ctx = logg.WithWebhookID(ctx, delivery.WebhookID)
			ctx = logg.WithShopDomain(ctx, delivery.ShopDomain)
			ctx = logg.WithTopic(ctx, delivery.Topic)
		}

		started := time.Now()
		result := svc.Process(ctx, delivery)
		webhookMetrics.ObserveDuration(string(result.Store), time.Since(started))
		webhookMetrics.IncOutcome(string(result.Store), string(result.Outcome))

		switch result.Outcome {
		case ingest.OutcomeOK:
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
		case ingest.OutcomeDuplicate:
			// Redeliveries are acknowledged so the origin stops retrying.
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
		case ingest.OutcomeInvalid:
			responses.WriteIssues(w, toResponseIssues(result))
		default:
			err := result.Err
			if err == nil {
				err = pkgerrors.New(pkgerrors.CodeInternal, "webhook processing failed")
			}
			responses.WriteError(ctx, logg, w, err)
		}
	}
}

func toResponseIssues(result ingest.Result) []responses.Issue {
	issues := make([]responses.Issue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, responses.Issue{Path: issue.Path, Message: issue.Message})
	}
	return issues
}

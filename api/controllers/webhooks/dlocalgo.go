package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	"github.com/nimbusvr/trackshop-backend/internal/reconciliation"
	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/dlocalgo"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/metrics"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

type reconciler interface {
	Reconcile(ctx context.Context, obs types.PaymentObservation, intent *tracking.NewRecordIntent) (*reconciliation.Result, error)
}

type replayGuard interface {
	CheckAndMark(ctx context.Context, provider, eventID string) bool
	Release(ctx context.Context, provider, eventID string)
}

type dlocalgoClient interface {
	VerifySignature(payload []byte, header string) bool
	GetPayment(ctx context.Context, token string) (*dlocalgo.Payment, error)
}

// DLocalGoWebhook handles redirect-gateway payment callbacks. The gateway
// treats any non-200 as a delivery failure and retries forever, so every
// outcome, including rejections, answers 200 with the verdict in the body.
func DLocalGoWebhook(client dlocalgoClient, engine reconciler, guard replayGuard, m *metrics.ReconcileMetrics, logg *logger.Logger) http.HandlerFunc {
	const provider = "dlocalgo"

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		defer func() { m.ObserveWebhookDuration(provider, time.Since(start)) }()

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteProviderAck(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		// Signature first. An unsigned or tampered callback never reaches
		// the store.
		if !client.VerifySignature(payload, r.Header.Get(dlocalgo.SignatureHeader)) {
			responses.WriteProviderAck(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "signature verification failed"))
			return
		}

		token := extractPaymentToken(r, payload)
		if token == "" {
			responses.WriteProviderAck(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing from callback"))
			return
		}

		if logg != nil {
			ctx = logg.WithProvider(ctx, provider)
		}

		if !guard.CheckAndMark(ctx, provider, token) {
			if logg != nil {
				logg.Info(ctx, "callback already processed, acknowledging replay")
			}
			responses.WriteProviderAck(ctx, logg, w, nil)
			return
		}

		// The callback body is advisory. The payment state of record comes
		// from the gateway API.
		payment, err := client.GetPayment(ctx, token)
		if err != nil {
			guard.Release(ctx, provider, token)
			responses.WriteProviderAck(ctx, logg, w, err)
			return
		}

		result, err := engine.Reconcile(ctx, dlocalgo.Observation(payment), nil)
		if err != nil {
			guard.Release(ctx, provider, token)
			responses.WriteProviderAck(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", result.Outcome.String()), "callback reconciled")
		}
		responses.WriteProviderAck(ctx, logg, w, nil)
	}
}

// extractPaymentToken digs the gateway payment id out of the callback, which
// arrives as JSON, form-encoded, or as a bare query parameter depending on
// the gateway configuration.
func extractPaymentToken(r *http.Request, payload []byte) string {
	if token := r.URL.Query().Get("payment_id"); token != "" {
		return strings.TrimSpace(token)
	}

	var body struct {
		PaymentID string `json:"payment_id"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.PaymentID != "" {
			return strings.TrimSpace(body.PaymentID)
		}
		if body.ID != "" {
			return strings.TrimSpace(body.ID)
		}
	}

	if values, err := url.ParseQuery(string(payload)); err == nil {
		if token := values.Get("payment_id"); token != "" {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/metrics"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
)

type paypalClient interface {
	VerifyIPN(ctx context.Context, rawBody []byte) (bool, error)
}

// PayPalIPN handles Instant Payment Notification messages. Unlike the
// redirect gateway, PayPal honors HTTP status codes: persistence failures
// answer non-200 so the message is redelivered.
func PayPalIPN(client paypalClient, engine reconciler, guard replayGuard, m *metrics.ReconcileMetrics, logg *logger.Logger) http.HandlerFunc {
	const provider = "paypal"

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		defer func() { m.ObserveWebhookDuration(provider, time.Since(start)) }()

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		// Mandatory out-of-band verification round-trip. Nothing is trusted
		// until PayPal itself answers VERIFIED.
		verified, err := client.VerifyIPN(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !verified {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "ipn verification failed"))
			return
		}

		values, err := paypal.ParseIPN(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed ipn body"))
			return
		}

		obs := paypal.IPNObservation(values)
		if obs.TransactionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ipn missing transaction id"))
			return
		}

		if logg != nil {
			ctx = logg.WithProvider(ctx, provider)
		}

		eventID := values.Get("txn_id")
		if eventID == "" {
			eventID = obs.TransactionID
		}
		if !guard.CheckAndMark(ctx, provider, eventID) {
			if logg != nil {
				logg.Info(ctx, "ipn already processed, acknowledging replay")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		result, err := engine.Reconcile(ctx, obs, nil)
		if err != nil {
			guard.Release(ctx, provider, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", result.Outcome.String()), "ipn reconciled")
		}
		responses.WriteSuccess(w, nil)
	}
}

package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	"github.com/nimbusvr/trackshop-backend/internal/reconciliation"
	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// walletOrderClient is the slice of the PayPal client the return handler needs.
type walletOrderClient interface {
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

type walletReconciler interface {
	Reconcile(ctx context.Context, obs types.PaymentObservation, intent *tracking.NewRecordIntent) (*reconciliation.Result, error)
}

// PayPalReturn completes the wallet flow. PayPal sends the buyer back here
// after approval with the order id in the token query parameter; an approved
// order moves no money until it is captured, so the capture happens here and
// the resulting observation goes through reconciliation. The IPN remains the
// out-of-band backup for buyers who never come back.
func PayPalReturn(client walletOrderClient, engine walletReconciler, successURL, cancelURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID := r.URL.Query().Get("token")
		if orderID == "" {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "missing order token"))
			return
		}
		ctx = logg.WithField(ctx, "provider_order_id", orderID)

		order, err := client.CaptureOrder(ctx, orderID)
		if err != nil {
			// A refreshed return URL re-captures an already-captured order,
			// which PayPal rejects. The order resource still tells the truth.
			logg.Warn(logg.WithField(ctx, "capture_error", err.Error()), "capture failed, reading order state")
			order, err = client.GetOrder(ctx, orderID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		obs := paypal.Observation(order)
		if !obs.Successful {
			logg.Info(logg.WithField(ctx, "raw_status", obs.RawStatus), "order not settled, sending buyer back")
			http.Redirect(w, r, cancelURL, http.StatusSeeOther)
			return
		}

		result, err := engine.Reconcile(ctx, obs, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		target := successURL
		if hash := result.TrackingHash(); hash != "" {
			target += "?tracking=" + url.QueryEscape(hash)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

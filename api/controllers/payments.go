package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/dlocalgo"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

type paymentFetcher interface {
	GetPayment(ctx context.Context, token string) (*dlocalgo.Payment, error)
}

type walletOrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

type paymentRecordLookup interface {
	FindByTransactionID(ctx context.Context, txID string) (*models.TrackingRecord, error)
}

// PaymentStatusResponse is the normalized poll answer for the success page.
// StatusCode carries the gateway's numeric code and stays zero for providers
// that report status as text.
type PaymentStatusResponse struct {
	StatusCode   int    `json:"status_code"`
	StatusText   string `json:"status_text"`
	Successful   bool   `json:"successful"`
	TrackingHash string `json:"tracking_hash,omitempty"`
}

// PaymentStatus answers the success-page poll. The provider query parameter
// picks the gateway the token belongs to, defaulting to the redirect gateway.
// It reads the provider and the store but never mutates anything;
// reconciliation stays the job of the webhook and return handlers.
func PaymentStatus(redirect paymentFetcher, wallet walletOrderFetcher, repo paymentRecordLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := chi.URLParam(r, "token")

		var obs types.PaymentObservation
		var response PaymentStatusResponse

		switch provider := r.URL.Query().Get("provider"); provider {
		case "", enums.PaymentMethodDLocalGo.String():
			payment, err := redirect.GetPayment(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			obs = dlocalgo.Observation(payment)
			response.StatusCode = payment.Status
			response.StatusText = dlocalgo.StatusText(payment.Status)

		case enums.PaymentMethodPayPal.String():
			order, err := wallet.GetOrder(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			obs = paypal.Observation(order)
			response.StatusText = strings.ToLower(order.Status)

		default:
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider").
					WithDetails(map[string]string{"provider": "must be dlocalgo or paypal"}))
			return
		}

		response.Successful = obs.Successful

		if obs.TransactionID != "" {
			record, err := repo.FindByTransactionID(ctx, obs.TransactionID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracking record"))
				return
			}
			if record != nil {
				response.TrackingHash = record.UserHash
			}
		}

		responses.WriteSuccess(w, response)
	}
}

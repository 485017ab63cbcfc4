package controllers

import (
	"context"
	"net/http"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	"github.com/nimbusvr/trackshop-backend/api/validators"
	"github.com/nimbusvr/trackshop-backend/internal/checkout"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
)

type checkoutService interface {
	Start(ctx context.Context, req checkout.StartRequest) (*checkout.StartResult, error)
}

// Checkout starts a payment and hands the buyer off to the provider.
func Checkout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkout.StartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Start(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

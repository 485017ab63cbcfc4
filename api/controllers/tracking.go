package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/identity"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
)

type trackingLookup interface {
	FindByHash(ctx context.Context, hash string) (*models.TrackingRecord, error)
}

// TrackingByHash serves the public order view. A structurally invalid hash is
// answered without touching the store: it cannot match anything.
func TrackingByHash(repo trackingLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		hash := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "hash")))
		if !identity.IsValidHash(hash) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "tracking record not found"))
			return
		}

		record, err := repo.FindByHash(ctx, hash)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracking record"))
			return
		}
		if record == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "tracking record not found"))
			return
		}
		responses.WriteSuccess(w, record.Public())
	}
}

// TrackingByName resolves a display name to its hash and redirects to the
// canonical hash URL so bookmarks survive later name edits.
func TrackingByName() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		hash := identity.ComputeHash(name)
		http.Redirect(w, r, "/api/v1/tracking/"+hash, http.StatusTemporaryRedirect)
	}
}

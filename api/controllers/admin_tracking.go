package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	"github.com/nimbusvr/trackshop-backend/api/validators"
	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
)

type adminTrackingRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrackingRecord, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context) ([]models.TrackingRecord, error)
}

type editGuard interface {
	ApplyEdit(existing *models.TrackingRecord, fields tracking.EditFields) (map[string]any, error)
}

// AdminUpdateTracking applies a partial operator edit to one record.
func AdminUpdateTracking(repo adminTrackingRepo, guard editGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record id"))
			return
		}

		var fields tracking.EditFields
		if err := validators.DecodeJSONBody(r, &fields); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracking record"))
			return
		}
		if existing == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "tracking record not found"))
			return
		}

		updates, err := guard.ApplyEdit(existing, fields)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking record"))
				return
			}
		}

		updated, err := repo.FindByID(ctx, id)
		if err != nil || updated == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload tracking record"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithRecordID(ctx, id.String()), "tracking record updated by admin")
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminListTracking returns every record, newest first.
func AdminListTracking(repo adminTrackingRepo, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		records, err := repo.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking records"))
			return
		}
		responses.WriteSuccess(w, records)
	}
}

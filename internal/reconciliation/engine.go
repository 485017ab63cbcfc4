package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusvr/trackshop-backend/internal/notifications"
	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/db"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/metrics"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// trackingRepository is the slice of the tracking store the engine needs.
type trackingRepository interface {
	Create(ctx context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrackingRecord, error)
	FindByTransactionID(ctx context.Context, txID string) (*models.TrackingRecord, error)
	CompleteIfPendingPayment(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error)
}

// recordFactory builds fresh records for the creation fallback.
type recordFactory interface {
	Build(intent tracking.NewRecordIntent) *models.TrackingRecord
}

// EngineParams wires the reconciliation collaborators.
type EngineParams struct {
	Repo       trackingRepository
	Factory    recordFactory
	Dispatcher notifications.Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.ReconcileMetrics
	Now        func() time.Time
}

// Engine applies normalized payment observations to the tracking store. It is
// the single writer for payment finalization; webhook controllers hand it an
// observation and report whatever it decides.
type Engine struct {
	repo       trackingRepository
	factory    recordFactory
	dispatcher notifications.Dispatcher
	log        *logger.Logger
	metrics    *metrics.ReconcileMetrics
	now        func() time.Time
}

// NewEngine validates collaborators and builds the engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracking repository required")
	}
	if params.Factory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "record factory required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification dispatcher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:       params.Repo,
		factory:    params.Factory,
		dispatcher: params.Dispatcher,
		log:        params.Logger,
		metrics:    params.Metrics,
		now:        now,
	}, nil
}

// Reconcile folds one payment observation into the tracking store. The
// optional intent carries checkout context for the creation fallback when no
// record exists for the transaction yet. Store failures propagate so the
// provider retries the delivery.
func (e *Engine) Reconcile(ctx context.Context, obs types.PaymentObservation, intent *tracking.NewRecordIntent) (*Result, error) {
	if obs.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "observation missing transaction id")
	}

	ctx = e.log.WithProvider(ctx, obs.Provider.String())
	ctx = e.log.WithTransactionID(ctx, obs.TransactionID)

	if !obs.Successful {
		e.log.Info(ctx, "observation not successful, nothing to reconcile")
		e.countOutcome(obs, enums.ReconcileOutcomeRejected)
		return &Result{Outcome: enums.ReconcileOutcomeRejected}, nil
	}

	existing, err := e.repo.FindByTransactionID(ctx, obs.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by transaction id")
	}

	if existing != nil {
		return e.applyToExisting(ctx, obs, existing)
	}
	return e.createFromObservation(ctx, obs, intent)
}

func (e *Engine) applyToExisting(ctx context.Context, obs types.PaymentObservation, existing *models.TrackingRecord) (*Result, error) {
	ctx = e.log.WithRecordID(ctx, existing.ID.String())

	if existing.OrderStatus != enums.OrderStatusPendingPayment {
		e.log.Info(ctx, "transaction already finalized, duplicate delivery")
		e.countOutcome(obs, enums.ReconcileOutcomeDuplicateCompleted)
		return &Result{Outcome: enums.ReconcileOutcomeDuplicateCompleted, Record: existing}, nil
	}

	rows, err := e.repo.CompleteIfPendingPayment(ctx, existing.ID, e.completionFields(obs, existing))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize pending record")
	}

	record, err := e.repo.FindByID(ctx, existing.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload finalized record")
	}
	if record == nil {
		record = existing
	}

	if rows == 0 {
		// Lost the conditional update to a concurrent delivery of the same
		// success. Same terminal state either way.
		e.log.Info(ctx, "conditional update matched no pending row, duplicate delivery")
		e.countOutcome(obs, enums.ReconcileOutcomeDuplicateCompleted)
		return &Result{Outcome: enums.ReconcileOutcomeDuplicateCompleted, Record: record}, nil
	}

	e.log.Info(ctx, "pending record finalized by payment")
	e.countOutcome(obs, enums.ReconcileOutcomeUpdatedPending)
	notified := e.notify(ctx, record)
	return &Result{Outcome: enums.ReconcileOutcomeUpdatedPending, Record: record, Notified: notified}, nil
}

func (e *Engine) createFromObservation(ctx context.Context, obs types.PaymentObservation, intent *tracking.NewRecordIntent) (*Result, error) {
	if intent == nil {
		// No checkout context survived; synthesize the minimum and let the
		// factory fill in the catalog defaults.
		intent = &tracking.NewRecordIntent{
			DisplayName:   obs.PayerIdentifier,
			PaymentMethod: obs.Provider,
			Currency:      obs.Currency,
		}
	}

	record := e.factory.Build(*intent)
	e.finalize(record, obs)

	created, err := e.repo.Create(ctx, record)
	if err != nil {
		// Only a transaction-id collision means a concurrent delivery of this
		// same payment won the race; any other constraint failure propagates.
		if db.IsUniqueViolation(err, "payment_transaction_id") {
			winner, findErr := e.repo.FindByTransactionID(ctx, obs.TransactionID)
			if findErr == nil && winner != nil {
				e.log.Info(e.log.WithRecordID(ctx, winner.ID.String()), "creation raced a concurrent delivery, duplicate")
				e.countOutcome(obs, enums.ReconcileOutcomeDuplicateCompleted)
				return &Result{Outcome: enums.ReconcileOutcomeDuplicateCompleted, Record: winner}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create record from observation")
	}

	ctx = e.log.WithRecordID(ctx, created.ID.String())
	e.log.Info(ctx, "record created from payment observation")
	e.countOutcome(obs, enums.ReconcileOutcomeCreatedNew)
	notified := e.notify(ctx, created)
	return &Result{Outcome: enums.ReconcileOutcomeCreatedNew, Record: created, Notified: notified}, nil
}

// completionFields builds the conditional-update payload finalizing a pending
// record. The captured amount never shrinks what was already recorded.
func (e *Engine) completionFields(obs types.PaymentObservation, existing *models.TrackingRecord) map[string]any {
	paid := obs.CapturedAmount
	if paid.LessThan(existing.PaidUSD) {
		paid = existing.PaidUSD
	}

	fields := map[string]any{
		"payment_transaction_id": obs.TransactionID,
		"payment_status":         enums.PaymentStatusCompleted,
		"payment_amount":         obs.CapturedAmount,
		"paid_usd":               paid,
		"is_pending_payment":     false,
		"order_status":           enums.OrderStatusWaiting,
		"payment_meta":           obs.Settlement,
		"updated_at":             e.now().UTC(),
	}
	if obs.ProviderOrderID != "" {
		fields["provider_order_id"] = obs.ProviderOrderID
	}
	if obs.Currency != "" {
		fields["payment_currency"] = obs.Currency
	}
	return fields
}

// finalize stamps a factory-fresh record as already paid, used only by the
// creation fallback.
func (e *Engine) finalize(record *models.TrackingRecord, obs types.PaymentObservation) {
	txID := obs.TransactionID
	record.PaymentTransactionID = &txID
	record.ProviderOrderID = obs.ProviderOrderID
	record.PaymentStatus = enums.PaymentStatusCompleted
	record.PaymentAmount = obs.CapturedAmount
	record.PaidUSD = obs.CapturedAmount
	if record.TotalUSD.IsZero() {
		record.TotalUSD = obs.CapturedAmount
	}
	if obs.Currency != "" {
		record.PaymentCurrency = obs.Currency
	}
	record.PaymentMeta = obs.Settlement
	record.IsPendingPayment = false
	record.OrderStatus = enums.OrderStatusWaiting
	record.UpdatedAt = e.now().UTC()
}

// notify fires the operator notification. Failures are logged and swallowed:
// the payment is already recorded and the provider must not retry for a mail
// hiccup.
func (e *Engine) notify(ctx context.Context, record *models.TrackingRecord) bool {
	if err := e.dispatcher.NotifyOrderPaid(ctx, record); err != nil {
		e.log.Warn(e.log.WithField(ctx, "notify_error", err.Error()), "order notification failed")
		return false
	}
	return true
}

func (e *Engine) countOutcome(obs types.PaymentObservation, outcome enums.ReconcileOutcome) {
	e.metrics.IncOutcome(obs.Provider.String(), outcome.String())
}

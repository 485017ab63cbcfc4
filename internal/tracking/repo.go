package tracking

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
)

// Repository is the persistence surface for tracking records. Lookups return
// (nil, nil) on a miss so callers distinguish absence from store failure.
// Update is a partial merge: absent fields stay untouched.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrackingRecord, error)
	FindByHash(ctx context.Context, hash string) (*models.TrackingRecord, error)
	FindByTransactionID(ctx context.Context, txID string) (*models.TrackingRecord, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	CompleteIfPendingPayment(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error)
	List(ctx context.Context) ([]models.TrackingRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tracking repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TrackingRecord, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByHash returns the most recent record for a hash. Hashes derive from the
// display name, so a returning customer accumulates several records under one.
func (r *repository) FindByHash(ctx context.Context, hash string) (*models.TrackingRecord, error) {
	var record models.TrackingRecord
	err := r.db.WithContext(ctx).
		Where("user_hash = ?", hash).
		Order("created_at DESC").
		First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, txID string) (*models.TrackingRecord, error) {
	return r.findOne(ctx, "payment_transaction_id = ?", txID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.TrackingRecord, error) {
	var record models.TrackingRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.TrackingRecord{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// CompleteIfPendingPayment applies the payment-completion fields only while
// the record is still PENDING_PAYMENT. The affected-row count is the race
// arbiter: zero rows means another delivery of the same success observation
// won, and the caller folds that into the duplicate outcome.
func (r *repository) CompleteIfPendingPayment(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TrackingRecord{}).
		Where("id = ? AND order_status = ?", id, enums.OrderStatusPendingPayment).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context) ([]models.TrackingRecord, error) {
	var records []models.TrackingRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

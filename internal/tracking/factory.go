package tracking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	"github.com/nimbusvr/trackshop-backend/pkg/identity"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// Canonical defaults applied when the checkout intent leaves a field empty.
const (
	DefaultSensor       = "ICM45686 + QMC6309"
	DefaultTrackerCount = 6
	DefaultCaseColor    = "Black"
	DefaultCoverColor   = "Black"
	DefaultCurrency     = "USD"

	// Promised date offset for a fresh order.
	promisedDateOffset = 30 * 24 * time.Hour
)

// NewRecordIntent is the untrusted raw order intent coming from checkout or
// from the payer context attached to a provider observation. Captured amounts
// are intentionally absent: a fresh record always starts unpaid.
type NewRecordIntent struct {
	DisplayName     string
	TrackerCount    int
	Sensor          string
	Magnetometer    bool
	CaseColor       string
	CoverColor      string
	TotalUSD        decimal.Decimal
	Extras          []types.ExtraSelection
	ShippingCountry string
	ShippingAddress *types.ShippingAddress
	VRChatUsername  string
	PaymentMethod   enums.PaymentMethod
	Currency        string
}

// Factory builds tracking records with full default-field population.
type Factory struct {
	now func() time.Time
}

// NewFactory returns a record factory using the real clock.
func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// NewFactoryWithClock returns a factory with an injected clock for tests.
func NewFactoryWithClock(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

// Build populates every field of a fresh record from the intent or a
// documented default. The record always starts in PENDING_PAYMENT with zero
// captured amount, no matter what the intent claims.
func (f *Factory) Build(intent NewRecordIntent) *models.TrackingRecord {
	now := f.now().UTC()

	record := &models.TrackingRecord{
		ID:          uuid.New(),
		UserHash:    identity.ComputeHash(intent.DisplayName),
		DisplayName: intent.DisplayName,

		TrackerCount: intent.TrackerCount,
		Sensor:       intent.Sensor,
		Magnetometer: intent.Magnetometer,
		CaseColor:    intent.CaseColor,
		CoverColor:   intent.CoverColor,
		TotalUSD:     intent.TotalUSD,
		PaidUSD:      decimal.Zero,
		Extras:       intent.Extras,

		ShippingCountry: intent.ShippingCountry,
		ShippingAddress: intent.ShippingAddress,
		VRChatUsername:  intent.VRChatUsername,

		PaymentMethod:    intent.PaymentMethod,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentAmount:    decimal.Zero,
		PaymentCurrency:  intent.Currency,
		IsPendingPayment: true,

		OrderStatus:  enums.OrderStatusPendingPayment,
		Progress:     types.ManufacturingProgress{},
		PromisedDate: now.Add(promisedDateOffset),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if record.TrackerCount <= 0 {
		record.TrackerCount = DefaultTrackerCount
	}
	if record.Sensor == "" {
		record.Sensor = DefaultSensor
	}
	if record.CaseColor == "" {
		record.CaseColor = DefaultCaseColor
	}
	if record.CoverColor == "" {
		record.CoverColor = DefaultCoverColor
	}
	if record.PaymentCurrency == "" {
		record.PaymentCurrency = DefaultCurrency
	}

	return record
}

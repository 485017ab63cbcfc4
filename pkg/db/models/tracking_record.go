package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// TrackingRecord is the order-of-record for one tracker purchase. It is
// created at checkout-intent time, finalized exactly once by payment
// reconciliation, and afterwards only touched by admin edits and lifecycle
// progression. Records are never hard-deleted here.
type TrackingRecord struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserHash    string    `gorm:"column:user_hash;size:16;not null;index" json:"userHash"`
	DisplayName string    `gorm:"column:display_name;not null" json:"nombreUsuario"`

	TrackerCount int                    `gorm:"column:tracker_count;not null" json:"numeroTrackers"`
	Sensor       string                 `gorm:"column:sensor;not null" json:"sensor"`
	Magnetometer bool                   `gorm:"column:magnetometer;not null;default:false" json:"magneto"`
	CaseColor    string                 `gorm:"column:case_color;not null" json:"colorCase"`
	CoverColor   string                 `gorm:"column:cover_color;not null" json:"colorTapa"`
	TotalUSD     decimal.Decimal        `gorm:"column:total_usd;type:numeric(10,2);not null" json:"totalUsd"`
	PaidUSD      decimal.Decimal        `gorm:"column:paid_usd;type:numeric(10,2);not null" json:"abonadoUsd"`
	Extras       []types.ExtraSelection `gorm:"column:extras;serializer:json" json:"extrasSeleccionados,omitempty"`

	ShippingCountry string                 `gorm:"column:shipping_country" json:"paisEnvio"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;serializer:json" json:"shippingAddress,omitempty"`
	VRChatUsername  string                 `gorm:"column:vrchat_username" json:"vrchatUsername,omitempty"`

	PaymentMethod        enums.PaymentMethod  `gorm:"column:payment_method;not null" json:"paymentMethod"`
	PaymentTransactionID *string              `gorm:"column:payment_transaction_id;uniqueIndex" json:"paymentTransactionId,omitempty"`
	ProviderOrderID      string               `gorm:"column:provider_order_id" json:"providerOrderId,omitempty"`
	PaymentStatus        enums.PaymentStatus  `gorm:"column:payment_status;not null;default:'PENDING'" json:"paymentStatus"`
	PaymentAmount        decimal.Decimal      `gorm:"column:payment_amount;type:numeric(10,2);not null" json:"paymentAmount"`
	PaymentCurrency      string               `gorm:"column:payment_currency;size:3" json:"paymentCurrency,omitempty"`
	IsPendingPayment     bool                 `gorm:"column:is_pending_payment;not null;default:true" json:"isPendingPayment"`
	PaymentMeta          types.SettlementMeta `gorm:"column:payment_meta;serializer:json" json:"paymentData"`

	OrderStatus  enums.OrderStatus           `gorm:"column:order_status;not null;default:'PENDING_PAYMENT'" json:"estadoPedido"`
	Progress     types.ManufacturingProgress `gorm:"column:progress;serializer:json" json:"porcentajes"`
	PromisedDate time.Time                   `gorm:"column:promised_date" json:"fechaLimite"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName pins the table name.
func (TrackingRecord) TableName() string {
	return "tracking_records"
}

// PublicView strips fields that must not leave the service on the public
// tracking endpoint.
type PublicView struct {
	UserHash        string                      `json:"userHash"`
	DisplayName     string                      `json:"nombreUsuario"`
	TrackerCount    int                         `json:"numeroTrackers"`
	Sensor          string                      `json:"sensor"`
	Magnetometer    bool                        `json:"magneto"`
	CaseColor       string                      `json:"colorCase"`
	CoverColor      string                      `json:"colorTapa"`
	TotalUSD        decimal.Decimal             `json:"totalUsd"`
	PaidUSD         decimal.Decimal             `json:"abonadoUsd"`
	Extras          []types.ExtraSelection      `json:"extrasSeleccionados,omitempty"`
	ShippingCountry string                      `json:"paisEnvio"`
	OrderStatus     enums.OrderStatus           `json:"estadoPedido"`
	Progress        types.ManufacturingProgress `json:"porcentajes"`
	PromisedDate    time.Time                   `json:"fechaLimite"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

// Public returns the public-safe subset of the record.
func (r *TrackingRecord) Public() PublicView {
	return PublicView{
		UserHash:        r.UserHash,
		DisplayName:     r.DisplayName,
		TrackerCount:    r.TrackerCount,
		Sensor:          r.Sensor,
		Magnetometer:    r.Magnetometer,
		CaseColor:       r.CaseColor,
		CoverColor:      r.CoverColor,
		TotalUSD:        r.TotalUSD,
		PaidUSD:         r.PaidUSD,
		Extras:          r.Extras,
		ShippingCountry: r.ShippingCountry,
		OrderStatus:     r.OrderStatus,
		Progress:        r.Progress,
		PromisedDate:    r.PromisedDate,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

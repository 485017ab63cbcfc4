package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// StartRequest is the storefront checkout intent. Field names mirror the
// storefront payload.
type StartRequest struct {
	DisplayName     string                 `json:"nombreUsuario" validate:"required,min=1,max=120"`
	TrackerCount    int                    `json:"numeroTrackers" validate:"omitempty,min=1,max=20"`
	Sensor          string                 `json:"sensor" validate:"omitempty,max=80"`
	Magnetometer    bool                   `json:"magneto"`
	CaseColor       string                 `json:"colorCase" validate:"omitempty,max=40"`
	CoverColor      string                 `json:"colorTapa" validate:"omitempty,max=40"`
	TotalUSD        decimal.Decimal        `json:"totalUsd" validate:"required"`
	Extras          []types.ExtraSelection `json:"extrasSeleccionados" validate:"omitempty,dive"`
	ShippingCountry string                 `json:"paisEnvio" validate:"omitempty,len=2"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress"`
	VRChatUsername  string                 `json:"vrchatUsername" validate:"omitempty,max=120"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required,oneof=dlocalgo paypal"`
	Currency        string                 `json:"currency" validate:"omitempty,len=3"`
}

// StartResult is the redirect handoff returned to the storefront.
type StartResult struct {
	RedirectURL   string `json:"redirectUrl"`
	TrackingHash  string `json:"trackingHash"`
	TransactionID string `json:"transactionId"`
}

package types

import (
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// PaymentObservation is the normalized, provider-agnostic answer to "what
// happened to this transaction". Raw webhook/IPN payloads never travel past
// the provider client boundary; this does.
type PaymentObservation struct {
	TransactionID   string
	ProviderOrderID string
	Provider        enums.PaymentMethod
	CapturedAmount  decimal.Decimal
	Currency        string
	PayerIdentifier string
	Successful      bool
	RawStatus       string
	Settlement      SettlementMeta
}

package paypal

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// ipnStatusCompleted is the only IPN payment_status that means money moved.
const ipnStatusCompleted = "Completed"

// ParseIPN decodes a raw IPN body into its form values.
func ParseIPN(rawBody []byte) (url.Values, error) {
	return url.ParseQuery(string(rawBody))
}

// IPNObservation normalizes an IPN message into the provider-agnostic shape.
// The custom field carries the merchant transaction id set at order creation;
// older messages without it fall back to the PayPal transaction id.
func IPNObservation(values url.Values) types.PaymentObservation {
	status := strings.TrimSpace(values.Get("payment_status"))

	txID := strings.TrimSpace(values.Get("custom"))
	if txID == "" {
		txID = strings.TrimSpace(values.Get("txn_id"))
	}

	obs := types.PaymentObservation{
		Provider:        enums.PaymentMethodPayPal,
		TransactionID:   txID,
		ProviderOrderID: strings.TrimSpace(values.Get("txn_id")),
		Currency:        strings.TrimSpace(values.Get("mc_currency")),
		PayerIdentifier: strings.TrimSpace(values.Get("payer_email")),
		RawStatus:       status,
	}

	if gross := strings.TrimSpace(values.Get("mc_gross")); gross != "" {
		if amount, err := decimal.NewFromString(gross); err == nil {
			obs.CapturedAmount = amount
		}
	}

	obs.Settlement = types.SettlementMeta{
		Date:   strings.TrimSpace(values.Get("payment_date")),
		Method: strings.TrimSpace(values.Get("payment_type")),
		Amount: strings.TrimSpace(values.Get("mc_gross")),
		Fee:    strings.TrimSpace(values.Get("mc_fee")),
	}

	// Same settlement-over-status rule as the REST path.
	obs.Successful = status == ipnStatusCompleted || obs.Settlement.Complete()

	return obs
}

package types

// ShippingAddress is the free-form address captured at checkout.
type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ExtraSelection is an optional add-on chosen at checkout.
type ExtraSelection struct {
	ID   string  `json:"id"`
	Cost float64 `json:"cost"`
}

// ManufacturingProgress breaks build progress into per-part percentages.
// Each value is clamped to 0-100 by the admin edit guard.
type ManufacturingProgress struct {
	Board     int `json:"placa"`
	Straps    int `json:"straps"`
	Cases     int `json:"cases"`
	Batteries int `json:"baterias"`
}

// SettlementMeta is the provider-attested proof that a charge cleared,
// independent of the provider's nominal status code. Kept raw for audit.
type SettlementMeta struct {
	Date   string `json:"date,omitempty"`
	Method string `json:"method,omitempty"`
	Amount string `json:"amount,omitempty"`
	Fee    string `json:"fee,omitempty"`
}

// Complete reports whether date, method and amount are all present. A
// complete settlement block outranks the nominal status code.
func (m SettlementMeta) Complete() bool {
	return m.Date != "" && m.Method != "" && m.Amount != ""
}

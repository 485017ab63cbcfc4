package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ProviderAck is the body returned to redirect-style gateways. The HTTP
// status is always 200 for them; this carries the true outcome.
type ProviderAck struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

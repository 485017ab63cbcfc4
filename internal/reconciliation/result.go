package reconciliation

import (
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
)

// Result describes how one payment observation was applied.
type Result struct {
	Outcome enums.ReconcileOutcome `json:"outcome"`
	// Record is the finalized tracking record, nil for rejected observations.
	Record *models.TrackingRecord `json:"record,omitempty"`
	// Notified reports whether the operator notification fired for this call.
	Notified bool `json:"notified"`
}

// TrackingHash returns the public lookup hash, empty when no record applies.
func (r *Result) TrackingHash() string {
	if r == nil || r.Record == nil {
		return ""
	}
	return r.Record.UserHash
}

package enums

// ReconcileOutcome classifies how a payment observation was applied.
type ReconcileOutcome string

const (
	ReconcileOutcomeDuplicateCompleted ReconcileOutcome = "duplicate_completed"
	ReconcileOutcomeUpdatedPending     ReconcileOutcome = "updated_pending"
	ReconcileOutcomeCreatedNew         ReconcileOutcome = "created_new"
	ReconcileOutcomeRejected           ReconcileOutcome = "rejected"
)

// String implements fmt.Stringer.
func (o ReconcileOutcome) String() string {
	return string(o)
}

// Mutated reports whether the outcome wrote to the tracking store.
func (o ReconcileOutcome) Mutated() bool {
	return o == ReconcileOutcomeUpdatedPending || o == ReconcileOutcomeCreatedNew
}

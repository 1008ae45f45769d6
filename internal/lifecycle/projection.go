// Package lifecycle holds the pure decision logic of the contract, invoice and
// product-instance lifecycles: the status projection over an activity ledger,
// the per-kind guards, the cross-entity consistency checks and the edit-diff
// helper. Nothing in this package touches the store.
package lifecycle

import "github.com/MaikoCheng/parelpracht-server/internal/domain"

// StatusHistory filters a ledger to its STATUS activities, oldest first.
// The ledger must already be in creation order.
func StatusHistory(ledger []domain.Activity) []domain.StatusSubKind {
	history := make([]domain.StatusSubKind, 0, len(ledger))
	for i := range ledger {
		a := &ledger[i]
		if a.DeletedAt.Valid || a.Kind != domain.ActivityStatus {
			continue
		}
		history = append(history, a.SubKind)
	}
	return history
}

// CurrentStatus returns the last status of a history, or the initial status of
// the owner kind when the history is empty.
func CurrentStatus(kind domain.OwnerKind, history []domain.StatusSubKind) domain.StatusSubKind {
	if len(history) == 0 {
		return kind.InitialStatus()
	}
	return history[len(history)-1]
}

// CurrentStatusOf projects a ledger straight to its current status
func CurrentStatusOf(kind domain.OwnerKind, ledger []domain.Activity) domain.StatusSubKind {
	return CurrentStatus(kind, StatusHistory(ledger))
}

func statusIn(s domain.StatusSubKind, set []domain.StatusSubKind) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

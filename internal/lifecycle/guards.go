package lifecycle

import (
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
)

// Operation is a mutation a guard is asked about
type Operation string

const (
	OpAddProduct    Operation = "ADD_PRODUCT"
	OpRemoveProduct Operation = "REMOVE_PRODUCT"
	OpDelete        Operation = "DELETE"
	OpUpdate        Operation = "UPDATE"
)

// Decision is the outcome of a guard evaluation
type Decision struct {
	Allowed bool
	Rule    string
	Reason  string
}

// Err converts a denial into an IllegalTransition error, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.IllegalTransition(d.Rule, "%s", d.Reason)
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(rule, format string, args ...interface{}) Decision {
	return Decision{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// Statuses after which a contract no longer accepts products
var closedContractStatuses = []domain.StatusSubKind{
	domain.ContractStatusConfirmed,
	domain.ContractStatusFinished,
	domain.ContractStatusCancelled,
}

// Statuses after which an invoice no longer accepts or releases products
var closedInvoiceStatuses = []domain.StatusSubKind{
	domain.InvoiceStatusSent,
	domain.InvoiceStatusPaid,
	domain.InvoiceStatusCancelled,
	domain.InvoiceStatusIrrecoverable,
}

// ContractGuard decides whether op is allowed on a contract with this status history.
// Status-to-status moves are not ordered; only product attachment and deletion are gated.
func ContractGuard(op Operation, history []domain.StatusSubKind) Decision {
	current := CurrentStatus(domain.OwnerContract, history)
	switch op {
	case OpAddProduct:
		if statusIn(current, closedContractStatuses) {
			return deny(domain.RuleContractNotOpen,
				"cannot add product to this contract, because the contract is already %s", current)
		}
	case OpDelete:
		if len(history) > 1 {
			return deny(domain.RuleContractNotInitial,
				"contract has a different status than %s", domain.ContractStatusCreated)
		}
	}
	return allow()
}

// InvoiceGuard decides whether op is allowed on an invoice with this status history
func InvoiceGuard(op Operation, history []domain.StatusSubKind) Decision {
	current := CurrentStatus(domain.OwnerInvoice, history)
	switch op {
	case OpAddProduct, OpRemoveProduct:
		if statusIn(current, closedInvoiceStatuses) {
			return deny(domain.RuleInvoiceNotOpen,
				"cannot change the products of this invoice, because the invoice is already %s", current)
		}
	case OpDelete:
		if len(history) > 1 {
			return deny(domain.RuleInvoiceNotInitial,
				"invoice has a different status than %s", domain.InvoiceStatusCreated)
		}
	}
	return allow()
}

// ProductInstanceGuard decides whether op is allowed on a product instance.
// invoiced reports whether the instance is linked to an invoice.
func ProductInstanceGuard(op Operation, history []domain.StatusSubKind, invoiced bool) Decision {
	if op != OpDelete {
		return allow()
	}
	if len(history) > 1 {
		return deny(domain.RuleInstanceNotInitial,
			"product instance has a different status than %s", domain.ProductInstanceStatusNotDelivered)
	}
	if invoiced {
		return deny(domain.RuleInstanceInvoiced, "product instance is already invoiced")
	}
	return allow()
}

// ValidateStatus rejects statuses outside the closed set of the owner kind
func ValidateStatus(kind domain.OwnerKind, status domain.StatusSubKind) error {
	if kind.AcceptsStatus(status) {
		return nil
	}
	return domain.IllegalTransition(domain.RuleStatusUnknown, "%q is not a status of %s", status, kind)
}

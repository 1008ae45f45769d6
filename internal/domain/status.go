package domain

// StatusSubKind is the status carried by a STATUS activity.
// Each owner kind accepts its own closed set of values.
type StatusSubKind string

// Contract statuses
const (
	ContractStatusCreated   StatusSubKind = "CREATED"
	ContractStatusConfirmed StatusSubKind = "CONFIRMED"
	ContractStatusFinished  StatusSubKind = "FINISHED"
	ContractStatusCancelled StatusSubKind = "CANCELLED"
)

// Invoice statuses
const (
	InvoiceStatusCreated       StatusSubKind = "CREATED"
	InvoiceStatusSent          StatusSubKind = "SENT"
	InvoiceStatusPaid          StatusSubKind = "PAID"
	InvoiceStatusCancelled     StatusSubKind = "CANCELLED"
	InvoiceStatusIrrecoverable StatusSubKind = "IRRECOVERABLE"
)

// ProductInstance statuses
const (
	ProductInstanceStatusNotDelivered StatusSubKind = "NOTDELIVERED"
	ProductInstanceStatusDelivered    StatusSubKind = "DELIVERED"
	ProductInstanceStatusCancelled    StatusSubKind = "CANCELLED"
)

var statusSets = map[OwnerKind][]StatusSubKind{
	OwnerContract: {
		ContractStatusCreated, ContractStatusConfirmed, ContractStatusFinished, ContractStatusCancelled,
	},
	OwnerInvoice: {
		InvoiceStatusCreated, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusIrrecoverable,
	},
	OwnerProductInstance: {
		ProductInstanceStatusNotDelivered, ProductInstanceStatusDelivered, ProductInstanceStatusCancelled,
	},
}

// Statuses returns the closed status set of an owner kind (nil if it has none)
func (k OwnerKind) Statuses() []StatusSubKind {
	return statusSets[k]
}

// InitialStatus is the status an owner has before any STATUS activity exists
func (k OwnerKind) InitialStatus() StatusSubKind {
	if set := statusSets[k]; len(set) > 0 {
		return set[0]
	}
	return ""
}

// AcceptsStatus checks whether s belongs to the status set of k
func (k OwnerKind) AcceptsStatus(s StatusSubKind) bool {
	for _, candidate := range statusSets[k] {
		if candidate == s {
			return true
		}
	}
	return false
}

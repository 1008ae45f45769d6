package domain

import "github.com/shopspring/decimal"

// Parameter objects arrive already validated by the request layer.

// ContractParams holds the fields to create a contract with
type ContractParams struct {
	Title        string
	CompanyID    uint
	ContactID    uint
	Comments     string
	AssignedToID *uint
}

// ContractUpdate is a partial update of a contract; nil fields are left untouched.
// Status, when set, moves the contract to that status. ClearAssignee removes the
// assignee and takes precedence over AssignedToID.
type ContractUpdate struct {
	Title           *string
	ContactID       *uint
	Comments        *string
	AssignedToID    *uint
	ClearAssignee   bool
	Status          *StatusSubKind
	ExpectedVersion *int
}

// ContractSummary is the compact form of a contract used for references
type ContractSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// ProductInstanceParams holds the price fields of a product added to a contract
type ProductInstanceParams struct {
	ProductID uint
	BasePrice decimal.Decimal
	Discount  decimal.Decimal
	Comments  string
}

// ProductInstanceUpdate is a partial update of a product instance.
// Status, when set, moves the instance to DELIVERED, CANCELLED or back.
type ProductInstanceUpdate struct {
	BasePrice       *decimal.Decimal
	Discount        *decimal.Decimal
	Comments        *string
	Status          *StatusSubKind
	ExpectedVersion *int
}

// InvoiceParams holds the fields to create an invoice with
type InvoiceParams struct {
	CompanyID          uint
	ProductInstanceIDs []uint
	PoNumber           string
	Comments           string
	AssignedToID       *uint
}

// InvoiceUpdate is a partial update of an invoice. ClearAssignee works as on ContractUpdate.
type InvoiceUpdate struct {
	PoNumber        *string
	Comments        *string
	AssignedToID    *uint
	ClearAssignee   bool
	Status          *StatusSubKind
	ExpectedVersion *int
}

// InvoiceSummary is the compact form of an invoice used for references
type InvoiceSummary struct {
	ID          uint   `json:"id"`
	CompanyName string `json:"companyName"`
}

// FieldChange is one field of an entity before and after an update
type FieldChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// CompanyParams holds the fields to create a company with
type CompanyParams struct {
	Name        string
	Description string
}

// ContactParams holds the fields to create a contact with
type ContactParams struct {
	FirstName string
	LastName  string
	Email     string
}

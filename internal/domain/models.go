package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel carries the identity, timestamps, soft-delete marker and
// optimistic version counter shared by every persisted entity.
type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
	Version   int            `gorm:"not null;default:1" json:"version"`
}

// BeforeCreate starts the version counter at 1
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}

// OwnerKind tags which aggregate an activity belongs to
type OwnerKind string

const (
	OwnerContract        OwnerKind = "Contract"
	OwnerInvoice         OwnerKind = "Invoice"
	OwnerProductInstance OwnerKind = "ProductInstance"
	OwnerCompany         OwnerKind = "Company"
)

// IsValid checks if the OwnerKind is a valid enum value
func (k OwnerKind) IsValid() bool {
	switch k {
	case OwnerContract, OwnerInvoice, OwnerProductInstance, OwnerCompany:
		return true
	}
	return false
}

// Table returns the table holding owners of this kind
func (k OwnerKind) Table() string {
	switch k {
	case OwnerContract:
		return "contracts"
	case OwnerInvoice:
		return "invoices"
	case OwnerProductInstance:
		return "product_instances"
	case OwnerCompany:
		return "companies"
	}
	return ""
}

// EntityRef points at one ledger-backed entity
type EntityRef struct {
	Kind OwnerKind
	ID   uint
}

// Ref builds an EntityRef
func Ref(kind OwnerKind, id uint) EntityRef {
	return EntityRef{Kind: kind, ID: id}
}

// ActivityKind represents the kind of fact an activity records
type ActivityKind string

const (
	ActivityStatus     ActivityKind = "STATUS"
	ActivityComment    ActivityKind = "COMMENT"
	ActivityAddProduct ActivityKind = "ADDPRODUCT"
	ActivityDelProduct ActivityKind = "DELPRODUCT"
	ActivityUpdate     ActivityKind = "UPDATE"
)

// IsValid checks if the ActivityKind is a valid enum value
func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivityStatus, ActivityComment, ActivityAddProduct, ActivityDelProduct, ActivityUpdate:
		return true
	}
	return false
}

// Activity is one immutable fact in the ledger of its owner.
// Only the description of a COMMENT activity may change after creation.
type Activity struct {
	BaseModel
	OwnerType   OwnerKind     `gorm:"type:varchar(30);not null;index:idx_activities_owner,priority:1" json:"ownerType"`
	OwnerID     uint          `gorm:"not null;index:idx_activities_owner,priority:2" json:"ownerId"`
	Kind        ActivityKind  `gorm:"type:varchar(20);not null" json:"kind"`
	SubKind     StatusSubKind `gorm:"type:varchar(30);not null;default:''" json:"subKind,omitempty"`
	Description string        `gorm:"type:text;not null;default:''" json:"description"`
	CreatedByID *uint         `json:"createdById,omitempty"`
	CreatedBy   *User         `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	BatchID     uuid.UUID     `gorm:"type:uuid;index" json:"batchId"`
}

// Owner returns the reference to the owning entity
func (a *Activity) Owner() EntityRef {
	return EntityRef{Kind: a.OwnerType, ID: a.OwnerID}
}

// User is the acting person behind every mutation
type User struct {
	BaseModel
	FirstName string `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName  string `gorm:"type:varchar(100);not null" json:"lastName"`
	Email     string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
}

// FullName returns the user's full name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CompanyStatus represents whether a company is still a relation
type CompanyStatus string

const (
	CompanyStatusActive   CompanyStatus = "ACTIVE"
	CompanyStatusInactive CompanyStatus = "INACTIVE"
)

// Company is a customer organization
type Company struct {
	BaseModel
	Name        string        `gorm:"type:varchar(200);not null;index" json:"name"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      CompanyStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Contacts    []Contact     `gorm:"foreignKey:CompanyID" json:"contacts,omitempty"`
	Activities  []Activity    `gorm:"polymorphic:Owner;polymorphicValue:Company" json:"activities,omitempty"`
}

// Contact is a person at a company
type Contact struct {
	BaseModel
	FirstName string   `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName  string   `gorm:"type:varchar(100);not null" json:"lastName"`
	Email     string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	CompanyID uint     `gorm:"not null;index" json:"companyId"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

// ProductStatus represents whether a catalog product may be sold
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

// Product is a catalog item that contracts instantiate
type Product struct {
	BaseModel
	Name        string          `gorm:"type:varchar(200);not null" json:"name"`
	Status      ProductStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"targetPrice"`
}

// IsActive reports whether the product may be newly attached to a contract
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Contract groups the products sold to one company
type Contract struct {
	BaseModel
	Title        string            `gorm:"type:varchar(200);not null" json:"title"`
	CompanyID    uint              `gorm:"not null;index" json:"companyId"`
	Company      *Company          `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ContactID    uint              `gorm:"not null;index" json:"contactId"`
	Contact      *Contact          `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Comments     string            `gorm:"type:text" json:"comments,omitempty"`
	AssignedToID *uint             `json:"assignedToId,omitempty"`
	CreatedByID  *uint             `json:"createdById,omitempty"`
	Products     []ProductInstance `gorm:"foreignKey:ContractID" json:"products,omitempty"`
	Activities   []Activity        `gorm:"polymorphic:Owner;polymorphicValue:Contract" json:"activities,omitempty"`
}

// ProductInstance is one sold product on a contract, optionally invoiced
type ProductInstance struct {
	BaseModel
	ProductID  uint            `gorm:"not null;index" json:"productId"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ContractID uint            `gorm:"not null;index" json:"contractId"`
	Contract   *Contract       `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	InvoiceID  *uint           `gorm:"index" json:"invoiceId,omitempty"`
	Invoice    *Invoice        `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	BasePrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"basePrice"`
	Discount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Comments   string          `gorm:"type:text" json:"comments,omitempty"`
	Activities []Activity      `gorm:"polymorphic:Owner;polymorphicValue:ProductInstance" json:"activities,omitempty"`
}

// NetPrice returns the base price minus discount, floored at zero
func (p *ProductInstance) NetPrice() decimal.Decimal {
	net := p.BasePrice.Sub(p.Discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// IsInvoiced reports whether the instance is linked to an invoice
func (p *ProductInstance) IsInvoiced() bool {
	return p.InvoiceID != nil
}

// Invoice bills product instances to one company
type Invoice struct {
	BaseModel
	CompanyID    uint              `gorm:"not null;index" json:"companyId"`
	Company      *Company          `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	PoNumber     string            `gorm:"type:varchar(100)" json:"poNumber,omitempty"`
	Comments     string            `gorm:"type:text" json:"comments,omitempty"`
	AssignedToID *uint             `json:"assignedToId,omitempty"`
	CreatedByID  *uint             `json:"createdById,omitempty"`
	Products     []ProductInstance `gorm:"foreignKey:InvoiceID" json:"products,omitempty"`
	Activities   []Activity        `gorm:"polymorphic:Owner;polymorphicValue:Invoice" json:"activities,omitempty"`
}

// Total sums the net price of every product on the invoice
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for idx := range i.Products {
		total = total.Add(i.Products[idx].NetPrice())
	}
	return total
}

// CompanyScoped is implemented by entities that belong to exactly one company
type CompanyScoped interface {
	OwningCompanyID() uint
}

// OwningCompanyID returns the company of the contract
func (c *Contract) OwningCompanyID() uint { return c.CompanyID }

// OwningCompanyID returns the company of the invoice
func (i *Invoice) OwningCompanyID() uint { return i.CompanyID }

// OwningCompanyID returns the company of the instance's contract.
// It is zero when the contract relation was not loaded.
func (p *ProductInstance) OwningCompanyID() uint {
	if p.Contract == nil {
		return 0
	}
	return p.Contract.CompanyID
}

// LedgerOwner is implemented by every entity that owns an activity ledger
type LedgerOwner interface {
	Ref() EntityRef
}

// Ref returns the ledger reference of the contract
func (c *Contract) Ref() EntityRef { return Ref(OwnerContract, c.ID) }

// Ref returns the ledger reference of the invoice
func (i *Invoice) Ref() EntityRef { return Ref(OwnerInvoice, i.ID) }

// Ref returns the ledger reference of the product instance
func (p *ProductInstance) Ref() EntityRef { return Ref(OwnerProductInstance, p.ID) }

// Ref returns the ledger reference of the company
func (c *Company) Ref() EntityRef { return Ref(OwnerCompany, c.ID) }

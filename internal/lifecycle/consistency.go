package lifecycle

import "github.com/MaikoCheng/parelpracht-server/internal/domain"

// SameCompany fails when the instance's contract and the target belong to different companies.
// The instance must be loaded with its Contract relation.
func SameCompany(instance *domain.ProductInstance, target domain.CompanyScoped) error {
	if instance.Contract == nil {
		return domain.InvalidRelation(domain.RuleCompanyMismatch,
			"contract of product instance %d is not available", instance.ID)
	}
	if instance.OwningCompanyID() != target.OwningCompanyID() {
		return domain.InvalidRelation(domain.RuleCompanyMismatch,
			"product instance does not belong to the same company as the %s", targetName(target))
	}
	return nil
}

// ExclusiveInvoiceAssignment fails when the instance is already on any invoice,
// including the one it is being assigned to.
func ExclusiveInvoiceAssignment(instance *domain.ProductInstance, invoiceID uint) error {
	if instance.InvoiceID == nil {
		return nil
	}
	if *instance.InvoiceID == invoiceID {
		return domain.InvalidRelation(domain.RuleAlreadyInvoiced,
			"product instance %d is already on invoice %d", instance.ID, invoiceID)
	}
	return domain.InvalidRelation(domain.RuleAlreadyInvoiced,
		"product instance %d already belongs to invoice %d", instance.ID, *instance.InvoiceID)
}

// OnInvoice fails unless the instance is linked to the given invoice
func OnInvoice(instance *domain.ProductInstance, invoiceID uint) error {
	if instance.InvoiceID == nil || *instance.InvoiceID != invoiceID {
		return domain.InvalidRelation(domain.RuleNotOnInvoice,
			"product instance %d does not belong to invoice %d", instance.ID, invoiceID)
	}
	return nil
}

// OnContract fails unless the instance belongs to the given contract
func OnContract(instance *domain.ProductInstance, contractID uint) error {
	if instance.ContractID != contractID {
		return domain.InvalidRelation(domain.RuleInstanceNotOnContract,
			"product instance %d does not belong to contract %d", instance.ID, contractID)
	}
	return nil
}

// CatalogActive fails when an inactive catalog product is being attached.
// Updates of already attached instances pass regardless of the product status.
func CatalogActive(product *domain.Product, attach bool) error {
	if !attach || product.IsActive() {
		return nil
	}
	return domain.InvalidRelation(domain.RuleProductInactive,
		"cannot add inactive product %q to contracts", product.Name)
}

func targetName(target domain.CompanyScoped) string {
	switch target.(type) {
	case *domain.Invoice:
		return "invoice"
	case *domain.Contract:
		return "contract"
	}
	return "target"
}

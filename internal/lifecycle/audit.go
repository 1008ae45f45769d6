package lifecycle

import (
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
)

// Finding is one violation of the lifecycle invariants discovered after the fact
type Finding struct {
	Owner  domain.EntityRef
	Rule   string
	Detail string
}

// AuditContract checks a contract loaded with its ledger for a missing initial
// status and for products attached while it was closed.
func AuditContract(c *domain.Contract) []Finding {
	ref := domain.Ref(domain.OwnerContract, c.ID)
	return auditLedger(ref, c.Activities, closedContractStatuses, domain.RuleContractNotOpen, false)
}

// AuditInvoice checks an invoice loaded with its ledger and products
func AuditInvoice(inv *domain.Invoice) []Finding {
	ref := domain.Ref(domain.OwnerInvoice, inv.ID)
	findings := auditLedger(ref, inv.Activities, closedInvoiceStatuses, domain.RuleInvoiceNotOpen, true)
	for i := range inv.Products {
		p := &inv.Products[i]
		if p.Contract != nil && p.Contract.CompanyID != inv.CompanyID {
			findings = append(findings, Finding{
				Owner:  ref,
				Rule:   domain.RuleCompanyMismatch,
				Detail: fmt.Sprintf("product instance %d belongs to company %d, invoice to %d", p.ID, p.Contract.CompanyID, inv.CompanyID),
			})
		}
	}
	return findings
}

// AuditProductInstance checks that an instance has an initial status
func AuditProductInstance(p *domain.ProductInstance) []Finding {
	if len(StatusHistory(p.Activities)) > 0 {
		return nil
	}
	return []Finding{{
		Owner:  domain.Ref(domain.OwnerProductInstance, p.ID),
		Rule:   domain.RuleStatusUnknown,
		Detail: "ledger has no STATUS activity",
	}}
}

func auditLedger(ref domain.EntityRef, ledger []domain.Activity, closed []domain.StatusSubKind, rule string, gateRemovals bool) []Finding {
	var findings []Finding
	if len(StatusHistory(ledger)) == 0 {
		findings = append(findings, Finding{Owner: ref, Rule: domain.RuleStatusUnknown, Detail: "ledger has no STATUS activity"})
	}

	current := ref.Kind.InitialStatus()
	for i := range ledger {
		a := &ledger[i]
		if a.DeletedAt.Valid {
			continue
		}
		switch a.Kind {
		case domain.ActivityStatus:
			current = a.SubKind
		case domain.ActivityAddProduct:
			if statusIn(current, closed) {
				findings = append(findings, Finding{Owner: ref, Rule: rule,
					Detail: fmt.Sprintf("activity %d added a product while %s", a.ID, current)})
			}
		case domain.ActivityDelProduct:
			if gateRemovals && statusIn(current, closed) {
				findings = append(findings, Finding{Owner: ref, Rule: rule,
					Detail: fmt.Sprintf("activity %d removed a product while %s", a.ID, current)})
			}
		}
	}
	return findings
}

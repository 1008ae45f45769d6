package service

import (
	"context"
	"slices"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// InvoiceService orchestrates invoices and the product instances billed on them
type InvoiceService struct {
	scope
}

func NewInvoiceService(store *repository.Store, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{scope: scope{store: store, logger: logger}}
}

// ForActor returns a copy of the service acting as actor
func (s *InvoiceService) ForActor(actor *domain.User) *InvoiceService {
	cp := *s
	cp.actor = actor
	return &cp
}

// Create creates an invoice for a company, records CREATED and attaches the
// listed product instances. Every instance must belong to a contract of the
// same company and must not be invoiced yet.
func (s *InvoiceService) Create(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	var result *domain.Invoice
	err := s.run(ctx, "invoice.create", func(w *writer) error {
		if _, err := w.tx.Companies.GetByID(ctx, params.CompanyID); err != nil {
			return err
		}
		invoice := &domain.Invoice{
			CompanyID:    params.CompanyID,
			PoNumber:     params.PoNumber,
			Comments:     params.Comments,
			AssignedToID: params.AssignedToID,
			CreatedByID:  w.actor,
		}
		if err := w.tx.Invoices.Create(ctx, invoice); err != nil {
			return err
		}
		if err := w.append(ctx, invoice.Ref(), lifecycle.StatusEntry(domain.InvoiceStatusCreated, "Created invoice")); err != nil {
			return err
		}

		// Lock instances in id order so concurrent creates cannot deadlock
		ids := slices.Clone(params.ProductInstanceIDs)
		slices.Sort(ids)
		for _, id := range ids {
			if err := s.attach(ctx, w, invoice, id); err != nil {
				return err
			}
		}

		var err error
		result, err = w.tx.Invoices.GetByID(ctx, invoice.ID)
		return err
	}, zap.Uint("company_id", params.CompanyID), zap.Int("products", len(params.ProductInstanceIDs)))
	return result, err
}

// Get loads an invoice with its company, products and ledger
func (s *InvoiceService) Get(ctx context.Context, id uint) (*domain.Invoice, error) {
	invoice, err := s.store.Invoices.GetByID(ctx, id)
	return invoice, annotate("invoice.get", err)
}

// Summaries returns the compact form of every invoice
func (s *InvoiceService) Summaries(ctx context.Context) ([]domain.InvoiceSummary, error) {
	return s.store.Invoices.Summaries(ctx)
}

// Update edits the invoice fields and moves it to update.Status if given
func (s *InvoiceService) Update(ctx context.Context, id uint, update domain.InvoiceUpdate) (*domain.Invoice, error) {
	var result *domain.Invoice
	err := s.run(ctx, "invoice.update", func(w *writer) error {
		invoice, err := w.tx.Invoices.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ref := invoice.Ref()
		if err := repository.CheckVersion(ref, invoice.Version, update.ExpectedVersion); err != nil {
			return err
		}

		var changes []domain.FieldChange
		fields := map[string]interface{}{}
		if update.PoNumber != nil {
			changes = append(changes, domain.FieldChange{Field: "poNumber", Old: invoice.PoNumber, New: *update.PoNumber})
			fields["po_number"] = *update.PoNumber
		}
		if update.Comments != nil {
			changes = append(changes, domain.FieldChange{Field: "comments", Old: invoice.Comments, New: *update.Comments})
			fields["comments"] = *update.Comments
		}
		if change, value, ok := assigneeChange(invoice.AssignedToID, update.AssignedToID, update.ClearAssignee); ok {
			changes = append(changes, change)
			fields["assigned_to_id"] = value
		}
		if update.Status != nil {
			if err := lifecycle.ValidateStatus(domain.OwnerInvoice, *update.Status); err != nil {
				return err
			}
			current := lifecycle.CurrentStatusOf(domain.OwnerInvoice, invoice.Activities)
			changes = append(changes, domain.FieldChange{Field: lifecycle.StatusField, Old: current, New: *update.Status})
		}

		entries, noChange := lifecycle.EditActivities(changes)
		if !noChange {
			if err := w.tx.UpdateVersioned(ctx, ref, invoice.Version, fields); err != nil {
				return err
			}
			if err := w.append(ctx, ref, entries...); err != nil {
				return err
			}
		}

		result, err = w.tx.Invoices.GetByID(ctx, id)
		return err
	}, zap.Uint("invoice_id", id))
	return result, err
}

// Delete removes an invoice that is still CREATED and has no products
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	return s.run(ctx, "invoice.delete", func(w *writer) error {
		invoice, err := w.tx.Invoices.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.InvoiceGuard(lifecycle.OpDelete, lifecycle.StatusHistory(invoice.Activities)).Err(); err != nil {
			return err
		}
		products, err := w.tx.Invoices.CountProducts(ctx, id)
		if err != nil {
			return err
		}
		if products > 0 {
			return domain.IllegalTransition(domain.RuleInvoiceHasProducts,
				"invoice %d still has %d products", id, products)
		}
		if err := w.tx.Invoices.Delete(ctx, id); err != nil {
			return err
		}
		return w.tx.Activities.DeleteForOwner(ctx, invoice.Ref())
	}, zap.Uint("invoice_id", id))
}

// AssignProduct bills a product instance on an open invoice of the same company.
// Assigning an instance that is already on any invoice, this one included, fails.
func (s *InvoiceService) AssignProduct(ctx context.Context, invoiceID, instanceID uint) (*domain.ProductInstance, error) {
	var result *domain.ProductInstance
	err := s.run(ctx, "invoice.assign_product", func(w *writer) error {
		invoice, err := w.tx.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := lifecycle.InvoiceGuard(lifecycle.OpAddProduct, lifecycle.StatusHistory(invoice.Activities)).Err(); err != nil {
			return err
		}
		if err := w.touch(ctx, invoice.Ref(), invoice.Version); err != nil {
			return err
		}
		if err := s.attach(ctx, w, invoice, instanceID); err != nil {
			return err
		}
		result, err = w.tx.ProductInstances.GetByID(ctx, instanceID)
		return err
	}, zap.Uint("invoice_id", invoiceID), zap.Uint("product_instance_id", instanceID))
	return result, err
}

// UnassignProduct takes a product instance off an open invoice
func (s *InvoiceService) UnassignProduct(ctx context.Context, invoiceID, instanceID uint) error {
	return s.run(ctx, "invoice.unassign_product", func(w *writer) error {
		invoice, err := w.tx.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := lifecycle.InvoiceGuard(lifecycle.OpRemoveProduct, lifecycle.StatusHistory(invoice.Activities)).Err(); err != nil {
			return err
		}
		instance, err := w.tx.ProductInstances.GetForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		if err := lifecycle.OnInvoice(instance, invoiceID); err != nil {
			return err
		}

		if err := w.touch(ctx, invoice.Ref(), invoice.Version); err != nil {
			return err
		}
		if err := w.tx.ProductInstances.SetInvoice(ctx, instance, nil); err != nil {
			return err
		}
		return w.append(ctx, invoice.Ref(), lifecycle.DelProductEntry(productName(instance)))
	}, zap.Uint("invoice_id", invoiceID), zap.Uint("product_instance_id", instanceID))
}

// attach links one instance to a locked invoice and records ADDPRODUCT on it
func (s *InvoiceService) attach(ctx context.Context, w *writer, invoice *domain.Invoice, instanceID uint) error {
	instance, err := w.tx.ProductInstances.GetForUpdate(ctx, instanceID)
	if err != nil {
		return err
	}
	if err := lifecycle.SameCompany(instance, invoice); err != nil {
		return err
	}
	if err := lifecycle.ExclusiveInvoiceAssignment(instance, invoice.ID); err != nil {
		return err
	}
	invoiceID := invoice.ID
	if err := w.tx.ProductInstances.SetInvoice(ctx, instance, &invoiceID); err != nil {
		return err
	}
	return w.append(ctx, invoice.Ref(), lifecycle.AddProductEntry(productName(instance)))
}

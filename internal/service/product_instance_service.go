package service

import (
	"context"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// ProductInstanceService reads product instances and edits them outside of a
// contract context. Attaching and detaching go through ContractService and
// InvoiceService.
type ProductInstanceService struct {
	scope
}

func NewProductInstanceService(store *repository.Store, logger *zap.Logger) *ProductInstanceService {
	return &ProductInstanceService{scope: scope{store: store, logger: logger}}
}

// ForActor returns a copy of the service acting as actor
func (s *ProductInstanceService) ForActor(actor *domain.User) *ProductInstanceService {
	cp := *s
	cp.actor = actor
	return &cp
}

func (s *ProductInstanceService) Get(ctx context.Context, id uint) (*domain.ProductInstance, error) {
	instance, err := s.store.ProductInstances.GetByID(ctx, id)
	return instance, annotate("product_instance.get", err)
}

// ListByProduct returns the instances of a catalog product across contracts
func (s *ProductInstanceService) ListByProduct(ctx context.Context, productID uint) ([]domain.ProductInstance, error) {
	if _, err := s.store.Products.GetByID(ctx, productID); err != nil {
		return nil, annotate("product_instance.list_by_product", err)
	}
	return s.store.ProductInstances.ListByProduct(ctx, productID)
}

// ListInvoicedByProduct returns the instances of a catalog product that are on an invoice
func (s *ProductInstanceService) ListInvoicedByProduct(ctx context.Context, productID uint) ([]domain.ProductInstance, error) {
	if _, err := s.store.Products.GetByID(ctx, productID); err != nil {
		return nil, annotate("product_instance.list_invoiced_by_product", err)
	}
	return s.store.ProductInstances.ListInvoicedByProduct(ctx, productID)
}

// Update edits prices, comments and delivery status of an instance
func (s *ProductInstanceService) Update(ctx context.Context, id uint, update domain.ProductInstanceUpdate) (*domain.ProductInstance, error) {
	var result *domain.ProductInstance
	err := s.run(ctx, "product_instance.update", func(w *writer) error {
		instance, err := w.tx.ProductInstances.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := updateInstance(ctx, w, instance, update); err != nil {
			return err
		}
		result, err = w.tx.ProductInstances.GetByID(ctx, id)
		return err
	}, zap.Uint("product_instance_id", id))
	return result, err
}

// updateInstance applies an edit to a locked instance and records it on the
// instance ledger: STATUS for a delivery status change, UPDATE per other field
func updateInstance(ctx context.Context, w *writer, instance *domain.ProductInstance, update domain.ProductInstanceUpdate) error {
	ref := instance.Ref()
	if err := repository.CheckVersion(ref, instance.Version, update.ExpectedVersion); err != nil {
		return err
	}
	guard := lifecycle.ProductInstanceGuard(lifecycle.OpUpdate, lifecycle.StatusHistory(instance.Activities), instance.IsInvoiced())
	if err := guard.Err(); err != nil {
		return err
	}

	var changes []domain.FieldChange
	fields := map[string]interface{}{}
	if update.BasePrice != nil {
		changes = append(changes, domain.FieldChange{Field: "basePrice", Old: instance.BasePrice, New: *update.BasePrice})
		if !update.BasePrice.Equal(instance.BasePrice) {
			fields["base_price"] = *update.BasePrice
		}
	}
	if update.Discount != nil {
		changes = append(changes, domain.FieldChange{Field: "discount", Old: instance.Discount, New: *update.Discount})
		if !update.Discount.Equal(instance.Discount) {
			fields["discount"] = *update.Discount
		}
	}
	if update.Comments != nil {
		changes = append(changes, domain.FieldChange{Field: "comments", Old: instance.Comments, New: *update.Comments})
		if *update.Comments != instance.Comments {
			fields["comments"] = *update.Comments
		}
	}
	if update.Status != nil {
		if err := lifecycle.ValidateStatus(domain.OwnerProductInstance, *update.Status); err != nil {
			return err
		}
		current := lifecycle.CurrentStatusOf(domain.OwnerProductInstance, instance.Activities)
		changes = append(changes, domain.FieldChange{Field: lifecycle.StatusField, Old: current, New: *update.Status})
	}

	entries, noChange := lifecycle.EditActivities(changes)
	if noChange {
		return nil
	}
	if err := w.tx.UpdateVersioned(ctx, ref, instance.Version, fields); err != nil {
		return err
	}
	return w.append(ctx, ref, entries...)
}

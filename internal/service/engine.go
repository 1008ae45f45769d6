package service

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// Engine bundles the aggregate services over one store. The request layer
// builds one Engine at startup and calls ForActor once per request.
type Engine struct {
	Activities       *ActivityService
	Companies        *CompanyService
	Contracts        *ContractService
	Invoices         *InvoiceService
	ProductInstances *ProductInstanceService
}

func NewEngine(store *repository.Store, logger *zap.Logger) *Engine {
	return &Engine{
		Activities:       NewActivityService(store, logger),
		Companies:        NewCompanyService(store, logger),
		Contracts:        NewContractService(store, logger),
		Invoices:         NewInvoiceService(store, logger),
		ProductInstances: NewProductInstanceService(store, logger),
	}
}

// ForActor binds every service to the acting user
func (e *Engine) ForActor(actor *domain.User) *Engine {
	return &Engine{
		Activities:       e.Activities.ForActor(actor),
		Companies:        e.Companies.ForActor(actor),
		Contracts:        e.Contracts.ForActor(actor),
		Invoices:         e.Invoices.ForActor(actor),
		ProductInstances: e.ProductInstances.ForActor(actor),
	}
}

// UpdateEntityFields routes a partial update to the aggregate named by ref.
// changes must be the update type of that kind: domain.ContractUpdate,
// domain.InvoiceUpdate or domain.ProductInstanceUpdate.
func (e *Engine) UpdateEntityFields(ctx context.Context, ref domain.EntityRef, changes interface{}) (domain.LedgerOwner, error) {
	switch update := changes.(type) {
	case domain.ContractUpdate:
		if ref.Kind == domain.OwnerContract {
			return asOwner(e.Contracts.Update(ctx, ref.ID, update))
		}
	case domain.InvoiceUpdate:
		if ref.Kind == domain.OwnerInvoice {
			return asOwner(e.Invoices.Update(ctx, ref.ID, update))
		}
	case domain.ProductInstanceUpdate:
		if ref.Kind == domain.OwnerProductInstance {
			return asOwner(e.ProductInstances.Update(ctx, ref.ID, update))
		}
	}
	return nil, fmt.Errorf("cannot apply %T to %s %d", changes, ref.Kind, ref.ID)
}

// StatusHistory returns the statuses an entity has passed through, in order
func (e *Engine) StatusHistory(ctx context.Context, ref domain.EntityRef) ([]domain.StatusSubKind, error) {
	return e.Activities.StatusHistory(ctx, ref)
}

// asOwner keeps a failed update from returning a typed nil inside the interface
func asOwner[T domain.LedgerOwner](owner T, err error) (domain.LedgerOwner, error) {
	if err != nil {
		return nil, err
	}
	return owner, nil
}

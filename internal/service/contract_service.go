package service

import (
	"context"
	"strconv"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// ContractService orchestrates contracts and the product instances sold on them
type ContractService struct {
	scope
}

func NewContractService(store *repository.Store, logger *zap.Logger) *ContractService {
	return &ContractService{scope: scope{store: store, logger: logger}}
}

// ForActor returns a copy of the service acting as actor
func (s *ContractService) ForActor(actor *domain.User) *ContractService {
	cp := *s
	cp.actor = actor
	return &cp
}

// Create creates a contract for a company and one of its contacts and
// records the initial CREATED status
func (s *ContractService) Create(ctx context.Context, params domain.ContractParams) (*domain.Contract, error) {
	var result *domain.Contract
	err := s.run(ctx, "contract.create", func(w *writer) error {
		if _, err := w.tx.Companies.GetByID(ctx, params.CompanyID); err != nil {
			return err
		}
		if err := contactOfCompany(ctx, w.tx, params.ContactID, params.CompanyID); err != nil {
			return err
		}

		contract := &domain.Contract{
			Title:        params.Title,
			CompanyID:    params.CompanyID,
			ContactID:    params.ContactID,
			Comments:     params.Comments,
			AssignedToID: params.AssignedToID,
			CreatedByID:  w.actor,
		}
		if err := w.tx.Contracts.Create(ctx, contract); err != nil {
			return err
		}
		entry := lifecycle.StatusEntry(domain.ContractStatusCreated, "Created contract")
		if err := w.append(ctx, contract.Ref(), entry); err != nil {
			return err
		}

		var err error
		result, err = w.tx.Contracts.GetByID(ctx, contract.ID)
		return err
	}, zap.Uint("company_id", params.CompanyID))
	return result, err
}

// Get loads a contract with its company, contact, products and ledger
func (s *ContractService) Get(ctx context.Context, id uint) (*domain.Contract, error) {
	contract, err := s.store.Contracts.GetByID(ctx, id)
	return contract, annotate("contract.get", err)
}

// Summaries returns the compact form of every contract
func (s *ContractService) Summaries(ctx context.Context) ([]domain.ContractSummary, error) {
	return s.store.Contracts.Summaries(ctx)
}

// Update edits the contract fields and moves it to update.Status if given.
// Every changed field is recorded on the contract ledger.
func (s *ContractService) Update(ctx context.Context, id uint, update domain.ContractUpdate) (*domain.Contract, error) {
	var result *domain.Contract
	err := s.run(ctx, "contract.update", func(w *writer) error {
		contract, err := w.tx.Contracts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ref := contract.Ref()
		if err := repository.CheckVersion(ref, contract.Version, update.ExpectedVersion); err != nil {
			return err
		}
		if err := lifecycle.ContractGuard(lifecycle.OpUpdate, lifecycle.StatusHistory(contract.Activities)).Err(); err != nil {
			return err
		}

		var changes []domain.FieldChange
		fields := map[string]interface{}{}
		if update.Title != nil {
			changes = append(changes, domain.FieldChange{Field: "title", Old: contract.Title, New: *update.Title})
			fields["title"] = *update.Title
		}
		if update.ContactID != nil {
			if *update.ContactID != contract.ContactID {
				if err := contactOfCompany(ctx, w.tx, *update.ContactID, contract.CompanyID); err != nil {
					return err
				}
			}
			changes = append(changes, domain.FieldChange{Field: "contactId", Old: contract.ContactID, New: *update.ContactID})
			fields["contact_id"] = *update.ContactID
		}
		if update.Comments != nil {
			changes = append(changes, domain.FieldChange{Field: "comments", Old: contract.Comments, New: *update.Comments})
			fields["comments"] = *update.Comments
		}
		if change, value, ok := assigneeChange(contract.AssignedToID, update.AssignedToID, update.ClearAssignee); ok {
			changes = append(changes, change)
			fields["assigned_to_id"] = value
		}
		if update.Status != nil {
			if err := lifecycle.ValidateStatus(domain.OwnerContract, *update.Status); err != nil {
				return err
			}
			current := lifecycle.CurrentStatusOf(domain.OwnerContract, contract.Activities)
			changes = append(changes, domain.FieldChange{Field: lifecycle.StatusField, Old: current, New: *update.Status})
		}

		entries, noChange := lifecycle.EditActivities(changes)
		if !noChange {
			if err := w.tx.UpdateVersioned(ctx, ref, contract.Version, fields); err != nil {
				return err
			}
			if err := w.append(ctx, ref, entries...); err != nil {
				return err
			}
		}

		result, err = w.tx.Contracts.GetByID(ctx, id)
		return err
	}, zap.Uint("contract_id", id))
	return result, err
}

// Delete removes a contract that never left CREATED and has no products,
// together with its ledger
func (s *ContractService) Delete(ctx context.Context, id uint) error {
	return s.run(ctx, "contract.delete", func(w *writer) error {
		contract, err := w.tx.Contracts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.ContractGuard(lifecycle.OpDelete, lifecycle.StatusHistory(contract.Activities)).Err(); err != nil {
			return err
		}
		products, err := w.tx.Contracts.CountProducts(ctx, id)
		if err != nil {
			return err
		}
		if products > 0 {
			return domain.IllegalTransition(domain.RuleContractHasProducts,
				"contract %d still has %d products", id, products)
		}
		if err := w.tx.Contracts.Delete(ctx, id); err != nil {
			return err
		}
		return w.tx.Activities.DeleteForOwner(ctx, contract.Ref())
	}, zap.Uint("contract_id", id))
}

// AddProduct instantiates a catalog product on an open contract. The contract
// ledger gets one ADDPRODUCT activity and the new instance starts at NOTDELIVERED.
func (s *ContractService) AddProduct(ctx context.Context, contractID uint, params domain.ProductInstanceParams) (*domain.ProductInstance, error) {
	var result *domain.ProductInstance
	err := s.run(ctx, "contract.add_product", func(w *writer) error {
		contract, err := w.tx.Contracts.GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if err := lifecycle.ContractGuard(lifecycle.OpAddProduct, lifecycle.StatusHistory(contract.Activities)).Err(); err != nil {
			return err
		}
		product, err := w.tx.Products.GetByID(ctx, params.ProductID)
		if err != nil {
			return err
		}
		if err := lifecycle.CatalogActive(product, true); err != nil {
			return err
		}

		if err := w.touch(ctx, contract.Ref(), contract.Version); err != nil {
			return err
		}
		instance := &domain.ProductInstance{
			ProductID:  product.ID,
			ContractID: contract.ID,
			BasePrice:  params.BasePrice,
			Discount:   params.Discount,
			Comments:   params.Comments,
		}
		if err := w.tx.ProductInstances.Create(ctx, instance); err != nil {
			return err
		}
		initial := lifecycle.StatusEntry(domain.ProductInstanceStatusNotDelivered, "Added to contract")
		if err := w.append(ctx, instance.Ref(), initial); err != nil {
			return err
		}
		if err := w.append(ctx, contract.Ref(), lifecycle.AddProductEntry(product.Name)); err != nil {
			return err
		}

		result, err = w.tx.ProductInstances.GetByID(ctx, instance.ID)
		return err
	}, zap.Uint("contract_id", contractID), zap.Uint("product_id", params.ProductID))
	return result, err
}

// DeleteProduct removes an instance that is still NOTDELIVERED and not invoiced
func (s *ContractService) DeleteProduct(ctx context.Context, contractID, instanceID uint) error {
	return s.run(ctx, "contract.delete_product", func(w *writer) error {
		contract, err := w.tx.Contracts.GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		instance, err := w.tx.ProductInstances.GetForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		if err := lifecycle.OnContract(instance, contractID); err != nil {
			return err
		}
		guard := lifecycle.ProductInstanceGuard(lifecycle.OpDelete, lifecycle.StatusHistory(instance.Activities), instance.IsInvoiced())
		if err := guard.Err(); err != nil {
			return err
		}

		if err := w.touch(ctx, contract.Ref(), contract.Version); err != nil {
			return err
		}
		if err := w.tx.ProductInstances.Delete(ctx, instanceID); err != nil {
			return err
		}
		if err := w.tx.Activities.DeleteForOwner(ctx, instance.Ref()); err != nil {
			return err
		}
		return w.append(ctx, contract.Ref(), lifecycle.DelProductEntry(productName(instance)))
	}, zap.Uint("contract_id", contractID), zap.Uint("product_instance_id", instanceID))
}

// UpdateProduct edits an instance of this contract
func (s *ContractService) UpdateProduct(ctx context.Context, contractID, instanceID uint, update domain.ProductInstanceUpdate) (*domain.ProductInstance, error) {
	var result *domain.ProductInstance
	err := s.run(ctx, "contract.update_product", func(w *writer) error {
		instance, err := w.tx.ProductInstances.GetForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		if err := lifecycle.OnContract(instance, contractID); err != nil {
			return err
		}
		if err := updateInstance(ctx, w, instance, update); err != nil {
			return err
		}
		result, err = w.tx.ProductInstances.GetByID(ctx, instanceID)
		return err
	}, zap.Uint("contract_id", contractID), zap.Uint("product_instance_id", instanceID))
	return result, err
}

func contactOfCompany(ctx context.Context, tx *repository.Store, contactID, companyID uint) error {
	contact, err := tx.Contacts.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if contact.CompanyID != companyID {
		return domain.InvalidRelation(domain.RuleCompanyMismatch,
			"contact %d does not work at company %d", contactID, companyID)
	}
	return nil
}

func productName(instance *domain.ProductInstance) string {
	if instance.Product != nil {
		return instance.Product.Name
	}
	return "#" + strconv.FormatUint(uint64(instance.ProductID), 10)
}

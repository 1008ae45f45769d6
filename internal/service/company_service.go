package service

import (
	"context"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// CompanyService manages companies and their contacts. A company ledger only
// holds comments and edits; companies have no status set.
type CompanyService struct {
	scope
}

func NewCompanyService(store *repository.Store, logger *zap.Logger) *CompanyService {
	return &CompanyService{scope: scope{store: store, logger: logger}}
}

// ForActor returns a copy of the service acting as actor
func (s *CompanyService) ForActor(actor *domain.User) *CompanyService {
	cp := *s
	cp.actor = actor
	return &cp
}

func (s *CompanyService) Create(ctx context.Context, params domain.CompanyParams) (*domain.Company, error) {
	var result *domain.Company
	err := s.run(ctx, "company.create", func(w *writer) error {
		company := &domain.Company{
			Name:        params.Name,
			Description: params.Description,
			Status:      domain.CompanyStatusActive,
		}
		if err := w.tx.Companies.Create(ctx, company); err != nil {
			return err
		}
		entry := lifecycle.Entry{Kind: domain.ActivityUpdate, Description: "Created company"}
		if err := w.append(ctx, company.Ref(), entry); err != nil {
			return err
		}
		var err error
		result, err = w.tx.Companies.GetByID(ctx, company.ID)
		return err
	}, zap.String("company_name", params.Name))
	return result, err
}

func (s *CompanyService) Get(ctx context.Context, id uint) (*domain.Company, error) {
	company, err := s.store.Companies.GetByID(ctx, id)
	return company, annotate("company.get", err)
}

// AddContact registers a contact person at a live company
func (s *CompanyService) AddContact(ctx context.Context, companyID uint, params domain.ContactParams) (*domain.Contact, error) {
	var result *domain.Contact
	err := s.run(ctx, "company.add_contact", func(w *writer) error {
		if _, err := w.tx.LockOwner(ctx, domain.Ref(domain.OwnerCompany, companyID)); err != nil {
			return err
		}
		contact := &domain.Contact{
			FirstName: params.FirstName,
			LastName:  params.LastName,
			Email:     params.Email,
			CompanyID: companyID,
		}
		if err := w.tx.Contacts.Create(ctx, contact); err != nil {
			return err
		}
		result = contact
		return nil
	}, zap.Uint("company_id", companyID))
	return result, err
}

package service_test

import (
	"context"
	"testing"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/testutil"
	"github.com/stretchr/testify/require"
)

func createContract(t *testing.T, f *testutil.Fixture, company *domain.Company, contact *domain.Contact) *domain.Contract {
	t.Helper()
	contract, err := f.Engine.Contracts.Create(context.Background(), domain.ContractParams{
		Title:     "Sponsorship " + company.Name,
		CompanyID: company.ID,
		ContactID: contact.ID,
	})
	require.NoError(t, err)
	return contract
}

func addProduct(t *testing.T, f *testutil.Fixture, contract *domain.Contract, product *domain.Product) *domain.ProductInstance {
	t.Helper()
	instance, err := f.Engine.Contracts.AddProduct(context.Background(), contract.ID, domain.ProductInstanceParams{
		ProductID: product.ID,
		BasePrice: testutil.Price(500),
		Discount:  testutil.Price(50),
	})
	require.NoError(t, err)
	return instance
}

func setContractStatus(t *testing.T, f *testutil.Fixture, contractID uint, status domain.StatusSubKind) *domain.Contract {
	t.Helper()
	contract, err := f.Engine.Contracts.Update(context.Background(), contractID, domain.ContractUpdate{Status: &status})
	require.NoError(t, err)
	return contract
}

func kinds(ledger []domain.Activity) []domain.ActivityKind {
	out := make([]domain.ActivityKind, len(ledger))
	for i := range ledger {
		out[i] = ledger[i].Kind
	}
	return out
}

func requireCode(t *testing.T, err error, code domain.ErrorCode, rule string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.CodeOf(err), "unexpected error: %v", err)
	if rule != "" {
		require.Equal(t, rule, domain.RuleOf(err), "unexpected error: %v", err)
	}
}

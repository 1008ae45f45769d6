package service_test

import (
	"context"
	"testing"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestContractService_Create(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")

	t.Run("records initial status", func(t *testing.T) {
		contract := createContract(t, f, company, contact)

		assert.Equal(t, 1, contract.Version)
		require.Len(t, contract.Activities, 1)
		assert.Equal(t, domain.ActivityStatus, contract.Activities[0].Kind)
		assert.Equal(t, domain.ContractStatusCreated, contract.Activities[0].SubKind)
		require.NotNil(t, contract.Activities[0].CreatedByID)
		assert.Equal(t, f.User.ID, *contract.Activities[0].CreatedByID)
		assert.Equal(t, contact.ID, contract.Contact.ID)
	})

	t.Run("contact of another company", func(t *testing.T) {
		_, otherContact := testutil.CreateTestCompany(t, f.DB, "Globex")

		_, err := f.Engine.Contracts.Create(ctx, domain.ContractParams{
			Title:     "Mismatch",
			CompanyID: company.ID,
			ContactID: otherContact.ID,
		})
		requireCode(t, err, domain.CodeInvalidRelation, domain.RuleCompanyMismatch)
	})

	t.Run("missing company", func(t *testing.T) {
		_, err := f.Engine.Contracts.Create(ctx, domain.ContractParams{Title: "Ghost", CompanyID: 9999, ContactID: contact.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestContractService_AddProduct(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")
	product := testutil.CreateTestProduct(t, f.DB, "Banner", true)

	t.Run("open contract gets one ADDPRODUCT and the instance starts NOTDELIVERED", func(t *testing.T) {
		contract := createContract(t, f, company, contact)

		instance := addProduct(t, f, contract, product)

		require.Len(t, instance.Activities, 1)
		assert.Equal(t, domain.ProductInstanceStatusNotDelivered, instance.Activities[0].SubKind)
		assert.Equal(t, contract.ID, instance.ContractID)
		assert.True(t, testutil.Price(450).Equal(instance.NetPrice()))

		reloaded, err := f.Engine.Contracts.Get(ctx, contract.ID)
		require.NoError(t, err)
		assert.Equal(t, []domain.ActivityKind{domain.ActivityStatus, domain.ActivityAddProduct}, kinds(reloaded.Activities))
		assert.Equal(t, `Added product "Banner"`, reloaded.Activities[1].Description)
		assert.Equal(t, contract.Version+1, reloaded.Version)
		require.Len(t, reloaded.Products, 1)
	})

	t.Run("confirmed contract rejects products", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		setContractStatus(t, f, contract.ID, domain.ContractStatusConfirmed)

		_, err := f.Engine.Contracts.AddProduct(ctx, contract.ID, domain.ProductInstanceParams{ProductID: product.ID})
		requireCode(t, err, domain.CodeIllegalTransition, domain.RuleContractNotOpen)

		reloaded, err := f.Engine.Contracts.Get(ctx, contract.ID)
		require.NoError(t, err)
		assert.Empty(t, reloaded.Products)
		assert.NotContains(t, kinds(reloaded.Activities), domain.ActivityAddProduct)
	})

	t.Run("inactive catalog product", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		retired := testutil.CreateTestProduct(t, f.DB, "Retired", false)

		_, err := f.Engine.Contracts.AddProduct(ctx, contract.ID, domain.ProductInstanceParams{ProductID: retired.ID})
		requireCode(t, err, domain.CodeInvalidRelation, domain.RuleProductInactive)
	})

	t.Run("missing contract", func(t *testing.T) {
		_, err := f.Engine.Contracts.AddProduct(ctx, 9999, domain.ProductInstanceParams{ProductID: product.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestContractService_DeleteProduct(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")
	product := testutil.CreateTestProduct(t, f.DB, "Banner", true)

	t.Run("instance with only its initial status", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		instance := addProduct(t, f, contract, product)

		require.NoError(t, f.Engine.Contracts.DeleteProduct(ctx, contract.ID, instance.ID))

		_, err := f.Engine.ProductInstances.Get(ctx, instance.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		reloaded, err := f.Engine.Contracts.Get(ctx, contract.ID)
		require.NoError(t, err)
		assert.Equal(t,
			[]domain.ActivityKind{domain.ActivityStatus, domain.ActivityAddProduct, domain.ActivityDelProduct},
			kinds(reloaded.Activities))
		assert.Equal(t, `Removed product "Banner"`, reloaded.Activities[2].Description)
	})

	t.Run("instance that moved past its initial status", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		instance := addProduct(t, f, contract, product)
		delivered := domain.ProductInstanceStatusDelivered
		_, err := f.Engine.ProductInstances.Update(ctx, instance.ID, domain.ProductInstanceUpdate{Status: &delivered})
		require.NoError(t, err)

		err = f.Engine.Contracts.DeleteProduct(ctx, contract.ID, instance.ID)
		requireCode(t, err, domain.CodeIllegalTransition, domain.RuleInstanceNotInitial)

		_, err = f.Engine.ProductInstances.Get(ctx, instance.ID)
		assert.NoError(t, err)
	})

	t.Run("invoiced instance", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		instance := addProduct(t, f, contract, product)
		_, err := f.Engine.Invoices.Create(ctx, domain.InvoiceParams{
			CompanyID:          company.ID,
			ProductInstanceIDs: []uint{instance.ID},
		})
		require.NoError(t, err)

		err = f.Engine.Contracts.DeleteProduct(ctx, contract.ID, instance.ID)
		requireCode(t, err, domain.CodeIllegalTransition, domain.RuleInstanceInvoiced)
	})

	t.Run("instance of another contract", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		other := createContract(t, f, company, contact)
		instance := addProduct(t, f, other, product)

		err := f.Engine.Contracts.DeleteProduct(ctx, contract.ID, instance.ID)
		requireCode(t, err, domain.CodeInvalidRelation, domain.RuleInstanceNotOnContract)
	})
}

func TestContractService_Update(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")

	t.Run("records one entry per changed field", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		title := "Renamed"
		confirmed := domain.ContractStatusConfirmed

		updated, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{
			Title:  &title,
			Status: &confirmed,
		})
		require.NoError(t, err)

		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, contract.Version+1, updated.Version)
		require.Len(t, updated.Activities, 3)
		assert.Equal(t, domain.ActivityUpdate, updated.Activities[1].Kind)
		assert.Contains(t, updated.Activities[1].Description, "title")
		assert.Equal(t, domain.ContractStatusConfirmed, updated.Activities[2].SubKind)
		assert.Equal(t, domain.ContractStatusConfirmed, lifecycle.CurrentStatusOf(domain.OwnerContract, updated.Activities))
	})

	t.Run("unchanged values record nothing", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		title := contract.Title

		updated, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, contract.Version, updated.Version)
		assert.Len(t, updated.Activities, 1)
	})

	t.Run("stale expected version", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		title := "First"
		_, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{Title: &title, ExpectedVersion: &contract.Version})
		require.NoError(t, err)

		title = "Second"
		_, err = f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{Title: &title, ExpectedVersion: &contract.Version})
		requireCode(t, err, domain.CodeConflict, domain.RuleVersionMismatch)
		assert.True(t, domain.IsRetryable(err))
	})

	t.Run("assignee can be set and cleared", func(t *testing.T) {
		contract := createContract(t, f, company, contact)

		assigned, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{AssignedToID: &f.User.ID})
		require.NoError(t, err)
		require.NotNil(t, assigned.AssignedToID)
		assert.Equal(t, f.User.ID, *assigned.AssignedToID)

		cleared, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{ClearAssignee: true})
		require.NoError(t, err)
		assert.Nil(t, cleared.AssignedToID)
		assert.Equal(t, assigned.Version+1, cleared.Version)
		last := cleared.Activities[len(cleared.Activities)-1]
		assert.Equal(t, domain.ActivityUpdate, last.Kind)
		assert.Contains(t, last.Description, `to "none"`)

		again, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{ClearAssignee: true})
		require.NoError(t, err)
		assert.Equal(t, cleared.Version, again.Version)
	})

	t.Run("unknown status", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		bogus := domain.InvoiceStatusPaid

		_, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{Status: &bogus})
		requireCode(t, err, domain.CodeIllegalTransition, domain.RuleStatusUnknown)
	})

	t.Run("contact of another company", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		_, otherContact := testutil.CreateTestCompany(t, f.DB, "Globex")

		_, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{ContactID: &otherContact.ID})
		requireCode(t, err, domain.CodeInvalidRelation, domain.RuleCompanyMismatch)
	})
}

func TestContractService_Delete(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")
	product := testutil.CreateTestProduct(t, f.DB, "Banner", true)

	t.Run("fresh contract", func(t *testing.T) {
		contract := createContract(t, f, company, contact)

		require.NoError(t, f.Engine.Contracts.Delete(ctx, contract.ID))

		_, err := f.Engine.Contracts.Get(ctx, contract.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.Engine.Activities.ListFor(ctx, contract.Ref())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("contract that changed status", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		setContractStatus(t, f, contract.ID, domain.ContractStatusCancelled)

		err := f.Engine.Contracts.Delete(ctx, contract.ID)
		requireCode(t, err, domain.CodeIllegalTransition, domain.RuleContractNotInitial)
	})

	t.Run("contract with products", func(t *testing.T) {
		contract := createContract(t, f, company, contact)
		addProduct(t, f, contract, product)

		err := f.Engine.Contracts.Delete(ctx, contract.ID)
		requireCode(t, err, domain.CodeIllegalTransition, domain.RuleContractHasProducts)
	})
}

func TestContractService_ConcurrentAddAndCancel(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")
	product := testutil.CreateTestProduct(t, f.DB, "Banner", true)

	for i := 0; i < 10; i++ {
		contract := createContract(t, f, company, contact)
		cancelled := domain.ContractStatusCancelled

		var addErr error
		var g errgroup.Group
		g.Go(func() error {
			_, addErr = f.Engine.Contracts.AddProduct(ctx, contract.ID, domain.ProductInstanceParams{
				ProductID: product.ID,
				BasePrice: testutil.Price(100),
			})
			return nil
		})
		g.Go(func() error {
			_, err := f.Engine.Contracts.Update(ctx, contract.ID, domain.ContractUpdate{Status: &cancelled})
			return err
		})
		require.NoError(t, g.Wait())
		if addErr != nil {
			requireCode(t, addErr, domain.CodeIllegalTransition, domain.RuleContractNotOpen)
		}

		reloaded, err := f.Engine.Contracts.Get(ctx, contract.ID)
		require.NoError(t, err)
		assert.Empty(t, lifecycle.AuditContract(reloaded))
		assert.Equal(t, domain.ContractStatusCancelled, lifecycle.CurrentStatusOf(domain.OwnerContract, reloaded.Activities))
		if addErr != nil {
			assert.Empty(t, reloaded.Products)
			continue
		}
		// The add committed first: the product was attached while the contract was open
		assert.Len(t, reloaded.Products, 1)
		added, cancelledAt := -1, -1
		for j, a := range reloaded.Activities {
			switch {
			case a.Kind == domain.ActivityAddProduct:
				added = j
			case a.SubKind == domain.ContractStatusCancelled:
				cancelledAt = j
			}
		}
		require.NotEqual(t, -1, added)
		assert.Less(t, added, cancelledAt)
	}
}

func TestContractService_UpdateProduct(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")
	product := testutil.CreateTestProduct(t, f.DB, "Banner", true)
	contract := createContract(t, f, company, contact)
	instance := addProduct(t, f, contract, product)

	price := testutil.Price(750)
	updated, err := f.Engine.Contracts.UpdateProduct(ctx, contract.ID, instance.ID, domain.ProductInstanceUpdate{BasePrice: &price})
	require.NoError(t, err)

	assert.True(t, price.Equal(updated.BasePrice))
	require.Len(t, updated.Activities, 2)
	assert.Equal(t, `Changed basePrice from "500.00" to "750.00"`, updated.Activities[1].Description)

	other := createContract(t, f, company, contact)
	_, err = f.Engine.Contracts.UpdateProduct(ctx, other.ID, instance.ID, domain.ProductInstanceUpdate{BasePrice: &price})
	requireCode(t, err, domain.CodeInvalidRelation, domain.RuleInstanceNotOnContract)
}

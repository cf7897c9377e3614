package services

import (
	"context"
	"testing"

	"github.com/diewo77/invoicebook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompany_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")

	c, err := f.companies.Create(ctx, u.ID, CompanyInput{Name: "  Globex  "})
	require.NoError(t, err)
	assert.Equal(t, "Globex", c.Name)
	assert.Equal(t, "GLO", c.InvoicePrefix)
	assert.Equal(t, 0, c.InvoiceCount)
	assert.True(t, c.TotalRevenue.IsZero())

	c, err = f.companies.Create(ctx, u.ID, CompanyInput{Name: "Initech", InvoicePrefix: "in-tech-2024", StartingInvoiceNumber: 42})
	require.NoError(t, err)
	assert.Equal(t, "INTECH", c.InvoicePrefix)
	assert.Equal(t, 41, c.InvoiceCount)

	next, err := f.companies.NextInvoiceNumber(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "INTECH042", next)

	_, err = f.companies.Create(ctx, u.ID, CompanyInput{Name: " "})
	assert.True(t, IsValidation(err))
	_, err = f.companies.Create(ctx, u.ID, CompanyInput{Name: "X", StartingInvoiceNumber: -3})
	assert.True(t, IsValidation(err))
}

func TestCompany_NextInvoiceNumberSkipsUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c := f.seedCompany(t, u.ID, "Acme")

	_, err := f.invoices.Create(ctx, u.ID, CreateInvoiceInput{CompanyID: c.ID, InvoiceNumber: "ACM002", LineItems: []LineItemInput{item(1, "1")}})
	require.NoError(t, err)

	// count is now 1, so ACM002 would be proposed but is taken.
	next, err := f.companies.NextInvoiceNumber(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACM003", next)
}

func TestCompany_UpdateLeavesLedgerAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c := f.seedCompany(t, u.ID, "Acme")
	_, err := f.invoices.Create(ctx, u.ID, CreateInvoiceInput{CompanyID: c.ID, InvoiceNumber: "A1", Status: models.InvoiceStatusPaid, LineItems: []LineItemInput{item(1, "30")}})
	require.NoError(t, err)

	updated, err := f.companies.Update(ctx, u.ID, c.ID, CompanyInput{Name: "Acme Two", ContactPerson: "Ann", InvoicePrefix: "ac2"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Two", updated.Name)
	assert.Equal(t, "Ann", updated.ContactPerson)
	assert.Equal(t, "AC2", updated.InvoicePrefix)
	assertLedger(t, f, c.ID, 1, "30")

	other := seedUser(t, f.db, "other@example.com")
	_, err = f.companies.Update(ctx, other.ID, c.ID, CompanyInput{Name: "Hijack"})
	assert.True(t, IsNotFound(err))
}

func TestCompany_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c := f.seedCompany(t, u.ID, "Acme")
	keep := f.seedCompany(t, u.ID, "Keep")
	inv, err := f.invoices.Create(ctx, u.ID, CreateInvoiceInput{CompanyID: c.ID, InvoiceNumber: "A1", LineItems: []LineItemInput{item(1, "1"), item(2, "2")}})
	require.NoError(t, err)
	_, err = f.invoices.Create(ctx, u.ID, CreateInvoiceInput{CompanyID: keep.ID, InvoiceNumber: "K1", LineItems: []LineItemInput{item(1, "1")}})
	require.NoError(t, err)

	other := seedUser(t, f.db, "other@example.com")
	assert.True(t, IsNotFound(f.companies.Delete(ctx, other.ID, c.ID)))

	require.NoError(t, f.companies.Delete(ctx, u.ID, c.ID))
	_, err = f.companies.Get(ctx, u.ID, c.ID)
	assert.True(t, IsNotFound(err))
	_, err = f.invoices.Get(ctx, u.ID, inv.ID)
	assert.True(t, IsNotFound(err))

	var items int64
	f.db.Model(&models.LineItem{}).Count(&items)
	assert.Equal(t, int64(1), items)

	list, err := f.companies.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Keep", list[0].Name)
}

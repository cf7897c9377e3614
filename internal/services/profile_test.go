package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/invoicebook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_DefaultAndUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")

	p, err := f.profiles.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultFooterText, p.FooterText)
	assert.Empty(t, p.ID)

	p, err = f.profiles.UpsertProfile(ctx, u.ID, ProfileInput{BusinessName: "Solo Ltd", ContactEmail: "me@solo.test"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultFooterText, p.FooterText)
	firstID := p.ID

	p, err = f.profiles.UpsertProfile(ctx, u.ID, ProfileInput{BusinessName: "Solo Ltd", FooterText: "Pay within 30 days"})
	require.NoError(t, err)
	assert.Equal(t, firstID, p.ID)
	assert.Equal(t, "Pay within 30 days", p.FooterText)

	var n int64
	f.db.Model(&models.UserProfile{}).Where("user_id = ?", u.ID).Count(&n)
	assert.Equal(t, int64(1), n)

	require.NoError(t, f.profiles.EnsureProfile(ctx, u.ID, "ignored", "ignored"))
	p, err = f.profiles.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pay within 30 days", p.FooterText)
}

func defaultIDs(t *testing.T, f *fixture, ownerID string) []string {
	t.Helper()
	list, err := f.profiles.ListBanking(context.Background(), ownerID)
	require.NoError(t, err)
	var ids []string
	for _, b := range list {
		if b.IsDefault {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func TestBanking_SingleDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")

	_, err := f.profiles.CreateBanking(ctx, u.ID, BankingInput{BankName: "First"})
	assert.True(t, IsValidation(err))

	a, err := f.profiles.CreateBanking(ctx, u.ID, BankingInput{BankName: "First Bank", AccountNumber: "111"})
	require.NoError(t, err)
	assert.True(t, a.IsDefault, "first account becomes default")
	assert.Equal(t, "First Bank", a.Name)

	time.Sleep(2 * time.Millisecond)
	b, err := f.profiles.CreateBanking(ctx, u.ID, BankingInput{Name: "Savings", BankName: "Second Bank", AccountNumber: "222"})
	require.NoError(t, err)
	assert.False(t, b.IsDefault)
	assert.Equal(t, []string{a.ID}, defaultIDs(t, f, u.ID))

	time.Sleep(2 * time.Millisecond)
	c, err := f.profiles.CreateBanking(ctx, u.ID, BankingInput{BankName: "Third", AccountNumber: "333", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, defaultIDs(t, f, u.ID))

	_, err = f.profiles.SetDefaultBanking(ctx, u.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, defaultIDs(t, f, u.ID))

	_, err = f.profiles.UpdateBanking(ctx, u.ID, a.ID, BankingInput{BankName: "First Bank", AccountNumber: "111-9", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, defaultIDs(t, f, u.ID))

	def, err := f.profiles.DefaultBanking(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "111-9", def.AccountNumber)

	// Deleting the default promotes the oldest remaining detail.
	require.NoError(t, f.profiles.DeleteBanking(ctx, u.ID, a.ID))
	assert.Equal(t, []string{b.ID}, defaultIDs(t, f, u.ID))

	other := seedUser(t, f.db, "other@example.com")
	assert.True(t, IsNotFound(f.profiles.DeleteBanking(ctx, other.ID, b.ID)))
	_, err = f.profiles.SetDefaultBanking(ctx, other.ID, c.ID)
	assert.True(t, IsNotFound(err))
	none, err := f.profiles.DefaultBanking(ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRenderData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c := f.seedCompany(t, u.ID, "Acme")
	inv, err := f.invoices.Create(ctx, u.ID, CreateInvoiceInput{CompanyID: c.ID, InvoiceNumber: "A1", LineItems: []LineItemInput{item(2, "5")}})
	require.NoError(t, err)

	data, err := f.render.RenderData(ctx, u.ID, inv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "A1", data.Invoice.InvoiceNumber)
	assert.Equal(t, "Acme", data.Invoice.CompanyName)
	assert.Equal(t, models.DefaultFooterText, data.FooterText)
	assert.Nil(t, data.Banking)

	def, err := f.profiles.CreateBanking(ctx, u.ID, BankingInput{BankName: "Main", AccountNumber: "1"})
	require.NoError(t, err)
	alt, err := f.profiles.CreateBanking(ctx, u.ID, BankingInput{BankName: "Alt", AccountNumber: "2"})
	require.NoError(t, err)

	data, err = f.render.RenderData(ctx, u.ID, inv.ID, "")
	require.NoError(t, err)
	require.NotNil(t, data.Banking)
	assert.Equal(t, def.ID, data.Banking.ID)

	data, err = f.render.RenderData(ctx, u.ID, inv.ID, alt.ID)
	require.NoError(t, err)
	assert.Equal(t, alt.ID, data.Banking.ID)

	_, err = f.render.RenderData(ctx, u.ID, inv.ID, "missing")
	assert.True(t, IsNotFound(err))
	other := seedUser(t, f.db, "other@example.com")
	_, err = f.render.RenderData(ctx, other.ID, inv.ID, "")
	assert.True(t, IsNotFound(err))
}

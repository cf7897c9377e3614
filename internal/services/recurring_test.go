package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGenerateDates(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		freq  Frequency
		count int
		want  []time.Time
	}{
		{"monthly overflow", day(2024, 1, 31), FrequencyMonthly, 3, []time.Time{day(2024, 1, 31), day(2024, 3, 2), day(2024, 3, 31)}},
		{"weekly", day(2024, 2, 26), FrequencyWeekly, 3, []time.Time{day(2024, 2, 26), day(2024, 3, 4), day(2024, 3, 11)}},
		{"quarterly", day(2024, 1, 15), FrequencyQuarterly, 4, []time.Time{day(2024, 1, 15), day(2024, 4, 15), day(2024, 7, 15), day(2024, 10, 15)}},
		{"yearly leap day", day(2024, 2, 29), FrequencyYearly, 2, []time.Time{day(2024, 2, 29), day(2025, 3, 1)}},
		{"single", day(2024, 5, 5), FrequencyMonthly, 1, []time.Time{day(2024, 5, 5)}},
		{"zero", day(2024, 5, 5), FrequencyMonthly, 0, []time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateDates(tt.start, tt.freq, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateDatesErrors(t *testing.T) {
	_, err := GenerateDates(day(2024, 1, 1), FrequencyMonthly, -1)
	assert.True(t, IsValidation(err))
	_, err = GenerateDates(day(2024, 1, 1), "daily", 3)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, validation.CodeInvalid, ve.Fields["frequency"])
}

func TestRecurring_SixMonthly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c, err := f.companies.Create(ctx, u.ID, CompanyInput{Name: "Acme", StartingInvoiceNumber: 5})
	require.NoError(t, err)

	res, err := f.recurring.Create(ctx, u.ID, RecurringInput{
		CompanyID: c.ID,
		Frequency: "Monthly",
		StartDate: day(2024, 1, 15),
		Count:     6,
		Notes:     "retainer",
		LineItems: []LineItemInput{item(10, "50")},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Requested)
	assert.Equal(t, 6, res.Created)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Invoices, 6)

	numbers := map[string]bool{}
	for i, inv := range res.Invoices {
		want := day(2024, time.Month(1+i), 15)
		assert.Equal(t, want, inv.InvoiceDate.UTC())
		assert.Equal(t, want.AddDate(0, 0, DefaultDueInDays), inv.DueDate.UTC())
		assert.True(t, inv.TotalAmount.Equal(dec("500")))
		assert.Equal(t, models.InvoiceStatusPending, inv.Status)
		assert.Equal(t, "retainer", inv.Notes)
		numbers[inv.InvoiceNumber] = true
	}
	assert.Len(t, numbers, 6)
	assert.Equal(t, "ACM005", res.Invoices[0].InvoiceNumber)
	assert.Equal(t, "ACM010", res.Invoices[5].InvoiceNumber)
	assertLedger(t, f, c.ID, 4+6, "0")
}

func TestRecurring_PartialFailureKeepsEarlierOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c := f.seedCompany(t, u.ID, "Acme")

	inserts := 0
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_third_invoice", func(tx *gorm.DB) {
		if tx.Statement.Table == "invoices" {
			inserts++
			if inserts == 3 {
				_ = tx.AddError(errors.New("disk full"))
			}
		}
	})
	require.NoError(t, err)

	res, err := f.recurring.Create(ctx, u.ID, RecurringInput{
		CompanyID: c.ID, Frequency: FrequencyWeekly, StartDate: day(2024, 1, 1), Count: 5, DueInDays: 14,
		LineItems: []LineItemInput{item(1, "100")},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Requested)
	assert.Equal(t, 4, res.Created)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Equal(t, day(2024, 1, 15), res.Failures[0].Date)
	assert.Contains(t, res.Failures[0].Error, "disk full")
	assert.Equal(t, day(2024, 1, 15), res.Invoices[0].DueDate.UTC())
	assertLedger(t, f, c.ID, 4, "0")

	var n int64
	f.db.Model(&models.Invoice{}).Where("company_id = ?", c.ID).Count(&n)
	assert.Equal(t, int64(4), n)
}

func TestRecurring_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, "owner@example.com")
	c := f.seedCompany(t, u.ID, "Acme")
	other := seedUser(t, f.db, "other@example.com")

	base := RecurringInput{CompanyID: c.ID, Frequency: FrequencyMonthly, StartDate: day(2024, 1, 1), Count: 2, LineItems: []LineItemInput{item(1, "1")}}

	tooMany := base
	tooMany.Count = DefaultMaxRecurrences + 1
	_, err := f.recurring.Create(ctx, u.ID, tooMany)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, validation.CodeOutOfRange, ve.Fields["count"])

	none := base
	none.Count = 0
	_, err = f.recurring.Create(ctx, u.ID, none)
	assert.True(t, IsValidation(err))

	noStart := base
	noStart.StartDate = time.Time{}
	_, err = f.recurring.Create(ctx, u.ID, noStart)
	assert.True(t, IsValidation(err))

	badFreq := base
	badFreq.Frequency = "fortnightly"
	_, err = f.recurring.Create(ctx, u.ID, badFreq)
	assert.True(t, IsValidation(err))

	_, err = f.recurring.Create(ctx, other.ID, base)
	assert.True(t, IsNotFound(err))

	assertLedger(t, f, c.ID, 0, "0")
}

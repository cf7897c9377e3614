package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/invoicebook/internal/db/dbtest"
	"github.com/diewo77/invoicebook/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	ledger    *Ledger
	invoices  *InvoiceService
	companies *CompanyService
	recurring *RecurringService
	profiles  *ProfileService
	render    *RenderService
	dashboard *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	log := zap.NewNop()
	ledger := NewLedger(conn, log, nil)
	invoices := NewInvoiceService(conn, ledger, log, nil, InvoiceOptions{CacheTTL: time.Minute})
	companies := NewCompanyService(conn, log, invoices)
	profiles := NewProfileService(conn, log)
	return &fixture{
		db:        conn,
		ledger:    ledger,
		invoices:  invoices,
		companies: companies,
		recurring: NewRecurringService(invoices, companies, log, nil, 0, 0),
		profiles:  profiles,
		render:    NewRenderService(invoices, profiles),
		dashboard: NewDashboardService(conn),
	}
}

func seedUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "Test", Password: "x"}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (f *fixture) seedCompany(t *testing.T, ownerID, name string) *models.Company {
	t.Helper()
	c, err := f.companies.Create(context.Background(), ownerID, CompanyInput{Name: name})
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return c
}

func (f *fixture) reloadCompany(t *testing.T, id string) *models.Company {
	t.Helper()
	var c models.Company
	if err := f.db.First(&c, "id = ?", id).Error; err != nil {
		t.Fatalf("reload company: %v", err)
	}
	return &c
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(qty int, rate string) LineItemInput {
	return LineItemInput{Description: "Consulting", Quantity: qty, Rate: dec(rate)}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

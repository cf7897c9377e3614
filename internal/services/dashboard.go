package services

import (
	"context"
	"sort"
	"time"

	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const topCompanies = 10

// RevenueFilter selects the invoices summarised by the dashboard.
type RevenueFilter struct {
	Year      int    // 0 means the current year
	Month     int    // 1-12, 0 means the whole year
	CompanyID string // empty means every company
}

type MonthBucket struct {
	Month       int             `json:"month"`
	Label       string          `json:"label"`
	Revenue     decimal.Decimal `json:"revenue"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type CompanyRevenue struct {
	CompanyID string          `json:"company_id"`
	Name      string          `json:"name"`
	Revenue   decimal.Decimal `json:"revenue"`
	Invoices  int             `json:"invoices"`
}

// RevenueSummary aggregates invoice totals for one year.
type RevenueSummary struct {
	Year               int                                      `json:"year"`
	Month              int                                      `json:"month,omitempty"`
	Years              []int                                    `json:"years"`
	TotalRevenue       decimal.Decimal                          `json:"total_revenue"`
	PaidAmount         decimal.Decimal                          `json:"paid_amount"`
	PaidCount          int                                      `json:"paid_count"`
	OutstandingAmount  decimal.Decimal                          `json:"outstanding_amount"`
	OutstandingCount   int                                      `json:"outstanding_count"`
	AverageMonthly     decimal.Decimal                          `json:"average_monthly"`
	Monthly            []MonthBucket                            `json:"monthly"`
	TopCompanies       []CompanyRevenue                         `json:"top_companies"`
	StatusDistribution map[models.InvoiceStatus]decimal.Decimal `json:"status_distribution"`
}

// DashboardService computes revenue summaries.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, now: time.Now}
}

// Revenue summarises the owner's invoices dated within the filter. Unpaid
// invoices count as outstanding; pending invoices past due are reported as overdue.
func (s *DashboardService) Revenue(ctx context.Context, ownerID string, f RevenueFilter) (*RevenueSummary, error) {
	now := s.now()
	if f.Year == 0 {
		f.Year = now.Year()
	}
	v := validation.Violations{}
	validation.RangeInt("month", f.Month, 0, 12, v)
	validation.RangeInt("year", f.Year, 1900, 9999, v)
	if err := validationErr(v); err != nil {
		return nil, err
	}

	from := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if f.Month > 0 {
		from = time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}

	q := s.db.WithContext(ctx).Joins("Company").
		Where("invoices.user_id = ? AND invoices.invoice_date >= ? AND invoices.invoice_date < ?", ownerID, from, to)
	if f.CompanyID != "" {
		q = q.Where("invoices.company_id = ?", f.CompanyID)
	}
	var invs []models.Invoice
	if err := q.Find(&invs).Error; err != nil {
		return nil, persist("load dashboard invoices", err)
	}

	years, err := s.years(ctx, ownerID, now.Year())
	if err != nil {
		return nil, err
	}

	sum := &RevenueSummary{
		Year:              f.Year,
		Month:             f.Month,
		Years:             years,
		TotalRevenue:      decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
		AverageMonthly:    decimal.Zero,
		Monthly:           make([]MonthBucket, 12),
		TopCompanies:      []CompanyRevenue{},
		StatusDistribution: map[models.InvoiceStatus]decimal.Decimal{
			models.InvoiceStatusPaid:    decimal.Zero,
			models.InvoiceStatusPending: decimal.Zero,
			models.InvoiceStatusOverdue: decimal.Zero,
		},
	}
	for i := range sum.Monthly {
		sum.Monthly[i] = MonthBucket{
			Month:       i + 1,
			Label:       time.Month(i + 1).String()[:3],
			Revenue:     decimal.Zero,
			Paid:        decimal.Zero,
			Outstanding: decimal.Zero,
		}
	}

	byCompany := map[string]*CompanyRevenue{}
	activeMonths := map[int]bool{}
	for i := range invs {
		inv := &invs[i]
		amount := inv.TotalAmount
		bucket := &sum.Monthly[inv.InvoiceDate.Month()-1]
		activeMonths[bucket.Month] = true

		sum.TotalRevenue = sum.TotalRevenue.Add(amount)
		bucket.Revenue = bucket.Revenue.Add(amount)
		if inv.IsPaid() {
			sum.PaidAmount = sum.PaidAmount.Add(amount)
			sum.PaidCount++
			bucket.Paid = bucket.Paid.Add(amount)
		} else {
			sum.OutstandingAmount = sum.OutstandingAmount.Add(amount)
			sum.OutstandingCount++
			bucket.Outstanding = bucket.Outstanding.Add(amount)
		}
		status := inv.DisplayStatus(now)
		sum.StatusDistribution[status] = sum.StatusDistribution[status].Add(amount)

		cr, ok := byCompany[inv.CompanyID]
		if !ok {
			cr = &CompanyRevenue{CompanyID: inv.CompanyID, Name: "Unknown", Revenue: decimal.Zero}
			if inv.Company != nil {
				cr.Name = inv.Company.Name
			}
			byCompany[inv.CompanyID] = cr
		}
		cr.Revenue = cr.Revenue.Add(amount)
		cr.Invoices++
	}

	if n := len(activeMonths); n > 0 {
		sum.AverageMonthly = sum.TotalRevenue.Div(decimal.NewFromInt(int64(n))).Round(models.MoneyPlaces)
	}
	for _, cr := range byCompany {
		sum.TopCompanies = append(sum.TopCompanies, *cr)
	}
	sort.Slice(sum.TopCompanies, func(i, j int) bool {
		a, b := sum.TopCompanies[i], sum.TopCompanies[j]
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	if len(sum.TopCompanies) > topCompanies {
		sum.TopCompanies = sum.TopCompanies[:topCompanies]
	}
	return sum, nil
}

// years lists the distinct invoice years of the owner plus the current year, newest first.
func (s *DashboardService) years(ctx context.Context, ownerID string, current int) ([]int, error) {
	var dates []time.Time
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("user_id = ?", ownerID).
		Pluck("invoice_date", &dates).Error
	if err != nil {
		return nil, persist("load invoice years", err)
	}
	seen := map[int]bool{current: true}
	for _, d := range dates {
		seen[d.Year()] = true
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}

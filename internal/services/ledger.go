package services

import (
	"context"
	"time"

	"github.com/diewo77/invoicebook/internal/metrics"
	"github.com/diewo77/invoicebook/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger keeps Company.InvoiceCount and Company.TotalRevenue consistent with
// the company's invoices. Every hook takes the caller's transaction; updates
// are single atomic SQL statements scoped to (company, owner), and a scope
// that matches nothing is a silent no-op.
type Ledger struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewLedger(db *gorm.DB, log *zap.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{db: db, log: log.Named("ledger"), metrics: m}
}

// Drift describes a company whose stored revenue was repaired.
type Drift struct {
	CompanyID   string          `json:"company_id"`
	CompanyName string          `json:"company_name"`
	UserID      string          `json:"user_id"`
	Stored      decimal.Decimal `json:"stored"`
	Actual      decimal.Decimal `json:"actual"`
}

func (l *Ledger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = l.db
	}
	return tx.WithContext(ctx)
}

func (l *Ledger) adjust(ctx context.Context, tx *gorm.DB, event, companyID, ownerID string, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	res := l.conn(ctx, tx).Model(&models.Company{}).
		Where("id = ? AND user_id = ?", companyID, ownerID).
		UpdateColumns(cols)
	if res.Error != nil {
		return persist("ledger "+event, res.Error)
	}
	if res.RowsAffected == 0 {
		l.log.Debug("ledger scope matched no company", zap.String("event", event), zap.String("company_id", companyID))
		return nil
	}
	l.metrics.LedgerEvent(event)
	return nil
}

// OnInvoiceCreated counts a new invoice and books its total when it is created as paid.
func (l *Ledger) OnInvoiceCreated(ctx context.Context, tx *gorm.DB, companyID, ownerID string, total decimal.Decimal, status models.InvoiceStatus) error {
	cols := map[string]any{"invoice_count": gorm.Expr("invoice_count + ?", 1)}
	if status.IsPaid() {
		cols["total_revenue"] = gorm.Expr("total_revenue + ?", total)
	}
	return l.adjust(ctx, tx, metrics.LedgerCreated, companyID, ownerID, cols)
}

// OnInvoiceDeleted uncounts an invoice and reverses its revenue if it was paid.
func (l *Ledger) OnInvoiceDeleted(ctx context.Context, tx *gorm.DB, companyID, ownerID string, total decimal.Decimal, status models.InvoiceStatus) error {
	cols := map[string]any{"invoice_count": gorm.Expr("invoice_count - ?", 1)}
	if status.IsPaid() {
		cols["total_revenue"] = gorm.Expr("total_revenue - ?", total)
	}
	return l.adjust(ctx, tx, metrics.LedgerDeleted, companyID, ownerID, cols)
}

// OnStatusChanged moves total in or out of revenue when paid-ness flips.
func (l *Ledger) OnStatusChanged(ctx context.Context, tx *gorm.DB, companyID, ownerID string, total decimal.Decimal, from, to models.InvoiceStatus) error {
	var expr clause.Expr
	switch {
	case !from.IsPaid() && to.IsPaid():
		expr = gorm.Expr("total_revenue + ?", total)
	case from.IsPaid() && !to.IsPaid():
		expr = gorm.Expr("total_revenue - ?", total)
	default:
		return nil
	}
	return l.adjust(ctx, tx, metrics.LedgerStatusChanged, companyID, ownerID, map[string]any{"total_revenue": expr})
}

// PaidTotal sums the totals of the company's paid invoices.
func (l *Ledger) PaidTotal(ctx context.Context, tx *gorm.DB, companyID, ownerID string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := l.conn(ctx, tx).Model(&models.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("company_id = ? AND user_id = ? AND status = ?", companyID, ownerID, models.InvoiceStatusPaid).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, persist("sum paid invoices", err)
	}
	return sum.Decimal.Round(models.MoneyPlaces), nil
}

// RecomputeRevenue overwrites total_revenue with the sum of paid invoices.
func (l *Ledger) RecomputeRevenue(ctx context.Context, tx *gorm.DB, companyID, ownerID string) (decimal.Decimal, error) {
	sum, err := l.PaidTotal(ctx, tx, companyID, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, l.adjust(ctx, tx, metrics.LedgerRecomputed, companyID, ownerID, map[string]any{"total_revenue": sum})
}

// Reconcile recomputes revenue for every company of ownerID (all owners when
// empty) and reports the companies whose stored value was wrong.
func (l *Ledger) Reconcile(ctx context.Context, ownerID string) ([]Drift, error) {
	q := l.db.WithContext(ctx).Order("user_id, name")
	if ownerID != "" {
		q = q.Where("user_id = ?", ownerID)
	}
	var companies []models.Company
	if err := q.Find(&companies).Error; err != nil {
		return nil, persist("list companies", err)
	}

	var drifts []Drift
	for _, c := range companies {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			actual, err := l.PaidTotal(ctx, tx, c.ID, c.UserID)
			if err != nil {
				return err
			}
			if actual.Equal(c.TotalRevenue) {
				return nil
			}
			if err := l.adjust(ctx, tx, metrics.LedgerRecomputed, c.ID, c.UserID, map[string]any{"total_revenue": actual}); err != nil {
				return err
			}
			drifts = append(drifts, Drift{CompanyID: c.ID, CompanyName: c.Name, UserID: c.UserID, Stored: c.TotalRevenue, Actual: actual})
			l.metrics.ReconcileDrift()
			l.log.Warn("company revenue drift repaired",
				zap.String("company_id", c.ID),
				zap.String("stored", c.TotalRevenue.String()),
				zap.String("actual", actual.String()))
			return nil
		})
		if err != nil {
			return drifts, err
		}
	}
	return drifts, nil
}

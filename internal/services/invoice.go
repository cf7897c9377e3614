package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/invoicebook/internal/cache"
	"github.com/diewo77/invoicebook/internal/metrics"
	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultDueInDays is the payment term applied when no due date is given.
const DefaultDueInDays = 30

// LineItemInput is a line as submitted by a client.
type LineItemInput struct {
	Description string
	Quantity    int
	Rate        decimal.Decimal
}

// CreateInvoiceInput describes a new invoice.
type CreateInvoiceInput struct {
	CompanyID     string
	InvoiceNumber string
	InvoiceDate   time.Time // zero means today
	DueDate       time.Time // zero means InvoiceDate + due days
	Status        models.InvoiceStatus
	Notes         string
	LineItems     []LineItemInput
}

// InvoicePatch is a partial update. Nil fields keep their stored value and a
// nil LineItems keeps the stored lines; a non-nil slice replaces them.
type InvoicePatch struct {
	InvoiceNumber *string
	InvoiceDate   *time.Time
	DueDate       *time.Time
	Status        *models.InvoiceStatus
	Notes         *string
	LineItems     []LineItemInput
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	CompanyID string
	Status    models.InvoiceStatus
}

// InvoiceDetail is an invoice with its lines and the billed company's contact fields.
type InvoiceDetail struct {
	models.Invoice
	DisplayStatus        models.InvoiceStatus `json:"display_status"`
	CompanyName          string               `json:"company_name"`
	CompanyEmail         string               `json:"company_email"`
	CompanyAddress       string               `json:"company_address"`
	CompanyContactPerson string               `json:"company_contact_person"`
	CompanyPhone         string               `json:"company_phone"`
}

func newInvoiceDetail(inv *models.Invoice) *InvoiceDetail {
	d := &InvoiceDetail{Invoice: *inv}
	if c := inv.Company; c != nil {
		d.CompanyName = c.Name
		d.CompanyEmail = c.Email
		d.CompanyAddress = c.Address
		d.CompanyContactPerson = c.ContactPerson
		d.CompanyPhone = c.Phone
	}
	d.Company = nil
	if d.LineItems == nil {
		d.LineItems = []models.LineItem{}
	}
	return d
}

func (d *InvoiceDetail) clone(now time.Time) *InvoiceDetail {
	out := *d
	out.LineItems = append([]models.LineItem(nil), d.LineItems...)
	out.DisplayStatus = out.Invoice.DisplayStatus(now)
	return &out
}

type invoiceKey struct {
	owner string
	id    string
}

// InvoiceOptions tunes an InvoiceService.
type InvoiceOptions struct {
	CacheTTL  time.Duration
	DueInDays int
}

// InvoiceService stores invoices and their line items and keeps the company
// ledger in step inside the same transaction.
type InvoiceService struct {
	db        *gorm.DB
	ledger    *Ledger
	log       *zap.Logger
	metrics   *metrics.Metrics
	cache     *cache.Cache[invoiceKey, *InvoiceDetail]
	dueInDays int
	now       func() time.Time
}

func NewInvoiceService(db *gorm.DB, ledger *Ledger, log *zap.Logger, m *metrics.Metrics, opts InvoiceOptions) *InvoiceService {
	if opts.DueInDays <= 0 {
		opts.DueInDays = DefaultDueInDays
	}
	s := &InvoiceService{
		db:        db,
		ledger:    ledger,
		log:       log.Named("invoice.service"),
		metrics:   m,
		dueInDays: opts.DueInDays,
		now:       time.Now,
	}
	s.cache = cache.New[invoiceKey, *InvoiceDetail](s.loadDetail, opts.CacheTTL)
	return s
}

// InvalidateOwner drops the cached invoices of one user.
func (s *InvoiceService) InvalidateOwner(ownerID string) {
	s.cache.InvalidateFunc(func(k invoiceKey) bool { return k.owner == ownerID })
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// buildLineItems validates lines and computes their amounts.
func buildLineItems(in []LineItemInput, v validation.Violations) []models.LineItem {
	if len(in) == 0 {
		v.Add("line_items", validation.CodeRequired)
		return nil
	}
	items := make([]models.LineItem, len(in))
	for i, li := range in {
		validation.PositiveInt(fmt.Sprintf("line_items[%d].quantity", i), li.Quantity, v)
		rateField := fmt.Sprintf("line_items[%d].rate", i)
		validation.NonNegativeDecimal(rateField, li.Rate, v)
		validation.MaxDecimals(rateField, li.Rate, models.MoneyPlaces, v)
		items[i] = models.LineItem{
			Description: strings.TrimSpace(li.Description),
			Quantity:    li.Quantity,
			Rate:        li.Rate.Round(models.MoneyPlaces),
			Position:    i,
		}
		items[i].Amount = items[i].ComputeAmount()
	}
	return items
}

func (s *InvoiceService) build(ownerID string, in CreateInvoiceInput) (*models.Invoice, error) {
	v := validation.Violations{}
	validation.Required("company_id", in.CompanyID, v)
	validation.Required("invoice_number", in.InvoiceNumber, v)
	if in.Status == "" {
		in.Status = models.InvoiceStatusPending
	}
	validation.OneOf("status", in.Status, models.InvoiceStatuses, v)
	items := buildLineItems(in.LineItems, v)
	if err := validationErr(v); err != nil {
		return nil, err
	}

	invoiceDate := in.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = s.now()
	}
	invoiceDate = dateOnly(invoiceDate)
	dueDate := in.DueDate
	if dueDate.IsZero() {
		dueDate = invoiceDate.AddDate(0, 0, s.dueInDays)
	}

	return &models.Invoice{
		UserID:        ownerID,
		CompanyID:     in.CompanyID,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		InvoiceDate:   invoiceDate,
		DueDate:       dateOnly(dueDate),
		Status:        in.Status,
		Notes:         in.Notes,
		TotalAmount:   models.CalculateTotal(items),
		LineItems:     items,
	}, nil
}

// ensureNumberFree rejects a number already used by another invoice of the company.
func ensureNumberFree(tx *gorm.DB, companyID, number, exceptID string) error {
	q := tx.Model(&models.Invoice{}).Where("company_id = ? AND invoice_number = ?", companyID, number)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return persist("check invoice number", err)
	}
	if n > 0 {
		return invalid("invoice_number", validation.CodeAlreadyExists)
	}
	return nil
}

func findInvoice(tx *gorm.DB, ownerID, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("invoice")
	}
	if err != nil {
		return nil, persist("load invoice", err)
	}
	return &inv, nil
}

func replaceLineItems(tx *gorm.DB, invoiceID string, items []models.LineItem) error {
	if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.LineItem{}).Error; err != nil {
		return persist("delete line items", err)
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	if len(items) == 0 {
		return nil
	}
	if err := tx.Create(&items).Error; err != nil {
		return persist("create line items", err)
	}
	return nil
}

// Create stores the invoice with its lines and counts it in the company ledger.
func (s *InvoiceService) Create(ctx context.Context, ownerID string, in CreateInvoiceInput) (*InvoiceDetail, error) {
	inv, err := s.build(ownerID, in)
	if err == nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := findCompany(tx, ownerID, inv.CompanyID); err != nil {
				return err
			}
			if err := ensureNumberFree(tx, inv.CompanyID, inv.InvoiceNumber, ""); err != nil {
				return err
			}
			items := inv.LineItems
			if err := tx.Omit("LineItems").Create(inv).Error; err != nil {
				return persist("create invoice", err)
			}
			if err := replaceLineItems(tx, inv.ID, items); err != nil {
				return err
			}
			return s.ledger.OnInvoiceCreated(ctx, tx, inv.CompanyID, ownerID, inv.TotalAmount, inv.Status)
		})
	}
	s.metrics.InvoiceOp(metrics.OpCreate, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("company_id", inv.CompanyID),
		zap.String("number", inv.InvoiceNumber),
		zap.String("total", inv.TotalAmount.String()))
	return s.Get(ctx, ownerID, inv.ID)
}

// Get returns the invoice with its lines and company fields.
func (s *InvoiceService) Get(ctx context.Context, ownerID, id string) (*InvoiceDetail, error) {
	d, err := s.cache.Get(ctx, invoiceKey{owner: ownerID, id: id})
	if err != nil {
		return nil, err
	}
	return d.clone(s.now()), nil
}

func byPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (s *InvoiceService) loadDetail(ctx context.Context, key invoiceKey) (*InvoiceDetail, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Joins("Company").
		Preload("LineItems", byPosition).
		Where("invoices.id = ? AND invoices.user_id = ?", key.id, key.owner).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("invoice")
	}
	if err != nil {
		return nil, persist("load invoice", err)
	}
	return newInvoiceDetail(&inv), nil
}

// List returns the owner's invoices, newest first.
func (s *InvoiceService) List(ctx context.Context, ownerID string, f ListFilter) ([]*InvoiceDetail, error) {
	q := s.db.WithContext(ctx).
		Joins("Company").
		Preload("LineItems", byPosition).
		Where("invoices.user_id = ?", ownerID)
	if f.CompanyID != "" {
		q = q.Where("invoices.company_id = ?", f.CompanyID)
	}
	if f.Status != "" {
		q = q.Where("invoices.status = ?", f.Status)
	}
	var invs []models.Invoice
	if err := q.Order("invoices.created_at DESC").Find(&invs).Error; err != nil {
		return nil, persist("list invoices", err)
	}
	now := s.now()
	out := make([]*InvoiceDetail, len(invs))
	for i := range invs {
		d := newInvoiceDetail(&invs[i])
		d.DisplayStatus = d.Invoice.DisplayStatus(now)
		out[i] = d
	}
	return out, nil
}

// Update applies a partial update. Replacing the lines recomputes the total
// and rebuilds the company revenue from its paid invoices; a bare status
// change moves the total in or out of revenue.
func (s *InvoiceService) Update(ctx context.Context, ownerID, id string, p InvoicePatch) (*InvoiceDetail, error) {
	err := s.update(ctx, ownerID, id, p)
	s.metrics.InvoiceOp(metrics.OpUpdate, err)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(invoiceKey{owner: ownerID, id: id})
	s.log.Info("invoice updated", zap.String("invoice_id", id), zap.Bool("line_items", p.LineItems != nil))
	return s.Get(ctx, ownerID, id)
}

func (s *InvoiceService) update(ctx context.Context, ownerID, id string, p InvoicePatch) error {
	v := validation.Violations{}
	if p.InvoiceNumber != nil {
		validation.Required("invoice_number", *p.InvoiceNumber, v)
	}
	if p.Status != nil {
		validation.OneOf("status", *p.Status, models.InvoiceStatuses, v)
	}
	var items []models.LineItem
	if p.LineItems != nil {
		items = buildLineItems(p.LineItems, v)
	}
	if err := validationErr(v); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findInvoice(tx, ownerID, id)
		if err != nil {
			return err
		}

		cols := map[string]any{}
		if p.InvoiceNumber != nil {
			number := strings.TrimSpace(*p.InvoiceNumber)
			if number != existing.InvoiceNumber {
				if err := ensureNumberFree(tx, existing.CompanyID, number, existing.ID); err != nil {
					return err
				}
			}
			cols["invoice_number"] = number
		}
		if p.InvoiceDate != nil {
			cols["invoice_date"] = dateOnly(*p.InvoiceDate)
		}
		if p.DueDate != nil {
			cols["due_date"] = dateOnly(*p.DueDate)
		}
		if p.Status != nil {
			cols["status"] = *p.Status
		}
		if p.Notes != nil {
			cols["notes"] = *p.Notes
		}
		if p.LineItems != nil {
			if err := replaceLineItems(tx, existing.ID, items); err != nil {
				return err
			}
			cols["total_amount"] = models.CalculateTotal(items)
		}
		if len(cols) > 0 {
			err := tx.Model(&models.Invoice{}).
				Where("id = ? AND user_id = ?", existing.ID, ownerID).
				Updates(cols).Error
			if err != nil {
				return persist("update invoice", err)
			}
		}

		switch {
		case p.LineItems != nil:
			_, err = s.ledger.RecomputeRevenue(ctx, tx, existing.CompanyID, ownerID)
			return err
		case p.Status != nil && *p.Status != existing.Status:
			return s.ledger.OnStatusChanged(ctx, tx, existing.CompanyID, ownerID, existing.TotalAmount, existing.Status, *p.Status)
		}
		return nil
	})
}

// Delete removes the invoice and its lines and reverses its ledger effect.
func (s *InvoiceService) Delete(ctx context.Context, ownerID, id string) error {
	var existing *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		existing, err = findInvoice(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return persist("delete line items", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Invoice{}).Error; err != nil {
			return persist("delete invoice", err)
		}
		return s.ledger.OnInvoiceDeleted(ctx, tx, existing.CompanyID, ownerID, existing.TotalAmount, existing.Status)
	})
	s.metrics.InvoiceOp(metrics.OpDelete, err)
	if err != nil {
		return err
	}
	s.cache.Invalidate(invoiceKey{owner: ownerID, id: id})
	s.log.Info("invoice deleted", zap.String("invoice_id", id), zap.String("company_id", existing.CompanyID))
	return nil
}

// UpdateStatus persists a new status and adjusts revenue when paid-ness changes.
func (s *InvoiceService) UpdateStatus(ctx context.Context, ownerID, id string, status models.InvoiceStatus) (*InvoiceDetail, error) {
	err := s.updateStatus(ctx, ownerID, id, status)
	s.metrics.InvoiceOp(metrics.OpStatusChange, err)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(invoiceKey{owner: ownerID, id: id})
	s.log.Info("invoice status changed", zap.String("invoice_id", id), zap.String("status", string(status)))
	return s.Get(ctx, ownerID, id)
}

func (s *InvoiceService) updateStatus(ctx context.Context, ownerID, id string, status models.InvoiceStatus) error {
	if !status.Valid() {
		return invalid("status", validation.CodeInvalid)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findInvoice(tx, ownerID, id)
		if err != nil {
			return err
		}
		err = tx.Model(&models.Invoice{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Update("status", status).Error
		if err != nil {
			return persist("update invoice status", err)
		}
		return s.ledger.OnStatusChanged(ctx, tx, existing.CompanyID, ownerID, existing.TotalAmount, existing.Status, status)
	})
}

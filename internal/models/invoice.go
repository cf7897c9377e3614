package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the payment status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// MoneyPlaces is the scale of every persisted amount, matching decimal(18,2).
const MoneyPlaces = 2

// InvoiceStatuses lists every accepted status.
var InvoiceStatuses = []InvoiceStatus{InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue}

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// IsPaid reports whether s counts towards company revenue.
func (s InvoiceStatus) IsPaid() bool { return s == InvoiceStatusPaid }

// ParseInvoiceStatus validates a raw status value.
func ParseInvoiceStatus(raw string) (InvoiceStatus, error) {
	s := InvoiceStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown invoice status %q", raw)
	}
	return s, nil
}

// Invoice is a bill issued to a company.
type Invoice struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"size:36;index;not null" json:"user_id"`

	CompanyID string   `gorm:"size:36;not null;uniqueIndex:idx_invoices_company_number,priority:1" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"-"`

	InvoiceNumber string        `gorm:"size:50;not null;uniqueIndex:idx_invoices_company_number,priority:2" json:"invoice_number"`
	InvoiceDate   time.Time     `gorm:"type:date;not null" json:"invoice_date"`
	DueDate       time.Time     `gorm:"type:date;not null" json:"due_date"`
	Status        InvoiceStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	Notes         string        `gorm:"type:text" json:"notes"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	newID(&i.ID)
	return nil
}

func (i *Invoice) AfterFind(*gorm.DB) error {
	i.TotalAmount = i.TotalAmount.Round(MoneyPlaces)
	return nil
}

// IsPaid reports whether the persisted status is paid.
func (i *Invoice) IsPaid() bool { return i.Status.IsPaid() }

// DisplayStatus projects a pending invoice past its due date as overdue.
// The persisted status is left untouched.
func (i *Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceStatusPending && now.After(i.DueDate) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// LineItem is one billed row of an invoice.
type LineItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	InvoiceID string `gorm:"size:36;index;not null" json:"invoice_id"`

	Description string          `gorm:"type:text" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`

	// Position keeps the submitted order.
	Position int `gorm:"not null;default:0" json:"position"`
}

func (li *LineItem) BeforeCreate(*gorm.DB) error {
	newID(&li.ID)
	return nil
}

// TableName keeps line items namespaced under invoices.
func (LineItem) TableName() string { return "invoice_line_items" }

// AfterFind drops float noise left by drivers without a decimal type.
func (li *LineItem) AfterFind(*gorm.DB) error {
	li.Rate = li.Rate.Round(MoneyPlaces)
	li.Amount = li.Amount.Round(MoneyPlaces)
	return nil
}

// ComputeAmount returns quantity × rate at money scale.
func (li *LineItem) ComputeAmount() decimal.Decimal {
	return li.Rate.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(MoneyPlaces)
}

// CalculateTotal sums quantity × rate over items.
func CalculateTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].ComputeAmount())
	}
	return total
}

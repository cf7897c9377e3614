package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultInvoicePrefix is used when a company name yields no usable letters.
const DefaultInvoicePrefix = "INV"

// MaxInvoicePrefixLen bounds custom prefixes.
const MaxInvoicePrefixLen = 6

// Company is a client company invoiced by its owner. InvoiceCount and
// TotalRevenue are derived aggregates maintained by the ledger.
type Company struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"size:36;index;not null" json:"user_id"`

	Name          string `gorm:"size:255;not null" json:"name"`
	Email         string `gorm:"size:255" json:"email"`
	Address       string `gorm:"type:text" json:"address"`
	ContactPerson string `gorm:"size:255" json:"contact_person"`
	Phone         string `gorm:"size:50" json:"phone"`

	InvoicePrefix string          `gorm:"size:10;not null" json:"invoice_prefix"`
	InvoiceCount  int             `gorm:"not null;default:0" json:"invoice_count"`
	TotalRevenue  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_revenue"`
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// NextInvoiceNumber formats the number following the current count.
func (c *Company) NextInvoiceNumber() string {
	return FormatInvoiceNumber(c.InvoicePrefix, c.InvoiceCount+1)
}

// DefaultPrefix derives a prefix from the first three letters of name.
func DefaultPrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == 3 {
			break
		}
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return DefaultInvoicePrefix
	}
	return b.String()
}

// SanitizePrefix keeps upper-cased ASCII letters and digits, truncated to
// MaxInvoicePrefixLen. It returns "" when nothing usable remains.
func SanitizePrefix(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == MaxInvoicePrefixLen {
				break
			}
		}
	}
	return b.String()
}

// ResolvePrefix returns the sanitized custom prefix, or the default derived from name.
func ResolvePrefix(custom, name string) string {
	if p := SanitizePrefix(custom); p != "" {
		return p
	}
	return DefaultPrefix(name)
}

// FormatInvoiceNumber renders prefix + zero padded sequence, e.g. ACM007.
func FormatInvoiceNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// AfterFind trims float noise some drivers return for summed decimal columns.
func (c *Company) AfterFind(*gorm.DB) error {
	c.TotalRevenue = c.TotalRevenue.Round(MoneyPlaces)
	return nil
}

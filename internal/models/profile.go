package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultFooterText is printed on invoices when the user has not set one.
const DefaultFooterText = "Thank you for your business!"

// UserProfile carries the issuer details printed on invoices. One per user.
type UserProfile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"size:36;uniqueIndex;not null" json:"user_id"`

	BusinessName    string `gorm:"size:255" json:"business_name"`
	BusinessAddress string `gorm:"type:text" json:"business_address"`
	ContactEmail    string `gorm:"size:255" json:"contact_email"`
	ContactPhone    string `gorm:"size:50" json:"contact_phone"`
	Website         string `gorm:"size:255" json:"website"`
	FooterText      string `gorm:"type:text" json:"footer_text"`
}

func (p *UserProfile) BeforeCreate(*gorm.DB) error {
	newID(&p.ID)
	return nil
}

// Footer returns the footer text, falling back to DefaultFooterText.
func (p *UserProfile) Footer() string {
	if p.FooterText == "" {
		return DefaultFooterText
	}
	return p.FooterText
}

// BankingDetail is a payment destination printed on invoices.
type BankingDetail struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"size:36;index;not null" json:"user_id"`

	Name          string `gorm:"size:255" json:"name"`
	AccountHolder string `gorm:"size:255" json:"account_holder"`
	BankName      string `gorm:"size:255" json:"bank_name"`
	AccountNumber string `gorm:"size:100" json:"account_number"`
	AccountType   string `gorm:"size:50" json:"account_type"`
	BranchCode    string `gorm:"size:50" json:"branch_code"`
	SwiftCode     string `gorm:"size:50" json:"swift_code"`
	IsDefault     bool   `gorm:"not null;default:false" json:"is_default"`
}

func (b *BankingDetail) BeforeCreate(*gorm.DB) error {
	newID(&b.ID)
	return nil
}


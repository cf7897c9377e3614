package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  string
	}{
		{"two lines", []LineItem{{Quantity: 20, Rate: dec("75")}, {Quantity: 1, Rate: dec("15")}}, "1515"},
		{"empty", nil, "0"},
		{"fractional rate", []LineItem{{Quantity: 3, Rate: dec("0.1")}}, "0.3"},
		{"zero rate", []LineItem{{Quantity: 5, Rate: decimal.Zero}}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateTotal(tt.items); !got.Equal(dec(tt.want)) {
				t.Errorf("CalculateTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLineItem_ComputeAmount(t *testing.T) {
	li := &LineItem{Quantity: 10, Rate: dec("50")}
	if got := li.ComputeAmount(); !got.Equal(dec("500")) {
		t.Errorf("ComputeAmount() = %s, want 500", got)
	}
}

func TestParseInvoiceStatus(t *testing.T) {
	for _, raw := range []string{"pending", "PAID", " overdue "} {
		if _, err := ParseInvoiceStatus(raw); err != nil {
			t.Errorf("ParseInvoiceStatus(%q) unexpected error: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "draft", "cancelled"} {
		if _, err := ParseInvoiceStatus(raw); err == nil {
			t.Errorf("ParseInvoiceStatus(%q) expected error", raw)
		}
	}
}

func TestInvoice_DisplayStatus(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := due.Add(-time.Hour)
	after := due.AddDate(0, 0, 1)

	tests := []struct {
		status InvoiceStatus
		now    time.Time
		want   InvoiceStatus
	}{
		{InvoiceStatusPending, before, InvoiceStatusPending},
		{InvoiceStatusPending, after, InvoiceStatusOverdue},
		{InvoiceStatusPaid, after, InvoiceStatusPaid},
		{InvoiceStatusOverdue, before, InvoiceStatusOverdue},
	}
	for _, tt := range tests {
		inv := &Invoice{Status: tt.status, DueDate: due}
		if got := inv.DisplayStatus(tt.now); got != tt.want {
			t.Errorf("DisplayStatus(%s at %s) = %s, want %s", tt.status, tt.now, got, tt.want)
		}
		if inv.Status != tt.status {
			t.Errorf("DisplayStatus mutated persisted status to %s", inv.Status)
		}
	}
}

func TestDefaultPrefix(t *testing.T) {
	tests := map[string]string{
		"Acme Corp":  "ACM",
		"a1b2c3d":    "ABC",
		"Xy":         "XY",
		"123 & 456":  "INV",
		"":           "INV",
		"Éclair Ltd": "CLA",
	}
	for name, want := range tests {
		if got := DefaultPrefix(name); got != want {
			t.Errorf("DefaultPrefix(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSanitizePrefix(t *testing.T) {
	tests := map[string]string{
		"inv-":       "INV",
		"abc123xyz9": "ABC123",
		" a b ":      "AB",
		"---":        "",
	}
	for raw, want := range tests {
		if got := SanitizePrefix(raw); got != want {
			t.Errorf("SanitizePrefix(%q) = %q, want %q", raw, got, want)
		}
	}
	if got := ResolvePrefix("--", "Globex"); got != "GLO" {
		t.Errorf("ResolvePrefix fallback = %q, want GLO", got)
	}
}

func TestCompany_NextInvoiceNumber(t *testing.T) {
	c := &Company{InvoicePrefix: "ACM", InvoiceCount: 6}
	if got := c.NextInvoiceNumber(); got != "ACM007" {
		t.Errorf("NextInvoiceNumber() = %q, want ACM007", got)
	}
	if got := FormatInvoiceNumber("INV", 1234); got != "INV1234" {
		t.Errorf("FormatInvoiceNumber() = %q, want INV1234", got)
	}
}

func TestUserProfile_Footer(t *testing.T) {
	if got := (&UserProfile{}).Footer(); got != DefaultFooterText {
		t.Errorf("Footer() = %q", got)
	}
	if got := (&UserProfile{FooterText: "Cheers"}).Footer(); got != "Cheers" {
		t.Errorf("Footer() = %q", got)
	}
}

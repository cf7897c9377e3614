package services

import (
	"context"
	"time"

	"github.com/diewo77/invoicebook/internal/models"
)

// RenderData is everything a PDF or preview renderer needs for one invoice.
type RenderData struct {
	Invoice     *InvoiceDetail        `json:"invoice"`
	Issuer      *models.UserProfile   `json:"issuer"`
	Banking     *models.BankingDetail `json:"banking,omitempty"`
	FooterText  string                `json:"footer_text"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// RenderService assembles RenderData.
type RenderService struct {
	invoices *InvoiceService
	profiles *ProfileService
	now      func() time.Time
}

func NewRenderService(invoices *InvoiceService, profiles *ProfileService) *RenderService {
	return &RenderService{invoices: invoices, profiles: profiles, now: time.Now}
}

// RenderData loads the invoice with the issuer profile and a banking detail:
// bankingID when given, the user's default otherwise.
func (s *RenderService) RenderData(ctx context.Context, ownerID, invoiceID, bankingID string) (*RenderData, error) {
	inv, err := s.invoices.Get(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var banking *models.BankingDetail
	if bankingID != "" {
		banking, err = s.profiles.GetBanking(ctx, ownerID, bankingID)
	} else {
		banking, err = s.profiles.DefaultBanking(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return &RenderData{
		Invoice:     inv,
		Issuer:      profile,
		Banking:     banking,
		FooterText:  profile.Footer(),
		GeneratedAt: s.now().UTC(),
	}, nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxNumberProbe bounds the search for an unused invoice number.
const maxNumberProbe = 1000

// CompanyInput carries the editable fields of a company.
type CompanyInput struct {
	Name          string
	Email         string
	Address       string
	ContactPerson string
	Phone         string
	InvoicePrefix string
	// StartingInvoiceNumber seeds the counter on create; 0 means 1.
	StartingInvoiceNumber int
}

func (in *CompanyInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.Phone = strings.TrimSpace(in.Phone)
}

func (in *CompanyInput) validate(creating bool) error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	if creating && in.StartingInvoiceNumber < 0 {
		v.Add("starting_invoice_number", validation.CodeOutOfRange)
	}
	return validationErr(v)
}

// CompanyService manages the client companies of a user.
type CompanyService struct {
	db       *gorm.DB
	log      *zap.Logger
	invoices *InvoiceService
}

func NewCompanyService(db *gorm.DB, log *zap.Logger, invoices *InvoiceService) *CompanyService {
	return &CompanyService{db: db, log: log.Named("company.service"), invoices: invoices}
}

func (s *CompanyService) List(ctx context.Context, ownerID string) ([]models.Company, error) {
	var out []models.Company
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("name ASC").Find(&out).Error; err != nil {
		return nil, persist("list companies", err)
	}
	return out, nil
}

func (s *CompanyService) Get(ctx context.Context, ownerID, id string) (*models.Company, error) {
	return findCompany(s.db.WithContext(ctx), ownerID, id)
}

func findCompany(tx *gorm.DB, ownerID, id string) (*models.Company, error) {
	var c models.Company
	err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("company")
	}
	if err != nil {
		return nil, persist("load company", err)
	}
	return &c, nil
}

// Create stores a new company. The counter starts one below the first
// invoice number so the first issued number is StartingInvoiceNumber.
func (s *CompanyService) Create(ctx context.Context, ownerID string, in CompanyInput) (*models.Company, error) {
	in.normalize()
	if err := in.validate(true); err != nil {
		return nil, err
	}
	start := in.StartingInvoiceNumber
	if start == 0 {
		start = 1
	}
	c := &models.Company{
		UserID:        ownerID,
		Name:          in.Name,
		Email:         in.Email,
		Address:       in.Address,
		ContactPerson: in.ContactPerson,
		Phone:         in.Phone,
		InvoicePrefix: models.ResolvePrefix(in.InvoicePrefix, in.Name),
		InvoiceCount:  start - 1,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, persist("create company", err)
	}
	s.log.Info("company created", zap.String("company_id", c.ID), zap.String("prefix", c.InvoicePrefix))
	return c, nil
}

// Update changes contact details and prefix. The ledger columns are never touched here.
func (s *CompanyService) Update(ctx context.Context, ownerID, id string, in CompanyInput) (*models.Company, error) {
	in.normalize()
	if err := in.validate(false); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]any{
			"name":           in.Name,
			"email":          in.Email,
			"address":        in.Address,
			"contact_person": in.ContactPerson,
			"phone":          in.Phone,
			"invoice_prefix": models.ResolvePrefix(in.InvoicePrefix, in.Name),
		})
	if res.Error != nil {
		return nil, persist("update company", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, NotFound("company")
	}
	s.invalidateInvoices(ownerID)
	return s.Get(ctx, ownerID, id)
}

// Delete removes the company together with its invoices and their line items.
func (s *CompanyService) Delete(ctx context.Context, ownerID, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findCompany(tx, ownerID, id); err != nil {
			return err
		}
		invoiceIDs := tx.Model(&models.Invoice{}).Select("id").Where("company_id = ? AND user_id = ?", id, ownerID)
		if err := tx.Where("invoice_id IN (?)", invoiceIDs).Delete(&models.LineItem{}).Error; err != nil {
			return persist("delete company line items", err)
		}
		if err := tx.Where("company_id = ? AND user_id = ?", id, ownerID).Delete(&models.Invoice{}).Error; err != nil {
			return persist("delete company invoices", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Company{}).Error; err != nil {
			return persist("delete company", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateInvoices(ownerID)
	s.log.Info("company deleted", zap.String("company_id", id))
	return nil
}

// NextInvoiceNumber proposes prefix + (count+1), skipping numbers already used by the company.
func (s *CompanyService) NextInvoiceNumber(ctx context.Context, ownerID, companyID string) (string, error) {
	c, err := s.Get(ctx, ownerID, companyID)
	if err != nil {
		return "", err
	}
	seq := c.InvoiceCount + 1
	for i := 0; i < maxNumberProbe; i++ {
		number := models.FormatInvoiceNumber(c.InvoicePrefix, seq+i)
		var n int64
		err := s.db.WithContext(ctx).Model(&models.Invoice{}).
			Where("company_id = ? AND invoice_number = ?", companyID, number).
			Count(&n).Error
		if err != nil {
			return "", persist("probe invoice number", err)
		}
		if n == 0 {
			return number, nil
		}
	}
	return "", invalid("invoice_number", validation.CodeAlreadyExists)
}

func (s *CompanyService) invalidateInvoices(ownerID string) {
	if s.invoices != nil {
		s.invoices.InvalidateOwner(ownerID)
	}
}

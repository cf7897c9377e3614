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

// ProfileInput carries the editable issuer details.
type ProfileInput struct {
	BusinessName    string
	BusinessAddress string
	ContactEmail    string
	ContactPhone    string
	Website         string
	FooterText      string
}

// BankingInput carries the editable fields of a banking detail.
type BankingInput struct {
	Name          string
	AccountHolder string
	BankName      string
	AccountNumber string
	AccountType   string
	BranchCode    string
	SwiftCode     string
	IsDefault     bool
}

func (in BankingInput) validate() error {
	v := validation.Violations{}
	validation.Required("bank_name", in.BankName, v)
	validation.Required("account_number", in.AccountNumber, v)
	return validationErr(v)
}

func (in BankingInput) apply(b *models.BankingDetail) {
	b.Name = strings.TrimSpace(in.Name)
	if b.Name == "" {
		b.Name = strings.TrimSpace(in.BankName)
	}
	b.AccountHolder = strings.TrimSpace(in.AccountHolder)
	b.BankName = strings.TrimSpace(in.BankName)
	b.AccountNumber = strings.TrimSpace(in.AccountNumber)
	b.AccountType = strings.TrimSpace(in.AccountType)
	b.BranchCode = strings.TrimSpace(in.BranchCode)
	b.SwiftCode = strings.TrimSpace(in.SwiftCode)
}

// ProfileService manages the issuer profile and banking details of a user.
// At most one banking detail per user is flagged default.
type ProfileService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProfileService(db *gorm.DB, log *zap.Logger) *ProfileService {
	return &ProfileService{db: db, log: log.Named("profile.service")}
}

// GetProfile returns the stored profile, or an empty one carrying the default footer.
func (s *ProfileService) GetProfile(ctx context.Context, ownerID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserProfile{UserID: ownerID, FooterText: models.DefaultFooterText}, nil
	}
	if err != nil {
		return nil, persist("load profile", err)
	}
	return &p, nil
}

// EnsureProfile creates the default profile of a new user.
func (s *ProfileService) EnsureProfile(ctx context.Context, ownerID, businessName, email string) error {
	p := &models.UserProfile{UserID: ownerID, BusinessName: businessName, ContactEmail: email, FooterText: models.DefaultFooterText}
	err := s.db.WithContext(ctx).Where(models.UserProfile{UserID: ownerID}).FirstOrCreate(p).Error
	return persist("ensure profile", err)
}

// UpsertProfile replaces the profile fields, creating the row when missing.
func (s *ProfileService) UpsertProfile(ctx context.Context, ownerID string, in ProfileInput) (*models.UserProfile, error) {
	footer := strings.TrimSpace(in.FooterText)
	if footer == "" {
		footer = models.DefaultFooterText
	}
	var p models.UserProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", ownerID).First(&p).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return persist("load profile", err)
		}
		p.UserID = ownerID
		p.BusinessName = strings.TrimSpace(in.BusinessName)
		p.BusinessAddress = in.BusinessAddress
		p.ContactEmail = strings.TrimSpace(in.ContactEmail)
		p.ContactPhone = strings.TrimSpace(in.ContactPhone)
		p.Website = strings.TrimSpace(in.Website)
		p.FooterText = footer
		return persist("save profile", tx.Save(&p).Error)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBanking returns the banking details, default first.
func (s *ProfileService) ListBanking(ctx context.Context, ownerID string) ([]models.BankingDetail, error) {
	var out []models.BankingDetail
	err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).
		Order("is_default DESC").Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, persist("list banking details", err)
	}
	return out, nil
}

func (s *ProfileService) GetBanking(ctx context.Context, ownerID, id string) (*models.BankingDetail, error) {
	return findBanking(s.db.WithContext(ctx), ownerID, id)
}

func findBanking(tx *gorm.DB, ownerID, id string) (*models.BankingDetail, error) {
	var b models.BankingDetail
	err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("banking detail")
	}
	if err != nil {
		return nil, persist("load banking detail", err)
	}
	return &b, nil
}

// DefaultBanking returns the default banking detail, or nil when the user has none.
func (s *ProfileService) DefaultBanking(ctx context.Context, ownerID string) (*models.BankingDetail, error) {
	var b models.BankingDetail
	err := s.db.WithContext(ctx).Where("user_id = ? AND is_default = ?", ownerID, true).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persist("load default banking detail", err)
	}
	return &b, nil
}

func clearDefault(tx *gorm.DB, ownerID, exceptID string) error {
	q := tx.Model(&models.BankingDetail{}).Where("user_id = ? AND is_default = ?", ownerID, true)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	return persist("clear default banking detail", q.Update("is_default", false).Error)
}

// CreateBanking stores a banking detail. The first one of a user becomes the default.
func (s *ProfileService) CreateBanking(ctx context.Context, ownerID string, in BankingInput) (*models.BankingDetail, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b := &models.BankingDetail{UserID: ownerID}
	in.apply(b)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.BankingDetail{}).Where("user_id = ?", ownerID).Count(&n).Error; err != nil {
			return persist("count banking details", err)
		}
		b.IsDefault = in.IsDefault || n == 0
		if b.IsDefault {
			if err := clearDefault(tx, ownerID, ""); err != nil {
				return err
			}
		}
		return persist("create banking detail", tx.Create(b).Error)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBanking replaces the fields of a banking detail. Setting IsDefault
// moves the default flag; clearing it on the current default is ignored.
func (s *ProfileService) UpdateBanking(ctx context.Context, ownerID, id string, in BankingInput) (*models.BankingDetail, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var b *models.BankingDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = findBanking(tx, ownerID, id); err != nil {
			return err
		}
		in.apply(b)
		if in.IsDefault && !b.IsDefault {
			if err := clearDefault(tx, ownerID, id); err != nil {
				return err
			}
			b.IsDefault = true
		}
		return persist("update banking detail", tx.Save(b).Error)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SetDefaultBanking flags id as the user's only default.
func (s *ProfileService) SetDefaultBanking(ctx context.Context, ownerID, id string) (*models.BankingDetail, error) {
	var b *models.BankingDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if b, err = findBanking(tx, ownerID, id); err != nil {
			return err
		}
		if err := clearDefault(tx, ownerID, id); err != nil {
			return err
		}
		b.IsDefault = true
		return persist("set default banking detail", tx.Model(b).Update("is_default", true).Error)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBanking removes a banking detail; deleting the default promotes the oldest remaining one.
func (s *ProfileService) DeleteBanking(ctx context.Context, ownerID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := findBanking(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(b).Error; err != nil {
			return persist("delete banking detail", err)
		}
		if !b.IsDefault {
			return nil
		}
		var next models.BankingDetail
		err = tx.Where("user_id = ?", ownerID).Order("created_at ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return persist("load banking detail", err)
		}
		return persist("promote banking detail", tx.Model(&next).Update("is_default", true).Error)
	})
}

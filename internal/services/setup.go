package services

import (
	"errors"

	"gorm.io/gorm"

	"gestifac/internal/models"
)

type SetupInput struct {
	Company    string
	Address1   string
	Address2   string
	PostalCode string
	City       string
	Country    string
	SIRET      string
	TVAIntra   string
	Email      string
	Telephone  string
	IBAN       string
	UserID     uint // owner performing setup
}

// SetupService creates and maintains the single company settings
// record (réglages du compte).
type SetupService struct{ DB *gorm.DB }

func NewSetupService(db *gorm.DB) *SetupService { return &SetupService{DB: db} }

var ErrAlreadyConfigured = errors.New("company_already_configured")

func (s *SetupService) IsConfigured() (bool, error) {
	var count int64
	if err := s.DB.Model(&models.CompanySettings{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SetupService) Run(in SetupInput) (*models.CompanySettings, error) {
	configured, err := s.IsConfigured()
	if err != nil {
		return nil, err
	}
	if configured {
		return nil, ErrAlreadyConfigured
	}
	if in.UserID == 0 {
		return nil, errors.New("missing_user_id")
	}
	var cs models.CompanySettings
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		addr := models.Address{Ligne1: in.Address1, Ligne2: in.Address2, CodePostal: in.PostalCode, Ville: in.City, Pays: in.Country, Type: "principale"}
		if err := tx.Create(&addr).Error; err != nil {
			return err
		}
		var siren string
		if len(in.SIRET) >= 9 {
			siren = in.SIRET[:9]
		}
		cs = models.CompanySettings{
			UserID:           in.UserID,
			RaisonSociale:    in.Company,
			NomCommercial:    in.Company,
			SIREN:            siren,
			SIRET:            in.SIRET,
			TVAIntra:         in.TVAIntra,
			RedevableTVA:     in.TVAIntra != "",
			Email:            in.Email,
			Telephone:        in.Telephone,
			IBAN:             in.IBAN,
			AddressID:        addr.ID,
			BillingAddressID: addr.ID,
		}
		if err := tx.Create(&cs).Error; err != nil {
			return err
		}
		return audit(tx, in.UserID, "CompanySettings", cs.ID, "create", in.Company)
	})
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// Get returns the company settings with addresses, or nil when setup
// has not run yet.
func (s *SetupService) Get() (*models.CompanySettings, error) {
	var cs models.CompanySettings
	err := s.DB.Preload("Address").Preload("BillingAddress").First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// Update modifies the existing settings record.
func (s *SetupService) Update(in SetupInput) (*models.CompanySettings, error) {
	var cs models.CompanySettings
	if err := s.DB.Preload("Address").First(&cs).Error; err != nil {
		return nil, err
	}
	cs.RaisonSociale = in.Company
	cs.NomCommercial = in.Company
	if len(in.SIRET) >= 9 {
		cs.SIREN = in.SIRET[:9]
	}
	cs.SIRET = in.SIRET
	cs.TVAIntra = in.TVAIntra
	cs.RedevableTVA = in.TVAIntra != ""
	cs.Email = in.Email
	cs.Telephone = in.Telephone
	cs.IBAN = in.IBAN
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Address{}).Where("id = ?", cs.AddressID).
			Updates(models.Address{Ligne1: in.Address1, Ligne2: in.Address2, CodePostal: in.PostalCode, Ville: in.City, Pays: in.Country}).Error; err != nil {
			return err
		}
		if err := tx.Save(&cs).Error; err != nil {
			return err
		}
		return audit(tx, in.UserID, "CompanySettings", cs.ID, "update", "")
	})
	if err != nil {
		return nil, err
	}
	if err := s.DB.Preload("Address").Preload("BillingAddress").First(&cs, cs.ID).Error; err != nil {
		return nil, err
	}
	return &cs, nil
}

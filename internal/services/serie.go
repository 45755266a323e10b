package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gestifac/internal/models"
	"gestifac/internal/numbering"
)

var (
	ErrNoSerie      = errors.New("no_serie_for_type")
	ErrSerieInUse   = errors.New("serie_in_use")
	ErrInvalidReset = errors.New("invalid_reset_policy")
)

// SerieService owns numbering series: counter allocation with reset
// policies, previews, and the empty-format fallback policy the
// numbering engine deliberately leaves to its caller.
type SerieService struct{ DB *gorm.DB }

func NewSerieService(db *gorm.DB) *SerieService { return &SerieService{DB: db} }

// PeriodFor renders the reset window a counter lives in: "" (never),
// "2025" (yearly) or "2025-03" (monthly).
func PeriodFor(policy string, now time.Time) string {
	switch policy {
	case models.ResetYearly:
		return fmt.Sprintf("%04d", now.Year())
	case models.ResetMonthly:
		return fmt.Sprintf("%04d-%02d", now.Year(), int(now.Month()))
	}
	return ""
}

// SanitizeFormat applies the fallback policy: a format that parses to
// nothing (empty or whitespace-free removal of every token) becomes the
// default. Round-trips any non-empty format unchanged.
func SanitizeFormat(format string) string {
	if len(numbering.Parse(format)) == 0 {
		return numbering.DefaultFormat
	}
	return format
}

// DefaultFor returns the default série for a company and document type.
func (s *SerieService) DefaultFor(companyID uint, docType string) (*models.Serie, error) {
	var serie models.Serie
	err := s.DB.Where("company_id = ? AND type = ? AND is_default = ?", companyID, docType, true).First(&serie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// any série of the type beats none
		err = s.DB.Where("company_id = ? AND type = ?", companyID, docType).Order("id asc").First(&serie).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSerie
	}
	if err != nil {
		return nil, err
	}
	return &serie, nil
}

// contextFor builds the substitution context for a série at a counter value.
func contextFor(serie *models.Serie, counter int, now time.Time) numbering.Context {
	return numbering.Context{
		Code:    serie.Code,
		Counter: counter,
		Year:    now.Year(),
		Month:   int(now.Month()),
		Type:    models.DocTypeShortCode(serie.Type),
	}
}

// NextNumber allocates the next document number inside tx. The
// increment runs as a guarded UPDATE so two finalizations cannot share
// a counter value. The counter restarts at 1 when the reset period
// changes.
func (s *SerieService) NextNumber(tx *gorm.DB, serieID uint, now time.Time) (string, error) {
	var serie models.Serie
	if err := tx.First(&serie, serieID).Error; err != nil {
		return "", err
	}
	period := PeriodFor(serie.ResetPolicy, now)
	if period != serie.Periode {
		// period rolled over: restart, guarded on the old period so a
		// concurrent rollover cannot reset twice
		res := tx.Model(&models.Serie{}).Where("id = ? AND periode = ?", serie.ID, serie.Periode).
			Updates(map[string]any{"compteur": 1, "periode": period})
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			// someone else rolled the period; fall through to a plain increment
			if err := tx.Model(&models.Serie{}).Where("id = ?", serie.ID).
				Update("compteur", gorm.Expr("compteur + 1")).Error; err != nil {
				return "", err
			}
		}
	} else {
		if err := tx.Model(&models.Serie{}).Where("id = ?", serie.ID).
			Update("compteur", gorm.Expr("compteur + 1")).Error; err != nil {
			return "", err
		}
	}
	if err := tx.First(&serie, serie.ID).Error; err != nil {
		return "", err
	}
	return numbering.Render(SanitizeFormat(serie.Format), contextFor(&serie, serie.Compteur, now)), nil
}

// Preview renders the number the série would assign next, without
// consuming the counter.
func (s *SerieService) Preview(serie *models.Serie, now time.Time) string {
	counter := serie.Compteur + 1
	if PeriodFor(serie.ResetPolicy, now) != serie.Periode {
		counter = 1
	}
	return numbering.Render(SanitizeFormat(serie.Format), contextFor(serie, counter, now))
}

// Save validates and persists a série. The stored format always renders
// something: empty formats are replaced by the default before saving.
func (s *SerieService) Save(serie *models.Serie) error {
	switch serie.ResetPolicy {
	case models.ResetNever, models.ResetYearly, models.ResetMonthly:
	default:
		return ErrInvalidReset
	}
	serie.Format = SanitizeFormat(serie.Format)
	if serie.IsDefault {
		// a single default per company+type
		if err := s.DB.Model(&models.Serie{}).
			Where("company_id = ? AND type = ? AND id <> ?", serie.CompanyID, serie.Type, serie.ID).
			Update("is_default", false).Error; err != nil {
			return err
		}
	}
	return s.DB.Save(serie).Error
}

// Delete refuses to drop a série that already numbered documents.
func (s *SerieService) Delete(id uint) error {
	var count int64
	if err := s.DB.Model(&models.Document{}).Where("serie_id = ? AND numero <> ''", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSerieInUse
	}
	return s.DB.Delete(&models.Serie{}, id).Error
}

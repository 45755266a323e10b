package models

import "time"

// Counter reset policies for numbering series.
const (
	ResetNever   = "never"
	ResetYearly  = "yearly"
	ResetMonthly = "monthly"
)

// Serie is a numbering series: it controls how document numbers are
// generated for one document type. Format uses the numbering engine
// vocabulary ({CODE}, {NUM5}, {YEAR}...). Compteur is the last number
// used; Periode tracks the reset window ("2025" yearly, "2025-03"
// monthly, empty for never).
type Serie struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanyID   uint      `gorm:"not null;index" json:"company_id"`
	Type        string    `gorm:"not null;index" json:"type"` // devis, facture, avoir
	Code        string    `gorm:"size:20;not null" json:"code"`
	Format      string    `gorm:"not null" json:"format"`
	Compteur    int       `gorm:"not null;default:0" json:"compteur"`
	ResetPolicy string    `gorm:"not null;default:'never'" json:"reset_policy"`
	Periode     string    `gorm:"size:10" json:"periode"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"` // série active pour son type
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

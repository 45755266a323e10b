package models

import "time"

// CompanySettings is the single-company account configuration (réglages
// du compte). One record per installation for now.
type CompanySettings struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"` // propriétaire du compte
	User             User      `gorm:"foreignKey:UserID" json:"-"`
	RaisonSociale    string    `gorm:"not null;index" json:"raison_sociale"`
	NomCommercial    string    `gorm:"index" json:"nom_commercial"`
	SIREN            string    `gorm:"size:9;index" json:"siren"`
	SIRET            string    `gorm:"size:14;index" json:"siret"`
	TVAIntra         string    `json:"tva_intra"` // numéro TVA intracommunautaire
	RedevableTVA     bool      `gorm:"not null" json:"redevable_tva"`
	AddressID        uint      `json:"address_id"`
	Address          Address   `gorm:"foreignKey:AddressID" json:"address"`
	BillingAddressID uint      `json:"billing_address_id"`
	BillingAddress   Address   `gorm:"foreignKey:BillingAddressID" json:"billing_address"`
	Telephone        string    `json:"telephone"`
	Email            string    `json:"email"`
	IBAN             string    `json:"iban"` // IBAN/RIB affiché sur les factures
	MentionsLegales  string    `json:"mentions_legales"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

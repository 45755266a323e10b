package models

import "time"

// Client entity
type Client struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CompanyID      uint      `gorm:"not null;index" json:"company_id"`
	Nom            string    `gorm:"not null;index" json:"nom"` // raison sociale ou nom
	Contact        string    `json:"contact"` // contact principal
	AddressID      uint      `json:"address_id"`
	Address        Address   `gorm:"foreignKey:AddressID" json:"address"`
	Telephone      string    `json:"telephone"`
	Email          string    `gorm:"index" json:"email"`
	SIRET          string    `gorm:"index" json:"siret"`
	TVAIntra       string    `gorm:"index" json:"tva_intra"`
	PointsFidelite int       `gorm:"not null;default:0" json:"points_fidelite"` // solde courant, recalculé depuis le ledger
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Loyalty reason codes.
const (
	LoyaltyEarn   = "earn"   // crédité à la finalisation d'une facture
	LoyaltyAdjust = "adjust" // ajustement manuel
	LoyaltyRedeem = "redeem" // utilisation de points
	LoyaltyExpire = "expire" // expiration automatique
)

// LoyaltyEntry is one movement in a client's loyalty ledger. The
// client's PointsFidelite is the sum of its entries; the ledger is the
// source of truth.
type LoyaltyEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ClientID   uint       `gorm:"not null;index" json:"client_id"`
	DocumentID *uint      `json:"document_id,omitempty"` // facture à l'origine du mouvement
	Points     int        `gorm:"not null" json:"points"` // signé: négatif = débit
	Motif      string     `gorm:"not null" json:"motif"`  // earn, adjust, redeem, expire
	Note       string     `json:"note"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"` // earn uniquement
	Expired    bool       `gorm:"not null;default:false" json:"expired"` // earn consommé par le job d'expiration
	CreatedAt  time.Time  `json:"created_at"`
}

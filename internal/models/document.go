package models

import "time"

// Document types. ShortCode feeds the {TYPE} numbering variable.
const (
	DocDevis   = "devis"
	DocFacture = "facture"
	DocAvoir   = "avoir"
)

// DocTypeShortCode maps a document type to its numbering short code.
func DocTypeShortCode(docType string) string {
	switch docType {
	case DocDevis:
		return "DEV"
	case DocFacture:
		return "FAC"
	case DocAvoir:
		return "AV"
	}
	return ""
}

// Document statuses.
const (
	StatusDraft     = "draft"
	StatusFinalized = "finalized"
	StatusAccepted  = "accepted"  // devis uniquement
	StatusRefused   = "refused"   // devis uniquement
	StatusConverted = "converted" // devis transformé en facture
	StatusOverdue   = "overdue"   // facture échue non réglée
	StatusPaid      = "paid"
)

// Document is a quote, invoice or credit note. Lines snapshot the
// article data at edit time; totals are derived server-side and stored
// for listing only — finalization always recomputes them.
type Document struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Type        string         `gorm:"not null;index" json:"type"`   // devis, facture, avoir
	Status      string         `gorm:"not null;index" json:"status"` // draft, finalized, ...
	Numero      string         `gorm:"index" json:"numero"`          // attribué à la finalisation
	PublicToken string         `gorm:"size:36;index" json:"public_token"` // lien de partage
	CompanyID   uint           `gorm:"not null;index" json:"company_id"`
	ClientID    uint           `gorm:"not null;index" json:"client_id"`
	Client      Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	SerieID     uint           `json:"serie_id"`
	Serie       Serie          `gorm:"foreignKey:SerieID" json:"-"`
	Lines       []DocumentLine `gorm:"foreignKey:DocumentID" json:"lines,omitempty"`
	TotalHT     float64        `json:"total_ht"`
	TotalTVA    float64        `json:"total_tva"`
	TotalTTC    float64        `json:"total_ttc"`
	// SourceDocumentID relie un avoir à sa facture, ou une facture au
	// devis converti.
	SourceDocumentID *uint      `gorm:"index" json:"source_document_id,omitempty"`
	DateEmission     time.Time  `json:"date_emission"`
	DateEcheance     *time.Time `json:"date_echeance,omitempty"` // factures
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DocumentLine is one line of a document. Montant fields are derived by
// the totals engine and recomputed on every edit.
type DocumentLine struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DocumentID     uint      `gorm:"not null;index" json:"document_id"`
	ArticleID      *uint     `gorm:"index" json:"article_id,omitempty"` // nil = ligne libre
	Designation    string    `gorm:"not null" json:"designation"`
	Quantite       float64   `gorm:"not null" json:"quantite"`
	PrixUnitaireHT float64   `gorm:"not null" json:"prix_unitaire_ht"`
	TVATaux        float64   `gorm:"not null" json:"tva_taux"`
	RemisePourcent float64   `json:"remise_pourcent"`
	MontantHT      float64   `json:"montant_ht"`
	MontantTVA     float64   `json:"montant_tva"`
	MontantTTC     float64   `json:"montant_ttc"`
	Position       int       `json:"position"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

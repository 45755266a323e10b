package models

import (
	"time"

	"gorm.io/gorm"
)

// Catalog domain models.

// Category is a 2-level hierarchy: root categories and their children.
// Depth is enforced in the service layer, not by the schema.
type Category struct {
	ID        uint                  `gorm:"primaryKey" json:"id"`
	CompanyID uint                  `gorm:"not null;index" json:"company_id"`
	ParentID  *uint                 `gorm:"index" json:"parent_id,omitempty"` // nil = racine
	Children  []Category            `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Nom       string                `gorm:"not null" json:"nom"`
	Position  int                   `json:"position"`
	Templates []CustomFieldTemplate `gorm:"foreignKey:CategoryID" json:"templates,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Custom field value types.
const (
	FieldText   = "text"
	FieldNumber = "number"
	FieldBool   = "bool"
	FieldDate   = "date"
)

// CustomFieldTemplate describes an extra field articles of a category
// must or may carry (ex: "Pointure" pour la catégorie Chaussures).
type CustomFieldTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`
	Nom         string    `gorm:"not null" json:"nom"`
	Type        string    `gorm:"not null;default:'text'" json:"type"` // text, number, bool, date
	Obligatoire bool      `json:"obligatoire"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Article is a catalog item (produit ou prestation).
type Article struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CompanyID   uint   `gorm:"not null;index" json:"company_id"`
	UserID      uint   `gorm:"not null;index:idx_user_code,priority:1" json:"user_id"` // créateur
	// Code article unique par utilisateur, identifiant lisible.
	Code           string              `gorm:"size:40;not null;index:idx_user_code,unique,priority:2" json:"code"`
	Designation    string              `gorm:"not null" json:"designation"`
	Description    string              `json:"description"`
	PrixUnitaireHT float64             `gorm:"not null" json:"prix_unitaire_ht"`
	TVATaux        float64             `gorm:"not null" json:"tva_taux"` // pourcentage 0..100 (5.5 autorisé)
	Unite          string              `json:"unite"`                    // pièce, heure, kg...
	CategoryID     *uint               `gorm:"index" json:"category_id,omitempty"`
	Category       *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	FieldValues    []ArticleFieldValue `gorm:"foreignKey:ArticleID" json:"field_values,omitempty"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// totals.Article implementation so document lines can bind to catalog articles.
func (a Article) UnitPriceHT() float64 { return a.PrixUnitaireHT }
func (a Article) TVARate() float64     { return a.TVATaux }
func (a Article) Label() string        { return a.Designation }

// ArticleFieldValue holds one custom-field value for an article.
type ArticleFieldValue struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	ArticleID  uint                `gorm:"not null;index" json:"article_id"`
	TemplateID uint                `gorm:"not null;index" json:"template_id"`
	Template   CustomFieldTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Valeur     string              `json:"valeur"` // stocké en texte, typé côté template
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

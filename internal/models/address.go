package models

import "time"

// Address model
type Address struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Ligne1     string    `gorm:"not null" json:"ligne1"` // rue, numéro
	Ligne2     string    `json:"ligne2"` // complément
	CodePostal string    `gorm:"not null" json:"code_postal"`
	Ville      string    `gorm:"not null" json:"ville"`
	Pays       string    `gorm:"not null" json:"pays"`
	Type       string    `json:"type"` // "principale", "facturation"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

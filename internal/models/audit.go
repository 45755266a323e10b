package models

import "time"

// AuditLog records who changed what. Written by services on create,
// update, delete and finalize; never updated afterwards.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	EntityType string    `gorm:"index" json:"entity_type"` // "Article", "Document", "Client", ...
	EntityID   uint      `json:"entity_id"`
	Action     string    `json:"action"` // create, update, delete, finalize
	Detail     string    `json:"detail"` // libre: champ modifié, numéro attribué...
	CreatedAt  time.Time `json:"created_at"`
}

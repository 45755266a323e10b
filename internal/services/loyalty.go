package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"gestifac/internal/models"
)

// Loyalty policy: 1 point per whole 10 € TTC on finalized invoices;
// earned points expire 24 months after the earning invoice.
const (
	LoyaltyEuroPerPoint   = 10.0
	LoyaltyValidityMonths = 24
)

var ErrInsufficientPoints = errors.New("insufficient_points")

// LoyaltyService maintains each client's loyalty ledger. The ledger is
// the source of truth; Client.PointsFidelite is a cached balance kept
// in the same transaction as every movement.
type LoyaltyService struct{ DB *gorm.DB }

func NewLoyaltyService(db *gorm.DB) *LoyaltyService { return &LoyaltyService{DB: db} }

// Earn credits points for a finalized invoice inside the caller's
// transaction. Amounts under the euro-per-point threshold earn nothing.
func (s *LoyaltyService) Earn(tx *gorm.DB, clientID, documentID uint, totalTTC float64, now time.Time) error {
	points := int(totalTTC / LoyaltyEuroPerPoint)
	if points <= 0 {
		return nil
	}
	expires := now.AddDate(0, LoyaltyValidityMonths, 0)
	docID := documentID
	entry := models.LoyaltyEntry{
		ClientID:   clientID,
		DocumentID: &docID,
		Points:     points,
		Motif:      models.LoyaltyEarn,
		ExpiresAt:  &expires,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	return s.recomputeBalance(tx, clientID)
}

// Adjust applies a manual movement (positive or negative) with a note.
func (s *LoyaltyService) Adjust(userID, clientID uint, points int, note string) error {
	if points == 0 {
		return nil
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.LoyaltyEntry{ClientID: clientID, Points: points, Motif: models.LoyaltyAdjust, Note: note}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := s.recomputeBalance(tx, clientID); err != nil {
			return err
		}
		return audit(tx, userID, "Client", clientID, "update", "loyalty adjust")
	})
}

// Redeem debits points, refusing to overdraw the balance.
func (s *LoyaltyService) Redeem(userID, clientID uint, points int, note string) error {
	if points <= 0 {
		return ErrInsufficientPoints
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, clientID).Error; err != nil {
			return err
		}
		if client.PointsFidelite < points {
			return ErrInsufficientPoints
		}
		entry := models.LoyaltyEntry{ClientID: clientID, Points: -points, Motif: models.LoyaltyRedeem, Note: note}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := s.recomputeBalance(tx, clientID); err != nil {
			return err
		}
		return audit(tx, userID, "Client", clientID, "update", "loyalty redeem")
	})
}

// ExpireDue converts expired earn entries into negative expire
// movements. Each earn entry is consumed at most once; the expired
// amount is capped by the client's current balance so partial
// redemption never drives it negative. Run by the cron sweep.
func (s *LoyaltyService) ExpireDue(now time.Time) (int, error) {
	var due []models.LoyaltyEntry
	if err := s.DB.Where("motif = ? AND expired = ? AND expires_at IS NOT NULL AND expires_at < ?",
		models.LoyaltyEarn, false, now).Order("expires_at asc").Find(&due).Error; err != nil {
		return 0, err
	}
	expired := 0
	for _, entry := range due {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var client models.Client
			if err := tx.First(&client, entry.ClientID).Error; err != nil {
				return err
			}
			loss := entry.Points
			if loss > client.PointsFidelite {
				loss = client.PointsFidelite
			}
			if loss > 0 {
				exp := models.LoyaltyEntry{ClientID: entry.ClientID, Points: -loss, Motif: models.LoyaltyExpire}
				if err := tx.Create(&exp).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.LoyaltyEntry{}).Where("id = ?", entry.ID).Update("expired", true).Error; err != nil {
				return err
			}
			return s.recomputeBalance(tx, entry.ClientID)
		})
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// History returns a client's ledger, newest first.
func (s *LoyaltyService) History(clientID uint, limit int) ([]models.LoyaltyEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.LoyaltyEntry
	err := s.DB.Where("client_id = ?", clientID).Order("id desc").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *LoyaltyService) recomputeBalance(tx *gorm.DB, clientID uint) error {
	var sum int64
	if err := tx.Model(&models.LoyaltyEntry{}).Where("client_id = ?", clientID).
		Select("COALESCE(SUM(points), 0)").Scan(&sum).Error; err != nil {
		return err
	}
	if sum < 0 {
		sum = 0
	}
	return tx.Model(&models.Client{}).Where("id = ?", clientID).Update("points_fidelite", sum).Error
}

package jobs

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestifac/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Client{}, &models.LoyaltyEntry{}, &models.Serie{}, &models.Document{}, &models.DocumentLine{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(new(strings.Builder))
	return log
}

func TestSweepOverdue(t *testing.T) {
	db := testDB(t)
	due := time.Now().AddDate(0, 0, -1)
	doc := models.Document{Type: models.DocFacture, Status: models.StatusFinalized, Numero: "F001", CompanyID: 1, ClientID: 1, DateEcheance: &due}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("doc: %v", err)
	}
	runner := New(db, quietLogger())
	runner.SweepOverdue()

	var reloaded models.Document
	if err := db.First(&reloaded, doc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.StatusOverdue {
		t.Fatalf("status got %q", reloaded.Status)
	}
}

func TestSweepLoyalty(t *testing.T) {
	db := testDB(t)
	client := models.Client{CompanyID: 1, Nom: "C", PointsFidelite: 10}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	expired := time.Now().AddDate(-3, 0, 0)
	entry := models.LoyaltyEntry{ClientID: client.ID, Points: 10, Motif: models.LoyaltyEarn, ExpiresAt: &expired}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("entry: %v", err)
	}
	runner := New(db, quietLogger())
	runner.SweepLoyalty()

	var reloaded models.Client
	if err := db.First(&reloaded, client.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PointsFidelite != 0 {
		t.Fatalf("points got %d", reloaded.PointsFidelite)
	}
}

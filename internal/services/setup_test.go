package services

import (
	"testing"

	"gorm.io/gorm"

	"gestifac/internal/models"
)

func seedUserOnly(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	role := models.Role{Name: "admin", Permissions: "*:*"}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	user := models.User{Email: "owner@test", Password: "x", RoleID: role.ID, Actif: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func TestSetupRunOnce(t *testing.T) {
	db := testDB(t)
	user := seedUserOnly(t, db)
	svc := NewSetupService(db)

	configured, err := svc.IsConfigured()
	if err != nil || configured {
		t.Fatalf("fresh db should be unconfigured: %v, %v", configured, err)
	}

	cs, err := svc.Run(SetupInput{
		Company:    "Atelier Dupont",
		Address1:   "12 rue des Lilas",
		PostalCode: "69001",
		City:       "Lyon",
		Country:    "FR",
		SIRET:      "73282932000074",
		TVAIntra:   "FR32732829320",
		Email:      "contact@atelier.test",
		UserID:     user.ID,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if cs.SIREN != "732829320" {
		t.Fatalf("SIREN should come from the SIRET, got %q", cs.SIREN)
	}
	if !cs.RedevableTVA {
		t.Fatalf("intra VAT number implies VAT liability")
	}
	if cs.AddressID == 0 || cs.BillingAddressID != cs.AddressID {
		t.Fatalf("billing address should default to the main one")
	}

	if _, err := svc.Run(SetupInput{Company: "Autre", UserID: user.ID}); err != ErrAlreadyConfigured {
		t.Fatalf("expected ErrAlreadyConfigured, got %v", err)
	}
}

func TestSetupUpdate(t *testing.T) {
	db := testDB(t)
	user := seedUserOnly(t, db)
	svc := NewSetupService(db)

	if _, err := svc.Run(SetupInput{Company: "Avant", Address1: "1 rue A", City: "Paris", Country: "FR", SIRET: "12345678900011", UserID: user.ID}); err != nil {
		t.Fatalf("run: %v", err)
	}
	cs, err := svc.Update(SetupInput{Company: "Après", Address1: "2 rue B", City: "Nantes", Country: "FR", SIRET: "98765432100019", UserID: user.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cs.RaisonSociale != "Après" || cs.SIREN != "987654321" {
		t.Fatalf("update not applied: %+v", cs)
	}
	if cs.Address.Ville != "Nantes" {
		t.Fatalf("address not updated: %+v", cs.Address)
	}
	if cs.RedevableTVA {
		t.Fatalf("no intra VAT number means not liable")
	}
}

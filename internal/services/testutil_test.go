package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestifac/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Address{}, &models.CompanySettings{},
		&models.Category{}, &models.CustomFieldTemplate{}, &models.Article{}, &models.ArticleFieldValue{},
		&models.Client{}, &models.LoyaltyEntry{},
		&models.Serie{}, &models.Document{}, &models.DocumentLine{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedBase creates the minimal user/company/client chain most service
// tests need.
func seedBase(t *testing.T, db *gorm.DB) (user models.User, company models.CompanySettings, client models.Client) {
	t.Helper()
	role := models.Role{Name: "admin", Permissions: "*:*"}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	user = models.User{Email: "svc@test", Password: "x", Nom: "Svc", Prenom: "User", RoleID: role.ID, Actif: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	addr := models.Address{Ligne1: "1 rue", CodePostal: "75000", Ville: "Paris", Pays: "FR", Type: "principale"}
	if err := db.Create(&addr).Error; err != nil {
		t.Fatalf("addr: %v", err)
	}
	company = models.CompanySettings{UserID: user.ID, RaisonSociale: "RS", NomCommercial: "NC", SIREN: "123456789", SIRET: "12345678900011", AddressID: addr.ID, BillingAddressID: addr.ID}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("company: %v", err)
	}
	client = models.Client{CompanyID: company.ID, Nom: "ClientCo"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return
}

func seedSerie(t *testing.T, db *gorm.DB, companyID uint, docType, code, format, policy string) models.Serie {
	t.Helper()
	s := models.Serie{CompanyID: companyID, Type: docType, Code: code, Format: format, ResetPolicy: policy, IsDefault: true}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("serie: %v", err)
	}
	return s
}

func seedArticle(t *testing.T, db *gorm.DB, companyID, userID uint, code string, price, tva float64) models.Article {
	t.Helper()
	a := models.Article{CompanyID: companyID, UserID: userID, Code: code, Designation: "Prestation " + code, PrixUnitaireHT: price, TVATaux: tva, Unite: "h"}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("article: %v", err)
	}
	return a
}

var testNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

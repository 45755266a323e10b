package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestifac/auth"
	"gestifac/internal/gate"
	"gestifac/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory database per test to avoid cross-test collisions
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
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

func testGate(db *gorm.DB) *gate.Gate {
	return gate.New(gate.NewDBResolver(db))
}

// seedAccount creates a user with the given permissions and the company
// it operates on.
func seedAccount(t *testing.T, db *gorm.DB, perms string) (models.User, models.CompanySettings) {
	t.Helper()
	role := models.Role{Name: "role-" + t.Name(), Permissions: perms}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	user := models.User{Email: t.Name() + "@test", Password: "x", RoleID: role.ID, Actif: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	addr := models.Address{Ligne1: "1 rue", CodePostal: "75000", Ville: "Paris", Pays: "FR", Type: "principale"}
	if err := db.Create(&addr).Error; err != nil {
		t.Fatalf("addr: %v", err)
	}
	company := models.CompanySettings{UserID: user.ID, RaisonSociale: "RS", SIREN: "123456789", SIRET: "12345678900011", AddressID: addr.ID, BillingAddressID: addr.ID}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("company: %v", err)
	}
	return user, company
}

// authedJSON builds a JSON request carrying uid in context, the way the
// session middleware would.
func authedJSON(method, target, body string, uid uint) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if uid != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
	}
	return req
}

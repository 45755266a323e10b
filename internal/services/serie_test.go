package services

import (
	"testing"
	"time"

	"gestifac/internal/models"
	"gestifac/internal/numbering"
)

func TestPeriodFor(t *testing.T) {
	if got := PeriodFor(models.ResetNever, testNow); got != "" {
		t.Fatalf("never: expected empty period, got %q", got)
	}
	if got := PeriodFor(models.ResetYearly, testNow); got != "2025" {
		t.Fatalf("yearly: got %q", got)
	}
	if got := PeriodFor(models.ResetMonthly, testNow); got != "2025-03" {
		t.Fatalf("monthly: got %q", got)
	}
}

func TestSanitizeFormat(t *testing.T) {
	if got := SanitizeFormat(""); got != numbering.DefaultFormat {
		t.Fatalf("empty format should fall back to default, got %q", got)
	}
	if got := SanitizeFormat("FACT-{NUM5}"); got != "FACT-{NUM5}" {
		t.Fatalf("valid format must round-trip, got %q", got)
	}
}

func TestNextNumberIncrements(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	serie := seedSerie(t, db, company.ID, models.DocFacture, "FACT", "{CODE}-{YEAR}-{NUM5}", models.ResetNever)
	svc := NewSerieService(db)

	n1, err := svc.NextNumber(db, serie.ID, testNow)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n1 != "FACT-2025-00001" {
		t.Fatalf("got %q", n1)
	}
	n2, _ := svc.NextNumber(db, serie.ID, testNow)
	if n2 != "FACT-2025-00002" {
		t.Fatalf("got %q", n2)
	}
}

func TestNextNumberYearlyReset(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	serie := seedSerie(t, db, company.ID, models.DocDevis, "DEV", "{CODE}{YEAR2}{NUM3}", models.ResetYearly)
	svc := NewSerieService(db)

	n1, err := svc.NextNumber(db, serie.ID, testNow)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n1 != "DEV25001" {
		t.Fatalf("got %q", n1)
	}
	// same year keeps counting
	if n, _ := svc.NextNumber(db, serie.ID, testNow); n != "DEV25002" {
		t.Fatalf("got %q", n)
	}
	// next year restarts at 1
	nextYear := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	if n, _ := svc.NextNumber(db, serie.ID, nextYear); n != "DEV26001" {
		t.Fatalf("got %q", n)
	}
}

func TestNextNumberMonthlyReset(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	serie := seedSerie(t, db, company.ID, models.DocFacture, "F", "{CODE}{YEAR2}{MONTH}-{NUM3}", models.ResetMonthly)
	svc := NewSerieService(db)

	if n, _ := svc.NextNumber(db, serie.ID, testNow); n != "F2503-001" {
		t.Fatalf("got %q", n)
	}
	april := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	if n, _ := svc.NextNumber(db, serie.ID, april); n != "F2504-001" {
		t.Fatalf("got %q", n)
	}
}

func TestPreviewDoesNotConsume(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	serie := seedSerie(t, db, company.ID, models.DocFacture, "FACT", numbering.DefaultFormat, models.ResetNever)
	svc := NewSerieService(db)

	if p := svc.Preview(&serie, testNow); p != "FACT00001" {
		t.Fatalf("preview got %q", p)
	}
	// preview again: unchanged
	if p := svc.Preview(&serie, testNow); p != "FACT00001" {
		t.Fatalf("second preview got %q", p)
	}
	if n, _ := svc.NextNumber(db, serie.ID, testNow); n != "FACT00001" {
		t.Fatalf("allocation got %q", n)
	}
}

func TestPreviewAfterPeriodRollover(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	serie := models.Serie{CompanyID: company.ID, Type: models.DocFacture, Code: "F", Format: "{CODE}-{YEAR}-{NUM4}", ResetPolicy: models.ResetYearly, Compteur: 41, Periode: "2024"}
	if err := db.Create(&serie).Error; err != nil {
		t.Fatalf("serie: %v", err)
	}
	svc := NewSerieService(db)
	// the stored counter belongs to 2024; a 2025 preview restarts at 1
	if p := svc.Preview(&serie, testNow); p != "F-2025-0001" {
		t.Fatalf("got %q", p)
	}
}

func TestSaveRejectsBadPolicyAndEmptiesFormat(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	svc := NewSerieService(db)

	bad := models.Serie{CompanyID: company.ID, Type: models.DocFacture, Code: "F", Format: "{NUM5}", ResetPolicy: "weekly"}
	if err := svc.Save(&bad); err != ErrInvalidReset {
		t.Fatalf("expected ErrInvalidReset, got %v", err)
	}

	empty := models.Serie{CompanyID: company.ID, Type: models.DocFacture, Code: "F", Format: "", ResetPolicy: models.ResetNever}
	if err := svc.Save(&empty); err != nil {
		t.Fatalf("save: %v", err)
	}
	if empty.Format != numbering.DefaultFormat {
		t.Fatalf("empty format should become default, got %q", empty.Format)
	}
}

func TestSaveSingleDefaultPerType(t *testing.T) {
	db := testDB(t)
	_, company, _ := seedBase(t, db)
	svc := NewSerieService(db)

	a := models.Serie{CompanyID: company.ID, Type: models.DocFacture, Code: "A", Format: "{CODE}{NUM5}", ResetPolicy: models.ResetNever, IsDefault: true}
	if err := svc.Save(&a); err != nil {
		t.Fatalf("save a: %v", err)
	}
	b := models.Serie{CompanyID: company.ID, Type: models.DocFacture, Code: "B", Format: "{CODE}{NUM5}", ResetPolicy: models.ResetNever, IsDefault: true}
	if err := svc.Save(&b); err != nil {
		t.Fatalf("save b: %v", err)
	}
	var reloaded models.Serie
	if err := db.First(&reloaded, a.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.IsDefault {
		t.Fatalf("a should have lost default")
	}
}

func TestDeleteRefusesUsedSerie(t *testing.T) {
	db := testDB(t)
	_, company, client := seedBase(t, db)
	serie := seedSerie(t, db, company.ID, models.DocFacture, "FACT", "{CODE}{NUM5}", models.ResetNever)
	doc := models.Document{Type: models.DocFacture, Status: models.StatusFinalized, Numero: "FACT00001", CompanyID: company.ID, ClientID: client.ID, SerieID: serie.ID}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("doc: %v", err)
	}
	svc := NewSerieService(db)
	if err := svc.Delete(serie.ID); err != ErrSerieInUse {
		t.Fatalf("expected ErrSerieInUse, got %v", err)
	}
}

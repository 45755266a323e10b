package services

import (
	"math"
	"testing"
	"time"

	"gestifac/internal/models"
)

func TestCreateDraftComputesTotals(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocFacture, "FACT", "{CODE}{NUM5}", models.ResetNever)
	art := seedArticle(t, db, company.ID, user.ID, "DEV01", 100, 20)
	svc := NewDocumentService(db)

	artID := art.ID
	doc, err := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{
		// article-bound: submitted price/rate are discarded for the catalog's
		{ArticleID: &artID, Quantite: 2, PrixUnitaireHT: 1, TVATaux: 5.5},
		{Designation: "Frais de port", Quantite: 1, PrixUnitaireHT: 10, TVATaux: 20},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.Status != models.StatusDraft || doc.Numero != "" {
		t.Fatalf("draft should be unnumbered, got %q/%q", doc.Status, doc.Numero)
	}
	if doc.PublicToken == "" {
		t.Fatalf("missing public token")
	}
	if doc.Lines[0].PrixUnitaireHT != 100 || doc.Lines[0].TVATaux != 20 {
		t.Fatalf("article snapshot not applied: %+v", doc.Lines[0])
	}
	if doc.TotalHT != 210 {
		t.Fatalf("total HT got %v", doc.TotalHT)
	}
	if doc.TotalTVA != 42 {
		t.Fatalf("total TVA got %v", doc.TotalTVA)
	}
	if math.Abs(doc.TotalTTC-252) > 1e-9 {
		t.Fatalf("total TTC got %v", doc.TotalTTC)
	}
}

func TestCreateRejectsUnknownArticleAndType(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	svc := NewDocumentService(db)

	if _, err := svc.Create(user.ID, company.ID, "bon_de_commande", client.ID, 0, nil); err != ErrWrongType {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}
	ghost := uint(999)
	_, err := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{{ArticleID: &ghost, Quantite: 1}})
	if err != ErrUnknownArticle {
		t.Fatalf("expected ErrUnknownArticle, got %v", err)
	}
}

func TestFinalizeNumbersAndEarnsLoyalty(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocFacture, "FACT", "{CODE}-{YEAR}-{NUM5}", models.ResetNever)
	svc := NewDocumentService(db)

	doc, err := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{
		{Designation: "Forfait", Quantite: 2, PrixUnitaireHT: 100, TVATaux: 20},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err = svc.Finalize(user.ID, company.ID, doc.ID, testNow)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if doc.Numero != "FACT-2025-00001" {
		t.Fatalf("numero got %q", doc.Numero)
	}
	if doc.Status != models.StatusFinalized {
		t.Fatalf("status got %q", doc.Status)
	}
	if doc.DateEcheance == nil || !doc.DateEcheance.Equal(testNow.AddDate(0, 1, 0)) {
		t.Fatalf("due date got %v", doc.DateEcheance)
	}

	// 240 € TTC earns 24 points
	var reloaded models.Client
	if err := db.First(&reloaded, client.ID).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	if reloaded.PointsFidelite != 24 {
		t.Fatalf("points got %d", reloaded.PointsFidelite)
	}
	var entry models.LoyaltyEntry
	if err := db.Where("client_id = ?", client.ID).First(&entry).Error; err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.Motif != models.LoyaltyEarn || entry.Points != 24 || entry.ExpiresAt == nil {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestFinalizeRefusesEmptyAndDouble(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocFacture, "F", "{CODE}{NUM3}", models.ResetNever)
	svc := NewDocumentService(db)

	empty, err := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Finalize(user.ID, company.ID, empty.ID, testNow); err != ErrEmptyDocument {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}

	doc, _ := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{{Designation: "x", Quantite: 1, PrixUnitaireHT: 5}})
	if _, err := svc.Finalize(user.ID, company.ID, doc.ID, testNow); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := svc.Finalize(user.ID, company.ID, doc.ID, testNow); err != ErrDocFinalized {
		t.Fatalf("expected ErrDocFinalized, got %v", err)
	}
}

func TestUpdateLinesImmutableOnceFinalized(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocFacture, "F", "{CODE}{NUM3}", models.ResetNever)
	svc := NewDocumentService(db)

	doc, _ := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{{Designation: "a", Quantite: 1, PrixUnitaireHT: 10}})
	doc, err := svc.UpdateLines(user.ID, company.ID, doc.ID, []LineInput{
		{Designation: "a", Quantite: 3, PrixUnitaireHT: 10},
		{Designation: "b", Quantite: 1, PrixUnitaireHT: 2.5},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.TotalHT != 32.5 || len(doc.Lines) != 2 {
		t.Fatalf("recompute got %v / %d lines", doc.TotalHT, len(doc.Lines))
	}
	if _, err := svc.Finalize(user.ID, company.ID, doc.ID, testNow); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := svc.UpdateLines(user.ID, company.ID, doc.ID, nil); err != ErrDocFinalized {
		t.Fatalf("expected ErrDocFinalized, got %v", err)
	}
}

func TestQuoteLifecycle(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocDevis, "DEV", "{CODE}{NUM3}", models.ResetNever)
	seedSerie(t, db, company.ID, models.DocFacture, "FACT", "{CODE}{NUM3}", models.ResetNever)
	svc := NewDocumentService(db)

	quote, _ := svc.Create(user.ID, company.ID, models.DocDevis, client.ID, 0, []LineInput{{Designation: "Etude", Quantite: 1, PrixUnitaireHT: 500, TVATaux: 20}})

	// a draft quote cannot be accepted
	if err := svc.SetQuoteStatus(user.ID, company.ID, quote.ID, models.StatusAccepted); err != ErrWrongStatus {
		t.Fatalf("expected ErrWrongStatus, got %v", err)
	}
	if _, err := svc.Finalize(user.ID, company.ID, quote.ID, testNow); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := svc.SetQuoteStatus(user.ID, company.ID, quote.ID, "paid"); err != ErrWrongStatus {
		t.Fatalf("bad status should be refused, got %v", err)
	}
	if err := svc.SetQuoteStatus(user.ID, company.ID, quote.ID, models.StatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	inv, err := svc.ConvertQuote(user.ID, company.ID, quote.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if inv.Type != models.DocFacture || inv.Status != models.StatusDraft {
		t.Fatalf("invoice got %q/%q", inv.Type, inv.Status)
	}
	if inv.SourceDocumentID == nil || *inv.SourceDocumentID != quote.ID {
		t.Fatalf("source link missing")
	}
	if inv.TotalTTC != quote.TotalTTC {
		t.Fatalf("totals not carried over")
	}
	var src models.Document
	if err := db.First(&src, quote.ID).Error; err != nil {
		t.Fatalf("quote: %v", err)
	}
	if src.Status != models.StatusConverted {
		t.Fatalf("quote status got %q", src.Status)
	}
	// converted quotes cannot convert twice
	if _, err := svc.ConvertQuote(user.ID, company.ID, quote.ID); err != ErrWrongStatus {
		t.Fatalf("expected ErrWrongStatus, got %v", err)
	}
}

func TestCreateCreditNote(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocFacture, "FACT", "{CODE}{NUM3}", models.ResetNever)
	seedSerie(t, db, company.ID, models.DocAvoir, "AV", "{CODE}{NUM3}", models.ResetNever)
	svc := NewDocumentService(db)

	inv, _ := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{{Designation: "Abonnement", Quantite: 1, PrixUnitaireHT: 30, TVATaux: 20}})
	if _, err := svc.CreateCreditNote(user.ID, company.ID, inv.ID); err != ErrWrongStatus {
		t.Fatalf("draft invoice should refuse a credit note, got %v", err)
	}
	if _, err := svc.Finalize(user.ID, company.ID, inv.ID, testNow); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	avoir, err := svc.CreateCreditNote(user.ID, company.ID, inv.ID)
	if err != nil {
		t.Fatalf("credit note: %v", err)
	}
	if avoir.Type != models.DocAvoir || avoir.Status != models.StatusDraft {
		t.Fatalf("got %q/%q", avoir.Type, avoir.Status)
	}
	if avoir.SourceDocumentID == nil || *avoir.SourceDocumentID != inv.ID {
		t.Fatalf("source link missing")
	}
}

func TestMarkOverdue(t *testing.T) {
	db := testDB(t)
	user, company, client := seedBase(t, db)
	seedSerie(t, db, company.ID, models.DocFacture, "F", "{CODE}{NUM3}", models.ResetNever)
	svc := NewDocumentService(db)

	doc, _ := svc.Create(user.ID, company.ID, models.DocFacture, client.ID, 0, []LineInput{{Designation: "x", Quantite: 1, PrixUnitaireHT: 10}})
	if _, err := svc.Finalize(user.ID, company.ID, doc.ID, testNow); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// before the due date nothing moves
	n, err := svc.MarkOverdue(testNow.AddDate(0, 0, 10))
	if err != nil || n != 0 {
		t.Fatalf("early sweep: %d, %v", n, err)
	}
	n, err = svc.MarkOverdue(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 overdue, got %d", n)
	}
	var reloaded models.Document
	if err := db.First(&reloaded, doc.ID).Error; err != nil {
		t.Fatalf("doc: %v", err)
	}
	if reloaded.Status != models.StatusOverdue {
		t.Fatalf("status got %q", reloaded.Status)
	}
}

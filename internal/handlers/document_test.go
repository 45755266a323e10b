package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gestifac/internal/models"
)

func TestDocumentCreateFinalizePublic(t *testing.T) {
	db := setupTestDB(t)
	user, company := seedAccount(t, db, "*:*")
	client := models.Client{CompanyID: company.ID, Nom: "ClientCo"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	serie := models.Serie{CompanyID: company.ID, Type: models.DocFacture, Code: "FACT", Format: "{CODE}{NUM5}", ResetPolicy: models.ResetNever, IsDefault: true}
	if err := db.Create(&serie).Error; err != nil {
		t.Fatalf("serie: %v", err)
	}
	h := NewDocumentHandler(db, testGate(db))

	body := fmt.Sprintf(`{"type":"facture","client_id":%d,"lines":[{"designation":"Forfait","quantite":2,"prix_unitaire_ht":100,"tva_taux":20}]}`, client.ID)
	w := httptest.NewRecorder()
	h.collection(w, authedJSON(http.MethodPost, "/api/documents", body, user.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var doc models.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Status != models.StatusDraft || doc.TotalHT != 200 {
		t.Fatalf("unexpected draft %+v", doc)
	}

	// a draft is not reachable through its public token
	wp := httptest.NewRecorder()
	h.public(wp, httptest.NewRequest(http.MethodGet, "/api/public/documents?token="+doc.PublicToken, nil))
	if wp.Code != http.StatusNotFound {
		t.Fatalf("draft public view should 404, got %d", wp.Code)
	}

	w2 := httptest.NewRecorder()
	h.finalize(w2, authedJSON(http.MethodPost, fmt.Sprintf("/api/documents/finalize?id=%d", doc.ID), "", user.ID))
	if w2.Code != http.StatusOK {
		t.Fatalf("finalize: %d %s", w2.Code, w2.Body.String())
	}
	var final models.Document
	if err := json.Unmarshal(w2.Body.Bytes(), &final); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if final.Numero != "FACT00001" {
		t.Fatalf("numero got %q", final.Numero)
	}

	// finalized document is public via its share token
	wp2 := httptest.NewRecorder()
	h.public(wp2, httptest.NewRequest(http.MethodGet, "/api/public/documents?token="+doc.PublicToken, nil))
	if wp2.Code != http.StatusOK {
		t.Fatalf("public view: %d", wp2.Code)
	}

	// editing lines after finalization is refused
	w3 := httptest.NewRecorder()
	h.lines(w3, authedJSON(http.MethodPut, fmt.Sprintf("/api/documents/lines?id=%d", doc.ID), `{"lines":[]}`, user.ID))
	if w3.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", w3.Code)
	}
}

func TestDocumentCreateWithoutSerie(t *testing.T) {
	db := setupTestDB(t)
	user, company := seedAccount(t, db, "*:*")
	client := models.Client{CompanyID: company.ID, Nom: "ClientCo"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	h := NewDocumentHandler(db, testGate(db))

	// drafting without any série is fine; finalization needs one
	body := fmt.Sprintf(`{"type":"facture","client_id":%d,"lines":[{"designation":"x","quantite":1,"prix_unitaire_ht":10}]}`, client.ID)
	w := httptest.NewRecorder()
	h.collection(w, authedJSON(http.MethodPost, "/api/documents", body, user.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var doc models.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	w2 := httptest.NewRecorder()
	h.finalize(w2, authedJSON(http.MethodPost, fmt.Sprintf("/api/documents/finalize?id=%d", doc.ID), "", user.ID))
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 no_serie_for_type, got %d", w2.Code)
	}
}

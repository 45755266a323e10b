package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"gestifac/httpx"
	"gestifac/i18n"
	"gestifac/internal/gate"
	"gestifac/internal/middleware"
	"gestifac/internal/models"
	"gestifac/internal/services"
)

type DocumentHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate
	Docs *services.DocumentService
}

func NewDocumentHandler(db *gorm.DB, g *gate.Gate) *DocumentHandler {
	return &DocumentHandler{DB: db, Gate: g, Docs: services.NewDocumentService(db)}
}

func (h *DocumentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/documents", h.collection)
	mux.HandleFunc("/api/documents/item", h.item)
	mux.HandleFunc("/api/documents/lines", h.lines)
	mux.HandleFunc("/api/documents/finalize", h.finalize)
	mux.HandleFunc("/api/documents/quote-status", h.quoteStatus)
	mux.HandleFunc("/api/documents/convert", h.convert)
	mux.HandleFunc("/api/documents/credit-note", h.creditNote)
}

// RegisterPublic mounts the unauthenticated share-link endpoint.
func (h *DocumentHandler) RegisterPublic(mux *http.ServeMux) {
	mux.HandleFunc("/api/public/documents", h.public)
}

func (h *DocumentHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "document", gate.ActionView); !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Where("company_id = ?", company.ID)
	if t := r.URL.Query().Get("type"); t != "" {
		dbq = dbq.Where("type = ?", t)
	}
	if st := r.URL.Query().Get("status"); st != "" {
		dbq = dbq.Where("status = ?", st)
	}
	if cl := r.URL.Query().Get("client_id"); cl != "" {
		dbq = dbq.Where("client_id = ?", cl)
	}
	var total int64
	dbq.Model(&models.Document{}).Count(&total)
	var docs []models.Document
	if err := dbq.Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&docs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
		return
	}
	httpx.JSONList(w, docs, total, limit, offset)
}

func (h *DocumentHandler) item(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if _, ok := allow(w, r, h.Gate, "document", gate.ActionView); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var doc models.Document
	if err := h.DB.Preload("Client.Address").Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc, id asc")
	}).First(&doc, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, ok := allow(w, r, h.Gate, "document", gate.ActionCreate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	var input struct {
		Type     string               `json:"type"`
		ClientID uint                 `json:"client_id"`
		SerieID  uint                 `json:"serie_id"`
		Lines    []services.LineInput `json:"lines"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Docs.Create(uid, company.ID, input.Type, input.ClientID, input.SerieID, input.Lines)
	if err != nil {
		h.writeDocError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) lines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		methodNotAllowed(w, "PUT,POST")
		return
	}
	uid, ok := allow(w, r, h.Gate, "document", gate.ActionUpdate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		Lines []services.LineInput `json:"lines"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Docs.UpdateLines(uid, company.ID, id, input.Lines)
	if err != nil {
		h.writeDocError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) finalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	uid, ok := allow(w, r, h.Gate, "document", gate.ActionUpdate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	doc, err := h.Docs.Finalize(uid, company.ID, id, time.Now())
	if err != nil {
		h.writeDocError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) quoteStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	uid, ok := allow(w, r, h.Gate, "document", gate.ActionUpdate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	var input struct {
		ID     uint   `json:"id"`
		Status string `json:"status"` // accepted ou refused
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Docs.SetQuoteStatus(uid, company.ID, input.ID, input.Status); err != nil {
		h.writeDocError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": input.ID, "status": input.Status})
}

func (h *DocumentHandler) convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	uid, ok := allow(w, r, h.Gate, "document", gate.ActionCreate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	inv, err := h.Docs.ConvertQuote(uid, company.ID, id)
	if err != nil {
		h.writeDocError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *DocumentHandler) creditNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	uid, ok := allow(w, r, h.Gate, "document", gate.ActionCreate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	avoir, err := h.Docs.CreateCreditNote(uid, company.ID, id)
	if err != nil {
		h.writeDocError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, avoir)
}

// public serves a document through its share token, no session needed.
// Drafts are never exposed.
func (h *DocumentHandler) public(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_token", nil)
		return
	}
	var doc models.Document
	if err := h.DB.Preload("Client").Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc, id asc")
	}).Where("public_token = ? AND status <> ?", token, models.StatusDraft).First(&doc).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// writeDocError maps service sentinels to HTTP codes; the details carry
// a message localized to the request language.
func (h *DocumentHandler) writeDocError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "document_failed"
	switch {
	case errors.Is(err, services.ErrUnknownDocument), errors.Is(err, gorm.ErrRecordNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrDocFinalized):
		status, code = http.StatusConflict, "document_finalized"
	case errors.Is(err, services.ErrEmptyDocument):
		status, code = http.StatusBadRequest, "empty_document"
	case errors.Is(err, services.ErrWrongType):
		status, code = http.StatusBadRequest, "wrong_document_type"
	case errors.Is(err, services.ErrWrongStatus):
		status, code = http.StatusConflict, "wrong_document_status"
	case errors.Is(err, services.ErrUnknownArticle):
		status, code = http.StatusBadRequest, "unknown_article"
	case errors.Is(err, services.ErrNoSerie):
		status, code = http.StatusBadRequest, "no_serie_for_type"
	}
	httpx.JSONError(w, status, code, map[string]string{"message": i18n.T(middleware.LangFrom(r), code)})
}

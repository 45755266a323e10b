package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"
	"gestifac/internal/services"
	"gestifac/validation"
)

type ClientHandler struct {
	DB      *gorm.DB
	Gate    *gate.Gate
	Loyalty *services.LoyaltyService
}

func NewClientHandler(db *gorm.DB, g *gate.Gate) *ClientHandler {
	return &ClientHandler{DB: db, Gate: g, Loyalty: services.NewLoyaltyService(db)}
}

func (h *ClientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/clients", h.collection)
	mux.HandleFunc("/api/clients/item", h.item)
	mux.HandleFunc("/api/clients/loyalty", h.loyalty)
}

func (h *ClientHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *ClientHandler) item(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	default:
		methodNotAllowed(w, "GET,PUT,PATCH")
	}
}

func (h *ClientHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "client", gate.ActionView); !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Where("company_id = ?", company.ID)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSafe.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(nom) LIKE ? OR lower(email) LIKE ?", like, like)
	}
	var total int64
	dbq.Model(&models.Client{}).Count(&total)
	var clients []models.Client
	if err := dbq.Preload("Address").Order("nom asc").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
		return
	}
	httpx.JSONList(w, clients, total, limit, offset)
}

func (h *ClientHandler) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "client", gate.ActionView); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.Preload("Address").First(&client, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

type clientInput struct {
	Nom        string `json:"nom"`
	Contact    string `json:"contact"`
	Email      string `json:"email"`
	Telephone  string `json:"telephone"`
	SIRET      string `json:"siret"`
	TVAIntra   string `json:"tva_intra"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

func (in clientInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("nom", in.Nom, v)
	validation.SIRET("siret", in.SIRET, v)
	return v
}

func (h *ClientHandler) create(w http.ResponseWriter, r *http.Request) {
	_, ok := allow(w, r, h.Gate, "client", gate.ActionCreate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	var input clientInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := input.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var client models.Client
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		addr := models.Address{Ligne1: input.Address1, Ligne2: input.Address2, CodePostal: input.PostalCode, Ville: input.City, Pays: input.Country, Type: "principale"}
		if err := tx.Create(&addr).Error; err != nil {
			return err
		}
		client = models.Client{
			CompanyID: company.ID,
			Nom:       input.Nom,
			Contact:   input.Contact,
			Email:     strings.ToLower(strings.TrimSpace(input.Email)),
			Telephone: input.Telephone,
			SIRET:     input.SIRET,
			TVAIntra:  input.TVAIntra,
			AddressID: addr.ID,
		}
		return tx.Create(&client).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) update(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "client", gate.ActionUpdate); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var input clientInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := input.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	client.Nom = input.Nom
	client.Contact = input.Contact
	client.Email = strings.ToLower(strings.TrimSpace(input.Email))
	client.Telephone = input.Telephone
	client.SIRET = input.SIRET
	client.TVAIntra = input.TVAIntra
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if client.AddressID != 0 {
			if err := tx.Model(&models.Address{}).Where("id = ?", client.AddressID).
				Updates(models.Address{Ligne1: input.Address1, Ligne2: input.Address2, CodePostal: input.PostalCode, Ville: input.City, Pays: input.Country}).Error; err != nil {
				return err
			}
		}
		return tx.Save(&client).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// loyalty exposes a client's points: GET ?id=N lists the ledger, POST
// applies an adjust or redeem movement.
func (h *ClientHandler) loyalty(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := allow(w, r, h.Gate, "loyalty", gate.ActionView); !ok {
			return
		}
		id := queryID(r)
		if id == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
			return
		}
		var client models.Client
		if err := h.DB.First(&client, id).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		limit, _ := pagination(r)
		entries, err := h.Loyalty.History(id, limit)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"balance": client.PointsFidelite, "entries": entries})
	case http.MethodPost:
		uid, ok := allow(w, r, h.Gate, "loyalty", gate.ActionUpdate)
		if !ok {
			return
		}
		var input struct {
			ClientID uint   `json:"client_id"`
			Motif    string `json:"motif"` // adjust ou redeem
			Points   int    `json:"points"`
			Note     string `json:"note"`
		}
		if err := httpx.Decode(r, &input); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		var err error
		switch input.Motif {
		case models.LoyaltyAdjust:
			err = h.Loyalty.Adjust(uid, input.ClientID, input.Points, input.Note)
		case models.LoyaltyRedeem:
			err = h.Loyalty.Redeem(uid, input.ClientID, input.Points, input.Note)
		default:
			httpx.JSONError(w, http.StatusBadRequest, "invalid_motif", nil)
			return
		}
		if err != nil {
			if errors.Is(err, services.ErrInsufficientPoints) {
				httpx.JSONError(w, http.StatusConflict, "insufficient_points", nil)
				return
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "loyalty_failed", nil)
			return
		}
		var client models.Client
		if err := h.DB.First(&client, input.ClientID).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"balance": client.PointsFidelite})
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

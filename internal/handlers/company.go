package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"gestifac/auth"
	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"
	"gestifac/internal/services"
	"gestifac/validation"
)

type CompanyHandler struct {
	DB    *gorm.DB
	Gate  *gate.Gate
	Setup *services.SetupService
}

func NewCompanyHandler(db *gorm.DB, g *gate.Gate) *CompanyHandler {
	return &CompanyHandler{DB: db, Gate: g, Setup: services.NewSetupService(db)}
}

func (h *CompanyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/setup", h.setup)
	mux.HandleFunc("/api/settings", h.settings)
	mux.HandleFunc("/api/audit", h.audit)
}

type companyInput struct {
	Company    string `json:"company"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	SIRET      string `json:"siret"`
	TVAIntra   string `json:"tva_intra"`
	Email      string `json:"email"`
	Telephone  string `json:"telephone"`
	IBAN       string `json:"iban"`
}

func (in companyInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("company", in.Company, v)
	validation.Required("address1", in.Address1, v)
	validation.Required("postal_code", in.PostalCode, v)
	validation.Required("city", in.City, v)
	validation.Required("country", in.Country, v)
	validation.SIRET("siret", in.SIRET, v)
	return v
}

func (in companyInput) toSetup(uid uint) services.SetupInput {
	return services.SetupInput{
		Company:    in.Company,
		Address1:   in.Address1,
		Address2:   in.Address2,
		PostalCode: in.PostalCode,
		City:       in.City,
		Country:    in.Country,
		SIRET:      in.SIRET,
		TVAIntra:   in.TVAIntra,
		Email:      in.Email,
		Telephone:  in.Telephone,
		IBAN:       in.IBAN,
		UserID:     uid,
	}
}

// setup runs the first-time company configuration. GET reports whether
// it already ran so the client can route to the wizard.
func (h *CompanyHandler) setup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		uid, _ := auth.UserIDFromContext(r.Context())
		if uid == 0 {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		configured, err := h.Setup.IsConfigured()
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "setup_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"configured": configured})
	case http.MethodPost:
		uid, ok := allow(w, r, h.Gate, "settings", gate.ActionManage)
		if !ok {
			return
		}
		var input companyInput
		if err := httpx.Decode(r, &input); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		if v := input.validate(); !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		cs, err := h.Setup.Run(input.toSetup(uid))
		if err != nil {
			if errors.Is(err, services.ErrAlreadyConfigured) {
				httpx.JSONError(w, http.StatusConflict, "company_already_configured", nil)
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "setup_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, cs)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *CompanyHandler) settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := allow(w, r, h.Gate, "settings", gate.ActionView); !ok {
			return
		}
		cs, err := h.Setup.Get()
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "settings_failed", nil)
			return
		}
		if cs == nil {
			httpx.JSONError(w, http.StatusNotFound, "company_not_configured", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, cs)
	case http.MethodPut, http.MethodPatch:
		uid, ok := allow(w, r, h.Gate, "settings", gate.ActionManage)
		if !ok {
			return
		}
		var input companyInput
		if err := httpx.Decode(r, &input); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		if v := input.validate(); !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		cs, err := h.Setup.Update(input.toSetup(uid))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httpx.JSONError(w, http.StatusNotFound, "company_not_configured", nil)
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "settings_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, cs)
	default:
		methodNotAllowed(w, "GET,PUT,PATCH")
	}
}

// audit lists recent audit entries, newest first.
func (h *CompanyHandler) audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if _, ok := allow(w, r, h.Gate, "audit", gate.ActionView); !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.AuditLog{})
	if et := r.URL.Query().Get("entity_type"); et != "" {
		dbq = dbq.Where("entity_type = ?", et)
	}
	var total int64
	dbq.Count(&total)
	var entries []models.AuditLog
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
		return
	}
	httpx.JSONList(w, entries, total, limit, offset)
}

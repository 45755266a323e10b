package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"
	"gestifac/internal/numbering"
	"gestifac/internal/services"
	"gestifac/validation"
)

type SerieHandler struct {
	DB     *gorm.DB
	Gate   *gate.Gate
	Series *services.SerieService
}

func NewSerieHandler(db *gorm.DB, g *gate.Gate) *SerieHandler {
	return &SerieHandler{DB: db, Gate: g, Series: services.NewSerieService(db)}
}

func (h *SerieHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/series", h.collection)
	mux.HandleFunc("/api/series/item", h.item)
	mux.HandleFunc("/api/series/preview", h.preview)
	mux.HandleFunc("/api/series/variables", h.variables)
}

func (h *SerieHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.save(w, r, 0)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *SerieHandler) item(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		id := queryID(r)
		if id == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
			return
		}
		h.save(w, r, id)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w, "PUT,PATCH,DELETE")
	}
}

func (h *SerieHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "serie", gate.ActionView); !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	dbq := h.DB.Where("company_id = ?", company.ID)
	if t := r.URL.Query().Get("type"); t != "" {
		dbq = dbq.Where("type = ?", t)
	}
	var series []models.Serie
	if err := dbq.Order("type asc, id asc").Find(&series).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, series)
}

func (h *SerieHandler) save(w http.ResponseWriter, r *http.Request, id uint) {
	if _, ok := allow(w, r, h.Gate, "serie", gate.ActionManage); !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	var input struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		Format      string `json:"format"`
		ResetPolicy string `json:"reset_policy"`
		IsDefault   bool   `json:"is_default"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("code", input.Code, v)
	validation.OneOf("type", input.Type, []string{models.DocDevis, models.DocFacture, models.DocAvoir}, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	serie := models.Serie{CompanyID: company.ID, Type: input.Type, Code: input.Code, Format: input.Format, ResetPolicy: input.ResetPolicy, IsDefault: input.IsDefault}
	if serie.ResetPolicy == "" {
		serie.ResetPolicy = models.ResetNever
	}
	if id != 0 {
		var existing models.Serie
		if err := h.DB.Where("company_id = ?", company.ID).First(&existing, id).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		// type and counter are fixed once created
		serie.ID = existing.ID
		serie.Type = existing.Type
		serie.Compteur = existing.Compteur
		serie.Periode = existing.Periode
	}
	if err := h.Series.Save(&serie); err != nil {
		if errors.Is(err, services.ErrInvalidReset) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_reset_policy", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "save_failed", nil)
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, serie)
}

func (h *SerieHandler) delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "serie", gate.ActionManage); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Series.Delete(id); err != nil {
		if errors.Is(err, services.ErrSerieInUse) {
			httpx.JSONError(w, http.StatusConflict, "serie_in_use", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// preview renders the next number a saved série would emit (?id=N), or
// an ad-hoc format posted in the body without touching any counter.
func (h *SerieHandler) preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "serie", gate.ActionView); !ok {
		return
	}
	now := time.Now()
	switch r.Method {
	case http.MethodGet:
		id := queryID(r)
		if id == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
			return
		}
		var serie models.Serie
		if err := h.DB.First(&serie, id).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"preview": h.Series.Preview(&serie, now)})
	case http.MethodPost:
		var input struct {
			Format  string `json:"format"`
			Code    string `json:"code"`
			Type    string `json:"type"`
			Counter int    `json:"counter"`
		}
		if err := httpx.Decode(r, &input); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		if input.Counter <= 0 {
			input.Counter = 1
		}
		ctx := numbering.Context{
			Code:    input.Code,
			Counter: input.Counter,
			Year:    now.Year(),
			Month:   int(now.Month()),
			Type:    models.DocTypeShortCode(input.Type),
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"preview": numbering.Render(services.SanitizeFormat(input.Format), ctx)})
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

// variables lists the tokens the format editor can offer.
func (h *SerieHandler) variables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if _, ok := allow(w, r, h.Gate, "serie", gate.ActionView); !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"variables": numbering.Variables, "default_format": numbering.DefaultFormat})
}

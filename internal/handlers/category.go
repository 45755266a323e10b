package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"
	"gestifac/internal/services"
	"gestifac/validation"
)

type CategoryHandler struct {
	DB      *gorm.DB
	Gate    *gate.Gate
	Catalog *services.CatalogService
}

func NewCategoryHandler(db *gorm.DB, g *gate.Gate) *CategoryHandler {
	return &CategoryHandler{DB: db, Gate: g, Catalog: services.NewCatalogService(db)}
}

func (h *CategoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/categories", h.collection)
	mux.HandleFunc("/api/categories/item", h.item)
	mux.HandleFunc("/api/categories/templates", h.templates)
}

func (h *CategoryHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.tree(w, r)
	case http.MethodPost:
		h.save(w, r, 0)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *CategoryHandler) item(w http.ResponseWriter, r *http.Request) {
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

func (h *CategoryHandler) tree(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "category", gate.ActionView); !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	roots, err := h.Catalog.Tree(company.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, roots)
}

func (h *CategoryHandler) save(w http.ResponseWriter, r *http.Request, id uint) {
	action := gate.ActionCreate
	if id != 0 {
		action = gate.ActionUpdate
	}
	uid, ok := allow(w, r, h.Gate, "category", action)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	var input struct {
		Nom      string `json:"nom"`
		ParentID *uint  `json:"parent_id"`
		Position int    `json:"position"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("nom", input.Nom, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	cat := models.Category{ID: id, CompanyID: company.ID, Nom: input.Nom, ParentID: input.ParentID, Position: input.Position}
	if id != 0 {
		var existing models.Category
		if err := h.DB.Where("company_id = ?", company.ID).First(&existing, id).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
	}
	if err := h.Catalog.SaveCategory(uid, &cat); err != nil {
		switch {
		case errors.Is(err, services.ErrCategoryDepth):
			httpx.JSONError(w, http.StatusBadRequest, "category_depth", nil)
		case errors.Is(err, services.ErrCategoryCycle):
			httpx.JSONError(w, http.StatusBadRequest, "category_cycle", nil)
		case errors.Is(err, gorm.ErrRecordNotFound):
			httpx.JSONError(w, http.StatusBadRequest, "unknown_parent", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "save_failed", nil)
		}
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, cat)
}

func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := allow(w, r, h.Gate, "category", gate.ActionDelete)
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
	if err := h.Catalog.DeleteCategory(uid, company.ID, id); err != nil {
		if errors.Is(err, services.ErrCategoryInUse) {
			httpx.JSONError(w, http.StatusConflict, "category_in_use", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// templates manages the custom-field templates of one category
// (?category_id=N). POST replaces the whole template list.
func (h *CategoryHandler) templates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := allow(w, r, h.Gate, "category", gate.ActionView); !ok {
			return
		}
		var tpls []models.CustomFieldTemplate
		if err := h.DB.Where("category_id = ?", r.URL.Query().Get("category_id")).
			Order("position asc, id asc").Find(&tpls).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, tpls)
	case http.MethodPost:
		uid, ok := allow(w, r, h.Gate, "category", gate.ActionUpdate)
		if !ok {
			return
		}
		company, ok := currentCompany(w, h.DB)
		if !ok {
			return
		}
		var input struct {
			CategoryID uint `json:"category_id"`
			Templates  []struct {
				Nom         string `json:"nom"`
				Type        string `json:"type"`
				Obligatoire bool   `json:"obligatoire"`
				Position    int    `json:"position"`
			} `json:"templates"`
		}
		if err := httpx.Decode(r, &input); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		var cat models.Category
		if err := h.DB.Where("company_id = ?", company.ID).First(&cat, input.CategoryID).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		v := validation.Violations{}
		tpls := make([]models.CustomFieldTemplate, 0, len(input.Templates))
		for _, t := range input.Templates {
			validation.Required("nom", t.Nom, v)
			validation.OneOf("type", t.Type, []string{models.FieldText, models.FieldNumber, models.FieldBool, models.FieldDate}, v)
			tpls = append(tpls, models.CustomFieldTemplate{CategoryID: cat.ID, Nom: t.Nom, Type: t.Type, Obligatoire: t.Obligatoire, Position: t.Position})
		}
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("category_id = ?", cat.ID).Delete(&models.CustomFieldTemplate{}).Error; err != nil {
				return err
			}
			if len(tpls) > 0 {
				if err := tx.Create(&tpls).Error; err != nil {
					return err
				}
			}
			return tx.Create(&models.AuditLog{UserID: uid, EntityType: "Category", EntityID: cat.ID, Action: "update", Detail: "templates"}).Error
		})
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "save_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, tpls)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

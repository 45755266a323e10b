package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"
	"gestifac/internal/services"
	"gestifac/validation"
)

type ArticleHandler struct {
	DB      *gorm.DB
	Gate    *gate.Gate
	Catalog *services.CatalogService
}

func NewArticleHandler(db *gorm.DB, g *gate.Gate) *ArticleHandler {
	return &ArticleHandler{DB: db, Gate: g, Catalog: services.NewCatalogService(db)}
}

func (h *ArticleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/articles", h.collection)
	mux.HandleFunc("/api/articles/item", h.item)
}

func (h *ArticleHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *ArticleHandler) item(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w, "GET,PUT,PATCH,DELETE")
	}
}

var searchSafe = regexp.MustCompile(`[^a-zA-Z0-9 \-_À-ÿ]`)

func (h *ArticleHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "article", gate.ActionView); !ok {
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
		dbq = dbq.Where("lower(designation) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	if cat := r.URL.Query().Get("category_id"); cat != "" {
		dbq = dbq.Where("category_id = ?", cat)
	}
	var total int64
	dbq.Model(&models.Article{}).Count(&total)
	var articles []models.Article
	if err := dbq.Preload("Category").Preload("FieldValues.Template").
		Order("id desc").Limit(limit).Offset(offset).Find(&articles).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
		return
	}
	httpx.JSONList(w, articles, total, limit, offset)
}

func (h *ArticleHandler) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "article", gate.ActionView); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var art models.Article
	if err := h.DB.Preload("Category").Preload("FieldValues.Template").First(&art, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, art)
}

type articleInput struct {
	Code           string                      `json:"code"`
	Designation    string                      `json:"designation"`
	Description    string                      `json:"description"`
	PrixUnitaireHT float64                     `json:"prix_unitaire_ht"`
	TVATaux        float64                     `json:"tva_taux"`
	Unite          string                      `json:"unite"`
	CategoryID     *uint                       `json:"category_id"`
	FieldValues    []services.FieldValueInput  `json:"field_values"`
}

func (h *ArticleHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, ok := allow(w, r, h.Gate, "article", gate.ActionCreate)
	if !ok {
		return
	}
	company, ok := currentCompany(w, h.DB)
	if !ok {
		return
	}
	var input articleInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("code", input.Code, v)
	validation.Required("designation", input.Designation, v)
	validation.PositiveFloat("prix_unitaire_ht", input.PrixUnitaireHT, v)
	validation.Percent("tva_taux", input.TVATaux, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	values, err := h.Catalog.ValidateFieldValues(input.CategoryID, input.FieldValues)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	art := models.Article{
		CompanyID:      company.ID,
		UserID:         uid,
		Code:           strings.ToUpper(strings.TrimSpace(input.Code)),
		Designation:    input.Designation,
		Description:    input.Description,
		PrixUnitaireHT: input.PrixUnitaireHT,
		TVATaux:        input.TVATaux,
		Unite:          input.Unite,
		CategoryID:     input.CategoryID,
		FieldValues:    values,
	}
	if err := h.DB.Create(&art).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "code_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, art)
}

// update edits designation, price, rate, category and custom fields.
// The code is immutable once created.
func (h *ArticleHandler) update(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "article", gate.ActionUpdate); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var art models.Article
	if err := h.DB.First(&art, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var input struct {
		Designation    *string                    `json:"designation"`
		Description    *string                    `json:"description"`
		PrixUnitaireHT *float64                   `json:"prix_unitaire_ht"`
		TVATaux        *float64                   `json:"tva_taux"`
		Unite          *string                    `json:"unite"`
		CategoryID     *uint                      `json:"category_id"`
		FieldValues    []services.FieldValueInput `json:"field_values"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Designation != nil {
		art.Designation = *input.Designation
	}
	if input.Description != nil {
		art.Description = *input.Description
	}
	if input.PrixUnitaireHT != nil {
		v := validation.Violations{}
		validation.PositiveFloat("prix_unitaire_ht", *input.PrixUnitaireHT, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		art.PrixUnitaireHT = *input.PrixUnitaireHT
	}
	if input.TVATaux != nil {
		v := validation.Violations{}
		validation.Percent("tva_taux", *input.TVATaux, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		art.TVATaux = *input.TVATaux
	}
	if input.Unite != nil {
		art.Unite = *input.Unite
	}
	if input.CategoryID != nil {
		if *input.CategoryID == 0 {
			art.CategoryID = nil
		} else {
			art.CategoryID = input.CategoryID
		}
	}
	var values []models.ArticleFieldValue
	if input.FieldValues != nil {
		var err error
		values, err = h.Catalog.ValidateFieldValues(art.CategoryID, input.FieldValues)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&art).Error; err != nil {
			return err
		}
		if input.FieldValues != nil {
			if err := tx.Where("article_id = ?", art.ID).Delete(&models.ArticleFieldValue{}).Error; err != nil {
				return err
			}
			for i := range values {
				values[i].ArticleID = art.ID
			}
			if len(values) > 0 {
				if err := tx.Create(&values).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, art)
}

// delete is a soft delete; document lines keep their snapshot.
func (h *ArticleHandler) delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := allow(w, r, h.Gate, "article", gate.ActionDelete); !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.DB.Delete(&models.Article{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

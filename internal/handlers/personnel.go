package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"
	"gestifac/validation"
)

// PersonnelHandler manages users and their roles. Role changes
// invalidate the cached authorization profile so they apply on the next
// request, not when the TTL expires.
type PersonnelHandler struct {
	DB    *gorm.DB
	Gate  *gate.Gate
	Cache *gate.CachedResolver
}

func NewPersonnelHandler(db *gorm.DB, g *gate.Gate, cache *gate.CachedResolver) *PersonnelHandler {
	return &PersonnelHandler{DB: db, Gate: g, Cache: cache}
}

func (h *PersonnelHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/users", h.users)
	mux.HandleFunc("/api/users/item", h.userItem)
	mux.HandleFunc("/api/roles", h.roles)
	mux.HandleFunc("/api/roles/item", h.roleItem)
}

func (h *PersonnelHandler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := allow(w, r, h.Gate, "user", gate.ActionView); !ok {
			return
		}
		limit, offset := pagination(r)
		var total int64
		h.DB.Model(&models.User{}).Count(&total)
		var users []models.User
		if err := h.DB.Preload("Role").Order("id asc").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
			return
		}
		httpx.JSONList(w, users, total, limit, offset)
	case http.MethodPost:
		h.createUser(w, r)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *PersonnelHandler) createUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := allow(w, r, h.Gate, "user", gate.ActionManage)
	if !ok {
		return
	}
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Nom      string `json:"nom"`
		Prenom   string `json:"prenom"`
		RoleID   uint   `json:"role_id"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	v := validation.Violations{}
	validation.Required("email", input.Email, v)
	validation.Required("password", input.Password, v)
	if input.RoleID == 0 {
		v["role_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var role models.Role
	if err := h.DB.First(&role, input.RoleID).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "unknown_role", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "hash_failed", nil)
		return
	}
	user := models.User{Email: input.Email, Password: string(hash), Nom: input.Nom, Prenom: input.Prenom, RoleID: role.ID, Actif: true}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{UserID: uid, EntityType: "User", EntityID: user.ID, Action: "create", Detail: user.Email}).Error
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "email_already_used", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// userItem updates a user: role change, activation toggle, identity.
func (h *PersonnelHandler) userItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		methodNotAllowed(w, "PUT,PATCH")
		return
	}
	uid, ok := allow(w, r, h.Gate, "user", gate.ActionManage)
	if !ok {
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var input struct {
		Nom    *string `json:"nom"`
		Prenom *string `json:"prenom"`
		RoleID *uint   `json:"role_id"`
		Actif  *bool   `json:"actif"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Nom != nil {
		user.Nom = *input.Nom
	}
	if input.Prenom != nil {
		user.Prenom = *input.Prenom
	}
	if input.RoleID != nil {
		var role models.Role
		if err := h.DB.First(&role, *input.RoleID).Error; err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "unknown_role", nil)
			return
		}
		user.RoleID = role.ID
	}
	if input.Actif != nil {
		if !*input.Actif && user.ID == uid {
			httpx.JSONError(w, http.StatusBadRequest, "cannot_disable_self", nil)
			return
		}
		user.Actif = *input.Actif
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{UserID: uid, EntityType: "User", EntityID: user.ID, Action: "update", Detail: user.Email}).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if h.Cache != nil {
		h.Cache.Invalidate(user.ID)
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *PersonnelHandler) roles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := allow(w, r, h.Gate, "role", gate.ActionView); !ok {
			return
		}
		var roles []models.Role
		if err := h.DB.Order("id asc").Find(&roles).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "list_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, roles)
	case http.MethodPost:
		h.saveRole(w, r, 0)
	default:
		methodNotAllowed(w, "GET,POST")
	}
}

func (h *PersonnelHandler) roleItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		methodNotAllowed(w, "PUT,PATCH")
		return
	}
	id := queryID(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	h.saveRole(w, r, id)
}

func (h *PersonnelHandler) saveRole(w http.ResponseWriter, r *http.Request, id uint) {
	uid, ok := allow(w, r, h.Gate, "role", gate.ActionManage)
	if !ok {
		return
	}
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Permissions string `json:"permissions"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	for _, p := range gate.ParseList(input.Permissions) {
		if res, act := p.Parse(); res == "" || act == "" {
			v["permissions"] = "invalid_permission"
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	role := models.Role{ID: id, Name: input.Name, Description: input.Description, Permissions: input.Permissions}
	if id != 0 {
		var existing models.Role
		if err := h.DB.First(&existing, id).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&role).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{UserID: uid, EntityType: "Role", EntityID: role.ID, Action: roleAction(id), Detail: role.Name}).Error
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "role_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "save_failed", nil)
		return
	}
	// drop every cached profile carrying the old permission set
	if id != 0 && h.Cache != nil {
		var users []models.User
		if err := h.DB.Select("id").Where("role_id = ?", role.ID).Find(&users).Error; err == nil {
			for _, u := range users {
				h.Cache.Invalidate(u.ID)
			}
		}
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, role)
}

func roleAction(id uint) string {
	if id == 0 {
		return "create"
	}
	return "update"
}

// Package handlers exposes the JSON API. Each handler owns its slice of
// the domain and delegates business rules to internal/services; the
// authorization gate is consulted before any mutation.
package handlers

import (
	"net/http"
	"strconv"

	"gestifac/auth"
	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/models"

	"gorm.io/gorm"
)

// queryID reads the "id" query parameter, 0 when absent or invalid.
func queryID(r *http.Request) uint {
	n, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || n <= 0 {
		return 0
	}
	return uint(n)
}

// pagination reads limit/page query params with the usual bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// allow extracts the session user and checks the permission. On failure
// it writes the JSON error and returns ok=false.
func allow(w http.ResponseWriter, r *http.Request, g *gate.Gate, resource string, action gate.Action) (uint, bool) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if uid == 0 {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return 0, false
	}
	if err := g.Authorize(r.Context(), uid, resource, action); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return 0, false
	}
	return uid, true
}

// currentCompany returns the single configured company, or writes a 400.
func currentCompany(w http.ResponseWriter, db *gorm.DB) (models.CompanySettings, bool) {
	var company models.CompanySettings
	if err := db.Select("id").First(&company).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "company_not_configured", nil)
		return company, false
	}
	return company, true
}

func methodNotAllowed(w http.ResponseWriter, allowHeader string) {
	w.Header().Set("Allow", allowHeader)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

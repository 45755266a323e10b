// Package server assembles the HTTP routing: public endpoints, the
// session-guarded API, and the middleware chain around them.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestifac/auth"
	"gestifac/httpx"
	"gestifac/internal/gate"
	"gestifac/internal/handlers"
	"gestifac/internal/middleware"
	"gestifac/internal/models"
)

// profileCacheTTL bounds how long a stale role survives in the
// authorization cache; explicit invalidation usually wins anyway.
const profileCacheTTL = 5 * time.Minute

// New constructs the root http.Handler with all routes and middlewares.
func New(db *gorm.DB, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	// a session pointing at a deleted or disabled user is worthless
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ? AND actif = ?", uid, true).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	cache := gate.NewCachedResolver(gate.NewDBResolver(db), profileCacheTTL)
	g := gate.New(cache)

	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"service": "gestifac", "status": "ok"})
	})
	//revive:enable:unused-parameter

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	docHandler := handlers.NewDocumentHandler(db, g)
	docHandler.RegisterPublic(mux)

	// everything below requires a valid session
	api := http.NewServeMux()
	authHandler.RegisterAuthed(api)
	handlers.NewCompanyHandler(db, g).Register(api)
	handlers.NewArticleHandler(db, g).Register(api)
	handlers.NewCategoryHandler(db, g).Register(api)
	handlers.NewClientHandler(db, g).Register(api)
	docHandler.Register(api)
	handlers.NewSerieHandler(db, g).Register(api)
	handlers.NewPersonnelHandler(db, g, cache).Register(api)

	guarded := auth.RequireAuth(api)
	for _, prefix := range []string{
		"/api/me",
		"/api/setup", "/api/settings", "/api/audit",
		"/api/articles", "/api/articles/",
		"/api/categories", "/api/categories/",
		"/api/clients", "/api/clients/",
		"/api/documents", "/api/documents/",
		"/api/series", "/api/series/",
		"/api/users", "/api/users/",
		"/api/roles", "/api/roles/",
	} {
		mux.Handle(prefix, guarded)
	}

	return middleware.Prefs(auth.Middleware(middleware.Recover(log, middleware.Logging(log, mux))))
}

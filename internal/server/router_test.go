package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestifac/internal/db"
	"gestifac/internal/server"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, m := range db.AllModels {
		if err := conn.AutoMigrate(m); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	log := logrus.New()
	log.SetOutput(new(strings.Builder))
	return server.New(conn, log)
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	root := setupRouter(t)
	for _, path := range []string{"/health", "/healthz"} {
		rr := httptest.NewRecorder()
		root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rr.Code)
		}
	}
}

func TestAPIRequiresSession(t *testing.T) {
	root := setupRouter(t)
	for _, path := range []string{"/api/me", "/api/articles", "/api/documents", "/api/settings"} {
		rr := httptest.NewRecorder()
		root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rr.Code)
		}
	}
}

func TestSignupSetupArticleFlow(t *testing.T) {
	root := setupRouter(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"owner@test.fr","password":"longenough"}`))
	req.Header.Set("Content-Type", "application/json")
	root.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rr.Code, rr.Body.String())
	}
	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatalf("missing session cookie")
	}

	authed := func(method, path, body string) *httptest.ResponseRecorder {
		var rd *strings.Reader
		if body == "" {
			rd = strings.NewReader("")
		} else {
			rd = strings.NewReader(body)
		}
		r := httptest.NewRequest(method, path, rd)
		r.Header.Set("Content-Type", "application/json")
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		root.ServeHTTP(w, r)
		return w
	}

	// session works
	if w := authed(http.MethodGet, "/api/me", ""); w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	// not configured yet
	w := authed(http.MethodGet, "/api/setup", "")
	var status map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["configured"] {
		t.Fatalf("fresh install should not be configured")
	}
	// run setup
	w = authed(http.MethodPost, "/api/setup", `{"company":"Atelier","address1":"1 rue","postal_code":"75000","city":"Paris","country":"FR","siret":"12345678900011"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("setup: %d %s", w.Code, w.Body.String())
	}
	// catalog works once the company exists
	w = authed(http.MethodPost, "/api/articles", `{"code":"SKU1","designation":"Prestation","prix_unitaire_ht":100,"tva_taux":20}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("article: %d %s", w.Code, w.Body.String())
	}
	w = authed(http.MethodGet, "/api/articles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}

	// logout kills the session
	w = authed(http.MethodPost, "/api/logout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
}

func TestPublicDocumentRouteOpen(t *testing.T) {
	root := setupRouter(t)
	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/public/documents?token=nope", nil))
	// no auth wall, just a 404 for an unknown token
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func testManager() *Manager {
	return NewManager([]Key{
		{Token: "reader-token", Name: "dashboard", Role: RoleReader},
		{Token: "writer-token", Name: "pipeline", Role: RoleWriter},
		{Token: "", Name: "unset", Role: RoleWriter},
	})
}

func doRequest(t *testing.T, m *Manager, method, token string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := m.RequireKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := CallerFromContext(r.Context()); !ok {
			t.Error("caller missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/tests", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func TestRequireKeyRejectsMissingToken(t *testing.T) {
	rec, called := doRequest(t, testManager(), http.MethodGet, "")
	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("code = %d, called = %v", rec.Code, called)
	}
}

func TestRequireKeyRejectsUnknownToken(t *testing.T) {
	rec, called := doRequest(t, testManager(), http.MethodGet, "who-dis")
	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("code = %d, called = %v", rec.Code, called)
	}
}

func TestReaderKeyGetsReadsOnly(t *testing.T) {
	m := testManager()

	rec, called := doRequest(t, m, http.MethodGet, "reader-token")
	if rec.Code != http.StatusOK || !called {
		t.Errorf("GET: code = %d, called = %v", rec.Code, called)
	}

	rec, called = doRequest(t, m, http.MethodPost, "reader-token")
	if rec.Code != http.StatusForbidden || called {
		t.Errorf("POST: code = %d, called = %v", rec.Code, called)
	}
}

func TestWriterKeyGetsAllVerbs(t *testing.T) {
	m := testManager()
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec, called := doRequest(t, m, method, "writer-token")
		if rec.Code != http.StatusOK || !called {
			t.Errorf("%s: code = %d, called = %v", method, rec.Code, called)
		}
	}
}

func TestEmptyTokenNeverMatches(t *testing.T) {
	m := testManager()
	if _, ok := m.Lookup(""); ok {
		t.Error("empty token must not authenticate")
	}
}

func TestXAPIKeyHeaderAccepted(t *testing.T) {
	m := testManager()
	handler := m.RequireKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tests", nil)
	req.Header.Set("X-API-Key", "reader-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}

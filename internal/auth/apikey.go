// Package auth authorizes API callers with static API keys. Keys come from
// configuration, carry a name for audit logging and a role, and sit in
// middleware in front of the API; the services below never see them.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Role controls what verbs a key may use.
type Role string

const (
	// RoleReader may only issue safe verbs (GET, HEAD, OPTIONS).
	RoleReader Role = "reader"
	// RoleWriter may use all verbs.
	RoleWriter Role = "writer"
)

// Key is one configured API credential.
type Key struct {
	Token string
	Name  string
	Role  Role
}

type contextKey struct{}

// CallerFromContext returns the authenticated key for a request, if any.
func CallerFromContext(ctx context.Context) (*Key, bool) {
	k, ok := ctx.Value(contextKey{}).(*Key)
	return k, ok
}

// Manager validates request credentials against the configured key set.
type Manager struct {
	keys []Key
}

// NewManager creates a manager over the configured keys. Keys with an empty
// token are dropped so a half-filled config cannot open the API.
func NewManager(keys []Key) *Manager {
	m := &Manager{}
	for _, k := range keys {
		if k.Token == "" {
			continue
		}
		if k.Role != RoleWriter {
			k.Role = RoleReader
		}
		m.keys = append(m.keys, k)
	}
	return m
}

// Lookup matches a presented token in constant time per configured key.
func (m *Manager) Lookup(token string) (*Key, bool) {
	if token == "" {
		return nil, false
	}
	for i := range m.keys {
		if subtle.ConstantTimeCompare([]byte(m.keys[i].Token), []byte(token)) == 1 {
			return &m.keys[i], true
		}
	}
	return nil, false
}

// RequireKey is middleware enforcing key auth and role-based verb access:
// reader keys get safe verbs only, writer keys get everything. The matched
// key lands in the request context for handler audit logs.
func (m *Manager) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := m.Lookup(tokenFromRequest(r))
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}
		if key.Role != RoleWriter && !safeMethod(r.Method) {
			writeAuthError(w, http.StatusForbidden, "writer role required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, key)))
	})
}

// tokenFromRequest accepts either an Authorization bearer token or the
// X-API-Key header.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

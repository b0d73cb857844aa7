package authgate

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/climbbox/boxhub/logger"
)

type contextKey string

const claimsContextKey contextKey = "authgate_claims"

// Middleware validates bearer tokens against a Manager and enforces a box's
// allow-list. There is no enable/disable toggle: every command-plane
// request carries a token, full stop.
type Middleware struct {
	manager *Manager
}

// NewMiddleware builds a Middleware backed by manager.
func NewMiddleware(manager *Manager) *Middleware {
	return &Middleware{manager: manager}
}

// RequireOperator validates a bearer token and requires RoleOperator,
// rejecting with 401 (missing/invalid token) or 403 (wrong role/box).
func (m *Middleware) RequireOperator(boxIDFromRequest func(*http.Request) (int, bool)) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, err := m.manager.Validate(ExtractToken(r))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Role != RoleOperator {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if boxIDFromRequest != nil {
				boxID, ok := boxIDFromRequest(r)
				if ok && !claims.Allows(boxID) {
					logger.Logger.Debugw("operator token scope rejected",
						logger.FieldBoxID, boxID)
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// ValidateSpectator validates a spectator token for boxID, used by the
// public WebSocket handshake where there's no middleware chain to thread
// through, just a query-param token to check once at upgrade time.
func (m *Middleware) ValidateSpectator(tokenString string, boxID int) (*Claims, error) {
	claims, err := m.manager.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleSpectator || !claims.Allows(boxID) {
		return nil, errForbidden
	}
	return claims, nil
}

// ValidateSpectatorAny validates a spectator token without box scoping, for
// the aggregate public endpoints (every initiated box's rankings/status)
// where a single-box allow-list doesn't apply.
func (m *Middleware) ValidateSpectatorAny(tokenString string) (*Claims, error) {
	claims, err := m.manager.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleSpectator {
		return nil, errForbidden
	}
	return claims, nil
}

// RequireSpectator validates a bearer/query token and requires RoleSpectator,
// with no box scoping — for HTTP endpoints that read across every initiated
// box rather than one (the aggregate boxes list and rankings page).
func (m *Middleware) RequireSpectator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.ValidateSpectatorAny(ExtractToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// ExtractToken pulls a bearer token from the Authorization header, falling
// back to a "token" query parameter so WebSocket handshakes (which can't
// set arbitrary headers from a browser) can still authenticate.
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return auth
	}
	return r.URL.Query().Get("token")
}

// ClaimsFromContext extracts the validated claims RequireOperator attached
// to the request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// BoxIDFromPath extracts an integer {boxId} path segment, for handlers
// registered as e.g. "/api/ws/{boxId}".
func BoxIDFromPath(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("boxId"))
	if err != nil {
		return 0, false
	}
	return id, true
}

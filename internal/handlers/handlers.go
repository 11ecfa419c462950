package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"pocket-survival/internal/auth"
	"pocket-survival/internal/log"
	"pocket-survival/internal/models"
	"pocket-survival/internal/services"
	"pocket-survival/internal/telemetry"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
)

// Deps are the collaborators of Handlers. Gateway is nil in single-user mode.
type Deps struct {
	Tracker      *services.Tracker
	Gateway      *auth.Gateway
	Recorder     *telemetry.Recorder
	Ping         func(context.Context) error
	TemplateDir  string
	SecureCookie bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	tracker      *services.Tracker
	gateway      *auth.Gateway
	rec          *telemetry.Recorder
	ping         func(context.Context) error
	templateDir  string
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		tracker:      d.Tracker,
		gateway:      d.Gateway,
		rec:          d.Recorder,
		ping:         d.Ping,
		templateDir:  d.TemplateDir,
		secureCookie: d.SecureCookie,
	}
}

// MultiUser reports whether requests must carry a session.
func (h *Handlers) MultiUser() bool { return h.gateway != nil }

// GetUserFromContext retrieves the acting user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// owner is the ledger key of the acting user.
func owner(r *http.Request) string {
	if u := GetUserFromContext(r); u != nil {
		return u.ID
	}
	return models.LocalOwner
}

var localUser = &models.User{ID: models.LocalOwner, Username: "survivor"}

// Protect wraps next with AuthMiddleware in multi-user mode. In single-user
// mode every request acts as the local owner.
func (h *Handlers) Protect(next http.Handler) http.Handler {
	if h.MultiUser() {
		return h.AuthMiddleware(next)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), UserContextKey, localUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware wraps handlers to require authentication.
// Sessions past the halfway point of their lifetime are renewed by the
// gateway, and the cookie is refreshed to match.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		user, _, renewed, err := h.gateway.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			if !models.IsAuth(err) {
				log.FromContext(r.Context()).Err(r.Context(), "session lookup failed", "authenticate", err)
			}
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			h.redirectToLogin(w, r)
			return
		}
		if renewed {
			h.setSessionCookie(w, cookie.Value)
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Healthz reports whether the backend answers.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			log.FromContext(r.Context()).Err(r.Context(), "health check failed", "ping", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func isHTMX(r *http.Request) bool { return r.Header.Get("HX-Request") == "true" }

// fail maps err onto a response: validation problems re-render the view with
// a flash and 422, anything else is logged and answered with 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, rerender func(flash string, status int)) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		rerender(ve.Reason, http.StatusUnprocessableEntity)
		return
	}
	log.FromContext(r.Context()).Err(r.Context(), "request failed", r.URL.Path, err, log.FieldOwner, owner(r))
	rerender("The ledger could not be reached. Nothing was changed; try again.", http.StatusInternalServerError)
}

var funcs = template.FuncMap{
	"hpClass": hpClass,
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, r, viewName, data, http.StatusOK)
}

// renderStatus executes the view into a buffer so a template failure can
// still produce a clean 500.
func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, viewName string, data any, status int) {
	logger := log.FromContext(r.Context())
	tmpl, err := template.New("base.html").Funcs(funcs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName))
	if err != nil {
		logger.Err(r.Context(), "template error", "parse", err, "view", viewName)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if isHTMX(r) {
		target = "content"
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, target, data); err != nil {
		logger.Err(r.Context(), "template execution error", "render", err, "view", viewName)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

package handlers

import (
	"errors"
	"net/http"

	"pocket-survival/internal/log"
	"pocket-survival/internal/models"
)

// LoginViewModel holds data for the login and register pages.
type LoginViewModel struct {
	Error    string
	Username string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the battle screen
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, _, _, err := h.gateway.Authenticate(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/battle", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderStatus(w, r, "login.html", LoginViewModel{Error: "Invalid form submission"}, http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")

	_, session, err := h.gateway.SignIn(r.Context(), username, r.FormValue("password"))
	if err != nil {
		vm := LoginViewModel{Error: "An error occurred. Please try again.", Username: username}
		status := http.StatusInternalServerError
		var ae *models.AuthError
		if errors.As(err, &ae) {
			vm.Error = ae.Reason
			status = http.StatusUnauthorized
		} else {
			log.FromContext(r.Context()).Err(r.Context(), "sign in failed", "login", err)
		}
		h.renderStatus(w, r, "login.html", vm, status)
		return
	}

	h.setSessionCookie(w, session.Token)
	http.Redirect(w, r, "/battle", http.StatusFound)
}

// RegisterForm renders the sign-up page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", LoginViewModel{})
}

// Register creates the account and signs the new user in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderStatus(w, r, "register.html", LoginViewModel{Error: "Invalid form submission"}, http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")

	if password != r.FormValue("confirm") {
		h.renderStatus(w, r, "register.html", LoginViewModel{Error: "Passwords do not match", Username: username}, http.StatusUnprocessableEntity)
		return
	}

	if _, err := h.gateway.SignUp(r.Context(), username, password); err != nil {
		vm := LoginViewModel{Error: "An error occurred. Please try again.", Username: username}
		status := http.StatusInternalServerError
		var ae *models.AuthError
		var ve *models.ValidationError
		switch {
		case errors.As(err, &ae):
			vm.Error, status = ae.Reason, http.StatusConflict
		case errors.As(err, &ve):
			vm.Error, status = ve.Reason, http.StatusUnprocessableEntity
			h.rec.Rejected(ve.Field)
		default:
			log.FromContext(r.Context()).Err(r.Context(), "sign up failed", "register", err)
		}
		h.renderStatus(w, r, "register.html", vm, status)
		return
	}

	_, session, err := h.gateway.SignIn(r.Context(), username, password)
	if err != nil {
		log.FromContext(r.Context()).Err(r.Context(), "sign in after sign up failed", "register", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.setSessionCookie(w, session.Token)
	http.Redirect(w, r, "/battle", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.gateway.SignOut(r.Context(), cookie.Value); err != nil {
			log.FromContext(r.Context()).Err(r.Context(), "failed to delete session", "logout", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/auth"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/service"
)

const stateCookie = "oauth_state"

// UserHandler manages accounts, sessions and profiles.
//
//   - HandleSignup, HandleLogin, HandleLogout → session lifecycle
//   - HandleGitHubLogin, HandleGitHubCallback → GitHub sign-in
//   - HandleMe, HandleGet, HandleList, HandleUpdate → profiles
//   - HandleChangePassword
//
// The service issues tokens; this handler is the only place that sets or
// clears the session cookie.
type UserHandler struct {
	accounts *service.AccountService
	github   *auth.GitHubProvider // nil when GitHub sign-in is not configured
	ttl      time.Duration
	secure   bool
	logger   *slog.Logger
}

func NewUserHandler(
	accounts *service.AccountService,
	github *auth.GitHubProvider,
	ttl time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		github:   github,
		ttl:      ttl,
		secure:   secureCookies,
		logger:   logger,
	}
}

func (h *UserHandler) startSession(w http.ResponseWriter, status int, sess *service.Session) {
	auth.SetSessionCookie(w, sess.Token, h.ttl, h.secure)
	writeJSON(w, status, service.Account{User: sess.User, Profile: sess.Profile})
}

// HandleSignup creates an account and signs it in.
//
// HTTP: POST /users
// BODY: {"name": "Alice", "email": "alice@example.com", "password": "..."}
func (h *UserHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	h.startSession(w, http.StatusCreated, sess)
}

// HandleLogin checks an email and password and opens a session.
//
// HTTP: POST /auth/login
// BODY: {"email": "...", "password": "..."}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	h.startSession(w, http.StatusOK, sess)
}

// HandleLogout drops the session cookie. Tokens are stateless, so the
// token itself stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("user logged out", "user_id", userID)
	}
	auth.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects the browser to GitHub.
//
// HTTP: GET /auth/github/login
//
// The random state is kept in a short-lived cookie and compared on the
// callback, which proves the flow started here.
func (h *UserHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.Unavailable("GitHub sign-in"))
		return
	}
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the GitHub flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. Validate the state (CSRF check)
//  2. Exchange the code for the GitHub identity
//  3. Find, link or create the account
//  4. Set the session cookie and redirect to the app
func (h *UserHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.Unavailable("GitHub sign-in"))
		return
	}

	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || q.Get("state") != c.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("GitHub authentication failed"))
		return
	}
	sess, err := h.accounts.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}

	auth.SetSessionCookie(w, sess.Token, h.ttl, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the caller's account and full profile.
//
// HTTP: GET /auth/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.Me(r.Context(), userID)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleGet returns a profile: the full record for its owner, the public
// projection for everyone else.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	profile, err := h.accounts.ProfileFor(r.Context(), userID, id)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": map[string]any{"user": map[string]any{id: profile}},
	})
}

// HandleList returns the profiles named by repeated id parameters, or
// every profile.
//
// HTTP: GET /users?id=a&id=b
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	profiles, err := h.accounts.ListProfiles(r.Context(), userID, r.URL.Query()["id"])
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": map[string]any{"user": profiles},
	})
}

// HandleUpdate changes the caller's own profile.
//
// HTTP: PUT /users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	raw, err := readFields(r)
	if err != nil {
		writeError(w, err)
		return
	}
	patch, err := model.DecodeProfilePatch(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	profile, err := h.accounts.UpdateProfile(r.Context(), userID, id, patch)
	if err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": map[string]any{"user": map[string]any{id: profile}},
	})
}

// HandleChangePassword replaces the caller's password.
//
// HTTP: PUT /users/{id}/password
// BODY: {"current_password": "...", "new_password": "..."}
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), userID, chi.URLParam(r, "id"), in.Current, in.New); err != nil {
		serverError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// Package httpapi exposes the core services over a thin HTTP surface. It owns
// only bearer-token extraction, JSON shaping and status mapping; all behavior
// lives in the service layer.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/and161185/bio-card/internal/service"
)

// Server wires the application services into an HTTP router.
type Server struct {
	auth     service.AuthService
	profiles service.ProfileService
	admin    service.AdminService
	log      *zap.Logger
}

// New constructs the HTTP server facade.
func New(auth service.AuthService, profiles service.ProfileService, admin service.AdminService, log *zap.Logger) *Server {
	return &Server{auth: auth, profiles: profiles, admin: admin, log: log}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))

	r.Post("/api/signup", s.handleSignup)
	r.Post("/api/login", s.handleLogin)
	r.Get("/api/profile/{username}", s.handleGetProfile)
	r.Get("/api/settings", s.handleGetSettings)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(s.auth))
		r.Post("/api/logout", s.handleLogout)
		r.Put("/api/profile", s.handleUpdateProfile)
		r.Patch("/api/profile", s.handlePatchProfile)
		r.Get("/api/export", s.handleExport)
		r.Post("/api/import", s.handleImport)

		r.Get("/api/admin/accounts", s.handleListAccounts)
		r.Post("/api/admin/accounts", s.handleCreateAccount)
		r.Delete("/api/admin/accounts/{username}", s.handleDeleteAccount)
		r.Put("/api/admin/settings", s.handleUpdateSettings)
	})

	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Device   string `json:"device,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := s.auth.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, _, err := s.auth.Login(r.Context(), req.Username, req.Password, req.Device)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := TokenFromCtx(r.Context())
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	language := r.URL.Query().Get("lang")
	p, err := s.profiles.GetProfile(r.Context(), username, language)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if p == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	account, _ := AccountFromCtx(r.Context())
	var req profileWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ok, err := s.profiles.UpdateProfile(r.Context(), account.Username, req.Language, req.toUpdate())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	account, _ := AccountFromCtx(r.Context())
	var req profilePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ok, err := s.profiles.PatchProfile(r.Context(), account.Username, req.Language, req.toPatch())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	account, _ := AccountFromCtx(r.Context())
	token, _ := TokenFromCtx(r.Context())
	data, err := s.profiles.GetExportData(r.Context(), account, token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	account, _ := AccountFromCtx(r.Context())
	var data model.ExportData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ok, err := s.profiles.ImportData(r.Context(), account.Username, &data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.admin.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Title: settings.Title, Logo: settings.Logo.String()})
}

type accountResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Created  string `json:"created_at"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromCtx(r.Context())
	accounts, err := s.admin.ListAccounts(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			Username: a.Username,
			Role:     string(a.Role),
			Created:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromCtx(r.Context())
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.admin.CreateAccount(r.Context(), actor, req.Username, req.Password, model.Role(req.Role)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromCtx(r.Context())
	if err := s.admin.DeleteAccount(r.Context(), actor, chi.URLParam(r, "username")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsResponse struct {
	Title string `json:"title"`
	Logo  string `json:"logo"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromCtx(r.Context())
	var req settingsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	settings := &model.Settings{Title: req.Title, Logo: model.ParseAsset(req.Logo)}
	if err := s.admin.UpdateSettings(r.Context(), actor, settings); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps sentinel errors to status codes; anything unexpected is a
// generic 500 with the detail kept in the log.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidCredentials), errors.Is(err, errs.ErrInvalidToken):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrRootProtected):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrAlreadyExists):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, errs.ErrImportMismatch):
		http.Error(w, "import mismatch", http.StatusBadRequest)
	default:
		s.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

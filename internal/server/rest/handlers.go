// Package rest exposes the auth service over HTTP: register, login, token
// refresh, logout and a protected hello route, routed with chi.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/go-chi/chi/v5"
)

// UserService is the business logic the handlers call into.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Rotate(ctx context.Context, username, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, username string) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	users               UserService
	signer              *auth.Signer
	sessions            *session.Manager
	pinger              Pinger
	logger              logging.Logger
	refreshCookieMaxAge time.Duration
}

func NewHandlers(users UserService, signer *auth.Signer, sessions *session.Manager, pinger Pinger, logger logging.Logger, refreshCookieMaxAge time.Duration) *Handlers {
	return &Handlers{
		users:               users,
		signer:              signer,
		sessions:            sessions,
		pinger:              pinger,
		logger:              logger,
		refreshCookieMaxAge: refreshCookieMaxAge,
	}
}

// Register mounts the routes on mx.
func (h *Handlers) Register(mx chi.Router) {
	mx.Post("/register", h.SignUp)
	mx.Post("/login", h.Login)
	mx.With(h.GuardIdentity).Post("/refresh", h.Refresh)
	mx.With(h.Guard).Post("/logout", h.Logout)
	mx.With(h.Guard).Get("/hello", h.Hello)
	mx.Get("/healthz", h.Health)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondMessage(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	_, err := h.users.Register(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		h.respondMessage(w, r, http.StatusCreated, msgRegisterComplete)
	case errors.Is(err, common.ErrorInvalidInput):
		h.respondMessage(w, r, http.StatusBadRequest, msgFieldsRequired)
	case errors.Is(err, common.ErrorAlreadyExists):
		h.respondMessage(w, r, http.StatusConflict, msgUserExists)
	default:
		h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
	}
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondMessage(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	pair, err := h.users.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorInvalidInput):
		h.respondMessage(w, r, http.StatusBadRequest, msgFieldsRequired)
		return
	case errors.Is(err, common.ErrorInvalidCredentials):
		h.respondMessage(w, r, http.StatusBadRequest, msgInvalidCredentials)
		return
	default:
		h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
		return
	}

	if err := h.sessions.Renew(ctx, w, r, common.SessionAccessTokenKey, pair.AccessToken); err != nil {
		h.logger.Error(ctx, "session write failed", "error", err)
		h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)

	h.respondJSON(w, r, http.StatusOK, loginResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh rotates the caller's refresh token. The caller is named by the
// access token the guard verified; the refresh token is read from the JSON
// body and, when that is empty or absent, from the refreshToken cookie.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		h.respondMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req refreshRequest
	if r.Body != nil {
		// An empty or non-JSON body just means the cookie is used.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	presented := req.RefreshToken
	if presented == "" {
		if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
			presented = c.Value
		}
	}

	pair, err := h.users.Rotate(ctx, claims.Username, presented)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorUnauthorized):
		h.respondMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	default:
		h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
		return
	}

	if err := h.sessions.Put(ctx, w, r, common.SessionAccessTokenKey, pair.AccessToken); err != nil {
		h.logger.Error(ctx, "session write failed", "error", err)
		h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)

	h.respondJSON(w, r, http.StatusCreated, refreshResponse{
		Username:     claims.Username,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := ClaimsFromContext(ctx)

	if err := h.users.Logout(ctx, claims.Username); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			h.respondMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
		return
	}

	if err := h.sessions.Destroy(ctx, w, r); err != nil {
		h.logger.Error(ctx, "session destroy failed", "error", err)
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Hello(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello " + claims.Username + " Auth by token"))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "health check failed", "error", err)
		h.respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/handlers/render"
	"github.com/nkiryanov/dailybrief/internal/handlers/userctx"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
)

// Local entry point starting authorization, handed to unauthenticated clients
const LoginPath = "/auth/login"

type authFlow interface {
	// Persist fresh state and return provider url the user has to visit
	Begin(ctx context.Context, userID uuid.UUID, scopes ...string) (string, error)

	// Consume pending state and exchange code for credential
	// Has to return apperrors.ErrCsrfMismatch if state does not match pending one
	// Has to return apperrors.ErrTokenExchange if provider rejected the code
	Complete(ctx context.Context, userID uuid.UUID, code string, state string) (models.Credential, error)

	Revoke(ctx context.Context, userID uuid.UUID) error
	Status(ctx context.Context, userID uuid.UUID) (models.AuthStatus, error)
}

type AuthHandler struct {
	auth   authFlow
	logger logger.Logger
}

func NewAuth(auth authFlow, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: log}
}

// Handler serves routes relative to /auth
func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", h.login)
	mux.HandleFunc("GET /callback", h.callback)
	mux.HandleFunc("POST /logout", h.logout)
	mux.HandleFunc("GET /status", h.status)

	return mux
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	authURL, err := h.auth.Begin(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to begin authorization", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		render.ServiceError(w, "Authorization denied: "+reason, http.StatusBadRequest)
		return
	}

	_, err := h.auth.Complete(r.Context(), userID, query.Get("code"), query.Get("state"))
	if err != nil {
		h.logger.Warn("Authorization callback failed", "user_id", userID, "error", err)
		switch {
		case errors.Is(err, apperrors.ErrMissingCode):
			render.ServiceError(w, "Authorization code is missing", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrCsrfMismatch):
			render.ServiceError(w, "Authorization state mismatch, start again", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrTokenExchange):
			render.ServiceError(w, "Authorization code exchange failed", http.StatusBadGateway)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.auth.Revoke(r.Context(), userID); err != nil {
		h.logger.Error("Failed to revoke credential", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) status(w http.ResponseWriter, r *http.Request) {
	type StatusResponse struct {
		State models.AuthStatus `json:"state"`
	}

	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	status, err := h.auth.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get authorization status", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, StatusResponse{State: status})
}

// Session middleware always sets user, missing one is a wiring error
func userFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Session not found", http.StatusInternalServerError)
	}
	return userID, ok
}

package handlers

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/handlers/render"
	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/models"
	"github.com/nkiryanov/dailybrief/internal/service/dashboard"
)

//go:embed templates/*.html
var templates embed.FS

var dashboardPage = template.Must(template.ParseFS(templates, "templates/dashboard.html"))

type dashboardService interface {
	// Run the pipeline for the user
	// Has to return apperrors.ErrNotAuthenticated if user has no usable credential
	Build(ctx context.Context, userID uuid.UUID, req dashboard.Request) (models.Payload, error)
}

type summarizer interface {
	Summarize(ctx context.Context, text string) models.Summary
}

type pageData struct {
	Authenticated bool
	AuthorizeURL  string
	Error         string
	Payload       models.Payload
}

// Not authenticated answer of JSON api
type unauthorizedResponse struct {
	render.ErrorResponse
	AuthorizeURL string `json:"authorize_url"`
}

func handleIndex(s dashboardService, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		payload, err := s.Build(r.Context(), userID, dashboard.Request{City: r.URL.Query().Get("city")})
		switch {
		case err == nil:
			render.HTML(w, dashboardPage, pageData{Authenticated: true, Payload: payload}, http.StatusOK)
		case errors.Is(err, apperrors.ErrNotAuthenticated):
			data := pageData{AuthorizeURL: LoginPath}
			if errors.Is(err, apperrors.ErrRefreshFailed) {
				data.Error = "Your Google session expired, please authorize again."
			}
			render.HTML(w, dashboardPage, data, http.StatusOK)
		case errors.Is(err, apperrors.ErrProviderUnavailable):
			log.Warn("Dashboard postponed, provider not reachable", "user_id", userID, "error", err)
			http.Error(w, "Google is not reachable, try again later", http.StatusServiceUnavailable)
		default:
			log.Error("Failed to build dashboard", "user_id", userID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

func handleDashboard(s dashboardService, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFromRequest(w, r)
		if !ok {
			return
		}

		payload, err := s.Build(r.Context(), userID, dashboard.Request{City: r.URL.Query().Get("city")})
		switch {
		case err == nil:
			render.JSON(w, payload)
		case errors.Is(err, apperrors.ErrNotAuthenticated):
			render.JSONWithStatus(w, unauthorizedResponse{
				ErrorResponse: render.ErrorResponse{Error: render.ServiceErrorType, Message: "Not authenticated"},
				AuthorizeURL:  LoginPath,
			}, http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrProviderUnavailable):
			log.Warn("Dashboard postponed, provider not reachable", "user_id", userID, "error", err)
			render.ServiceError(w, "Provider not reachable, try again later", http.StatusServiceUnavailable)
		default:
			log.Error("Failed to build dashboard", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

func handleSummarize(s summarizer) http.HandlerFunc {
	type SummarizeRequest struct {
		Text string `json:"text" validate:"required,notblank,max=10000"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[SummarizeRequest](w, r)
		if err != nil {
			return
		}

		render.JSON(w, s.Summarize(r.Context(), data.Text))
	}
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, map[string]string{"status": "ok"})
	}
}

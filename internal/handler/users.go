package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/middleware"
	"github.com/haus-platform/cortex/internal/service"
	"github.com/haus-platform/cortex/pkg/logger"
)

// UserHandler handles account provisioning endpoints.
type UserHandler struct {
	cortex *service.Cortex
	logger *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(cortex *service.Cortex, log *logger.Logger) *UserHandler {
	return &UserHandler{
		cortex: cortex,
		logger: log,
	}
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.cortex.CreateUser(r.Context(), req.Email, req.Name)
	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.cortex.GetUser(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

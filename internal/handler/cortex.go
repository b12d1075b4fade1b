// Package handler provides HTTP handlers for the cortex API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/middleware"
	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/service"
	"github.com/haus-platform/cortex/pkg/logger"
)

// CortexHandler exposes the four engine operations over HTTP, at the same
// paths the voice-agent worker calls.
type CortexHandler struct {
	cortex *service.Cortex
	logger *logger.Logger
}

// NewCortexHandler creates a new cortex handler.
func NewCortexHandler(cortex *service.Cortex, log *logger.Logger) *CortexHandler {
	return &CortexHandler{
		cortex: cortex,
		logger: log,
	}
}

// identity returns the caller's rate-limit identity, falling back to the
// subject user when the request carried no token at all.
func identity(r *http.Request, userID string) string {
	if id := middleware.GetIdentity(r.Context()); id != "" {
		return id
	}
	return "user:" + userID
}

// EnsureMemorySpace handles POST /api/cortex/ensure-memory-space
func (h *CortexHandler) EnsureMemorySpace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	spaceID, err := h.cortex.EnsureSpace(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("ensure memory space failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"memorySpaceId": spaceID,
	})
}

// Remember handles POST /api/cortex/remember
func (h *CortexHandler) Remember(w http.ResponseWriter, r *http.Request) {
	var req model.RememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateText("userQuery", req.UserQuery); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateText("agentResponse", req.AgentResponse); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.cortex.Remember(r.Context(), identity(r, req.UserID), &req)
	if err != nil {
		h.logger.Error("remember failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"conversationId": result.ConversationID,
		"memoryId":       result.MemoryID,
		"memorySpaceId":  result.SpaceID,
	})
}

// StorePreference handles POST /api/cortex/store-preference
func (h *CortexHandler) StorePreference(w http.ResponseWriter, r *http.Request) {
	var req model.StorePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateCategory(req.Category); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateConfidence(req.Confidence); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	factID, err := h.cortex.StorePreference(r.Context(), identity(r, req.UserID), &req)
	if err != nil {
		h.logger.Error("store preference failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"factId":  factID,
	})
}

// Recall handles POST /api/cortex/recall
func (h *CortexHandler) Recall(w http.ResponseWriter, r *http.Request) {
	var req model.RecallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.cortex.Recall(r.Context(), identity(r, req.UserID), &req)
	if err != nil {
		h.logger.Error("recall failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// VoiceToken handles POST /api/cortex/voice-token
func (h *CortexHandler) VoiceToken(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	if id == "" {
		id = "ip:" + r.RemoteAddr
	}

	token, err := h.cortex.MintVoiceToken(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionToken": token,
	})
}

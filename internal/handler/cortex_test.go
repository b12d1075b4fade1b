package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haus-platform/cortex/internal/middleware"
	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/internal/service"
	"github.com/haus-platform/cortex/internal/store"
	"github.com/haus-platform/cortex/pkg/logger"
)

func newTestServer(t *testing.T, cfg ratelimit.Config) (*httptest.Server, *service.Cortex) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cortex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.NewNop()
	cortex := service.New(st, ratelimit.NewLimiter(st, cfg), nil, log)
	h := NewCortexHandler(cortex, log)

	r := chi.NewRouter()
	r.Route("/api/cortex", func(r chi.Router) {
		r.Use(middleware.Identity("test-secret"))
		r.Post("/ensure-memory-space", h.EnsureMemorySpace)
		r.Post("/remember", h.Remember)
		r.Post("/store-preference", h.StorePreference)
		r.Post("/recall", h.Recall)
		r.Post("/voice-token", h.VoiceToken)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, cortex
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any, out any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	// A stable session token keeps the rate-limit identity constant across
	// connections.
	req.Header.Set("X-Session-Token", "test-session")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createUserViaService(t *testing.T, cortex *service.Cortex) string {
	t.Helper()
	u, err := cortex.CreateUser(context.Background(), "buyer@example.com", "Buyer")
	require.NoError(t, err)
	return u.ID
}

func TestEnsureMemorySpaceEndpoint(t *testing.T) {
	srv, cortex := newTestServer(t, nil)
	userID := createUserViaService(t, cortex)

	var body map[string]string
	resp := postJSON(t, srv, "/api/cortex/ensure-memory-space",
		map[string]string{"userId": userID}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := body["memorySpaceId"]
	require.NotEmpty(t, first)

	resp = postJSON(t, srv, "/api/cortex/ensure-memory-space",
		map[string]string{"userId": userID}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first, body["memorySpaceId"])
}

func TestEnsureMemorySpaceEndpoint_UnknownUser(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/api/cortex/ensure-memory-space",
		map[string]string{"userId": "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRememberEndpoint_Validation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/api/cortex/remember",
		map[string]string{"userId": "", "userQuery": "q", "agentResponse": "a"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv, "/api/cortex/remember",
		map[string]string{"userId": "u1", "userQuery": "", "agentResponse": "a"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVoiceSearchEndpoints(t *testing.T) {
	srv, cortex := newTestServer(t, nil)
	userID := createUserViaService(t, cortex)

	var remembered struct {
		Success        bool   `json:"success"`
		ConversationID string `json:"conversationId"`
		MemoryID       string `json:"memoryId"`
		SpaceID        string `json:"memorySpaceId"`
	}
	resp := postJSON(t, srv, "/api/cortex/remember", map[string]any{
		"userId":          userID,
		"userQuery":       "show me houses in Bondi",
		"agentResponse":   "I found 3 houses in Bondi",
		"propertyId":      "p1",
		"propertyContext": map[string]any{"suburb": "Bondi"},
	}, &remembered)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, remembered.Success)
	assert.NotEmpty(t, remembered.MemoryID)

	var stored struct {
		Success bool   `json:"success"`
		FactID  string `json:"factId"`
	}
	resp = postJSON(t, srv, "/api/cortex/store-preference", map[string]any{
		"userId":     userID,
		"category":   "suburb",
		"preference": "Bondi",
		"confidence": 80,
		"metadata": map[string]any{
			"suburbName":       "Bondi",
			"state":            "NSW",
			"reason":           "likes the beach",
			"mentionedInQuery": "show me houses in Bondi",
		},
	}, &stored)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, stored.Success)
	assert.NotEmpty(t, stored.FactID)

	var recalled model.RecallResult
	resp = postJSON(t, srv, "/api/cortex/recall", map[string]any{
		"userId": userID,
		"query":  "anything near the water",
	}, &recalled)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotEmpty(t, recalled.Memories)
	require.Len(t, recalled.PropertyInteractions, 1)
	assert.Equal(t, "p1", recalled.PropertyInteractions[0].PropertyID)
	require.Len(t, recalled.SuburbPreferences, 1)
	assert.Equal(t, "Bondi", recalled.SuburbPreferences[0].SuburbName)
	assert.Equal(t, 80, recalled.SuburbPreferences[0].PreferenceScore)
}

func TestStorePreferenceEndpoint_WithoutSpace(t *testing.T) {
	srv, cortex := newTestServer(t, nil)
	userID := createUserViaService(t, cortex)

	resp := postJSON(t, srv, "/api/cortex/store-preference", map[string]any{
		"userId":     userID,
		"category":   "suburb",
		"preference": "Bondi",
		"confidence": 80,
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStorePreferenceEndpoint_ConfidenceBounds(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/api/cortex/store-preference", map[string]any{
		"userId":     "u1",
		"category":   "suburb",
		"preference": "Bondi",
		"confidence": 101,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecallEndpoint_EmptyHistory(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var recalled model.RecallResult
	resp := postJSON(t, srv, "/api/cortex/recall", map[string]any{
		"userId": "ghost",
		"query":  "anything",
	}, &recalled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, recalled.Memories)
	assert.Empty(t, recalled.Facts)
	assert.Empty(t, recalled.PropertyInteractions)
	assert.Empty(t, recalled.SuburbPreferences)
}

func TestRememberEndpoint_RateLimited(t *testing.T) {
	srv, cortex := newTestServer(t, ratelimit.Config{
		ratelimit.ClassMemory: {Ceiling: 2, Window: time.Minute},
	})
	userID := createUserViaService(t, cortex)

	req := map[string]string{
		"userId": userID, "userQuery": "q", "agentResponse": "a",
	}
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv, "/api/cortex/remember", req, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := postJSON(t, srv, "/api/cortex/remember", req, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestVoiceTokenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body map[string]string
	resp := postJSON(t, srv, "/api/cortex/voice-token", map[string]any{}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["sessionToken"])
}

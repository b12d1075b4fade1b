package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func captureIdentity(r *http.Request, mw func(http.Handler) http.Handler) (identity, userID string, status int) {
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity = GetIdentity(r.Context())
		userID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, r)
	return identity, userID, rec.Code
}

func TestIdentity_BearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1"))

	identity, userID, status := captureIdentity(r, Identity(testSecret))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user:u1", identity)
	assert.Equal(t, "u1", userID)
}

func TestIdentity_SessionToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-Session-Token", "sess-42")

	identity, userID, status := captureIdentity(r, Identity(testSecret))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anon:sess-42", identity)
	assert.Empty(t, userID)
}

func TestIdentity_RemoteAddrFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "203.0.113.7:4242"

	identity, _, status := captureIdentity(r, Identity(testSecret))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ip:203.0.113.7:4242", identity)
}

func TestIdentity_InvalidBearerFallsThrough(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", "u1"))
	r.Header.Set("X-Session-Token", "sess-42")

	identity, _, status := captureIdentity(r, Identity(testSecret))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anon:sess-42", identity)
}

func TestAuth_ValidToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1"))

	_, userID, status := captureIdentity(r, Auth(testSecret))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", userID)
}

func TestAuth_RejectsMissingOrInvalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, _, status := captureIdentity(r, Auth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, status)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", "u1"))
	_, _, status = captureIdentity(r, Auth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, status)

	// A token without a subject is not a usable identity.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, ""))
	_, _, status = captureIdentity(r, Auth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("u1"))
	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID(string(make([]byte, 65))))
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("userQuery", "show me houses"))
	assert.Error(t, ValidateText("userQuery", ""))
	assert.Error(t, ValidateText("userQuery", string(make([]byte, 100001))))
	assert.Error(t, ValidateText("userQuery", string([]byte{0xff, 0xfe})))
}

func TestValidateConfidence(t *testing.T) {
	assert.NoError(t, ValidateConfidence(0))
	assert.NoError(t, ValidateConfidence(100))
	assert.Error(t, ValidateConfidence(-1))
	assert.Error(t, ValidateConfidence(101))
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("suburb"))
	assert.Error(t, ValidateCategory(""))
	assert.Error(t, ValidateCategory(string(make([]byte, 65))))
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/altostack/contactvault/internal/dto"
	"github.com/altostack/contactvault/internal/service"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthTestRouter(t *testing.T) (*gin.Engine, *service.JWTService, *service.MemoryRevocationStore) {
	t.Helper()

	jwtSvc := service.NewJWTService("middleware-test-secret", 15*time.Minute, time.Hour)
	revocation := service.NewMemoryRevocationStore(jwtSvc, time.Hour)
	t.Cleanup(revocation.Close)

	r := gin.New()
	r.GET("/protected", NewJWTMiddleware(jwtSvc, revocation).RequireAuth(), func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	return r, jwtSvc, revocation
}

// sessionTokens mints a pair for userID. Distinct IDs matter here: tokens
// minted in the same second with identical claims are byte-identical.
func sessionTokens(t *testing.T, jwtSvc *service.JWTService, userID uint) (access, refresh string) {
	t.Helper()
	access, refresh, err := jwtSvc.GenerateSessionTokens(&dto.UserResponse{
		ID:         userID,
		Email:      "mallory@example.com",
		IsVerified: true,
	})
	if err != nil {
		t.Fatalf("GenerateSessionTokens failed: %v", err)
	}
	return access, refresh
}

func TestRequireAuth(t *testing.T) {
	r, jwtSvc, revocation := newAuthTestRouter(t)
	access, refresh := sessionTokens(t, jwtSvc, 7)

	revokedAccess, _ := sessionTokens(t, jwtSvc, 8)
	if err := revocation.Revoke(context.Background(), revokedAccess); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	otherSvc := service.NewJWTService("another-secret", 15*time.Minute, time.Hour)
	foreignAccess, _ := sessionTokens(t, otherSvc, 7)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{
			name:           "Valid bearer token",
			header:         "Bearer " + access,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing header",
			header:         "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed header",
			header:         "Token " + access,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage token",
			header:         "Bearer not.a.token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong signing key",
			header:         "Bearer " + foreignAccess,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Refresh token on API route",
			header:         "Bearer " + refresh,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Revoked token",
			header:         "Bearer " + revokedAccess,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (body: %s)", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRawTokenRoundTrip(t *testing.T) {
	jwtSvc := service.NewJWTService("middleware-test-secret", 15*time.Minute, time.Hour)
	revocation := service.NewMemoryRevocationStore(jwtSvc, time.Hour)
	t.Cleanup(revocation.Close)

	access, _ := sessionTokens(t, jwtSvc, 7)

	var captured string
	r := gin.New()
	r.GET("/protected", NewJWTMiddleware(jwtSvc, revocation).RequireAuth(), func(c *gin.Context) {
		captured, _ = RawToken(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if captured != access {
		t.Errorf("Expected raw token to round-trip through context, got %q", captured)
	}
}

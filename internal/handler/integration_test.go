package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	configs "github.com/altostack/contactvault/config"
	"github.com/altostack/contactvault/internal/handler"
	"github.com/altostack/contactvault/internal/middleware"
	"github.com/altostack/contactvault/internal/model"
	"github.com/altostack/contactvault/internal/repository"
	"github.com/altostack/contactvault/internal/router"
	"github.com/altostack/contactvault/internal/service"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestApp(t *testing.T, rateLimit int) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Contact{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cfg := &configs.Config{}
	cfg.App.Environment = "test"
	cfg.RateLimit.Request = rateLimit
	cfg.RateLimit.Duration = time.Minute

	jwtSvc := service.NewJWTService("integration-secret", 15*time.Minute, time.Hour)
	revocation := service.NewMemoryRevocationStore(jwtSvc, time.Hour)
	t.Cleanup(revocation.Close)

	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)

	userService := service.NewUserService(userRepo, jwtSvc, revocation, service.NewLogMailer())
	contactService := service.NewContactService(contactRepo)
	transferService := service.NewTransferService(contactRepo)

	engine := router.NewRouter(
		handler.NewAuthHandler(userService),
		handler.NewContactHandler(contactService, transferService, 5<<20),
		handler.NewHealthHandler(db, nil),
		middleware.NewJWTMiddleware(jwtSvc, revocation),
		cfg,
	).SetupRoutes()

	return &testApp{engine: engine, db: db}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// signup registers and verifies an account, then logs in and returns the
// session tokens.
func (a *testApp) signup(t *testing.T, email, password string) (access, refresh string) {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Register returned %d: %s", w.Code, w.Body.String())
	}

	var user model.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("Failed to load registered user: %v", err)
	}

	w = a.do(t, http.MethodGet, "/api/auth/verify-email/"+user.VerificationToken, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("VerifyEmail returned %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %s", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	access, _ = resp["accessToken"].(string)
	refresh, _ = resp["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("Login response missing tokens: %s", w.Body.String())
	}
	return access, refresh
}

func TestAuthLifecycle(t *testing.T) {
	app := newTestApp(t, 100)
	access, refresh := app.signup(t, "lifecycle@example.com", "password123")

	// Login before verification is covered by signup; access token works
	w := app.do(t, http.MethodGet, "/api/contacts", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("List with valid token returned %d: %s", w.Code, w.Body.String())
	}

	// Refresh issues a fresh pair
	w = app.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("Refresh returned %d: %s", w.Code, w.Body.String())
	}
	if pair := decodeJSON(t, w); pair["accessToken"] == "" {
		t.Error("Expected refreshed access token")
	}

	// Logout revokes the access token
	w = app.do(t, http.MethodPost, "/api/auth/logout", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Logout returned %d: %s", w.Code, w.Body.String())
	}

	w = app.do(t, http.MethodGet, "/api/contacts", access, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with revoked token, got %d", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, 100)

	tests := []struct {
		name string
		body map[string]string
	}{
		{
			name: "Invalid email",
			body: map[string]string{"email": "nope", "password": "password123"},
		},
		{
			name: "Short password",
			body: map[string]string{"email": "ok@example.com", "password": "short"},
		},
		{
			name: "Missing fields",
			body: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestDuplicateRegisterConflict(t *testing.T) {
	app := newTestApp(t, 100)

	body := map[string]string{"email": "twice@example.com", "password": "password123"}
	if w := app.do(t, http.MethodPost, "/api/auth/register", "", body); w.Code != http.StatusCreated {
		t.Fatalf("First register returned %d", w.Code)
	}
	if w := app.do(t, http.MethodPost, "/api/auth/register", "", body); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on duplicate register, got %d", w.Code)
	}
}

func TestContactCRUDOverHTTP(t *testing.T) {
	app := newTestApp(t, 100)
	access, _ := app.signup(t, "crud@example.com", "password123")

	// Create
	w := app.do(t, http.MethodPost, "/api/contacts", access, map[string]string{
		"name":         "Jane Doe",
		"email":        "jane@example.com",
		"phone_number": "+15551234567",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create returned %d: %s", w.Code, w.Body.String())
	}
	created := decodeJSON(t, w)
	id, _ := created["id"].(float64)
	if id == 0 {
		t.Fatalf("Expected created contact ID, got %s", w.Body.String())
	}

	// List
	w = app.do(t, http.MethodGet, "/api/contacts?search=jane", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("List returned %d: %s", w.Code, w.Body.String())
	}
	listResp := decodeJSON(t, w)
	if total, _ := listResp["total"].(float64); total != 1 {
		t.Errorf("Expected total 1, got %v", listResp["total"])
	}

	// Update
	w = app.do(t, http.MethodPut, "/api/contacts/1", access, map[string]string{"name": "Jane Smith"})
	if w.Code != http.StatusOK {
		t.Fatalf("Update returned %d: %s", w.Code, w.Body.String())
	}
	if updated := decodeJSON(t, w); updated["name"] != "Jane Smith" {
		t.Errorf("Expected updated name, got %v", updated["name"])
	}

	// Delete, then the contact disappears
	w = app.do(t, http.MethodDelete, "/api/contacts/1", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Delete returned %d: %s", w.Code, w.Body.String())
	}
	w = app.do(t, http.MethodGet, "/api/contacts", access, nil)
	listResp = decodeJSON(t, w)
	if total, _ := listResp["total"].(float64); total != 0 {
		t.Errorf("Expected total 0 after delete, got %v", listResp["total"])
	}

	// Non-numeric and unknown IDs read as 404
	if w := app.do(t, http.MethodDelete, "/api/contacts/abc", access, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for non-numeric ID, got %d", w.Code)
	}
	if w := app.do(t, http.MethodDelete, "/api/contacts/999", access, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown ID, got %d", w.Code)
	}
}

func TestCrossTenantIsolationOverHTTP(t *testing.T) {
	app := newTestApp(t, 100)
	ownerToken, _ := app.signup(t, "owner@example.com", "password123")
	otherToken, _ := app.signup(t, "other@example.com", "password123")

	w := app.do(t, http.MethodPost, "/api/contacts", ownerToken, map[string]string{
		"name":         "Secret Contact",
		"email":        "secret@example.com",
		"phone_number": "+15550000000",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create returned %d: %s", w.Code, w.Body.String())
	}

	if w := app.do(t, http.MethodPut, "/api/contacts/1", otherToken, map[string]string{"name": "Mine Now"}); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for cross-tenant update, got %d", w.Code)
	}
	if w := app.do(t, http.MethodDelete, "/api/contacts/1", otherToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for cross-tenant delete, got %d", w.Code)
	}

	w = app.do(t, http.MethodGet, "/api/contacts", otherToken, nil)
	if resp := decodeJSON(t, w); resp["total"].(float64) != 0 {
		t.Errorf("Expected other user to see no contacts, got %v", resp["total"])
	}
}

func TestUploadAndDownload(t *testing.T) {
	app := newTestApp(t, 100)
	access, _ := app.signup(t, "bulk@example.com", "password123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "contacts.csv")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write([]byte("Name,Email,Phone Number\n" +
		"Alice,alice@example.com,+15550000001\n" +
		"Bob,bob@example.com,+15550000002\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/contacts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Upload returned %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeJSON(t, w); resp["imported"].(float64) != 2 {
		t.Errorf("Expected 2 imported, got %v", resp["imported"])
	}

	dl := app.do(t, http.MethodGet, "/api/contacts/download", access, nil)
	if dl.Code != http.StatusOK {
		t.Fatalf("Download returned %d: %s", dl.Code, dl.Body.String())
	}
	if ct := dl.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv content type, got %q", ct)
	}
	if cd := dl.Header().Get("Content-Disposition"); !strings.Contains(cd, "contacts.csv") {
		t.Errorf("Expected attachment disposition, got %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(dl.Body.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected header plus 2 rows, got %d lines", len(lines))
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	app := newTestApp(t, 100)
	access, _ := app.signup(t, "badfile@example.com", "password123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "contacts.txt")
	part.Write([]byte("whatever"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/contacts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unsupported extension, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t, 2)

	body := map[string]string{"email": "rate@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		w := app.do(t, http.MethodPost, "/api/auth/login", "", body)
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("Request %d rate limited too early", i+1)
		}
	}

	w := app.do(t, http.MethodPost, "/api/auth/login", "", body)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after limit, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, 100)

	w := app.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Health returned %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeJSON(t, w); resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
}

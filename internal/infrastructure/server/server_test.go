package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/futuretasks/core/internal/adapters/repository"
	"github.com/futuretasks/core/internal/application/services"
	"github.com/futuretasks/core/internal/infrastructure/config"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/infrastructure/metrics"
	"github.com/futuretasks/core/internal/ports"
)

// unreachable fails every ping.
type unreachable struct {
	*repository.MemoryStore
}

func (unreachable) Ping(context.Context) error { return errors.New("connection refused") }

// inspected reports fixed connection details.
type inspected struct {
	*repository.MemoryStore
}

func (inspected) Info() map[string]interface{} {
	return map[string]interface{}{"driver": "postgres", "open_connections": 2}
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Version: "test"},
		Server:   config.ServerConfig{Port: 8080},
		Storage:  config.StorageConfig{Driver: config.DriverMemory, TasksKey: "futureTasks", ThemeKey: "theme"},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*", MaxImportBytes: 1 << 20},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, store ports.KeyValueStore) *Server {
	t.Helper()
	return newLoggedTestServer(t, cfg, store, nil)
}

func newLoggedTestServer(t *testing.T, cfg *config.Config, store ports.KeyValueStore, appLogger *logger.Logger) *Server {
	t.Helper()
	collector := metrics.New()
	tasks := services.NewTaskStore(store, services.TaskStoreOptions{Recorder: collector})
	tasks.Load(context.Background())

	srv, err := New(cfg, Dependencies{
		Store:   store,
		Tasks:   tasks,
		Theme:   services.NewThemeService(store, cfg.Storage.ThemeKey, nil),
		Reports: services.NewReportService(nil),
		Auth:    services.NewAuthService(cfg.Auth, nil, nil),
		Metrics: collector,
	}, appLogger)
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, testConfig(), repository.NewMemoryStore())

	rec := do(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/health/detailed", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"driver":"memory"`)

	down := newTestServer(t, testConfig(), unreachable{repository.NewMemoryStore()})
	rec = do(down, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage_not_ready")
}

func TestServer_DetailedHealthIncludesConnectionInfo(t *testing.T) {
	srv := newTestServer(t, testConfig(), inspected{repository.NewMemoryStore()})

	rec := do(srv, http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Checks struct {
			Storage struct {
				Status     string                 `json:"status"`
				Connection map[string]interface{} `json:"connection"`
			} `json:"storage"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks.Storage.Status)
	assert.Equal(t, "postgres", body.Checks.Storage.Connection["driver"])
	assert.EqualValues(t, 2, body.Checks.Storage.Connection["open_connections"])
}

func TestServer_TaskRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig(), repository.NewMemoryStore())

	rec := do(srv, http.MethodPost, "/api/v1/tasks", `{"text":"Routed task","priority":"high"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	rec = do(srv, http.MethodGet, "/api/v1/tasks/stats", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = do(srv, http.MethodPost, "/api/v1/tasks/"+strconv.FormatInt(env.Data.ID, 10)+"/toggle", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/api/v1/tasks?filter=completed", "", nil)
	assert.Contains(t, rec.Body.String(), "Routed task")

	rec = do(srv, http.MethodGet, "/api/v1/tasks/export", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "future-tasks-")

	rec = do(srv, http.MethodGet, "/api/v1/tasks/424242", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = do(srv, http.MethodGet, "/api/v1/theme", "", nil)
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `futuretasks_task_operations_total{operation="add",result="ok"} 1`)
}

func TestServer_AuthDisabledRejectsTokenRequests(t *testing.T) {
	srv := newTestServer(t, testConfig(), repository.NewMemoryStore())

	rec := do(srv, http.MethodPost, "/api/v1/auth/token", `{"password":"x"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Auth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("owner-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:      true,
		PasswordHash: string(hash),
		Secret:       "test-secret",
		ExpiresIn:    time.Hour,
		Issuer:       "futuretasks",
	}
	srv := newTestServer(t, cfg, repository.NewMemoryStore())

	rec := do(srv, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, http.MethodGet, "/api/v1/tasks", "", map[string]string{echo.HeaderAuthorization: "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, http.MethodPost, "/api/v1/auth/token", `{"password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, http.MethodPost, "/api/v1/auth/token", `{"password":"owner-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var token ports.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))

	rec = do(srv, http.MethodGet, "/api/v1/tasks", "", map[string]string{echo.HeaderAuthorization: "Bearer " + token.Token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestLogCarriesTokenSubject(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("owner-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, PasswordHash: string(hash), Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "futuretasks"}

	core, logs := observer.New(zapcore.InfoLevel)
	srv := newLoggedTestServer(t, cfg, repository.NewMemoryStore(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	rec := do(srv, http.MethodPost, "/api/v1/auth/token", `{"password":"owner-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var token ports.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))

	rec = do(srv, http.MethodGet, "/api/v1/tasks", "", map[string]string{echo.HeaderAuthorization: "Bearer " + token.Token})
	require.Equal(t, http.StatusOK, rec.Code)

	subjects := map[string]interface{}{}
	for _, entry := range logs.FilterMessage("HTTP request").All() {
		fields := entry.ContextMap()
		subjects[fields["path"].(string)] = fields["subject"]
	}
	assert.Equal(t, "owner", subjects["/api/v1/tasks"])
	assert.Nil(t, subjects["/api/v1/auth/token"])
}

func TestAuthMiddleware_StoresClaims(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := services.NewAuthService(config.AuthConfig{Enabled: true, PasswordHash: string(hash), Secret: "k", ExpiresIn: time.Minute, Issuer: "futuretasks"}, nil, nil)
	token, err := auth.IssueToken(context.Background(), "pw")
	require.NoError(t, err)

	srv := newTestServer(t, testConfig(), repository.NewMemoryStore())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token.Token)
	c := e.NewContext(req, httptest.NewRecorder())

	var subject string
	handler := srv.authMiddleware(auth)(func(c echo.Context) error {
		claims, ok := claimsFromContext(c)
		require.True(t, ok)
		subject = claims.Subject
		return nil
	})
	require.NoError(t, handler(c))
	assert.Equal(t, "owner", subject)
}

func TestServer_ImportBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxImportBytes = 16
	srv := newTestServer(t, cfg, repository.NewMemoryStore())

	oversized := strings.Repeat("x", multipartOverhead+1024)

	rec := do(srv, http.MethodPost, "/api/v1/tasks/import", oversized, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "future-tasks.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(oversized))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/import", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(srv, http.MethodPost, "/api/v1/tasks/import", `[{"id":1,"text":"a"}]`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, "the handler still enforces the snapshot size")

	rec = do(srv, http.MethodPost, "/api/v1/tasks/import", `[]`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SwaggerDoc(t *testing.T) {
	srv := newTestServer(t, testConfig(), repository.NewMemoryStore())

	rec := do(srv, http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tasks/{id}/move")
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(testConfig(), Dependencies{}, nil)
	assert.Error(t, err)
}

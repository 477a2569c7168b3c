package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/dmitrijs2005/polvault/internal/server/auth"
	"github.com/dmitrijs2005/polvault/internal/server/backups"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/dmitrijs2005/polvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/polvault/internal/server/services"
	"github.com/dmitrijs2005/polvault/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *Server {
	t.Helper()
	sink, err := backups.NewFileSink(t.TempDir())
	require.NoError(t, err)

	store := services.NewSecretStore(repomanager.NewInMemoryRepositoryManager(), sink, 7*24*time.Hour, logging.Discard())
	authority := auth.NewAuthority([]byte("access"), []byte("refresh"), 15*time.Minute, 7*24*time.Hour)
	accounts := services.NewAccountService(store, authority, sessions.NewRevocationSet(), bcrypt.MinCost, logging.Discard())

	return NewServer(":0", logging.Discard(), accounts, authority, limiter)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil).Router()
	code, res := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"status":"OK"}`, string(res.Data))
}

func TestAuthFlow(t *testing.T) {
	h := newTestServer(t, nil).Router()

	code, res := do(t, h, http.MethodGet, "/api/auth/status", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"configured":false,"requiresSetup":true}`, string(res.Data))

	code, res = do(t, h, http.MethodPost, "/api/auth/setup", "", map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	code, _ = do(t, h, http.MethodPost, "/api/auth/setup", "", map[string]string{"password": "password123"})
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/setup", "", map[string]string{"password": "password123"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"password": "password124"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"password": "password123"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &login))
	assert.NotEmpty(t, login.User.ID)

	code, _ = do(t, h, http.MethodGet, "/api/auth/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, h, http.MethodGet, "/api/auth/stats", login.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "refresh token is not an access token")

	code, res = do(t, h, http.MethodGet, "/api/auth/stats", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), `"activeSessions":1`)

	code, res = do(t, h, http.MethodPost, "/api/auth/backup", login.AccessToken, map[string]string{"password": "password123"})
	require.Equal(t, http.StatusOK, code)
	var backup struct {
		Handle string `json:"backupFile"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &backup))
	assert.Regexp(t, `^backup_\d+\.json$`, backup.Handle)

	code, _ = do(t, h, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/change-password", login.AccessToken,
		map[string]string{"currentPassword": "password123", "newPassword": "password456"})
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, code, "password change revokes sessions")

	code, _ = do(t, h, http.MethodPost, "/api/auth/restore", login.AccessToken,
		map[string]string{"backupFile": "backup_1.json", "password": "password123"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/restore", login.AccessToken,
		map[string]string{"backupFile": backup.Handle, "password": "password123"})
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/reset", login.AccessToken, map[string]string{"confirmReset": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/reset", login.AccessToken, map[string]string{"confirmReset": "RESET"})
	require.Equal(t, http.StatusOK, code)

	code, res = do(t, h, http.MethodGet, "/api/auth/status", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"configured":false,"requiresSetup":true}`, string(res.Data))
}

func TestLogout(t *testing.T) {
	h := newTestServer(t, nil).Router()

	code, _ := do(t, h, http.MethodPost, "/api/auth/logout", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/api/auth/logout", "", map[string]string{"refreshToken": "unknown"})
	assert.Equal(t, http.StatusOK, code)
}

func TestInvalidBody(t *testing.T) {
	h := newTestServer(t, nil).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid request body"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, ratelimit.New(2, time.Minute)).Router()

	for i := 0; i < 2; i++ {
		code, _ := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"password": "password123"})
		assert.Equal(t, http.StatusBadRequest, code, "not configured yet")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"password":"password123"}`))
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	code, _ := do(t, h, http.MethodGet, "/api/auth/status", "", nil)
	assert.Equal(t, http.StatusOK, code, "status is not limited")
}

type panickyAccounts struct{ accountSvc }

func (panickyAccounts) Status(context.Context) (*services.Status, error) { panic("boom") }

func (panickyAccounts) StorageStats(context.Context) (*models.StorageStats, error) {
	return nil, assert.AnError
}

func TestRecoverer(t *testing.T) {
	authority := auth.NewAuthority([]byte("access"), []byte("refresh"), time.Minute, time.Hour)
	s := NewServer(":0", logging.Discard(), panickyAccounts{}, authority, nil)
	h := s.Router()

	code, res := do(t, h, http.MethodGet, "/api/auth/status", "", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", res.Error)

	token, err := authority.IssueAccess("u-1", "")
	require.NoError(t, err)
	code, res = do(t, h, http.MethodGet, "/api/auth/stats", token, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", res.Error, "unknown errors are not leaked")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, nil)
	s.address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

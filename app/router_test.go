package app

import (
	"bitwise74/account-api/config"
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/middleware"
	"bitwise74/account-api/pkg/security"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type inbox struct {
	mu     sync.Mutex
	tokens map[string][]string
	fail   error
}

func (i *inbox) SendVerification(_ context.Context, email, token string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.fail != nil {
		return i.fail
	}

	i.tokens[email] = append(i.tokens[email], token)
	return nil
}

func (i *inbox) last(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	t := i.tokens[email]
	if len(t) == 0 {
		return ""
	}

	return t[len(t)-1]
}

type testServer struct {
	router http.Handler
	inbox  *inbox
}

func newTestServer(t *testing.T, edit ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		App:  config.App{Name: "Account API", FrontendURL: "http://localhost:5173", OperationTimeout: time.Second},
		Host: config.Host{CORSOrigins: []string{"http://localhost:5173"}, BodyLimit: 4 << 10},
		JWT:  config.JWT{Secret: "router-test-secret", ExpiresIn: time.Hour},
		Mail: config.Mail{Driver: "log"},
	}
	for _, e := range edit {
		e(cfg)
	}

	in := &inbox{tokens: map[string][]string{}}

	d, err := internal.NewDeps(cfg, internal.DepsOptions{
		Repo:     store.NewMemoryRepository(),
		Notifier: in,
		Hasher:   &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})
	require.NoError(t, err)

	return &testServer{router: NewRouter(t.Context(), d), inbox: in}
}

type response struct {
	code    int
	body    map[string]any
	cookies []*http.Cookie
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	res := response{code: rec.Code, cookies: rec.Result().Cookies()}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.body), rec.Body.String())
	}

	return res
}

func (s *testServer) register(t *testing.T, username, email string) string {
	t.Helper()

	res := s.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"username": username,
		"email":    email,
		"password": "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, res.code, res.body)

	return res.body["user"].(map[string]any)["id"].(string)
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()

	res := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, res.code, res.body)

	return res.body["token"].(string)
}

func TestHeartbeat(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodHead, "/api/heartbeat", nil, "").code)

	res := s.do(t, http.MethodGet, "/api/heartbeat", nil, "")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "ok", res.body["status"])
}

func TestRegisterLoginVerify(t *testing.T) {
	s := newTestServer(t)

	s.register(t, "alice", "Alice@Example.com")

	token := s.inbox.last("alice@example.com")
	require.Len(t, token, 64)

	res := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@example.com", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Login successful! Please verify your email to access all features.", res.body["message"])
	assert.NotEmpty(t, res.body["token"])

	user := res.body["user"].(map[string]any)
	assert.Equal(t, false, user["isVerified"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "verificationToken")

	require.NotEmpty(t, res.cookies)
	assert.Equal(t, middleware.SessionCookie, res.cookies[0].Name)
	assert.True(t, res.cookies[0].HttpOnly)

	res = s.do(t, http.MethodGet, "/api/auth/verify-email/"+token, nil, "")
	require.Equal(t, http.StatusOK, res.code)

	res = s.do(t, http.MethodGet, "/api/auth/verify-email/"+token, nil, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Invalid or expired verification token", res.body["error"])

	res = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@example.com", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Login successful!", res.body["message"])
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "alice@example.com")

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"duplicate email", gin.H{"username": "alice2", "email": "ALICE@example.com", "password": "hunter22"}, http.StatusConflict},
		{"bad email", gin.H{"username": "bob", "email": "nope", "password": "hunter22"}, http.StatusBadRequest},
		{"short password", gin.H{"username": "bob", "email": "bob@example.com", "password": "123"}, http.StatusBadRequest},
		{"missing username", gin.H{"email": "bob@example.com", "password": "hunter22"}, http.StatusBadRequest},
		{"not json", "just a string", http.StatusBadRequest},
		{"too large", gin.H{"username": "bob", "email": "bob@example.com", "password": strings.Repeat("a", 8<<10)}, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, tt.status, res.code, res.body)
			assert.NotEmpty(t, res.body["error"])
			assert.NotEmpty(t, res.body["requestID"])
		})
	}
}

func TestRegisterDeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.inbox.fail = errors.New("smtp down")

	res := s.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, res.code)
	assert.Equal(t, "Failed to send verification email", res.body["error"])

	// The account was kept, a resend works once mail is back.
	s.inbox.fail = nil
	res = s.do(t, http.MethodPost, "/api/auth/resend-verification", gin.H{"email": "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Len(t, s.inbox.last("alice@example.com"), 64)
}

func TestResendDoesNotRevealAccounts(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/api/auth/resend-verification", gin.H{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Empty(t, s.inbox.last("ghost@example.com"))

	res = s.do(t, http.MethodPost, "/api/auth/resend-verification", gin.H{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "alice@example.com")

	wrong := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@example.com", "password": "nope-nope"}, "")
	unknown := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "hunter22"}, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.code)
	assert.Equal(t, http.StatusUnauthorized, unknown.code)
	assert.Equal(t, wrong.body["error"], unknown.body["error"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	aliceID := s.register(t, "alice", "alice@example.com")
	bobID := s.register(t, "bob", "bob@example.com")
	s.register(t, "carol", "carol@example.com")

	res := s.do(t, http.MethodGet, "/api/auth/verify-email/"+s.inbox.last("alice@example.com"), nil, "")
	require.Equal(t, http.StatusOK, res.code)

	token := s.login(t, "alice@example.com")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/users", nil, "").code)

	res = s.do(t, http.MethodGet, "/api/auth/users", nil, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 3, res.body["count"])

	res = s.do(t, http.MethodPost, "/api/auth/users/block", gin.H{"userIds": []string{bobID, "missing"}}, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["updatedCount"])

	res = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "hunter22"}, "")
	assert.Equal(t, http.StatusForbidden, res.code)

	res = s.do(t, http.MethodPost, "/api/auth/users/unblock", gin.H{"userIds": []string{bobID}}, token)
	require.Equal(t, http.StatusOK, res.code)
	s.login(t, "bob@example.com")

	res = s.do(t, http.MethodPost, "/api/auth/users/delete", gin.H{"userIds": []string{}}, token)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = s.do(t, http.MethodDelete, "/api/auth/users/unverified", nil, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 2, res.body["deletedCount"])
	assert.Equal(t, "Deleted 2 unverified users.", res.body["message"])

	res = s.do(t, http.MethodPost, "/api/auth/users/delete", gin.H{"userIds": []string{aliceID}}, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["deletedCount"])

	// Deleting the account ends its sessions.
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/users", nil, token).code)
}

func TestBlockedSessionLosesAccess(t *testing.T) {
	s := newTestServer(t)

	aliceID := s.register(t, "alice", "alice@example.com")
	s.register(t, "bob", "bob@example.com")

	alice := s.login(t, "alice@example.com")
	bob := s.login(t, "bob@example.com")

	res := s.do(t, http.MethodPost, "/api/auth/users/block", gin.H{"userIds": []string{aliceID}}, bob)
	require.Equal(t, http.StatusOK, res.code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/users", nil, alice).code)
}

func TestAdminDesignationGate(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Security.AdminDesignation = "Admin" })

	s.register(t, "alice", "alice@example.com")
	res := s.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"username":    "root",
		"email":       "root@example.com",
		"password":    "hunter22",
		"designation": "Admin",
	}, "")
	require.Equal(t, http.StatusCreated, res.code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/auth/users", nil, s.login(t, "alice@example.com")).code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/users", nil, s.login(t, "root@example.com")).code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "alice@example.com")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `account_api_operations_total{operation="register",outcome="ok"} 1`)
}

func TestDesignationIsAnOpaqueLabel(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"username":    "alice",
		"email":       "alice@x.com",
		"password":    "secret1",
		"designation": "CFO, Acme",
	}, "")
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.Equal(t, "CFO, Acme", res.body["user"].(map[string]any)["designation"])

	res = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, false, res.body["user"].(map[string]any)["isVerified"])

	res = s.do(t, http.MethodGet, "/api/auth/verify-email/"+s.inbox.last("alice@x.com"), nil, "")
	require.Equal(t, http.StatusOK, res.code)

	res = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, true, res.body["user"].(map[string]any)["isVerified"])
}

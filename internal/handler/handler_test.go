package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktracker/asktracker-go/internal/crypto"
	"github.com/asktracker/asktracker-go/internal/metrics"
	"github.com/asktracker/asktracker-go/internal/middleware"
	"github.com/asktracker/asktracker-go/internal/model"
	"github.com/asktracker/asktracker-go/internal/repository"
	"github.com/asktracker/asktracker-go/internal/service"
)

type testServer struct {
	handler http.Handler
	users   *repository.MemoryUserRepository
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, rl *middleware.IPRateLimiter) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := crypto.NewTokenCodec(crypto.TokenConfig{Secret: "test-secret", Algorithm: "HS256", Issuer: "asktracker"})
	require.NoError(t, err)

	m := metrics.New()
	users := repository.NewMemoryUserRepository()
	authSvc := service.NewAuthService(users, crypto.NewSHA256Hasher(), codec, time.Hour,
		service.WithLogger(logger),
		service.WithMetrics(m),
	)
	feedbackSvc := service.NewFeedbackService(repository.NewMemoryFeedbackRepository())

	h := NewRouter(RouterConfig{
		Auth:        NewAuthHandler(authSvc, logger),
		Feedback:    NewFeedbackHandler(feedbackSvc, logger),
		Gate:        middleware.NewAuthGate(codec, logger, m),
		RateLimit:   rl,
		Metrics:     m.Handler(),
		Logger:      logger,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return &testServer{handler: h, users: users, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path string, body any, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, name, email, password string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/register", model.CreateUserRequest{Name: name, Email: email, Password: password}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/login", model.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.AccessToken
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["detail"]
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/register", model.CreateUserRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	raw := rec.Body.String()
	assert.NotContains(t, raw, "secret1")
	assert.NotContains(t, raw, "password")

	var user model.UserResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &user))
	assert.Equal(t, model.UserResponse{ID: 1, Name: "Ann", Email: "ann@x.com"}, user)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantDetail string
	}{
		{"duplicate email", model.CreateUserRequest{Name: "Ann2", Email: "ann@x.com", Password: "another1"}, http.StatusBadRequest, service.ErrDuplicateEmail.Error()},
		{"weak password", model.CreateUserRequest{Name: "Bob", Email: "bob@x.com", Password: "12345"}, http.StatusBadRequest, service.ErrWeakPassword.Error()},
		{"missing email", model.CreateUserRequest{Name: "Bob", Password: "secret1"}, http.StatusBadRequest, service.ErrEmailRequired.Error()},
		{"malformed email", model.CreateUserRequest{Name: "Bob", Email: "not-an-email", Password: "secret1"}, http.StatusBadRequest, service.ErrInvalidEmail.Error()},
		{"missing name", model.CreateUserRequest{Email: "bob@x.com", Password: "secret1"}, http.StatusBadRequest, service.ErrNameRequired.Error()},
		{"invalid json", "{not json", http.StatusBadRequest, "invalid request body"},
		{"oversized body", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, "request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/register", tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, detail(t, rec))
		})
	}

	assert.Equal(t, 1, s.users.Count())
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/register", model.CreateUserRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/login", model.LoginRequest{Email: "ann@x.com", Password: "secret1"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, model.UserResponse{ID: 1, Name: "Ann", Email: "ann@x.com"}, resp.User)
	assert.NotEmpty(t, resp.AccessToken)

	rec = s.do(t, http.MethodPost, "/login", model.LoginRequest{Email: "ann@x.com", Password: "wrong12"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.ErrInvalidCredentials.Error(), detail(t, rec))

	rec = s.do(t, http.MethodPost, "/login", model.LoginRequest{Email: "nobody@x.com", Password: "secret1"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrUserNotFound.Error(), detail(t, rec))

	rec = s.do(t, http.MethodPost, "/login", model.LoginRequest{Email: "not-an-email", Password: "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrInvalidEmail.Error(), detail(t, rec))
}

func TestGate(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "Ann", "ann@x.com", "secret1")

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantDetail    string
	}{
		{"no header", "", http.StatusForbidden, "Invalid authorization code."},
		{"basic scheme", "Basic xyz", http.StatusForbidden, "Invalid Authentication Schema"},
		{"garbage token", "Bearer not-a-token", http.StatusForbidden, "Invalid Token or Expired Token"},
		{"valid token", "Bearer " + token, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/data", nil, tt.authorization)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, detail(t, rec))
			}
		})
	}

	rec := s.do(t, http.MethodGet, "/me", nil, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "ann@x.com", me.Email)
}

func TestGetUser(t *testing.T) {
	s := newTestServer(t, nil)
	s.login(t, "Ann", "ann@x.com", "secret1")

	rec := s.do(t, http.MethodGet, "/users/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var user model.UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "Ann", user.Name)

	rec = s.do(t, http.MethodGet, "/users/99", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", detail(t, rec))

	rec = s.do(t, http.MethodGet, "/users/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	ann := "Bearer " + s.login(t, "Ann", "ann@x.com", "secret1")
	bob := "Bearer " + s.login(t, "Bob", "bob@x.com", "secret2")

	rec := s.do(t, http.MethodPost, "/feedback", model.CreateFeedbackRequest{Title: "Slow", Message: "Page is slow"}, ann)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.FeedbackResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.EqualValues(t, 1, created.UserID)
	assert.Equal(t, "Slow", created.Title)

	rec = s.do(t, http.MethodPost, "/feedback", model.CreateFeedbackRequest{Message: "no title"}, ann)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/feedback", nil, ann)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.FeedbackResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	rec = s.do(t, http.MethodGet, "/feedback", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	path := "/feedback/1"
	rec = s.do(t, http.MethodGet, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Feedback not found", detail(t, rec))

	rec = s.do(t, http.MethodPut, path, map[string]string{"title": "Very slow"}, ann)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.FeedbackResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, "Very slow", updated.Title)
	assert.Equal(t, "Page is slow", updated.Message)

	rec = s.do(t, http.MethodPut, path, map[string]string{"title": ""}, ann)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, path, nil, ann)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, path, nil, ann)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/feedback/zero", nil, ann)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/feedback", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to AskTracker API!"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	s.do(t, http.MethodPost, "/register", model.CreateUserRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1"}, "")
	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `asktracker_registrations_total{outcome="success"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRateLimitedLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(t, middleware.NewIPRateLimiter(ctx, 0.001, 2))
	body := model.LoginRequest{Email: "nobody@x.com", Password: "secret1"}

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/login", body, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/login", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/login", body, "").Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil, "").Code)
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(t, middleware.NewIPRateLimiter(ctx, 0.001, 2))
	raw, err := json.Marshal(model.LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	require.NoError(t, err)

	limited := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(raw))
		req.RemoteAddr = "10.0.0.7:51000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))

		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 8, limited)
}

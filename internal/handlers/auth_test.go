package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yasut0ra/mini-task/internal/config"
	"github.com/yasut0ra/mini-task/internal/middleware"
	"github.com/yasut0ra/mini-task/internal/service"
	"github.com/yasut0ra/mini-task/internal/service/servicetest"
)

type handlerFixture struct {
	engine *gin.Engine
	mailer *servicetest.FakeMailer
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	return newHandlerFixtureWith(t, servicetest.NewFakeUserStore(), servicetest.NewFakeSessionStore())
}

func newHandlerFixtureWith(t *testing.T, users service.UserStore, sessions service.SessionStore) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:  "test-secret",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 720 * time.Hour,
			ResetTTL:   time.Hour,
		},
		SMTP: config.SMTPConfig{BaseURL: "http://localhost:3000"},
	}

	mailer := servicetest.NewFakeMailer()
	logger := zerolog.Nop()

	h := HandlerSet{
		log:          logger,
		cfg:          cfg,
		authService:  service.NewAuthService(users, sessions, cfg, logger),
		resetService: service.NewPasswordResetService(users, sessions, mailer, cfg, logger),
	}

	engine := gin.New()
	h.Register(engine.Group("/api"))

	return &handlerFixture{engine: engine, mailer: mailer}
}

func (f *handlerFixture) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) register(t *testing.T, email string) (authResponse, []*http.Cookie) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"`+email+`","password":"Secret123","displayName":"Test User"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp, w.Result().Cookies()
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterSetsCookiesAndBody(t *testing.T) {
	f := newHandlerFixture(t)

	resp, cookies := f.register(t, "a@x.com")
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "a@x.com", resp.User.Email)

	access := cookieByName(cookies, middleware.AccessCookieName)
	require.NotNil(t, access)
	require.Equal(t, resp.AccessToken, access.Value)
	require.True(t, access.HttpOnly)

	refresh := cookieByName(cookies, middleware.RefreshCookieName)
	require.NotNil(t, refresh)
	require.Equal(t, resp.RefreshToken, refresh.Value)
	require.True(t, refresh.HttpOnly)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newHandlerFixture(t)

	f.register(t, "a@x.com")
	w := f.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"a@x.com","password":"Secret123","displayName":"Again"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "email_already_registered")
}

func TestLoginWrongPassword(t *testing.T) {
	f := newHandlerFixture(t)

	f.register(t, "a@x.com")
	w := f.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"a@x.com","password":"wrong-pass"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestRefreshFromCookie(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := f.register(t, "a@x.com")
	w := f.do(t, http.MethodPost, "/api/v1/auth/refresh", "", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: resp.RefreshToken})
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
}

func TestRefreshFromBody(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := f.register(t, "a@x.com")
	w := f.do(t, http.MethodPost, "/api/v1/auth/refresh",
		`{"refreshToken":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshWithoutToken(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/refresh", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing_refresh_token")
}

// Logout always answers 200 and clears both cookies, even for a dead session.
func TestLogoutAlwaysSucceeds(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := f.register(t, "a@x.com")

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/auth/logout", "", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: middleware.RefreshCookieName, Value: resp.RefreshToken})
		})
		require.Equal(t, http.StatusOK, w.Code)

		cookies := w.Result().Cookies()
		access := cookieByName(cookies, middleware.AccessCookieName)
		require.NotNil(t, access)
		require.Empty(t, access.Value)
		require.Negative(t, access.MaxAge)
	}

	// The refresh token no longer works after the first logout.
	w := f.do(t, http.MethodPost, "/api/v1/auth/refresh",
		`{"refreshToken":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

// A session-store outage during refresh is a transient failure: the handler
// answers 500, not the 401 that would force a needless re-login.
func TestRefreshStoreFailureAnswers500(t *testing.T) {
	sessions := &servicetest.FailingSessionStore{FakeSessionStore: servicetest.NewFakeSessionStore()}
	f := newHandlerFixtureWith(t, servicetest.NewFakeUserStore(), sessions)

	resp, _ := f.register(t, "a@x.com")
	sessions.FindErr = errors.New("i/o timeout")

	w := f.do(t, http.MethodPost, "/api/v1/auth/refresh",
		`{"refreshToken":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "internal_server_error")
}

func TestMeRequiresAuth(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/auth/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeWithBearer(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := f.register(t, "a@x.com")
	w := f.do(t, http.MethodGet, "/api/v1/auth/me", "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), resp.User.ID)
}

// The response is identical whether or not the account exists.
func TestForgotPasswordUniformResponse(t *testing.T) {
	f := newHandlerFixture(t)

	f.register(t, "a@x.com")

	known := f.do(t, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"a@x.com"}`)
	unknown := f.do(t, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"nobody@x.com"}`)

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())
	require.Equal(t, 1, f.mailer.SentCount())
}

func TestResetPasswordBadTicket(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPut, "/api/v1/auth/reset-password/bogus",
		`{"password":"NewPass456"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_or_expired_ticket")
}

func TestChangePassword(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := f.register(t, "a@x.com")
	w := f.do(t, http.MethodPut, "/api/v1/users/password",
		`{"currentPassword":"Secret123","newPassword":"NewPass456"}`,
		func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
		})
	require.Equal(t, http.StatusOK, w.Code)

	login := f.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"a@x.com","password":"NewPass456"}`)
	require.Equal(t, http.StatusOK, login.Code)
}

func TestUpdateProfileEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := f.register(t, "a@x.com")
	w := f.do(t, http.MethodPut, "/api/v1/users/profile",
		`{"displayName":"Renamed"}`,
		func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
		})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Renamed")
}

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"

	"github.com/irodav/gatehouse/internal/auth"
	"github.com/irodav/gatehouse/internal/config"
	"github.com/irodav/gatehouse/internal/handler"
	"github.com/irodav/gatehouse/internal/mail"
	"github.com/irodav/gatehouse/internal/model"
	"github.com/irodav/gatehouse/internal/repository"
	"github.com/irodav/gatehouse/internal/router"
	"github.com/irodav/gatehouse/internal/token"
)

// stubStore is an in-memory auth.UserStore with the same atomic reset
// semantics as the SQL repository.
type stubStore struct {
	mu   sync.Mutex
	next uint64
	rows []*model.User
}

func (s *stubStore) byEmail(email string) *model.User {
	for _, u := range s.rows {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *stubStore) Create(_ context.Context, name, email, passwordHash, role string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(email) != nil {
		return 0, repository.ErrEmailExists
	}
	s.next++
	now := time.Now().UTC()
	s.rows = append(s.rows, &model.User{
		ID: s.next, Name: name, Email: email, PasswordHash: passwordHash,
		Role: role, PasswordChangedAt: now, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	return s.next, nil
}

func (s *stubStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.byEmail(email); u != nil {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.ID == id {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubStore) SetResetToken(_ context.Context, id uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.ID == id {
			u.ResetTokenHash = &tokenHash
			u.ResetTokenExpires = &exp
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *stubStore) ClearResetToken(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.ID == id {
			u.ResetTokenHash = nil
			u.ResetTokenExpires = nil
		}
	}
	return nil
}

func (s *stubStore) UpdatePassword(_ context.Context, id uint64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.ID == id {
			u.PasswordHash = passwordHash
			u.PasswordChangedAt = time.Now().UTC()
			u.ResetTokenHash = nil
			u.ResetTokenExpires = nil
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *stubStore) ConsumePasswordReset(_ context.Context, tokenHash, passwordHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, u := range s.rows {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			u.PasswordHash = passwordHash
			u.PasswordChangedAt = now
			u.ResetTokenHash = nil
			u.ResetTokenExpires = nil
			return u.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.fail {
		return errors.New("dial tcp: connection refused")
	}
	return nil
}

type testApp struct {
	e      *echo.Echo
	store  *stubStore
	mailer *recordingMailer
	codec  *token.Codec
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := &stubStore{}
	mailer := &recordingMailer{}
	codec := token.NewCodec("test-secret", time.Hour)
	cache := repository.NewUserCache(nil, time.Minute)
	svc := &auth.Service{
		Users:      store,
		Cache:      cache,
		Mail:       mailer,
		Codec:      codec,
		BcryptCost: bcrypt.MinCost,
		ResetTTL:   10 * time.Minute,
		BaseURL:    "https://example.test",
	}
	cfg := config.Config{Env: "test", CookieTTLHours: 24}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(svc, cfg), handler.NewAdminHandler(store), codec, store)
	return &testApp{e: e, store: store, mailer: mailer, codec: codec}
}

func (a *testApp) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

var hexToken = regexp.MustCompile(`[0-9a-f]{64}`)

func (a *testApp) lastMailToken(t *testing.T) string {
	t.Helper()
	a.mailer.mu.Lock()
	defer a.mailer.mu.Unlock()
	require.NotEmpty(t, a.mailer.sent)
	raw := hexToken.FindString(a.mailer.sent[len(a.mailer.sent)-1].Body)
	require.NotEmpty(t, raw)
	return raw
}

func TestSignup(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/v1/auth/signup",
		`{"name":"Alice","email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Equal(t, "success", env.Status)
	require.NotEmpty(t, env.Token)

	claims, err := app.codec.Verify(env.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)

	// Password material is stripped from every response.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	// Token mirrored into an HTTP-only cookie.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var session *http.Cookie
	for _, ck := range cookies {
		if ck.Name == handler.SessionCookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, env.Token, session.Value)
	assert.True(t, session.HttpOnly)
	assert.False(t, session.Secure) // not a prod config
}

func TestSignup_DuplicateAndBadBody(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	body := `{"email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/v1/auth/signup", body, "").Code)
	assert.Equal(t, http.StatusConflict, app.do(http.MethodPost, "/v1/auth/signup", body, "").Code)

	rec := app.do(http.MethodPost, "/v1/auth/signup", `{"email":}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_IdenticalFailureShape(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`, "").Code)

	wrongPass := app.do(http.MethodPost, "/v1/auth/login", `{"email":"a@x.com","password":"Nope12345"}`, "")
	noUser := app.do(http.MethodPost, "/v1/auth/login", `{"email":"b@x.com","password":"Secret123"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)
	assert.JSONEq(t, wrongPass.Body.String(), noUser.Body.String())
}

func TestPasswordChangeRevokesOldSessions(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	t1 := decode(t, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`, "")).Token
	t2 := decode(t, app.do(http.MethodPost, "/v1/auth/login",
		`{"email":"a@x.com","password":"Secret123"}`, "")).Token
	require.NotEmpty(t, t1)
	require.NotEmpty(t, t2)

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/v1/me", "", t1).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/v1/me", "", t2).Code)

	// The freshness check compares whole seconds, so step past the issuance
	// second before changing the password.
	time.Sleep(1100 * time.Millisecond)

	rec := app.do(http.MethodPatch, "/v1/me/password",
		`{"password":"Secret123","new_password":"Other4567","new_password_confirm":"Other4567"}`, t2)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	t3 := decode(t, rec).Token
	require.NotEmpty(t, t3)

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/v1/me", "", t1).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/v1/me", "", t2).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/v1/me", "", t3).Code)
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	tok := decode(t, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`, "")).Token

	rec := app.do(http.MethodPatch, "/v1/me/password",
		`{"password":"Wrong1234","new_password":"Other4567","new_password_confirm":"Other4567"}`, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`, "").Code)

	rec := app.do(http.MethodPost, "/v1/auth/forgot-password", `{"email":"a@x.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	raw := app.lastMailToken(t)

	// Unknown email is a 404, unlike login.
	assert.Equal(t, http.StatusNotFound,
		app.do(http.MethodPost, "/v1/auth/forgot-password", `{"email":"b@x.com"}`, "").Code)

	rec = app.do(http.MethodPatch, "/v1/auth/reset-password/"+raw,
		`{"password":"Other4567","password_confirm":"Other4567"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	require.NotEmpty(t, env.Token)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/v1/me", "", env.Token).Code)

	// Single use: the same token cannot be redeemed again.
	rec = app.do(http.MethodPatch, "/v1/auth/reset-password/"+raw,
		`{"password":"Third8910","password_confirm":"Third8910"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// And the new password is live.
	assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/v1/auth/login",
		`{"email":"a@x.com","password":"Other4567"}`, "").Code)
}

func TestForgotPassword_DeliveryFailureRollsBack(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.mailer.fail = true

	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"a@x.com","password":"Secret123","password_confirm":"Secret123"}`, "").Code)

	rec := app.do(http.MethodPost, "/v1/auth/forgot-password", `{"email":"a@x.com"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode(t, rec).Status)

	// The generated token leaked only into the failed send; the rollback
	// must have cleared it.
	raw := app.lastMailToken(t)
	rec = app.do(http.MethodPatch, "/v1/auth/reset-password/"+raw,
		`{"password":"Other4567","password_confirm":"Other4567"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoute_RoleGate(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	userTok := decode(t, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"user@x.com","password":"Secret123","password_confirm":"Secret123"}`, "")).Token

	// Promote a second account out of band, then log in normally.
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/v1/auth/signup",
		`{"email":"admin@x.com","password":"Secret123","password_confirm":"Secret123"}`, "").Code)
	app.store.mu.Lock()
	app.store.byEmail("admin@x.com").Role = model.RoleAdmin
	app.store.mu.Unlock()
	adminTok := decode(t, app.do(http.MethodPost, "/v1/auth/login",
		`{"email":"admin@x.com","password":"Secret123"}`, "")).Token

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/v1/admin/users/1", "", userTok).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/v1/admin/users/1", "", "").Code)

	rec := app.do(http.MethodGet, "/v1/admin/users/1", "", adminTok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@x.com")

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/v1/admin/users/99", "", adminTok).Code)
}

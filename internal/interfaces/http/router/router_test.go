package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook-api/internal/application/admin"
	"unibook-api/internal/application/auth"
	"unibook-api/internal/application/book"
	"unibook-api/internal/application/generation"
	"unibook-api/internal/config"
	"unibook-api/internal/infrastructure/persistence/postgres"
	"unibook-api/internal/interfaces/http/dto"
	"unibook-api/internal/interfaces/http/handler"
	"unibook-api/internal/interfaces/http/middleware"
	"unibook-api/pkg/utils"
)

const adminEmail = "admin@unibook.dev"

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSender) SendVerificationCode(_ context.Context, to, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[to] = code
}

func (s *captureSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *dto.PageMeta   `json:"meta"`
}

type testApp struct {
	engine *gin.Engine
	sender *captureSender
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, err := postgres.NewClient(&config.DatabaseConfig{
		Driver:   "sqlite",
		SQLite:   config.SQLiteConfig{Path: ":memory:"},
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	users := postgres.NewUserRepository(client)
	books := postgres.NewBookRepository(client)
	jwt := utils.NewJWTManager("test-secret", "unibook", time.Hour)
	sender := &captureSender{codes: make(map[string]string)}

	authSvc := auth.NewService(users, jwt, sender, func(email string) bool { return email == adminEmail }, 5*time.Minute)
	genSvc := generation.NewService(books, generation.NewMemoryStatusStore(), nil)
	bookSvc := book.NewService(books, genSvc)
	adminSvc := admin.NewService(users, books, postgres.NewTxManager(client), genSvc)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Server.HTTP.BasePath = "/api/v1"

	r := NewWithDeps(cfg, &RouterHandlers{
		Health:     handler.NewHealthHandler(client, nil, "test"),
		Auth:       handler.NewAuthHandler(authSvc),
		Book:       handler.NewBookHandler(bookSvc),
		Generation: handler.NewGenerationHandler(bookSvc, genSvc),
		Admin:      handler.NewAdminHandler(adminSvc, bookSvc),
		AuthConfig: middleware.AuthConfig{JWT: jwt, Enabled: true},
	})
	return &testApp{engine: r.Engine(), sender: sender}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
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

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) (T, envelope) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	var data T
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &data))
	}
	return data, env
}

// signup 注册并验证，返回验证后签发的 token 与用户 ID
func (a *testApp) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/auth/verify", "", gin.H{"email": email, "code": a.sender.code(email)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res, _ := decode[dto.AuthResponse](t, w)
	return res.Token, res.User.ID
}

func (a *testApp) login(t *testing.T, email string) dto.AuthResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res, _ := decode[dto.AuthResponse](t, w)
	return res
}

func (a *testApp) createBook(t *testing.T, token, title string) dto.BookResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/books", token, gin.H{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b, _ := decode[dto.BookResponse](t, w)
	return b
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := app.do(t, http.MethodGet, "/ready", "", nil)
	assert.Contains(t, w.Body.String(), `"database":{"status":"ok"`)
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "reader@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	msg, _ := decode[dto.MessageResponse](t, w)
	assert.Contains(t, msg.Message, "check your email")

	w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "reader@b.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email not verified")

	w = app.do(t, http.MethodPost, "/api/v1/auth/verify", "", gin.H{"email": "ghost@b.com", "code": "123456"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/verify", "", gin.H{"email": "reader@b.com", "code": app.sender.code("reader@b.com")})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/resend-code", "", gin.H{"email": "reader@b.com"})
	require.Equal(t, http.StatusOK, w.Code)
	msg, _ = decode[dto.MessageResponse](t, w)
	assert.Equal(t, "User already verified", msg.Message)

	w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "reader@b.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	res := app.login(t, "reader@b.com")
	assert.Equal(t, "member", res.User.Role)
	assert.True(t, res.User.IsVerified)

	w = app.do(t, http.MethodGet, "/api/v1/auth/me", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me, _ := decode[dto.UserResponse](t, w)
	assert.Equal(t, "reader@b.com", me.Email)
}

func TestBooksRequireAuth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/books", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookCRUD(t *testing.T) {
	app := newTestApp(t)
	owner, _ := app.signup(t, "owner@b.com")
	other, _ := app.signup(t, "other@b.com")

	created := app.createBook(t, owner, "Space Book")
	assert.Equal(t, "draft", created.Status)
	assert.NotZero(t, created.CreatedAt)
	assert.NotNil(t, created.Outline)

	w := app.do(t, http.MethodGet, "/api/v1/books", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list, env := decode[[]dto.BookResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), env.Meta.Total)

	w = app.do(t, http.MethodGet, "/api/v1/books/"+created.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/books/missing", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPut, "/api/v1/books/"+created.ID, owner, gin.H{"coverImage": "cover.png"})
	require.Equal(t, http.StatusOK, w.Code)
	updated, _ := decode[dto.BookResponse](t, w)
	assert.Equal(t, "Space Book", updated.Title)
	assert.Equal(t, "cover.png", updated.CoverImage)

	w = app.do(t, http.MethodPut, "/api/v1/books/"+created.ID, owner, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/books/"+created.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/books/"+created.ID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	del, _ := decode[dto.DeleteResponse](t, w)
	assert.True(t, del.Success)
	assert.Equal(t, created.ID, del.ID)
}

func TestGenerationFlow(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "author@b.com")
	other, _ := app.signup(t, "other@b.com")
	b := app.createBook(t, token, "Untitled")
	base := "/api/v1/books/" + b.ID + "/generation"

	w := app.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st, _ := decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "IDLE", st.Step)

	w = app.do(t, http.MethodGet, base, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, base+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st, _ = decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "GATHERING", st.Step)

	// 非法迁移：返回 409、错误码与未变化的状态
	w = app.do(t, http.MethodPost, base+"/outline", token, gin.H{
		"outline": []gin.H{{"chapterNumber": 1, "title": "Launch"}},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	var rejected dto.GenerationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
	assert.Equal(t, "4001", rejected.Error.ErrorCode)
	require.NotNil(t, rejected.Status)
	assert.Equal(t, "GATHERING", rejected.Status.Step)

	w = app.do(t, http.MethodPost, base+"/requirement", token, gin.H{"topic": "Space"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.do(t, http.MethodPost, base+"/requirement", token, gin.H{
		"topic":             "Space",
		"targetAudience":    "kids",
		"tone":              "fun",
		"keyGoals":          []string{"learn planets"},
		"pageCountEstimate": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)
	st, _ = decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "PLANNING", st.Step)

	w = app.do(t, http.MethodPost, base+"/outline", token, gin.H{
		"outline": []gin.H{{"chapterNumber": 1, "title": "Launch", "description": "d", "keyPoints": []string{"k"}}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	st, _ = decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "WRITING_LOOP", st.Step)
	assert.Equal(t, 1, st.TotalChapters)

	w = app.do(t, http.MethodPost, base+"/logs", token, gin.H{"message": "drafting chapter 1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, base+"/chapters", token, gin.H{
		"chapterNumber": 2, "title": "Later", "content": "c", "reflection": "r",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"4002"`)

	w = app.do(t, http.MethodPost, base+"/chapters", token, gin.H{
		"chapterNumber": 1, "title": "Launch", "content": "c", "reflection": "r",
	})
	require.Equal(t, http.StatusOK, w.Code)
	st, _ = decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "COMPLETED", st.Step)
	assert.Equal(t, 1, st.CurrentChapterIndex)
	assert.Contains(t, strings.Join(st.Logs, "\n"), "drafting chapter 1")

	w = app.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st, _ = decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "COMPLETED", st.Step)

	w = app.do(t, http.MethodGet, "/api/v1/books/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got, _ := decode[dto.BookResponse](t, w)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.Requirements)
	assert.Equal(t, "Space", got.Requirements.Topic)
	assert.Len(t, got.Outline, 1)
	assert.Len(t, got.Chapters, 1)

	w = app.do(t, http.MethodPost, base+"/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st, _ = decode[dto.GenerationStatusResponse](t, w)
	assert.Equal(t, "IDLE", st.Step)
	assert.Empty(t, st.Logs)
}

func TestBookEditLockedWhileGenerating(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup(t, "author@b.com")
	b := app.createBook(t, token, "Untitled")
	path := "/api/v1/books/" + b.ID
	base := path + "/generation"

	w := app.do(t, http.MethodPost, base+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPut, path, token, gin.H{
		"outline": []gin.H{{"chapterNumber": 1, "title": "Injected"}},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"4001"`)

	w = app.do(t, http.MethodPut, path, token, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPut, path, token, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	updated, _ := decode[dto.BookResponse](t, w)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Empty(t, updated.Outline)
	assert.Equal(t, "draft", updated.Status)

	w = app.do(t, http.MethodPost, base+"/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPut, path, token, gin.H{
		"outline": []gin.H{{"chapterNumber": 1, "title": "Manual"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated, _ = decode[dto.BookResponse](t, w)
	require.Len(t, updated.Outline, 1)
	assert.Equal(t, "Manual", updated.Outline[0].Title)
}

func TestAdminEndpoints(t *testing.T) {
	app := newTestApp(t)
	memberToken, memberID := app.signup(t, "member@b.com")
	app.createBook(t, memberToken, "Member Book")

	w := app.do(t, http.MethodGet, "/api/v1/admin/users", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	app.signup(t, adminEmail)
	res := app.login(t, adminEmail)
	require.Equal(t, "admin", res.User.Role)
	adminToken := res.Token

	w = app.do(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users, env := decode[[]dto.UserResponse](t, w)
	assert.Len(t, users, 2)
	assert.Equal(t, 100, env.Meta.PageSize)

	w = app.do(t, http.MethodGet, "/api/v1/admin/books", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = decode[[]dto.BookResponse](t, w)
	assert.Equal(t, int64(1), env.Meta.Total)

	w = app.do(t, http.MethodDelete, "/api/v1/admin/users/"+res.User.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"2010"`)

	w = app.do(t, http.MethodDelete, "/api/v1/admin/users/"+memberID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/admin/books", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = decode[[]dto.BookResponse](t, w)
	assert.Equal(t, int64(0), env.Meta.Total)

	w = app.do(t, http.MethodDelete, "/api/v1/admin/books/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"article-api/internal/domain"
	"article-api/internal/repository"
	"article-api/internal/repository/sqlite"
	"article-api/internal/service"
)

type testServer struct {
	router   *gin.Engine
	users    repository.UserRepository
	articles repository.ArticleRepository
	tokens   *service.TokenIssuer
}

type testEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	articles := sqlite.NewArticleRepository(db)
	if err := users.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := articles.Init(ctx); err != nil {
		t.Fatalf("init articles: %v", err)
	}

	logger, _ := test.NewNullLogger()
	tokens := service.NewTokenIssuer("test-secret", 0)
	userService := service.NewUserService(users, nil, bcrypt.MinCost, logger)
	handler := NewHandler(
		userService,
		service.NewArticleService(articles, userService, service.ArticleServiceConfig{Logger: logger}),
		tokens,
		logger,
	)
	router := gin.New()
	handler.RegisterRoutes(router)

	return &testServer{router: router, users: users, articles: articles, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)

	var env testEnvelope
	if resp.Body.Len() > 0 {
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope %q: %v", resp.Body.String(), err)
		}
	}
	return resp, env
}

func (s *testServer) signup(t *testing.T, body map[string]any) UserResponse {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/signup", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var user UserResponse
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return user
}

func TestWelcome(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if env.StatusCode != http.StatusOK || env.Message != msgWelcome {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestSignupLoginScenario(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"email": "a@x.com", "password": "pw1", "name": "A", "age": 30}

	user := s.signup(t, body)
	if user.ID == "" {
		t.Fatalf("expected generated id")
	}
	if user.Email != "a@x.com" || user.Name != "A" || user.Age == nil || *user.Age != 30 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Password == "" || user.Password == "pw1" {
		t.Fatalf("expected stored hash in response, got %q", user.Password)
	}

	resp, env := s.do(t, http.MethodPost, "/api/signup", body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: expected 400, got %d", resp.Code)
	}
	if env.Message != "Email already exists" || env.Error != "Bad Request" || env.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	stored, err := s.users.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.ID != user.ID || stored.PasswordHash != user.Password {
		t.Fatalf("first user changed after duplicate signup")
	}

	resp, env = s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "a@x.com", "password": "pw1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var token TokenResponse
	if err := json.Unmarshal(env.Data, &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.Token == "" {
		t.Fatalf("expected non-empty token")
	}
	userID, err := s.tokens.Parse(token.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("token user id = %q, want %q", userID, user.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, map[string]any{"email": "b@x.com", "password": "right"})

	wrongPassword, wrongEnv := s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "b@x.com", "password": "wrong"})
	unknownEmail, unknownEnv := s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "nobody@x.com", "password": "right"})

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
	if wrongEnv.Message != msgBadCredentials || unknownEnv.Error != "Unauthorized" {
		t.Fatalf("unexpected envelope: %+v", wrongEnv)
	}
}

func TestSignupRequiresEmailAndPassword(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/signup", map[string]any{"email": "c@x.com"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if env.Message != msgInvalidBody {
		t.Fatalf("unexpected message %q", env.Message)
	}

	resp, _ = s.do(t, http.MethodPost, "/api/login", "{not json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed login: expected 400, got %d", resp.Code)
	}
}

func TestCreateArticleForUnknownUser(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/users/missing/articles", map[string]any{"title": "t", "description": "d"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if env.Message != msgUserNotFound {
		t.Fatalf("unexpected message %q", env.Message)
	}

	articles, err := s.articles.ListWithAuthors(context.Background())
	if err != nil {
		t.Fatalf("list articles: %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("expected no persisted articles, got %d", len(articles))
	}
}

func TestCreateAndListArticles(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, map[string]any{"email": "d@x.com", "password": "pw", "name": "Dana"})

	resp, env := s.do(t, http.MethodPost, "/api/users/"+user.ID+"/articles", map[string]any{"title": "First", "description": "hello"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created ArticleResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode article: %v", err)
	}
	if created.ID == "" || created.Author != user.ID || created.Title != "First" {
		t.Fatalf("unexpected article: %+v", created)
	}

	s.do(t, http.MethodPost, "/api/users/"+user.ID+"/articles", map[string]any{"title": "Second", "description": "again"})

	resp, env = s.do(t, http.MethodGet, "/api/articles", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.Code)
	}
	var list []ArticleListItem
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(list))
	}
	if list[0].ID != created.ID || list[1].Title != "Second" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if list[0].Author == nil || list[0].Author.Name != "Dana" || list[0].Author.ID != user.ID {
		t.Fatalf("author not resolved: %+v", list[0].Author)
	}
}

func TestListArticlesEmpty(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/articles", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if string(env.Data) != "[]" {
		t.Fatalf("expected empty array, got %s", env.Data)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, map[string]any{"email": "e@x.com", "password": "pw", "name": "Old", "age": 20})

	resp, env := s.do(t, http.MethodPatch, "/api/users/"+user.ID, map[string]any{"name": "New", "age": 21})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var updated UserResponse
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if updated.Name != "New" || updated.Age == nil || *updated.Age != 21 {
		t.Fatalf("fields not updated: %+v", updated)
	}
	if updated.Email != user.Email || updated.Password != user.Password {
		t.Fatalf("email or password changed: %+v", updated)
	}

	resp, env = s.do(t, http.MethodPatch, "/api/users/"+user.ID, map[string]any{"age": 22})
	if resp.Code != http.StatusOK {
		t.Fatalf("partial update: expected 200, got %d", resp.Code)
	}
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if updated.Name != "New" || *updated.Age != 22 {
		t.Fatalf("partial update touched other fields: %+v", updated)
	}
}

func TestFractionalAge(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, map[string]any{"email": "f@x.com", "password": "pw", "name": "Fay", "age": 30.5})
	if user.Age == nil || *user.Age != 30.5 {
		t.Fatalf("signup age not kept: %+v", user)
	}

	resp, env := s.do(t, http.MethodPatch, "/api/users/"+user.ID, `{"age":31.25}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var updated UserResponse
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if updated.Age == nil || *updated.Age != 31.25 || updated.Name != "Fay" {
		t.Fatalf("unexpected user: %+v", updated)
	}

	stored, err := s.users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.Age == nil || *stored.Age != 31.25 {
		t.Fatalf("store kept age %v", stored.Age)
	}
}

func TestLoginDoesNotTrimEmail(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, map[string]any{"email": "a@x.com", "password": "pw1"})

	resp, env := s.do(t, http.MethodPost, "/api/login", map[string]any{"email": " a@x.com", "password": "pw1"})
	if resp.Code != http.StatusUnauthorized || env.Message != msgBadCredentials {
		t.Fatalf("expected 401 for a padded email, got %d %+v", resp.Code, env)
	}
}

func TestUpdateUnknownUser(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPatch, "/api/users/missing", map[string]any{"name": "X"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if env.Error != "Not Found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

var errStoreDown = errors.New("connection refused by store at 10.0.0.7")

type failingArticles struct{}

func (failingArticles) CreateArticle(context.Context, string, string, string) (*domain.Article, error) {
	return nil, errStoreDown
}

func (failingArticles) ListArticles(context.Context) ([]domain.ArticleWithAuthor, error) {
	return nil, errStoreDown
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	handler := NewHandler(nil, failingArticles{}, service.NewTokenIssuer("s", 0), logger)
	router := gin.New()
	handler.RegisterRoutes(router)
	s := &testServer{router: router}

	resp, env := s.do(t, http.MethodGet, "/api/articles", nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if env.Error != "Internal Server Error" || env.Message != msgListFailed {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if strings.Contains(resp.Body.String(), "10.0.0.7") {
		t.Fatalf("internal error leaked: %s", resp.Body.String())
	}

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data[logrus.ErrorKey] == errStoreDown {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("expected internal error to be logged")
	}
}

func TestPanicRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	handler := NewHandler(nil, nil, nil, logger)
	router := gin.New()
	handler.RegisterRoutes(router)
	s := &testServer{router: router}

	// a nil user service panics inside the handler
	resp, env := s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "a@x.com", "password": "pw"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if env.StatusCode != http.StatusInternalServerError || env.Error != "Internal Server Error" || env.Message != "An unexpected error occurred" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	body := resp.Body.String()
	for _, leak := range []string{"runtime error", "nil pointer", "goroutine", ".go:"} {
		if strings.Contains(body, leak) {
			t.Fatalf("panic detail %q leaked into response: %s", leak, body)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/nope", nil)
	if resp.Code != http.StatusNotFound || env.Message != msgRouteNotFound {
		t.Fatalf("unexpected response %d %+v", resp.Code, env)
	}
}

// file: handler/auth_handler_test.go

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"go-auth-api/handler"
	"go-auth-api/model"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// memoryUserRepo is an in-memory IUserRepository for exercising the full
// HTTP stack without a database.
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int]*model.User)}
}

func (r *memoryUserRepo) CreateUser(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memoryUserRepo) GetUserByEmail(email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) GetUserByID(id int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		found := *u
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) GetUserByRefreshToken(token string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		return nil, sql.ErrNoRows
	}
	for _, u := range r.users {
		if u.RefreshToken == token {
			found := *u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) UpdateRefreshToken(userID int, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.RefreshToken = token
	}
	return nil
}

func (r *memoryUserRepo) UpdatePassword(userID int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Password = passwordHash
	}
	return nil
}

var _ repository.IUserRepository = (*memoryUserRepo)(nil)

// capturingMailer records the last outbound mail instead of sending it.
type capturingMailer struct {
	lastTo   string
	lastBody string
	fail     bool
}

func (m *capturingMailer) Send(to, subject, body string) error {
	if m.fail {
		return fmt.Errorf("smtp transport down")
	}
	m.lastTo = to
	m.lastBody = body
	return nil
}

// fakeCache is a map-backed ICacheClient.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := value.([]byte); ok {
		c.data[key] = string(b)
	}
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type testStack struct {
	router http.Handler
	signer *service.JWTSigner
	mailer *capturingMailer
}

func newTestStack() *testStack {
	repo := newMemoryUserRepo()
	signer := service.NewJWTSigner(service.SignerConfig{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
		ResetSecret:   "reset-test-secret",
	})
	mailer := &capturingMailer{}

	authService := service.NewAuthService(repo, signer, mailer, service.AuthConfig{
		BcryptCost: bcrypt.MinCost,
		AppBaseURL: "http://localhost:3000",
	})
	userService := service.NewUserService(repo, newFakeCache())

	return &testStack{
		router: router.NewRouter(handler.NewAuthHandler(authService), handler.NewUserHandler(userService), signer),
		signer: signer,
		mailer: mailer,
	}
}

func (s *testStack) post(t *testing.T, path string, payload interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("could not encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthFlow_RegisterLoginRefresh(t *testing.T) {
	stack := newTestStack()

	// Register.
	rr := stack.post(t, "/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "p1",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "refresh")

	// Duplicate register conflicts.
	rr = stack.post(t, "/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "p1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Login.
	rr = stack.post(t, "/login", map[string]string{"email": "a@x.com", "password": "p1"})
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginBody struct {
		AccessToken string `json:"accessToken"`
		Email       string `json:"email"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginBody))
	assert.NotEmpty(t, loginBody.AccessToken)
	assert.Equal(t, "a@x.com", loginBody.Email)
	assert.NotContains(t, rr.Body.String(), "refreshToken")

	refreshCookie := cookieByName(rr, "refreshToken")
	if assert.NotNil(t, refreshCookie) {
		assert.True(t, refreshCookie.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, refreshCookie.SameSite)
	}

	// Wrong password is a 404, mirroring the unknown-email case.
	rr = stack.post(t, "/login", map[string]string{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Refresh works repeatedly with the same cookie.
	for i := 0; i < 2; i++ {
		rr = stack.post(t, "/refresh", nil, refreshCookie)
		assert.Equal(t, http.StatusOK, rr.Code)

		var refreshBody map[string]string
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &refreshBody))
		subject, err := stack.signer.Verify(service.TokenAccess, refreshBody["accessToken"])
		assert.NoError(t, err)
		assert.Equal(t, "1", subject)
	}

	// Tampering one character of the cookie value is rejected.
	tampered := *refreshCookie
	if strings.HasSuffix(tampered.Value, "a") {
		tampered.Value = tampered.Value[:len(tampered.Value)-1] + "b"
	} else {
		tampered.Value = tampered.Value[:len(tampered.Value)-1] + "a"
	}
	rr = stack.post(t, "/refresh", nil, &tampered)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// No cookie at all is unauthenticated.
	rr = stack.post(t, "/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// A second login rotates the stored refresh token; the old cookie dies.
	rr = stack.post(t, "/login", map[string]string{"email": "a@x.com", "password": "p1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	newCookie := cookieByName(rr, "refreshToken")
	assert.NotNil(t, newCookie)

	rr = stack.post(t, "/refresh", nil, refreshCookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = stack.post(t, "/refresh", nil, newCookie)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthFlow_Logout(t *testing.T) {
	stack := newTestStack()

	rr := stack.post(t, "/logout", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	cleared := cookieByName(rr, "refreshToken")
	if assert.NotNil(t, cleared) {
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)
	}
}

func TestAuthFlow_PasswordReset(t *testing.T) {
	stack := newTestStack()

	rr := stack.post(t, "/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "oldPwd",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	// Unknown email gets a 404 before any mail goes out.
	rr = stack.post(t, "/sendResetLink", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, stack.mailer.lastBody)

	// Request the reset link and pull the token out of the mailed body.
	rr = stack.post(t, "/sendResetLink", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@x.com", stack.mailer.lastTo)

	_, rest, found := strings.Cut(stack.mailer.lastBody, "token=")
	assert.True(t, found)
	token, _, _ := strings.Cut(rest, `"`)
	assert.NotEmpty(t, token)

	// An unknown email on the reset form is a bad request.
	rr = stack.post(t, "/resetPassword", map[string]string{
		"email": "nobody@x.com", "token": token, "newPassword": "newPwd",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A garbage token is rejected.
	rr = stack.post(t, "/resetPassword", map[string]string{
		"email": "a@x.com", "token": "garbage", "newPassword": "newPwd",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// The mailed token resets the password.
	rr = stack.post(t, "/resetPassword", map[string]string{
		"email": "a@x.com", "token": token, "newPassword": "newPwd",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	// The new password logs in; the old one no longer does.
	rr = stack.post(t, "/login", map[string]string{"email": "a@x.com", "password": "newPwd"})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = stack.post(t, "/login", map[string]string{"email": "a@x.com", "password": "oldPwd"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthFlow_ResetMailDeliveryFailure(t *testing.T) {
	stack := newTestStack()
	stack.mailer.fail = true

	rr := stack.post(t, "/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "p1",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = stack.post(t, "/sendResetLink", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAuthFlow_Profile(t *testing.T) {
	stack := newTestStack()

	rr := stack.post(t, "/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "p1", "avatar": "https://img.example/a.png",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = stack.post(t, "/login", map[string]string{"email": "a@x.com", "password": "p1"})
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginBody struct {
		AccessToken string `json:"accessToken"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginBody))

	// Without a token the profile is unreachable.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	stack.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With the access token it returns the sanitized record. The second
	// call is served from the cache and must look identical.
	var bodies []string
	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+loginBody.AccessToken)
		rec = httptest.NewRecorder()
		stack.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "a@x.com")
		assert.NotContains(t, rec.Body.String(), "password")
		bodies = append(bodies, rec.Body.String())
	}
	assert.JSONEq(t, bodies[0], bodies[1])
}

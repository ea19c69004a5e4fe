package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"expensetracker/config"
	"expensetracker/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthRouter(cfg *config.Config, userID uint) *gin.Engine {
	middleware.InitJWT(cfg)
	h := NewAuthHandler(cfg)

	router := gin.New()
	router.POST("/signup", h.Signup)
	router.POST("/login", h.Login)
	router.GET("/me", setUserIDMiddleware(userID), h.Me)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 邮箱不存在
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cfg := testConfig()
	router := newAuthRouter(cfg, 0)

	w := postJSON(router, "/signup", `{"name":"Jane","email":"  Jane@Example.com ","password":"Password123"}`)
	assert.Equal(t, 200, w.Code)

	var resp struct {
		Message string       `json:"message"`
		Data    AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "注册成功", resp.Message)
	assert.Equal(t, "jane@example.com", resp.Data.User.Email)
	assert.Equal(t, uint(1), resp.Data.User.ID)
	assert.NotContains(t, w.Body.String(), "password")

	claims, err := middleware.ParseToken(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(720*time.Hour), claims.ExpiresAt.Time, time.Minute)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Signup_EmailTaken(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(3, "Jane", "jane@example.com"))

	router := newAuthRouter(testConfig(), 0)
	w := postJSON(router, "/signup", `{"name":"Jane","email":"jane@example.com","password":"Password123"}`)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "邮箱已被使用")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Signup_Validation(t *testing.T) {
	router := newAuthRouter(testConfig(), 0)

	tests := []struct {
		name string
		body string
	}{
		{"缺少姓名", `{"email":"a@example.com","password":"Password123"}`},
		{"邮箱格式错误", `{"name":"A","email":"not-an-email","password":"Password123"}`},
		{"密码过短", `{"name":"A","email":"a@example.com","password":"Pa1"}`},
		{"密码缺少大写字母", `{"name":"A","email":"a@example.com","password":"password123"}`},
		{"密码缺少数字", `{"name":"A","email":"a@example.com","password":"Passwordxx"}`},
		{"姓名为空白", `{"name":"   ","email":"a@example.com","password":"Password123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/signup", tt.body)
			assert.Equal(t, 400, w.Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "created_at", "updated_at", "deleted_at"}).
			AddRow(5, "Jane", "jane@example.com", string(hash), time.Now(), time.Now(), nil))

	router := newAuthRouter(testConfig(), 0)
	w := postJSON(router, "/login", `{"email":"JANE@example.com","password":"Password123"}`)

	assert.Equal(t, 200, w.Code)
	var resp struct {
		Data AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "Jane", resp.Data.User.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password"}).AddRow(5, "jane@example.com", string(hash)))

	router := newAuthRouter(testConfig(), 0)
	w := postJSON(router, "/login", `{"email":"jane@example.com","password":"wrong"}`)

	assert.Equal(t, 401, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_UnknownEmail(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	router := newAuthRouter(testConfig(), 0)
	w := postJSON(router, "/login", `{"email":"nobody@example.com","password":"Password123"}`)

	assert.Equal(t, 401, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_DatabaseError(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnError(errors.New("connection reset"))

	router := newAuthRouter(testConfig(), 0)
	w := postJSON(router, "/login", `{"email":"jane@example.com","password":"Password123"}`)

	assert.Equal(t, 500, w.Code)
	assert.NotContains(t, w.Body.String(), "邮箱或密码错误")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Me(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password"}).AddRow(5, "Jane", "jane@example.com", "hash"))

	router := newAuthRouter(testConfig(), 5)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "jane@example.com")
	assert.NotContains(t, w.Body.String(), "hash")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validatePassword("Password123"))
	assert.Error(t, validatePassword("password123"))
	assert.Error(t, validatePassword("PASSWORD123"))
	assert.Error(t, validatePassword("Password"))
}

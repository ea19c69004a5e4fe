package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/docs"
	"expensetracker/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: ":0", Mode: gin.TestMode, Location: time.UTC},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "router.db"),
		},
		JWT:       config.JWTConfig{Secret: "router-test-secret", ExpireHours: 720, ExpireTime: 720 * time.Hour},
		Budget:    config.BudgetConfig{Monthly: 1000, Weekly: 250, Daily: 35},
		RateLimit: config.RateLimitConfig{LoginAttempts: 3, LoginWindowSeconds: 60},
	}
}

// setupServer 使用临时 sqlite 库启动完整路由
func setupServer(t *testing.T) *gin.Engine {
	cfg := testConfig(t)

	oldDB := database.DB
	require.NoError(t, database.Init(cfg))
	t.Cleanup(func() {
		if sqlDB, err := database.DB.DB(); err == nil {
			sqlDB.Close()
		}
		database.DB = oldDB
	})

	middleware.InitJWT(cfg)
	return SetupRouter(cfg, Dependencies{})
}

func request(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouter_Routes(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{})

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/signup",
		"POST /api/login",
		"GET /api/health",
		"GET /api/categories",
		"GET /api/me",
		"POST /api/expenses",
		"GET /api/expenses/list",
		"POST /api/expenses/import",
		"GET /api/expenses/:id",
		"PUT /api/expenses/:id",
		"DELETE /api/expenses/:id",
		"GET /api/budget",
		"PUT /api/budget",
		"GET /api/budget/status",
		"GET /api/budget/derive",
		"GET /api/reports",
		"GET /api/reports/categories",
		"GET /api/reports/stats",
		"GET /api/export/csv",
		"GET /api/export/json",
		"GET /api/export/statement",
		"GET /swagger/*any",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestSetupRouter_SwaggerHostFollowsPort(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = ":3002"
	SetupRouter(cfg, Dependencies{})

	assert.Equal(t, "localhost:3002", docs.SwaggerInfo.Host)
}

func TestRouter_RequiresToken(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{})

	for _, path := range []string{"/api/me", "/api/expenses/list", "/api/budget/status", "/api/reports"} {
		w := request(r, "GET", path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{})

	req := httptest.NewRequest("OPTIONS", "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_EndToEnd(t *testing.T) {
	r := setupServer(t)

	// 注册
	w := request(r, "POST", "/api/signup", "", `{"name":"Jane","email":"jane@example.com","password":"Password123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var signup struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	token := signup.Data.Token
	require.NotEmpty(t, token)

	w = request(r, "GET", "/api/me", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jane@example.com")

	// 历史日期的记录不会触发当日预算提醒
	w = request(r, "POST", "/api/expenses", token, `{"amount":12.5,"category":"food","note":"午餐","date":"2024-03-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"category":"Food"`)

	w = request(r, "POST", "/api/expenses/import", token, `[{"amount":"8","category":"Bus","date":"2024-02-10"},{"amount":3,"date":"bad"},{"amount":"0.001","date":"2024-03-01"}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// 不足一分的金额按 0 跳过，不会存成 0.00
	assert.Contains(t, w.Body.String(), `"imported":1`)
	assert.Contains(t, w.Body.String(), `{"index":2,"reason":"金额无效"}`)

	w = request(r, "GET", "/api/expenses/list", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []struct {
			Amount   float64 `json:"amount"`
			Category string  `json:"category"`
			Date     string  `json:"date"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "2024-03-01", list.Data[0].Date)
	assert.Equal(t, 12.5, list.Data[0].Amount)
	assert.Equal(t, "Other", list.Data[1].Category)

	w = request(r, "GET", "/api/reports?period=monthly", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"period":"2024-03"`)
	assert.Contains(t, w.Body.String(), `"period":"2024-02"`)

	w = request(r, "GET", "/api/budget", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"monthly_budget":1000`)

	w = request(r, "GET", "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_count":1`)
}

func TestRouter_LoginRateLimit(t *testing.T) {
	r := setupServer(t)

	body := `{"email":"nobody@example.com","password":"Password123"}`
	for i := 0; i < 3; i++ {
		w := request(r, "POST", "/api/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := request(r, "POST", "/api/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

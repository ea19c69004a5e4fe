package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeErrorMessage(t *testing.T) {
	fallback := "操作失败"
	testErr := errors.New("internal database error")

	// nil err 返回 fallback
	assert.Equal(t, fallback, SafeErrorMessage(nil, fallback))

	// release 模式返回 fallback，不暴露错误详情
	GlobalConfig = &Config{Server: ServerConfig{Mode: "release"}}
	defer func() { GlobalConfig = nil }()
	assert.Equal(t, fallback, SafeErrorMessage(testErr, fallback))

	// debug 模式返回 err.Error()
	GlobalConfig = &Config{Server: ServerConfig{Mode: "debug"}}
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))

	// GlobalConfig 为 nil 时返回 err.Error()（视为开发环境）
	GlobalConfig = nil
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer func() { GlobalConfig = nil }()
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 720*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 1000.0, cfg.Budget.Monthly)
	assert.Equal(t, 250.0, cfg.Budget.Weekly)
	assert.Equal(t, 35.0, cfg.Budget.Daily)
	assert.NotNil(t, cfg.Server.Location)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfig_ExternalFileAndEnv(t *testing.T) {
	defer func() { GlobalConfig = nil }()
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "custom.yaml")
	content := "database:\n  driver: sqlite\n  path: /tmp/x.db\nserver:\n  timezone: UTC\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("EXPENSE_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, time.UTC, cfg.Server.Location)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestNormalize_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "oracle"},
		Budget:   BudgetConfig{Monthly: 1, Weekly: 1, Daily: 1},
	}
	assert.Error(t, cfg.normalize())
}

func TestNormalize_RejectsNonPositiveBudget(t *testing.T) {
	cfg := &Config{Budget: BudgetConfig{Monthly: 1000, Weekly: 0, Daily: 35}}
	assert.Error(t, cfg.normalize())
}

func TestNow_UsesLocation(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Location: time.UTC}}
	assert.Equal(t, time.UTC, cfg.Now().Location())

	var nilCfg *Config
	assert.False(t, nilCfg.Now().IsZero())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

package database

import (
	"path/filepath"
	"testing"

	"expensetracker/config"
	"expensetracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMySQLDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Username: "root",
		Password: "pw",
		Host:     "127.0.0.1",
		Port:     "3306",
		DBName:   "expense_tracker",
		Charset:  "utf8mb4",
	}
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/expense_tracker?charset=utf8mb4&parseTime=True&loc=Local", MySQLDSN(cfg))

	cfg.DSN = "custom"
	assert.Equal(t, "custom", MySQLDSN(cfg))
}

func TestPostgresDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: "5432", Username: "u", Password: "p", DBName: "x"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=x sslmode=disable", PostgresDSN(cfg))

	cfg.DSN = "postgresql://u:p@db:5432/x"
	assert.Equal(t, "postgres://u:p@db:5432/x", PostgresDSN(cfg))
}

func TestDialector(t *testing.T) {
	d, err := Dialector(config.DatabaseConfig{Driver: "mysql"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = Dialector(config.DatabaseConfig{Driver: "postgres", Host: "localhost", Port: "5432", Username: "u", DBName: "x"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "test.db")
	d, err := Dialector(config.DatabaseConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)

	db, err := gorm.Open(d, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Expense{}))
	assert.True(t, db.Migrator().HasTable(&models.Budget{}))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Warn, logLevel("release"))
	assert.Equal(t, logger.Info, logLevel("debug"))
}

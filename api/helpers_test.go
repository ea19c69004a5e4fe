package api

import (
	"testing"
	"time"

	"expensetracker/config"
	"expensetracker/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

// testNow 2024-03-15 周五 10:00 UTC
var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug", Location: time.UTC},
		JWT:    config.JWTConfig{Secret: "test-jwt-secret-key", ExpireHours: 720, ExpireTime: 720 * time.Hour},
		Budget: config.BudgetConfig{Monthly: 1000, Weekly: 250, Daily: 35},
	}
}

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

var expenseColumns = []string{"id", "user_id", "amount", "category", "note", "date", "created_at", "updated_at", "deleted_at"}

func expenseRows() *sqlmock.Rows {
	return sqlmock.NewRows(expenseColumns)
}

var budgetColumns = []string{"id", "user_id", "monthly_budget", "weekly_budget", "daily_budget", "created_at", "updated_at"}

func budgetRow(monthly, weekly, daily float64) *sqlmock.Rows {
	return sqlmock.NewRows(budgetColumns).AddRow(1, 1, monthly, weekly, daily, testNow, testNow)
}

package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/config"
	"expensetracker/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	dialector, err := Dialector(cfg.Database)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.Server.Mode)),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 连接池配置
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	if cfg.Database.Driver == "sqlite" {
		// sqlite 单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)  // 最大空闲连接数
		sqlDB.SetMaxOpenConns(100) // 最大打开连接数
	}

	if err := Migrate(DB); err != nil {
		return err
	}

	slog.Info("数据库初始化成功", "driver", cfg.Database.Driver)
	return nil
}

// Migrate 自动迁移数据库表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Expense{},
		&models.Budget{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Dialector 按配置的驱动构建 gorm 方言
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		return mysql.Open(MySQLDSN(cfg)), nil
	case "postgres":
		pgCfg, err := pgx.ParseConfig(PostgresDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("解析 PostgreSQL 连接串失败: %w", err)
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDB(*pgCfg)}), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		return sqlite.Open(cfg.Path + "?_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// MySQLDSN 构建 MySQL DSN 连接字符串
func MySQLDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
	)
}

// PostgresDSN 构建 PostgreSQL 连接串，兼容 postgresql:// 前缀
func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		dsn := cfg.DSN
		if len(dsn) > 11 && dsn[:11] == "postgresql:" {
			dsn = "postgres" + dsn[10:]
		}
		return dsn
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.DBName,
	)
}

func logLevel(mode string) logger.LogLevel {
	if mode == "release" {
		return logger.Warn
	}
	return logger.Info
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}

package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigYAML 内置默认配置
//
//go:embed default.yaml
var DefaultConfigYAML []byte

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Email     EmailConfig     `mapstructure:"email"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port     string         `mapstructure:"port"`
	Mode     string         `mapstructure:"mode"`
	Timezone string         `mapstructure:"timezone"`
	Location *time.Location `mapstructure:"-"`
}

// DatabaseConfig 数据库配置，driver 可选 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpireHours int           `mapstructure:"expire_hours"`
	ExpireTime  time.Duration `mapstructure:"-"`
}

// BudgetConfig 新用户的默认预算
type BudgetConfig struct {
	Monthly float64 `mapstructure:"monthly"`
	Weekly  float64 `mapstructure:"weekly"`
	Daily   float64 `mapstructure:"daily"`
}

// LogConfig 日志配置，format 可选 text / json
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig 登录/注册限流
type RateLimitConfig struct {
	LoginAttempts      int `mapstructure:"login_attempts"`
	LoginWindowSeconds int `mapstructure:"login_window_seconds"`
}

// RedisConfig 报表缓存
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// AMQPConfig 预算提醒事件发布
type AMQPConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置
// 优先级: 环境变量 > 外部配置文件 > 嵌入的默认配置
// configPath: 可选的外部配置文件路径
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略
	if err := godotenv.Load(); err == nil {
		slog.Info("已加载 .env 文件")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 首先加载嵌入的默认配置
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("读取内置配置失败: %w", err)
	}

	// 2. 尝试加载外部配置文件（可选，用于覆盖默认配置）
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			slog.Warn("无法读取指定配置文件", "path", configPath, "error", err)
		} else {
			slog.Info("已合并外部配置文件", "path", configPath)
		}
	} else {
		externalViper := viper.New()
		externalViper.SetConfigName("config")
		externalViper.SetConfigType("yaml")
		externalViper.AddConfigPath(".")
		externalViper.AddConfigPath("./config")
		externalViper.AddConfigPath("/etc/expensetracker")
		externalViper.AddConfigPath("$HOME/.expensetracker")

		if err := externalViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(externalViper.AllSettings()); err != nil {
				slog.Warn("合并外部配置失败", "error", err)
			} else {
				slog.Info("已合并外部配置文件", "path", externalViper.ConfigFileUsed())
			}
		}
	}

	// 3. 环境变量覆盖，例如 EXPENSE_JWT_SECRET、EXPENSE_DATABASE_DRIVER
	v.SetEnvPrefix("EXPENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// normalize 补全默认值并校验
func (c *Config) normalize() error {
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 720
	}
	c.JWT.ExpireTime = time.Duration(c.JWT.ExpireHours) * time.Hour

	loc, err := loadLocation(c.Server.Timezone)
	if err != nil {
		return fmt.Errorf("时区配置错误 %q: %w", c.Server.Timezone, err)
	}
	c.Server.Location = loc

	switch c.Database.Driver {
	case "", "mysql":
		c.Database.Driver = "mysql"
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}

	if c.Budget.Monthly <= 0 || c.Budget.Weekly <= 0 || c.Budget.Daily <= 0 {
		return fmt.Errorf("默认预算必须大于 0")
	}
	if c.RateLimit.LoginAttempts <= 0 {
		c.RateLimit.LoginAttempts = 10
	}
	if c.RateLimit.LoginWindowSeconds <= 0 {
		c.RateLimit.LoginWindowSeconds = 60
	}
	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 60
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// MustLoadConfig 加载配置，失败则 panic
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}
	return cfg
}

// GetConfig 获取全局配置，未初始化时返回 nil
func GetConfig() *Config {
	return GlobalConfig
}

// Now 配置时区下的当前时间
func (c *Config) Now() time.Time {
	if c == nil || c.Server.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Server.Location)
}

// PrintConfig 打印当前配置（隐藏敏感信息）
func PrintConfig() {
	if GlobalConfig == nil {
		return
	}
	c := GlobalConfig
	slog.Info("当前配置",
		"port", c.Server.Port,
		"mode", c.Server.Mode,
		"timezone", c.Server.Location.String(),
		"db_driver", c.Database.Driver,
		"db", databaseLabel(c.Database),
		"redis", c.Redis.Enabled,
		"email", c.Email.Enabled,
		"amqp", c.AMQP.Enabled,
	)
}

func databaseLabel(d DatabaseConfig) string {
	switch d.Driver {
	case "sqlite":
		return d.Path
	case "postgres":
		if d.DSN != "" {
			return "dsn"
		}
	}
	return fmt.Sprintf("%s@%s:%s/%s", d.Username, d.Host, d.Port, d.DBName)
}

// SafeErrorMessage release 模式下不向客户端暴露内部错误详情
func SafeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if GlobalConfig != nil && GlobalConfig.Server.Mode == "release" {
		return fallback
	}
	return err.Error()
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/middleware"
	"expensetracker/router"
	"expensetracker/service"
)

// @title 消费记账 API
// @version 1.0
// @description 个人消费记录、预算提醒与报表 API
// @host localhost:3002
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println("消费记账 v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置 + 环境变量）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fatal("加载配置失败", err)
	}

	logger := middleware.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		slog.Info("命令行指定端口", "port", port)
	}

	config.PrintConfig()

	if err := database.Init(cfg); err != nil {
		fatal("数据库初始化失败", err)
	}

	middleware.InitJWT(cfg)

	deps := router.Dependencies{Logger: logger}

	// 报表缓存可选，连接失败时直接查库
	cache, err := service.NewReportCache(cfg.Redis)
	if err != nil {
		slog.Warn("Redis 不可用，报表缓存已关闭", "error", err)
	} else if cache != nil {
		defer cache.Close()
		deps.Cache = cache
	}

	var notifiers service.Notifiers
	if cfg.Email.Enabled {
		notifiers = append(notifiers, service.NewEmailService(&cfg.Email))
	}
	if cfg.AMQP.Enabled {
		amqpNotifier, err := service.NewAMQPNotifier(cfg.AMQP)
		if err != nil {
			slog.Warn("RabbitMQ 不可用，预算提醒不会投递到消息队列", "error", err)
		} else {
			defer amqpNotifier.Close()
			notifiers = append(notifiers, amqpNotifier)
		}
	}
	if len(notifiers) > 0 {
		deps.Notifier = notifiers
		slog.Info("预算提醒已启用", "channels", len(notifiers))
	}

	r := router.SetupRouter(cfg, deps)

	slog.Info("消费记账服务已启动",
		"api", fmt.Sprintf("http://localhost%s/api/", cfg.Server.Port),
		"swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port),
	)

	if err := r.Run(cfg.Server.Port); err != nil {
		fatal("服务器启动失败", err)
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/config"

	"github.com/redis/go-redis/v9"
)

// ReportCache 报表结果缓存。
// 每个用户有一个版本号，写操作递增版本号使旧缓存全部失效。
// nil 接收者可安全调用，表现为始终未命中。
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache 连接 Redis；未启用时返回 nil
func NewReportCache(cfg config.RedisConfig) (*ReportCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(fmt.Sprintf("redis://%s", cfg.Addr))
	if err != nil {
		opt = &redis.Options{Addr: cfg.Addr}
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	opt.DB = cfg.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewReportCacheWithClient(client, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

// NewReportCacheWithClient 使用已有客户端创建缓存
func NewReportCacheWithClient(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReportCache{client: client, ttl: ttl}
}

func versionKey(userID uint) string {
	return fmt.Sprintf("expense:user:%d:ver", userID)
}

func viewKey(userID uint, version int64, view, param string) string {
	return fmt.Sprintf("expense:user:%d:v%d:%s:%s", userID, version, view, param)
}

func (rc *ReportCache) version(ctx context.Context, userID uint) (int64, error) {
	v, err := rc.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get 读取缓存到 dest，命中返回 true
func (rc *ReportCache) Get(ctx context.Context, userID uint, view, param string, dest any) bool {
	if rc == nil || rc.client == nil {
		return false
	}
	ver, err := rc.version(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "读取缓存版本失败", "component", "cache", "error", err)
		return false
	}
	data, err := rc.client.Get(ctx, viewKey(userID, ver, view, param)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "读取缓存失败", "component", "cache", "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false
	}
	return true
}

// Set 写入缓存，失败只记录日志
func (rc *ReportCache) Set(ctx context.Context, userID uint, view, param string, value any) {
	if rc == nil || rc.client == nil {
		return
	}
	ver, err := rc.version(ctx, userID)
	if err != nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := rc.client.Set(ctx, viewKey(userID, ver, view, param), data, rc.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "写入缓存失败", "component", "cache", "error", err)
	}
}

// Invalidate 使用户的全部报表缓存失效
func (rc *ReportCache) Invalidate(ctx context.Context, userID uint) {
	if rc == nil || rc.client == nil {
		return
	}
	if err := rc.client.Incr(ctx, versionKey(userID)).Err(); err != nil {
		slog.WarnContext(ctx, "清除缓存失败", "component", "cache", "user_id", userID, "error", err)
	}
}

// Close 关闭连接
func (rc *ReportCache) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

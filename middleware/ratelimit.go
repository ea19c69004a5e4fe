package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ipAttemptFactor 单个 IP 的总尝试上限是单账号上限的倍数
const ipAttemptFactor = 5

// maxPeekBody 读取请求体查找邮箱的上限
const maxPeekBody = 64 << 10

// attemptLimiter 滑动窗口内按 key 记录尝试时间
type attemptLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	attempts map[string][]time.Time
}

func newAttemptLimiter(window time.Duration) *attemptLimiter {
	return &attemptLimiter{window: window, attempts: make(map[string][]time.Time)}
}

// prune 去掉窗口外的记录，调用方需持有锁
func (l *attemptLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = kept
	return kept
}

// allow 所有 key 都未达上限时记一次尝试；否则返回需要等待的时间
func (l *attemptLimiter) allow(now time.Time, limits map[string]int) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var wait time.Duration
	for key, limit := range limits {
		ts := l.prune(key, now)
		if len(ts) >= limit {
			if d := ts[0].Add(l.window).Sub(now); d > wait {
				wait = d
			}
		}
	}
	if wait > 0 {
		return false, wait
	}

	for key := range limits {
		l.attempts[key] = append(l.attempts[key], now)
	}
	return true, 0
}

func (l *attemptLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.attempts {
		l.prune(key, now)
	}
}

// peekEmail 读取 JSON 请求体中的 email 字段，并还原请求体供后续绑定
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBody))
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

// LoginRateLimit 登录/注册接口限流中间件
// 同一邮箱在 window 内最多 maxAttempts 次尝试；请求未带邮箱时按 IP 计数。
// 单个 IP 换邮箱尝试的总次数上限为 maxAttempts*ipAttemptFactor。超过返回 429。
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	limiter := newAttemptLimiter(window)

	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			limiter.sweep(now)
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limits := map[string]int{"ip:" + ip: maxAttempts * ipAttemptFactor}
		if email := peekEmail(c); email != "" {
			limits["email:"+email] = maxAttempts
		} else {
			limits["ip:"+ip] = maxAttempts
		}

		ok, wait := limiter.allow(time.Now(), limits)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(wait.Seconds())))))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "尝试过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

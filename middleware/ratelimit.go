package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateWindow struct {
	timestamps []time.Time
}

// prune 移除窗口外的记录
func (w *rateWindow) prune(cutoff time.Time) {
	kept := w.timestamps[:0]
	for _, t := range w.timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.timestamps = kept
}

// LoginRateLimit 登录接口限流中间件
// 每 IP 在 window 内最多 maxAttempts 次尝试，超过返回 429
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	var (
		mu    sync.Mutex
		store = make(map[string]*rateWindow)
	)

	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			cutoff := time.Now().Add(-window)
			for ip, w := range store {
				w.prune(cutoff)
				if len(w.timestamps) == 0 {
					delete(store, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		w, ok := store[ip]
		if !ok {
			w = &rateWindow{}
			store[ip] = w
		}
		w.prune(now.Add(-window))
		if len(w.timestamps) >= maxAttempts {
			retryAfter := w.timestamps[0].Add(window).Sub(now)
			mu.Unlock()
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   gin.H{"message": "too many login attempts, please try again later"},
			})
			return
		}
		w.timestamps = append(w.timestamps, now)
		mu.Unlock()
		c.Next()
	}
}

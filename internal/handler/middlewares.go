package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/cache"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/metrics"
	"golang.org/x/time/rate"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func wrapResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapResponseWriter(w)
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

// instrument 记录请求数和耗时，path 标签使用路由模板避免基数爆炸
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapResponseWriter(w)
		next.ServeHTTP(rw, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(rw.StatusCode)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest 优先读取 Authorization 头，其次读取 cookie
func (h *Handler) tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if ok {
			return strings.TrimSpace(token)
		}
	}

	cookie, err := r.Cookie(h.config.JWT.Cookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := h.tokenFromRequest(r)
		if tokenString == "" {
			h.errorResponse(w, r, http.StatusUnauthorized, "缺少令牌")
			return
		}

		// 验证 token
		claims := &AuthClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			h.errorResponse(w, r, http.StatusUnauthorized, "无效的令牌")
			return
		}

		// 将 claims 中的 role 和 sub 附在 context 中
		ctx := r.Context()
		ctx = context.WithValue(ctx, RoleCtxKey, claims.Role)
		ctx = context.WithValue(ctx, SubCtxKey, claims.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleCtx, _ := r.Context().Value(RoleCtxKey).(string)
			role := domain.Role(roleCtx)
			if !slices.Contains(roles, role) {
				h.errorResponse(w, r, http.StatusForbidden, "权限不足")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) limiterFor(key string, now time.Time) *rate.Limiter {
	h.limitersMu.Lock()
	defer h.limitersMu.Unlock()

	cl, ok := h.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(h.config.RateLimit.RPS), h.config.RateLimit.Burst)}
		h.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweepLimiters 删除空闲超过 IdleTTL 的限流器，返回删除的数量
func (h *Handler) sweepLimiters(now time.Time) int {
	idle := time.Duration(h.config.RateLimit.IdleTTL) * time.Second

	h.limitersMu.Lock()
	defer h.limitersMu.Unlock()

	removed := 0
	for key, cl := range h.limiters {
		if now.Sub(cl.lastSeen) > idle {
			delete(h.limiters, key)
			removed++
		}
	}
	return removed
}

// SweepLimiters 周期性清理空闲客户端的限流器，直到 ctx 结束
func (h *Handler) SweepLimiters(ctx context.Context) {
	interval := time.Duration(h.config.RateLimit.SweepInterval) * time.Second
	if !h.config.RateLimit.Enabled || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := h.sweepLimiters(now); n > 0 {
				slog.Debug("已清理空闲限流器", "count", n)
			}
		}
	}
}

// rateLimit 按客户端地址限制提交频率
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.config.RateLimit.Enabled && !h.limiterFor(clientKey(r), time.Now()).Allow() {
			w.Header().Set("Retry-After", "1")
			h.errorResponse(w, r, http.StatusTooManyRequests, "请求过于频繁")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// optimizationRun 先查缓存，未命中再查数据库，已结束的记录会回填缓存
func (h *Handler) optimizationRun(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "运行ID无效")
			return
		}

		run, err := h.cache.GetRun(r.Context(), id)
		if err != nil {
			if !errors.Is(err, cache.ErrMiss) {
				slog.Warn("读取缓存失败", "run_id", id, "error", err)
			}

			run, err = h.runs.GetOptimizationRunByID(r.Context(), id)
			if err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					h.errorResponse(w, r, http.StatusNotFound, "运行记录不存在")
				default:
					h.internalServerError(w, r, err)
				}
				return
			}

			if run.Finished() {
				h.cacheRun(r.Context(), run)
			}
		}

		ctx := context.WithValue(r.Context(), OptimizationRunCtxKey, run)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cacheRun 写缓存失败只记录日志，数据库仍是权威数据
func (h *Handler) cacheRun(ctx context.Context, run *domain.OptimizationRun) {
	if err := h.cache.SetRun(ctx, run); err != nil {
		slog.Warn("写入缓存失败", "run_id", run.ID, "error", err)
	}
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/optimizer"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type optimizationRequest struct {
	Scenario    *domain.ScenarioInput `json:"scenario" validate:"required"`
	Seed        int64                 `json:"seed" validate:"gte=0"`
	NotifyEmail string                `json:"notifyEmail" validate:"omitempty,email"`
}

func disasterTypeOf(input *domain.ScenarioInput) string {
	if input == nil || input.ScenarioConfig == nil {
		return ""
	}
	return input.ScenarioConfig.TipoDesastre
}

func (h *Handler) readOptimizationRequest(w http.ResponseWriter, r *http.Request) (*optimizationRequest, bool) {
	req := &optimizationRequest{}
	if err := h.readJSON(w, r, req); err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}
	return req, true
}

// Optimize 同步运行优化，结果写入数据库和缓存后返回
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readOptimizationRequest(w, r)
	if !ok {
		return
	}

	run := &domain.OptimizationRun{
		DisasterType: disasterTypeOf(req.Scenario),
		Status:       domain.RunRunning,
	}
	if err := h.runs.CreateOptimizationRun(r.Context(), run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Optimizer.SyncTimeout)*time.Second)
	defer cancel()

	result, optErr := h.optimizer.Optimize(ctx, req.Scenario, req.Seed, optimizer.OriginAPI)
	run.Finish(result, optErr, time.Now())

	// 请求的 context 可能已经超时，因此使用新的 context 保存结果
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Duration(h.config.Database.QueryTimeout)*time.Second)
	defer saveCancel()

	if err := h.runs.UpdateOptimizationRun(saveCtx, run); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.cacheRun(saveCtx, run)

	if optErr != nil {
		if errors.Is(optErr, context.DeadlineExceeded) || errors.Is(optErr, context.Canceled) {
			h.errorResponse(w, r, http.StatusServiceUnavailable, "优化超时")
			return
		}
		h.engineError(w, r, optErr)
		return
	}

	h.successResponse(w, r, "优化完成", run)
}

// SubmitOptimizationJob 把任务投递到队列，由 worker 异步执行
func (h *Handler) SubmitOptimizationJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readOptimizationRequest(w, r)
	if !ok {
		return
	}

	run := &domain.OptimizationRun{
		DisasterType: disasterTypeOf(req.Scenario),
		Status:       domain.RunQueued,
	}
	if err := h.runs.CreateOptimizationRun(r.Context(), run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	job := &domain.OptimizationJob{
		RunID:       run.ID,
		Scenario:    req.Scenario,
		Seed:        req.Seed,
		NotifyEmail: req.NotifyEmail,
	}
	if err := h.jobs.PublishJob(r.Context(), job); err != nil {
		// 投递失败时把记录标记为失败，避免永远停留在 queued
		run.Finish(nil, err, time.Now())
		if updateErr := h.runs.UpdateOptimizationRun(context.WithoutCancel(r.Context()), run); updateErr != nil {
			slog.Error("无法更新运行记录", "run_id", run.ID, "error", updateErr)
		}
		h.internalServerError(w, r, err)
		return
	}
	h.cacheRun(r.Context(), run)

	h.writeJSON(w, r, http.StatusAccepted, Response{
		Success: true,
		Message: "任务已提交",
		Data: map[string]any{
			"id":     run.ID,
			"status": run.Status,
		},
	})
}

func (h *Handler) GetOptimizationRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			h.errorResponse(w, r, http.StatusBadRequest, "limit 必须是 1 到 100 之间的整数")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListOptimizationRuns(r.Context(), limit)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取运行记录成功", runs)
}

func (h *Handler) GetOptimizationRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtxKey).(*domain.OptimizationRun)
	h.successResponse(w, r, "获取运行记录成功", run)
}

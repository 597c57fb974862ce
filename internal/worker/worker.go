package worker

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/notify"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/queue"
)

// Outcome 决定消息的确认方式
type Outcome int

const (
	Ack     Outcome = iota // 处理完成
	Requeue                // 基础设施故障，重新入队
	Drop                   // 消息无法处理，丢弃
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	default:
		return "drop"
	}
}

type Optimizer interface {
	Optimize(ctx context.Context, input *domain.ScenarioInput, seed int64, origin string) (*domain.OptimizationResult, error)
}

type RunStore interface {
	GetOptimizationRunByID(ctx context.Context, id uuid.UUID) (*domain.OptimizationRun, error)
	UpdateOptimizationRun(ctx context.Context, run *domain.OptimizationRun) error
}

type RunCache interface {
	SetRun(ctx context.Context, run *domain.OptimizationRun) error
}

type Notifier interface {
	Send(ctx context.Context, msg *domain.MailMessage) error
}

type Worker struct {
	optimizer  Optimizer
	runs       RunStore
	cache      RunCache
	notifier   Notifier // 未启用邮件时为 nil
	jobTimeout time.Duration
	logger     *slog.Logger
}

func New(opt Optimizer, runs RunStore, cache RunCache, notifier Notifier, jobTimeout time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		optimizer:  opt,
		runs:       runs,
		cache:      cache,
		notifier:   notifier,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Handle 处理一条任务消息
//
// ctx 被取消时正在运行的优化会提前结束并保存当前最优结果
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	job, err := queue.DecodeJob(body)
	if err != nil {
		w.logger.Error("任务消息反序列化失败", "error", err)
		return Drop
	}
	logger := w.logger.With("run_id", job.RunID)

	run, err := w.runs.GetOptimizationRunByID(ctx, job.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Error("运行记录不存在")
			return Drop
		}
		logger.Error("无法读取运行记录", "error", err)
		return Requeue
	}

	// 重复投递的消息
	if run.Finished() {
		logger.Info("任务已经结束，跳过", "status", run.Status)
		return Ack
	}

	run.Status = domain.RunRunning
	if err := w.runs.UpdateOptimizationRun(ctx, run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Warn("运行记录已被其他 worker 更新，跳过")
			return Drop
		}
		logger.Error("无法更新运行状态", "error", err)
		return Requeue
	}
	w.cacheRun(ctx, logger, run)

	logger.Info("开始执行优化任务", "disaster_type", run.DisasterType, "seed", job.Seed)
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	result, optErr := w.optimizer.Optimize(jobCtx, job.Scenario, job.Seed, optimizer.OriginWorker)
	cancel()
	run.Finish(result, optErr, time.Now())

	// ctx 可能已经因为关闭而取消，保存结果使用独立的 context
	saveCtx := context.WithoutCancel(ctx)
	if err := w.runs.UpdateOptimizationRun(saveCtx, run); err != nil {
		logger.Error("无法保存优化结果", "error", err)
		return Requeue
	}
	w.cacheRun(saveCtx, logger, run)

	if optErr != nil {
		logger.Warn("优化任务失败", "status", run.Status, "error", optErr)
	} else {
		logger.Info("优化任务结束", "status", run.Status, "generations", run.Generations)
	}

	if job.NotifyEmail != "" && w.notifier != nil {
		msg := &domain.MailMessage{
			Type: notify.MailTypeRunCompleted,
			To:   job.NotifyEmail,
			Data: notify.RunCompletedData(run),
		}
		// 结果已经保存，邮件失败不重新入队
		if err := w.notifier.Send(saveCtx, msg); err != nil {
			logger.Error("邮件发送失败", "to", job.NotifyEmail, "error", err)
		}
	}

	return Ack
}

func (w *Worker) cacheRun(ctx context.Context, logger *slog.Logger, run *domain.OptimizationRun) {
	if err := w.cache.SetRun(ctx, run); err != nil {
		logger.Warn("写入缓存失败", "error", err)
	}
}

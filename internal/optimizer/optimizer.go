package optimizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/allocator"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/scenario"
)

// 运行来源，用作指标标签
const (
	OriginAPI    = "api"
	OriginWorker = "worker"
	OriginCLI    = "cli"
)

type Options struct {
	Parallelism int
	EarlyStop   bool
	Logger      *slog.Logger
}

// Service 持有加载好的物资目录，是 HTTP、worker 和命令行共同使用的优化入口
type Service struct {
	catalog     *catalog.Catalog
	logger      *slog.Logger
	parallelism int
	earlyStop   bool
}

func New(cat *catalog.Catalog, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		catalog:     cat,
		logger:      logger,
		parallelism: opts.Parallelism,
		earlyStop:   opts.EarlyStop,
	}
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Optimize 校验场景并运行优化，seed 为 0 时使用随机种子
//
// 校验失败时返回 InvalidScenario 或 UnknownDisaster，不会产生部分结果；
// ctx 被取消时返回当前历史最优，结果中 cancelado 为 true
func (s *Service) Optimize(ctx context.Context, input *domain.ScenarioInput, seed int64, origin string) (*domain.OptimizationResult, error) {
	start := time.Now()
	status := "failed"
	defer func() {
		metrics.OptimizationRuns.WithLabelValues(origin, status).Inc()
		metrics.OptimizationDuration.WithLabelValues(origin).Observe(time.Since(start).Seconds())
	}()

	sc, err := scenario.Load(input, s.catalog)
	if err != nil {
		status = "invalid"
		return nil, err
	}

	a, err := allocator.New(sc,
		allocator.WithSeed(seed),
		allocator.WithLogger(s.logger),
		allocator.WithParallelism(s.parallelism),
		allocator.WithEarlyStop(s.earlyStop),
		allocator.WithGenerationHook(func(allocator.GenerationStats) {
			metrics.Generations.Inc()
		}),
	)
	if err != nil {
		status = "invalid"
		return nil, err
	}

	for _, w := range a.Warnings() {
		s.logger.Warn("参数超出范围，已使用默认值", "kind", w.Kind, "message", w.Message)
	}
	for _, w := range sc.Warnings {
		s.logger.Warn("场景警告", "message", w)
	}

	out, err := a.Run(ctx)
	if err != nil {
		if domain.KindOf(err) == "" && ctx.Err() != nil {
			status = "cancelled"
		}
		return nil, err
	}

	result := a.Report(out)
	status = "completed"
	if result.Cancelado {
		status = "cancelled"
	}
	if len(result.MejoresSoluciones) > 0 {
		metrics.BestFitness.Observe(result.MejoresSoluciones[0].Fitness)
	}

	return result, nil
}

package allocator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"time"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/scenario"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Allocator 在一个场景上运行遗传算法
//
// 所有随机选择都来自同一个可设置种子的 rng，rng 只在主 goroutine 中使用；
// 并行评估只读取场景和染色体，因此相同的种子总能得到相同的结果
type Allocator struct {
	sc           *scenario.Scenario
	params       Parameters
	rng          *rand.Rand
	seed         int64
	logger       *slog.Logger
	parallelism  int
	earlyStop    bool
	onGeneration func(GenerationStats)
	warnings     []*domain.Error
}

type Option func(*Allocator)

// WithSeed 设置随机种子，0 表示使用当前时间
func WithSeed(seed int64) Option {
	return func(a *Allocator) {
		a.seed = seed
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

// WithParallelism 设置并行评估的 goroutine 数量，小于 1 时使用 GOMAXPROCS
func WithParallelism(n int) Option {
	return func(a *Allocator) {
		a.parallelism = n
	}
}

// WithEarlyStop 开启后，最近 10 代最优适应度收敛时提前结束
func WithEarlyStop(enabled bool) Option {
	return func(a *Allocator) {
		a.earlyStop = enabled
	}
}

// WithParameters 直接指定参数，忽略场景中的 ag_params
func WithParameters(p Parameters) Option {
	return func(a *Allocator) {
		a.params = p
		a.warnings = nil
	}
}

// WithGenerationHook 在每一代评估完成后回调
func WithGenerationHook(fn func(GenerationStats)) Option {
	return func(a *Allocator) {
		a.onGeneration = fn
	}
}

// Outcome 是一次运行的原始结果
type Outcome struct {
	Best        *Chromosome
	Population  []*Chromosome // 最后一代，已评估
	History     []GenerationStats
	Generations int
	Cancelled   bool
	EarlyStop   bool
}

func New(sc *scenario.Scenario, opts ...Option) (*Allocator, error) {
	if sc == nil {
		return nil, domain.NewError(domain.ErrInvalidScenario, "场景为空")
	}
	if sc.VehicleCount() == 0 {
		return nil, domain.NewError(domain.ErrInvalidScenario, "车队为空")
	}
	if len(sc.Routes) == 0 {
		return nil, domain.NewError(domain.ErrInvalidScenario, "路线目录为空")
	}

	params, warnings := ResolveParameters(sc.Params)
	a := &Allocator{
		sc:       sc,
		params:   params,
		logger:   slog.Default(),
		warnings: warnings,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.params.PopulationSize < 2 {
		return nil, domain.NewError(domain.ErrParameterOutOfRange, "种群大小至少为 2，当前为 %d", a.params.PopulationSize)
	}
	if a.params.Generations < 1 {
		return nil, domain.NewError(domain.ErrParameterOutOfRange, "迭代次数至少为 1，当前为 %d", a.params.Generations)
	}
	if a.seed == 0 {
		a.seed = time.Now().UnixNano()
	}
	if a.parallelism < 1 {
		a.parallelism = runtime.GOMAXPROCS(0)
	}
	a.rng = rand.New(rand.NewSource(a.seed))

	return a, nil
}

func (a *Allocator) Seed() int64 {
	return a.seed
}

func (a *Allocator) Parameters() Parameters {
	return a.params
}

// Warnings 返回参数解析时产生的 ParameterOutOfRange 警告
func (a *Allocator) Warnings() []*domain.Error {
	return a.warnings
}

// Run 执行遗传算法
//
// 取消信号只在代与代之间检查，取消时返回当前历史最优和已经完成的历史，Cancelled 为 true
func (a *Allocator) Run(ctx context.Context) (out *Outcome, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen := 0
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = domain.EngineFailure(gen, fmt.Errorf("panic: %v", r))
		}
	}()

	a.logger.Info("开始优化", slog.String("disaster", a.sc.Disaster.Type), slog.Int("vehicles", a.sc.VehicleCount()), slog.Int("destinations", a.sc.DestinationCount()), slog.Int64("seed", a.seed), slog.Int("populationSize", a.params.PopulationSize), slog.Int("generations", a.params.Generations))

	// 生成初始种群
	pop := a.initialPopulation(a.params.PopulationSize)

	out = &Outcome{
		History: make([]GenerationStats, 0, a.params.Generations),
	}

	for gen = 0; gen < a.params.Generations; gen++ {
		if gen > 0 && ctx.Err() != nil {
			out.Cancelled = true
			break
		}

		if err := a.evaluatePopulation(pop); err != nil {
			return nil, domain.EngineFailure(gen, err)
		}

		stats, bestIndex := a.generationStats(gen, pop)
		out.History = append(out.History, stats)

		// 这里需要使用深拷贝，防止后续繁殖的过程中导致指向的基因被修改
		if out.Best == nil || stats.Best > out.Best.Fitness {
			out.Best = pop[bestIndex].Clone()
		}

		if a.onGeneration != nil {
			a.onGeneration(stats)
		}
		a.logger.Debug("完成一代迭代", slog.Int("generation", gen), slog.Float64("best", stats.Best), slog.Float64("average", stats.Average), slog.Float64("bestEver", out.Best.Fitness))

		out.Population = pop
		out.Generations = gen + 1

		if a.earlyStop && convergenceState(out.History) == domain.Converged {
			out.EarlyStop = true
			break
		}

		// 繁殖
		if gen < a.params.Generations-1 {
			pop = a.nextGeneration(pop)
		}
	}

	if err := a.checkInvariants(out); err != nil {
		return nil, domain.EngineFailure(out.Generations-1, err)
	}

	a.logger.Info("优化结束", slog.Int("generations", out.Generations), slog.Float64("bestFitness", out.Best.Fitness), slog.Bool("cancelled", out.Cancelled), slog.Bool("earlyStop", out.EarlyStop))
	return out, nil
}

// nextGeneration: 精英 → 选择 → 交叉 → 变异 → 修复 → 替换
func (a *Allocator) nextGeneration(pop []*Chromosome) []*Chromosome {
	size := a.params.PopulationSize
	next := make([]*Chromosome, 0, size)

	// 保留精英
	next = append(next, a.elite(pop)...)

	pick := a.parents(pop)
	for len(next) < size {
		p1, p2 := pick()
		c1, c2 := a.crossover(p1, p2)

		for _, child := range []*Chromosome{c1, c2} {
			a.repairChromosome(child)
			a.mutate(child)
			a.repairChromosome(child)
			a.repairDuplicates(child)

			if len(next) < size {
				next = append(next, child)
			}
		}
	}

	return next
}

// generationStats 在整代评估完成之后统计最优、平均和最差适应度
func (a *Allocator) generationStats(gen int, pop []*Chromosome) (GenerationStats, int) {
	fitness := make([]float64, len(pop))
	for i, ch := range pop {
		fitness[i] = ch.Fitness
	}

	bestIndex := floats.MaxIdx(fitness)
	return GenerationStats{
		Generation: gen,
		Best:       fitness[bestIndex],
		Average:    stat.Mean(fitness, nil),
		Worst:      floats.Min(fitness),
	}, bestIndex
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/optimizer"
	"gopkg.in/yaml.v3"
)

// 退出码: 0 成功，1 内部错误，2 输入错误
const (
	exitInternal = 1
	exitInput    = 2
)

func main() {
	var (
		scenarioPath  string
		suppliesPath  string
		disastersPath string
		outPath       string
		seed          int64
		parallelism   int
		earlyStop     bool
		timeout       time.Duration
		verbose       bool
	)

	flag.StringVar(&scenarioPath, "scenario", "", "场景文件路径 (JSON 或 YAML)")
	flag.StringVar(&suppliesPath, "supplies", "data/insumos.yaml", "物资目录文件路径")
	flag.StringVar(&disastersPath, "disasters", "data/desastres.yaml", "灾害优先级文件路径")
	flag.StringVar(&outPath, "out", "", "结果输出路径，默认输出到标准输出")
	flag.Int64Var(&seed, "seed", 0, "随机种子，0 表示使用随机种子")
	flag.IntVar(&parallelism, "parallelism", 0, "并行评估的 goroutine 数量，0 表示使用 GOMAXPROCS")
	flag.BoolVar(&earlyStop, "early-stop", false, "收敛后提前结束")
	flag.DurationVar(&timeout, "timeout", 0, "最长运行时间，超时后输出当前最优结果")
	flag.BoolVar(&verbose, "v", false, "输出每一代的调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	// 标准输出可能用于输出结果，因此日志写到标准错误
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	os.Exit(run(logger, scenarioPath, suppliesPath, disastersPath, outPath, seed, parallelism, earlyStop, timeout))
}

func run(logger *slog.Logger, scenarioPath, suppliesPath, disastersPath, outPath string, seed int64, parallelism int, earlyStop bool, timeout time.Duration) int {
	if scenarioPath == "" {
		logger.Error("未指定场景文件", "flag", "-scenario")
		return exitInput
	}

	input, err := readScenario(scenarioPath)
	if err != nil {
		logger.Error("无法读取场景文件", "path", scenarioPath, "error", err)
		return exitInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.FileSource{SuppliesPath: suppliesPath, DisastersPath: disastersPath}.Load(ctx)
	if err != nil {
		logger.Error("无法加载物资目录", "error", err)
		return exitInternal
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	svc := optimizer.New(cat, optimizer.Options{
		Parallelism: parallelism,
		EarlyStop:   earlyStop,
		Logger:      logger,
	})

	result, err := svc.Optimize(ctx, input, seed, optimizer.OriginCLI)
	if err != nil {
		logger.Error("优化失败", "kind", domain.KindOf(err), "error", err)
		if domain.IsInputError(err) {
			return exitInput
		}
		return exitInternal
	}

	if err := writeResult(outPath, result); err != nil {
		logger.Error("无法写入结果", "error", err)
		return exitInternal
	}

	if len(result.MejoresSoluciones) > 0 {
		best := result.MejoresSoluciones[0]
		logger.Info("优化完成",
			"seed", result.Semilla,
			"fitness", best.Fitness,
			"coverage", best.Resumen.Cobertura,
			"generations", result.Convergencia.GeneracionesEjecutadas,
			"cancelled", result.Cancelado,
		)
	}
	return 0
}

func readScenario(path string) (*domain.ScenarioInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	input := &domain.ScenarioInput{}
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, input); err != nil {
		return nil, fmt.Errorf("无法解析场景: %w", err)
	}
	return input, nil
}

func writeResult(path string, result *domain.OptimizationResult) error {
	if path == "" {
		return encodeResult(os.Stdout, result)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return writeAndClose(f, result)
}

// writeAndClose 写入结果后关闭文件，写入成功时返回关闭错误
func writeAndClose(wc io.WriteCloser, result *domain.OptimizationResult) error {
	if err := encodeResult(wc, result); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func encodeResult(w io.Writer, result *domain.OptimizationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var randomSeed int64
	var suppliesPath string
	var disastersPath string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 把静态目录写入数据库, 2: 生成随机演示场景)")
	flag.IntVar(&n, "n", 5, "随机场景中的目的地数量")
	flag.Int64Var(&randomSeed, "seed", 0, "生成随机场景使用的种子，0 表示使用当前时间")
	flag.StringVar(&suppliesPath, "supplies", "data/insumos.yaml", "物资目录文件路径")
	flag.StringVar(&disastersPath, "disasters", "data/desastres.yaml", "灾害优先级文件路径")
	flag.Parse()

	// 场景输出到标准输出，因此日志写到标准错误
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	source := catalog.FileSource{
		SuppliesPath:  suppliesPath,
		DisastersPath: disastersPath,
	}

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		// 读取配置文件
		cfg, err := config.LoadConfig()
		if err != nil {
			logger.Error("无法读取配置文件", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 创建数据库连接池
		dbpool, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			logger.Error("无法创建数据库连接池", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
		defer cancel()

		// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
		if err := dbpool.PingContext(ctx); err != nil {
			logger.Error("无法连接到数据库", "error", err)
			return
		}

		repo := repository.NewRepository(cfg, dbpool)
		if _, err := seed.SeedCatalog(context.Background(), repo, source); err != nil {
			slog.Error("无法写入物资目录", slog.String("error", err.Error()))
			return
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的目的地数量")
			return
		}

		cat, err := source.Load(context.Background())
		if err != nil {
			slog.Error("无法加载物资目录", slog.String("error", err.Error()))
			return
		}
		types := make([]string, 0)
		for _, d := range cat.Disasters() {
			types = append(types, d.Type)
		}

		if randomSeed == 0 {
			randomSeed = time.Now().UnixNano()
		}
		input := seed.GenerateRandomScenario(rand.New(rand.NewSource(randomSeed)), n, types)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(input); err != nil {
			slog.Error("无法输出场景", slog.String("error", err.Error()))
			return
		}
		slog.Info("已生成随机场景", slog.Int("destinations", n), slog.Int64("seed", randomSeed))
	default:
		slog.Error("指定的操作非法")
	}
}

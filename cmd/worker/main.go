package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/cache"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/notify"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/queue"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer connectCancel()

	if err := dbpool.PingContext(connectCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 加载物资目录
	 **********************************************/
	var source catalog.Source = catalog.FileSource{
		SuppliesPath:  cfg.Catalog.SuppliesPath,
		DisastersPath: cfg.Catalog.DisastersPath,
	}
	if cfg.Catalog.Source == "database" {
		source = catalog.StoreSource{Store: repo}
	}

	cat, err := source.Load(connectCtx)
	if err != nil {
		logger.Error("无法加载物资目录", "source", cfg.Catalog.Source, "error", err)
		return
	}

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
	defer rdb.Close()

	runCache := cache.New(rdb, time.Duration(cfg.Redis.ResultTTL)*time.Second, time.Duration(cfg.Redis.OperationExpiration)*time.Second)

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	var notifier worker.Notifier
	if cfg.Email.Enabled {
		mailer, err := notify.NewMailer(cfg)
		if err != nil {
			logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
			return
		}
		defer mailer.Close()
		notifier = mailer
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	if err := queue.Declare(ch, cfg.RabbitMQ.Queue); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	msgs, err := queue.Consume(ch, cfg.RabbitMQ.Queue, cfg.RabbitMQ.Prefetch)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	/**********************************************
	 * 处理任务
	 **********************************************/
	metrics.RegisterDefault()

	svc := optimizer.New(cat, optimizer.Options{
		Parallelism: cfg.Optimizer.Parallelism,
		EarlyStop:   cfg.Optimizer.EarlyStop,
		Logger:      logger,
	})
	w := worker.New(svc, repo, runCache, notifier, time.Duration(cfg.Optimizer.JobTimeout)*time.Second, logger)

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("RabbitMQ 通道已关闭")
					return
				}

				outcome := w.Handle(ctx, msg.Body)
				switch outcome {
				case worker.Ack:
					_ = msg.Ack(false)
				case worker.Requeue:
					_ = msg.Nack(false, true) // 将消息重新入队
				default:
					_ = msg.Nack(false, false)
				}
				logger.Debug("已处理消息", "message_id", msg.MessageId, "outcome", outcome)
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待任务...（按 CTRL+C 退出）", "queue", cfg.RabbitMQ.Queue)
	<-sigChan

	// 优雅退出，正在运行的优化会提前结束并保存当前最优结果
	slog.Info("正在关闭 optimization worker...")
	cancel()
	wg.Wait() // 等待所有 goroutine 完成
	slog.Info("optimization worker 已成功关闭")
}

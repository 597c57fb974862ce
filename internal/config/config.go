package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"120"` // 同步优化可能持续较长时间
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Secret string `env:"SECRET,required"`
		Cookie string `env:"COOKIE" envDefault:"token"`
	} `envPrefix:"JWT_"`
	Email struct {
		Enabled bool   `env:"ENABLED" envDefault:"false"`
		From    string `env:"FROM" envDefault:"relief-allocator@localhost"`
		SMTP    struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST" envDefault:"localhost"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"optimization_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		Prefetch       int    `env:"PREFETCH" envDefault:"1"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		ResultTTL           int    `env:"RESULT_TTL" envDefault:"3600"` // 1 小时
	} `envPrefix:"REDIS_"`
	Catalog struct {
		Source        string `env:"SOURCE" envDefault:"file"` // file 或 database
		SuppliesPath  string `env:"SUPPLIES_PATH" envDefault:"data/insumos.yaml"`
		DisastersPath string `env:"DISASTERS_PATH" envDefault:"data/desastres.yaml"`
	} `envPrefix:"CATALOG_"`
	Optimizer struct {
		Parallelism int  `env:"PARALLELISM" envDefault:"0"` // 0 表示使用 GOMAXPROCS
		EarlyStop   bool `env:"EARLY_STOP" envDefault:"false"`
		JobTimeout  int  `env:"JOB_TIMEOUT" envDefault:"300"`
		SyncTimeout int  `env:"SYNC_TIMEOUT" envDefault:"90"`
	} `envPrefix:"OPTIMIZER_"`
	RateLimit struct {
		Enabled       bool    `env:"ENABLED" envDefault:"true"`
		RPS           float64 `env:"RPS" envDefault:"2"`
		Burst         int     `env:"BURST" envDefault:"4"`
		IdleTTL       int     `env:"IDLE_TTL" envDefault:"600"`      // 客户端空闲多久后丢弃其限流器
		SweepInterval int     `env:"SWEEP_INTERVAL" envDefault:"60"` // 清理周期
	} `envPrefix:"RATE_LIMIT_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

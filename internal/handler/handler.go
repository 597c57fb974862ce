package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/metrics"
	"golang.org/x/time/rate"
)

// Optimizer 由 optimizer.Service 实现
type Optimizer interface {
	Optimize(ctx context.Context, input *domain.ScenarioInput, seed int64, origin string) (*domain.OptimizationResult, error)
	Catalog() *catalog.Catalog
}

// RunStore 由 repository.Repository 实现
type RunStore interface {
	CreateOptimizationRun(ctx context.Context, run *domain.OptimizationRun) error
	GetOptimizationRunByID(ctx context.Context, id uuid.UUID) (*domain.OptimizationRun, error)
	ListOptimizationRuns(ctx context.Context, limit int) ([]*domain.OptimizationRun, error)
	UpdateOptimizationRun(ctx context.Context, run *domain.OptimizationRun) error
}

// RunCache 由 cache.RunCache 实现，未命中时返回 cache.ErrMiss
type RunCache interface {
	SetRun(ctx context.Context, run *domain.OptimizationRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*domain.OptimizationRun, error)
}

// JobPublisher 由 queue.Publisher 实现
type JobPublisher interface {
	PublishJob(ctx context.Context, job *domain.OptimizationJob) error
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	translator ut.Translator
	optimizer  Optimizer
	runs       RunStore
	cache      RunCache
	jobs       JobPublisher

	limitersMu sync.Mutex
	limiters   map[string]*clientLimiter

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, opt Optimizer, runs RunStore, cache RunCache, jobs JobPublisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		translator: trans,
		optimizer:  opt,
		runs:       runs,
		cache:      cache,
		jobs:       jobs,
		limiters:   make(map[string]*clientLimiter),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.instrument)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Method(http.MethodGet, "/metrics", metrics.Handler())

	// 以下 API 必须携带有效的令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/supplies", h.GetSupplies)
			r.Get("/disasters", h.GetDisasters)
		})

		r.Route("/optimizations", func(r chi.Router) {
			r.Get("/", h.GetOptimizationRuns)
			r.With(h.RequiredRole([]domain.Role{domain.RoleOperator}), h.rateLimit).Post("/", h.Optimize)
			r.With(h.RequiredRole([]domain.Role{domain.RoleOperator}), h.rateLimit).Post("/jobs", h.SubmitOptimizationJob)
			r.With(h.optimizationRun).Get("/{id}", h.GetOptimizationRun)
		})
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "服务正常", nil)
}

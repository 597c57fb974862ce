package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// OptimizationRun 是一次优化执行的记录，Result 只有在完成后才有值
type OptimizationRun struct {
	ID             uuid.UUID           `json:"id"`
	DisasterType   string              `json:"disasterType"`
	Status         RunStatus           `json:"status"`
	BestFitness    *float64            `json:"bestFitness"`
	Generations    int                 `json:"generations"`
	ConvergedState ConvergenceState    `json:"convergedState,omitempty"`
	Result         *OptimizationResult `json:"result,omitempty"`
	ErrorKind      ErrorKind           `json:"errorKind,omitempty"`
	ErrorMessage   string              `json:"errorMessage,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	FinishedAt     *time.Time          `json:"finishedAt"`
	Version        int32               `json:"-"`
}

// Finish 根据优化结果或错误设置记录的最终状态
func (r *OptimizationRun) Finish(result *OptimizationResult, err error, now time.Time) {
	r.FinishedAt = &now

	if err != nil {
		r.Status = RunFailed
		r.ErrorKind = KindOf(err)
		r.ErrorMessage = err.Error()
		if r.ErrorKind == "" && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			r.Status = RunCancelled
		}
		return
	}

	r.Result = result
	r.Status = RunCompleted
	if result.Cancelado {
		r.Status = RunCancelled
	}
	r.Generations = result.Convergencia.GeneracionesEjecutadas
	r.ConvergedState = result.Convergencia.Estado
	if len(result.MejoresSoluciones) > 0 {
		best := result.MejoresSoluciones[0].Fitness
		r.BestFitness = &best
	}
}

func (r *OptimizationRun) Finished() bool {
	return r.Status == RunCompleted || r.Status == RunFailed || r.Status == RunCancelled
}

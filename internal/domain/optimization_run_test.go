package domain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizationRunFinish(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("完成", func(t *testing.T) {
		run := &OptimizationRun{Status: RunRunning}
		run.Finish(&OptimizationResult{
			MejoresSoluciones: []Solution{{Fitness: 1500}, {Fitness: 1200}},
			Convergencia:      Convergence{GeneracionesEjecutadas: 40, Estado: SemiConverged},
		}, nil, now)

		assert.Equal(t, RunCompleted, run.Status)
		require.NotNil(t, run.BestFitness)
		assert.Equal(t, 1500.0, *run.BestFitness)
		assert.Equal(t, 40, run.Generations)
		assert.Equal(t, SemiConverged, run.ConvergedState)
		assert.Equal(t, now, *run.FinishedAt)
		assert.True(t, run.Finished())
	})

	t.Run("中途取消", func(t *testing.T) {
		run := &OptimizationRun{Status: RunRunning}
		run.Finish(&OptimizationResult{Cancelado: true}, nil, now)
		assert.Equal(t, RunCancelled, run.Status)
		assert.Nil(t, run.BestFitness)
		assert.NotNil(t, run.Result)
	})

	t.Run("输入错误", func(t *testing.T) {
		run := &OptimizationRun{Status: RunRunning}
		run.Finish(nil, NewError(ErrUnknownDisaster, "未知的灾害类型 %q", "tsunami"), now)
		assert.Equal(t, RunFailed, run.Status)
		assert.Equal(t, ErrUnknownDisaster, run.ErrorKind)
		assert.Contains(t, run.ErrorMessage, "tsunami")
		assert.Nil(t, run.Result)
	})

	t.Run("开始前超时", func(t *testing.T) {
		run := &OptimizationRun{Status: RunRunning}
		run.Finish(nil, fmt.Errorf("运行优化: %w", context.DeadlineExceeded), now)
		assert.Equal(t, RunCancelled, run.Status)
		assert.Empty(t, run.ErrorKind)
	})
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", EngineFailure(3, fmt.Errorf("boom")))
	assert.Equal(t, ErrEngineFailure, KindOf(wrapped))
	assert.False(t, IsInputError(wrapped))

	assert.True(t, IsInputError(NewError(ErrInvalidScenario, "flota vacia")))
	assert.True(t, IsInputError(NewError(ErrParameterOutOfRange, "poblacion_size")))
	assert.Equal(t, ErrorKind(""), KindOf(fmt.Errorf("plain")))
	assert.Contains(t, wrapped.Error(), "第 3 代")
}

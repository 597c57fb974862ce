package allocator

import (
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"gonum.org/v1/gonum/stat"
)

const (
	convergenceWindow      = 10
	convergedThreshold     = 0.01
	semiConvergedThreshold = 0.05
)

// convergenceState 根据最近 10 代最优适应度的方差判断收敛状态
//
// 方差 < 均值的 1% 为 converged，< 5% 为 semi-converged，不足 10 代时为 evolving
func convergenceState(history []GenerationStats) domain.ConvergenceState {
	if len(history) < convergenceWindow {
		return domain.Evolving
	}

	bests := make([]float64, convergenceWindow)
	for i, h := range history[len(history)-convergenceWindow:] {
		bests[i] = h.Best
	}

	mean, variance := stat.MeanVariance(bests, nil)
	switch {
	case variance == 0:
		// 适应度完全没有变化（包括一直为 0 的情况）
		return domain.Converged
	case mean <= 0:
		return domain.Evolving
	case variance < convergedThreshold*mean:
		return domain.Converged
	case variance < semiConvergedThreshold*mean:
		return domain.SemiConverged
	default:
		return domain.Evolving
	}
}

// improvementPercent 计算最后一代相对第一代最优适应度的提升百分比
func improvementPercent(history []GenerationStats) float64 {
	if len(history) == 0 {
		return 0
	}
	first, last := history[0].Best, history[len(history)-1].Best
	if first <= 0 {
		if last > 0 {
			return 100
		}
		return 0
	}
	return (last - first) / first * 100
}

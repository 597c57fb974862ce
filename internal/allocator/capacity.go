package allocator

import (
	"math"
	"slices"
)

const (
	// repair 的目标装载率：超载时先按比例缩放到该比例，再贪心削减
	repairTargetRatio = 0.90
	// 生成物资后的合规修复目标
	complianceTargetRatio = 0.92
	// 贪心削减的最大步数，超过后清空物资向量
	maxTrimSteps = 50
)

// fillPlan 描述一次物资生成：目标装载率以及两个阶段每种物资的数量上限
type fillPlan struct {
	target      float64
	priorityCap int
	otherCap    int
}

func (a *Allocator) capacity(g *Gene) float64 {
	return a.sc.Vehicles[g.VehicleIndex].CapacityKg
}

func (a *Allocator) vectorWeight(supplies []int) float64 {
	total := 0.0
	for i, q := range supplies {
		if q > 0 {
			total += float64(q) * a.sc.Supplies[i].UnitWeightKg
		}
	}
	return total
}

// weight(gene) = Σ quantity_i × unit_weight_i
func (a *Allocator) weight(g *Gene) float64 {
	return a.vectorWeight(g.Supplies)
}

func (a *Allocator) utilization(g *Gene) float64 {
	return a.weight(g) / a.capacity(g)
}

// repair 保证单个基因不超载，对未超载的基因不做任何修改（因此 repair ∘ repair = repair）
func (a *Allocator) repair(g *Gene, target float64) {
	a.trimVector(g.Supplies, a.capacity(g), target)
}

func (a *Allocator) repairChromosome(ch *Chromosome) {
	for _, g := range ch.Genes {
		a.repair(g, repairTargetRatio)
	}
	ch.invalidate()
}

// trimVector 在重量超过容量时，先按比例缩放到 target × capacity，再逐个减少贡献重量最大的物资
func (a *Allocator) trimVector(supplies []int, capacity, target float64) {
	for i, q := range supplies {
		if q < 0 {
			supplies[i] = 0
		}
	}

	current := a.vectorWeight(supplies)
	if current <= capacity {
		return
	}

	limit := target * capacity
	scale := limit / current
	for i, q := range supplies {
		if q > 0 {
			supplies[i] = int(math.Floor(float64(q) * scale))
		}
	}

	for step := 0; a.vectorWeight(supplies) > limit; step++ {
		if step >= maxTrimSteps {
			// 单位重量异常时无法在有限步内削减，直接清空
			clear(supplies)
			return
		}

		heaviest := -1
		heaviestWeight := 0.0
		for i, q := range supplies {
			if q <= 0 {
				continue
			}
			if w := float64(q) * a.sc.Supplies[i].UnitWeightKg; w > heaviestWeight {
				heaviest = i
				heaviestWeight = w
			}
		}
		if heaviest < 0 {
			break
		}
		supplies[heaviest]--
	}
}

// generateSupplies 分两个阶段填充物资向量
//
//  1. 按随机顺序遍历灾害优先物资，每种随机加入 [1, min(⌊剩余/单位重量⌋, priorityCap)] 件
//  2. 遍历剩余物资，每种最多 otherCap 件
//
// 最后做一次合规修复，保证不超过容量
func (a *Allocator) generateSupplies(capacity float64, plan fillPlan) []int {
	supplies := make([]int, len(a.sc.Supplies))
	limit := plan.target * capacity
	loaded := 0.0

	add := func(idx, maxPerItem int) {
		unit := a.sc.Supplies[idx].UnitWeightKg
		room := int(math.Floor((limit - loaded) / unit))
		upper := min(room, maxPerItem)
		if upper <= 0 {
			return
		}
		q := 1 + a.rng.Intn(upper)
		supplies[idx] += q
		loaded += float64(q) * unit
	}

	priority := slices.Clone(a.sc.PriorityItems)
	a.rng.Shuffle(len(priority), func(i, j int) {
		priority[i], priority[j] = priority[j], priority[i]
	})
	for _, idx := range priority {
		add(idx, plan.priorityCap)
	}

	others := make([]int, 0, len(supplies)-len(priority))
	for idx := range supplies {
		if !a.sc.Priority[idx] {
			others = append(others, idx)
		}
	}
	a.rng.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})
	for _, idx := range others {
		add(idx, plan.otherCap)
	}

	a.trimVector(supplies, capacity, complianceTargetRatio)
	return supplies
}

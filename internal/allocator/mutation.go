package allocator

import (
	"math"
	"slices"
	"sort"
)

const (
	underloadedThreshold = 0.6
	overloadedThreshold  = 0.95
	fillTargetRatio      = 0.90
	redistributeRatio    = 0.88
	rebalanceGap         = 0.3
	rebalanceItems       = 3
	fillChunk            = 5
	maxFillPasses        = 20
)

type mutationOperator int

const (
	mutateReassignDuplicates mutationOperator = iota
	mutateSwapDestinations
	mutateOptimizeSupplies
	mutateRebalanceLoads
)

// mutate 以 p_mut 的概率均匀选择一种变异算子，变异后立即修复容量
func (a *Allocator) mutate(ch *Chromosome) {
	if a.rng.Float64() >= a.params.MutationRate {
		return
	}

	switch mutationOperator(a.rng.Intn(4)) {
	case mutateReassignDuplicates:
		a.repairDuplicates(ch)
	case mutateSwapDestinations:
		a.swapDestinations(ch)
	case mutateOptimizeSupplies:
		a.optimizeSupplies(ch)
	case mutateRebalanceLoads:
		a.rebalanceLoads(ch)
	}

	a.repairChromosome(ch)
}

func (a *Allocator) swapDestinations(ch *Chromosome) {
	n := len(ch.Genes)
	if n < 2 {
		return
	}
	i := a.rng.Intn(n)
	j := a.rng.Intn(n - 1)
	if j >= i {
		j++
	}
	ch.Genes[i].AssignmentID, ch.Genes[j].AssignmentID = ch.Genes[j].AssignmentID, ch.Genes[i].AssignmentID
}

// optimizeSupplies 随机挑选一辆车调整装载：
// 装载率低于 0.6 时用优先物资补到 0.90，高于 0.95 时按比例缩减到 0.88，否则做少量 ±1..3 扰动
func (a *Allocator) optimizeSupplies(ch *Chromosome) {
	if len(ch.Genes) == 0 {
		return
	}
	g := ch.Genes[a.rng.Intn(len(ch.Genes))]
	util := a.utilization(g)

	switch {
	case util < underloadedThreshold:
		a.fillWithPriority(g, fillTargetRatio)
	case util > overloadedThreshold:
		scale := redistributeRatio / util
		for i, q := range g.Supplies {
			g.Supplies[i] = int(math.Floor(float64(q) * scale))
		}
	default:
		for range 1 + a.rng.Intn(3) {
			idx := a.rng.Intn(len(g.Supplies))
			delta := 1 + a.rng.Intn(3)
			if a.rng.Intn(2) == 0 {
				delta = -delta
			}
			g.Supplies[idx] = max(0, g.Supplies[idx]+delta)
		}
	}
}

// fillWithPriority 按随机顺序向基因追加优先物资，直到达到 target × capacity 或无法再放入
//
// 灾害没有优先物资时使用全部物资
func (a *Allocator) fillWithPriority(g *Gene, target float64) {
	items := slices.Clone(a.sc.PriorityItems)
	if len(items) == 0 {
		items = make([]int, len(a.sc.Supplies))
		for i := range items {
			items[i] = i
		}
	}
	a.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	limit := target * a.capacity(g)
	loaded := a.weight(g)
	for pass := 0; pass < maxFillPasses; pass++ {
		added := false
		for _, idx := range items {
			unit := a.sc.Supplies[idx].UnitWeightKg
			room := int(math.Floor((limit - loaded) / unit))
			if room <= 0 {
				continue
			}
			q := 1 + a.rng.Intn(min(room, fillChunk))
			g.Supplies[idx] += q
			loaded += float64(q) * unit
			added = true
		}
		if !added {
			return
		}
	}
}

// rebalanceLoads 在装载率最高和最低的车辆差距超过 0.3 时，从前者向后者转移最多 3 种最重的物资
//
// 每种物资转移 min(⌊数量/2⌋, ⌊接收方剩余容量/单位重量⌋) 件
func (a *Allocator) rebalanceLoads(ch *Chromosome) {
	if len(ch.Genes) < 2 {
		return
	}

	hi, lo := 0, 0
	for i, g := range ch.Genes {
		u := a.utilization(g)
		if u > a.utilization(ch.Genes[hi]) {
			hi = i
		}
		if u < a.utilization(ch.Genes[lo]) {
			lo = i
		}
	}
	if hi == lo || a.utilization(ch.Genes[hi])-a.utilization(ch.Genes[lo]) <= rebalanceGap {
		return
	}

	from, to := ch.Genes[hi], ch.Genes[lo]

	items := make([]int, 0, len(from.Supplies))
	for idx, q := range from.Supplies {
		if q > 0 {
			items = append(items, idx)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		wi := float64(from.Supplies[items[i]]) * a.sc.Supplies[items[i]].UnitWeightKg
		wj := float64(from.Supplies[items[j]]) * a.sc.Supplies[items[j]].UnitWeightKg
		return wi > wj
	})
	if len(items) > rebalanceItems {
		items = items[:rebalanceItems]
	}

	for _, idx := range items {
		unit := a.sc.Supplies[idx].UnitWeightKg
		room := int(math.Floor((a.capacity(to) - a.weight(to)) / unit))
		moved := min(from.Supplies[idx]/2, room)
		if moved <= 0 {
			continue
		}
		from.Supplies[idx] -= moved
		to.Supplies[idx] += moved
	}
}

package allocator

import (
	"math"
	"slices"
)

type supplyMix int

const (
	mixAverage supplyMix = iota
	mixMax
	mixRandomParent
	mixWeighted
)

// crossover 以 p_cross 的概率从三种交叉算子中均匀选择一种，否则返回轻度变异后的父本副本
//
// 父本不会被修改，子代的物资向量都是新分配的
func (a *Allocator) crossover(p1, p2 *Chromosome) (*Chromosome, *Chromosome) {
	if a.rng.Float64() >= a.params.CrossoverRate {
		return a.lightCopy(p1), a.lightCopy(p2)
	}

	switch a.rng.Intn(3) {
	case 0:
		return a.destinationPreserving(p1, p2), a.destinationPreserving(p2, p1)
	case 1:
		return a.uniformEnhanced(p1, p2)
	default:
		return a.blockSwap(p1, p2)
	}
}

// destinationPreserving 逐个车辆位置构造子代：
// 优先继承 primary 的路线，目的地已被子代使用时尝试 secondary 的路线，都不行时保留 primary 的路线并轻度变异物资
func (a *Allocator) destinationPreserving(primary, secondary *Chromosome) *Chromosome {
	child := &Chromosome{Genes: make([]*Gene, len(primary.Genes))}
	used := make([]bool, a.sc.DestinationCount())

	for i := range primary.Genes {
		first, second := primary.Genes[i], secondary.Genes[i]

		var gene *Gene
		switch {
		case !used[a.destinationOf(first)]:
			gene = first.clone()
		case !used[a.destinationOf(second)]:
			gene = second.clone()
		default:
			gene = first.clone()
			a.lightMutate(gene)
		}

		used[a.destinationOf(gene)] = true
		child.Genes[i] = gene
	}
	return child
}

// uniformEnhanced 每个车辆位置抛硬币决定继承哪个父本的路线，物资向量按随机选择的策略混合
func (a *Allocator) uniformEnhanced(p1, p2 *Chromosome) (*Chromosome, *Chromosome) {
	c1 := &Chromosome{Genes: make([]*Gene, len(p1.Genes))}
	c2 := &Chromosome{Genes: make([]*Gene, len(p2.Genes))}

	for i := range p1.Genes {
		g1, g2 := p1.Genes[i], p2.Genes[i]
		donor1, donor2 := g1, g2
		if a.rng.Intn(2) == 1 {
			donor1, donor2 = g2, g1
		}

		mix := supplyMix(a.rng.Intn(4))
		c1.Genes[i] = &Gene{
			VehicleIndex: i,
			AssignmentID: donor1.AssignmentID,
			Supplies:     a.mixSupplies(donor1, donor2, p1.Fitness, p2.Fitness, mix),
		}
		c2.Genes[i] = &Gene{
			VehicleIndex: i,
			AssignmentID: donor2.AssignmentID,
			Supplies:     a.mixSupplies(donor2, donor1, p2.Fitness, p1.Fitness, mix),
		}
	}
	return c1, c2
}

func (a *Allocator) mixSupplies(g1, g2 *Gene, f1, f2 float64, mix supplyMix) []int {
	out := make([]int, len(g1.Supplies))

	w1 := 0.5
	if total := f1 + f2; total > 0 {
		w1 = f1 / total
	}

	for j := range out {
		q1, q2 := g1.Supplies[j], g2.Supplies[j]
		switch mix {
		case mixAverage:
			out[j] = (q1 + q2) / 2
		case mixMax:
			out[j] = max(q1, q2)
		case mixRandomParent:
			if a.rng.Intn(2) == 0 {
				out[j] = q1
			} else {
				out[j] = q2
			}
		case mixWeighted:
			out[j] = int(math.Round(w1*float64(q1) + (1-w1)*float64(q2)))
		}
	}
	return out
}

// blockSwap 在车辆下标上选 1–3 个切点，两个父本交替提供区块，每个子代再轻度变异一个基因
func (a *Allocator) blockSwap(p1, p2 *Chromosome) (*Chromosome, *Chromosome) {
	n := len(p1.Genes)
	c1 := &Chromosome{Genes: make([]*Gene, n)}
	c2 := &Chromosome{Genes: make([]*Gene, n)}

	cuts := a.cutPoints(n)
	swapped := false
	next := 0
	for i := range n {
		if next < len(cuts) && i == cuts[next] {
			swapped = !swapped
			next++
		}
		if swapped {
			c1.Genes[i], c2.Genes[i] = p2.Genes[i].clone(), p1.Genes[i].clone()
		} else {
			c1.Genes[i], c2.Genes[i] = p1.Genes[i].clone(), p2.Genes[i].clone()
		}
	}

	a.lightMutate(c1.Genes[a.rng.Intn(n)])
	a.lightMutate(c2.Genes[a.rng.Intn(n)])
	return c1, c2
}

// cutPoints 返回 [1, n) 中升序且不重复的切点，车辆少于 2 辆时没有切点
func (a *Allocator) cutPoints(n int) []int {
	if n < 2 {
		return nil
	}
	k := min(1+a.rng.Intn(3), n-1)

	cuts := make([]int, 0, k)
	for _, p := range a.rng.Perm(n - 1)[:k] {
		cuts = append(cuts, p+1)
	}
	slices.Sort(cuts)
	return cuts
}

// lightCopy 深拷贝个体并对其中一个基因做轻度变异
func (a *Allocator) lightCopy(ch *Chromosome) *Chromosome {
	c := ch.Clone()
	if len(c.Genes) > 0 {
		a.lightMutate(c.Genes[a.rng.Intn(len(c.Genes))])
	}
	c.invalidate()
	return c
}

// lightMutate 对 1–3 种物资做 ±1..2 的扰动，数量不会小于 0
func (a *Allocator) lightMutate(g *Gene) {
	if len(g.Supplies) == 0 {
		return
	}
	for range 1 + a.rng.Intn(3) {
		idx := a.rng.Intn(len(g.Supplies))
		delta := 1 + a.rng.Intn(2)
		if a.rng.Intn(2) == 0 {
			delta = -delta
		}
		g.Supplies[idx] = max(0, g.Supplies[idx]+delta)
	}
}

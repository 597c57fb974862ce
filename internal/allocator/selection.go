package allocator

import (
	"sort"
)

const tournamentSize = 3

// byFitness 返回按适应度降序排列的种群副本，相同适应度保持原有顺序
func byFitness(pop []*Chromosome) []*Chromosome {
	sorted := make([]*Chromosome, len(pop))
	copy(sorted, pop)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness > sorted[j].Fitness
	})
	return sorted
}

// elite 深拷贝适应度最高的 ⌊elitism_rate × pop_size⌋ 个个体
func (a *Allocator) elite(pop []*Chromosome) []*Chromosome {
	n := min(a.params.EliteCount(), len(pop))
	sorted := byFitness(pop)

	elites := make([]*Chromosome, n)
	for i := range n {
		elites[i] = sorted[i].Clone()
	}
	return elites
}

// tournament 有放回地均匀抽取 3 个个体，返回适应度最高者
func (a *Allocator) tournament(pop []*Chromosome) *Chromosome {
	best := pop[a.rng.Intn(len(pop))]
	for i := 1; i < tournamentSize; i++ {
		if c := pop[a.rng.Intn(len(pop))]; c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// parentPicker 依次产生父本对
type parentPicker func() (*Chromosome, *Chromosome)

// parents 根据选择策略返回父本生成器
//
// 排序配对按 (0,1), (2,3), ... 的顺序循环产生父本对，个体数为奇数时最后一个与第一个配对
func (a *Allocator) parents(pop []*Chromosome) parentPicker {
	if a.params.Selection != SelectionRank {
		return func() (*Chromosome, *Chromosome) {
			return a.tournament(pop), a.tournament(pop)
		}
	}

	pairs := rankPairs(byFitness(pop))
	next := 0
	return func() (*Chromosome, *Chromosome) {
		pair := pairs[next%len(pairs)]
		next++
		return pair[0], pair[1]
	}
}

func rankPairs(sorted []*Chromosome) [][2]*Chromosome {
	var pairs [][2]*Chromosome
	for i := 0; i+1 < len(sorted); i += 2 {
		pairs = append(pairs, [2]*Chromosome{sorted[i], sorted[i+1]})
	}
	if len(sorted)%2 == 1 {
		pairs = append(pairs, [2]*Chromosome{sorted[len(sorted)-1], sorted[0]})
	}
	return pairs
}

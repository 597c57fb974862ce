package allocator

import (
	"math"
	"sort"
)

const (
	capacitySeededShare   = 0.5
	populationSeededShare = 0.3
	randomPicksPerVehicle = 8
)

func (a *Allocator) newChromosome() *Chromosome {
	genes := make([]*Gene, a.sc.VehicleCount())
	for i := range genes {
		genes[i] = &Gene{VehicleIndex: i}
	}
	return &Chromosome{Genes: genes}
}

// initialPopulation 混合三种策略生成初始种群：50% 按容量、30% 按人口、20% 随机
func (a *Allocator) initialPopulation(size int) []*Chromosome {
	nCapacity := int(float64(size) * capacitySeededShare)
	nPopulation := int(float64(size) * populationSeededShare)

	pop := make([]*Chromosome, 0, size)
	for i := 0; i < nCapacity; i++ {
		pop = append(pop, a.capacitySeeded(i > 0))
	}
	for i := 0; i < nPopulation; i++ {
		pop = append(pop, a.populationSeeded())
	}
	for len(pop) < size {
		pop = append(pop, a.randomValid())
	}

	for _, ch := range pop {
		a.repairChromosome(ch)
	}
	return pop
}

// capacitySeeded 按容量从大到小为车辆挑选第一个尚未使用的兼容目的地
//
// 第一个个体严格按目录顺序扫描，之后的个体打乱扫描顺序以保持多样性
func (a *Allocator) capacitySeeded(shuffleScan bool) *Chromosome {
	ch := a.newChromosome()

	order := make([]int, a.sc.VehicleCount())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return a.sc.Vehicles[order[i]].CapacityKg > a.sc.Vehicles[order[j]].CapacityKg
	})

	used := make([]bool, a.sc.DestinationCount())
	for _, v := range order {
		candidates := a.sc.CompatibleRoutes(v)
		if shuffleScan {
			candidates = a.shuffled(candidates)
		}

		id := -1
		for _, c := range candidates {
			if !used[a.sc.DestinationOf(c)] {
				id = c
				break
			}
		}
		if id < 0 {
			id = a.anyCompatible(v)
		}

		gene := ch.Genes[v]
		gene.AssignmentID = id
		used[a.sc.DestinationOf(id)] = true
		gene.Supplies = a.generateSupplies(a.sc.Vehicles[v].CapacityKg, fillPlan{
			target:      0.90,
			priorityCap: 10,
			otherCap:    6,
		})
	}

	return ch
}

// populationSeeded 以随机顺序遍历车辆，把人口最多且尚未使用的兼容目的地分配给车辆
func (a *Allocator) populationSeeded() *Chromosome {
	ch := a.newChromosome()

	ranked := make([]int, a.sc.DestinationCount())
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return a.sc.Destinations[ranked[i]].Population > a.sc.Destinations[ranked[j]].Population
	})

	used := make([]bool, a.sc.DestinationCount())
	for _, v := range a.rng.Perm(a.sc.VehicleCount()) {
		id := -1
		for _, d := range ranked {
			if used[d] {
				continue
			}
			if c := a.compatibleRouteTo(v, d); c >= 0 {
				id = c
				break
			}
		}
		if id < 0 {
			id = a.anyCompatible(v)
		}

		gene := ch.Genes[v]
		gene.AssignmentID = id
		d := a.sc.DestinationOf(id)
		used[d] = true

		// 人口越多的目的地每种物资的上限越高
		factor := math.Min(float64(a.sc.Destinations[d].Population)/400, 2.5)
		gene.Supplies = a.generateSupplies(a.sc.Vehicles[v].CapacityKg, fillPlan{
			target:      0.95,
			priorityCap: max(1, int(math.Round(12*factor))),
			otherCap:    max(1, int(math.Round(6*factor))),
		})
	}

	return ch
}

// randomValid 每辆车最多尝试 8 次随机挑选未使用的目的地，物资填充到容量的 60%–85%
func (a *Allocator) randomValid() *Chromosome {
	ch := a.newChromosome()

	used := make([]bool, a.sc.DestinationCount())
	for _, v := range a.rng.Perm(a.sc.VehicleCount()) {
		pool := a.sc.CompatibleRoutes(v)

		id := -1
		for try := 0; try < randomPicksPerVehicle; try++ {
			if len(pool) > 0 {
				id = pool[a.rng.Intn(len(pool))]
			} else {
				id = a.rng.Intn(len(a.sc.Routes))
			}
			if !used[a.sc.DestinationOf(id)] {
				break
			}
		}

		gene := ch.Genes[v]
		gene.AssignmentID = id
		used[a.sc.DestinationOf(id)] = true
		gene.Supplies = a.generateSupplies(a.sc.Vehicles[v].CapacityKg, fillPlan{
			target:      0.60 + 0.25*a.rng.Float64(),
			priorityCap: 12,
			otherCap:    6,
		})
	}

	return ch
}

// compatibleRouteTo 随机返回车辆通往目的地 d 的一条兼容路线，没有时返回 -1
func (a *Allocator) compatibleRouteTo(v, d int) int {
	var candidates []int
	for _, id := range a.sc.RoutesTo(d) {
		if a.sc.Compatible(v, id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[a.rng.Intn(len(candidates))]
}

// anyCompatible 随机返回一条兼容路线，车辆没有兼容路线时随机返回目录中的一项
func (a *Allocator) anyCompatible(v int) int {
	compatible := a.sc.CompatibleRoutes(v)
	if len(compatible) > 0 {
		return compatible[a.rng.Intn(len(compatible))]
	}
	return a.rng.Intn(len(a.sc.Routes))
}

func (a *Allocator) shuffled(ids []int) []int {
	out := make([]int, len(ids))
	copy(out, ids)
	a.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

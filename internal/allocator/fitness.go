package allocator

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	overweightPenaltyPerKg  = 800.0
	overweightPenaltyBase   = 3000.0
	incompatiblePenalty     = 1200.0
	priorityRelevanceFactor = 2.5
	categoryDiversityBonus  = 25.0
	relevanceWeight         = 18.0
	populationWeight        = 15.0
	loadWeight              = 0.9
	duplicatePenalty        = 1500.0
	coverageBonus           = 400.0
	fullCoverageBonus       = 300.0
	fuelPenaltyFactor       = 0.25
	emptyVehiclePenalty     = 250.0
)

// Breakdown 记录一次评估中各项得分与惩罚，Score 即写入染色体的适应度
type Breakdown struct {
	Positive                float64
	OverweightPenalty       float64
	IncompatiblePenalty     float64
	DuplicatePenalty        float64
	FuelPenalty             float64
	UnderUtilizationPenalty float64
	EmptyPenalty            float64
	CoverageBonus           float64
	FullCoverage            bool
	DuplicateMembers        int
	Attended                int
	EmptyVehicles           int
	TotalFuel               float64
	AverageUtilization      float64
	Score                   float64
}

/**
 * 计算染色体的适应度
 * 对每个基因（重复目的地中除第一个以外的基因不计分，只有 markValid 标记为有效的基因计正分）:
 * 		1. 超载: 惩罚 800 × 超出重量 + 3000，不再计正分
 * 		2. 路线关闭或车型不允许: 惩罚 1200，不再计正分
 * 		3. 其余情况加上 18 × relevance + 15 × population_efficiency + utilization_bonus + 0.9 × weight
 * 整条染色体:
 * 		重复惩罚 1500 × 重复成员数，覆盖奖励 400 × 覆盖率（全部覆盖再加 300），
 * 		油耗惩罚 0.25 × 总油耗，平均装载率过低惩罚 350 / 180，空车惩罚 250 × 空车数
 * fitness = max(0, 总分)
 */
func (a *Allocator) breakdown(ch *Chromosome) Breakdown {
	var b Breakdown
	if len(ch.Genes) == 0 {
		return b
	}

	members, dupCount := a.duplicateMembers(ch)
	valid := a.markValid(ch)
	attended := make(map[int]struct{})
	utilizationSum := 0.0

	for i, g := range ch.Genes {
		vehicle := a.sc.Vehicles[g.VehicleIndex]
		w := a.weight(g)
		util := w / vehicle.CapacityKg
		utilizationSum += util

		if w == 0 {
			b.EmptyVehicles++
		}
		if members[i] {
			continue
		}
		if !valid[i] {
			if w > vehicle.CapacityKg {
				b.OverweightPenalty += overweightPenaltyPerKg*(w-vehicle.CapacityKg) + overweightPenaltyBase
			} else {
				b.IncompatiblePenalty += incompatiblePenalty
			}
			continue
		}

		route := a.sc.Route(g.AssignmentID)

		fuel := route.DistanceKm * vehicle.FuelPerKm
		population := a.sc.Destinations[route.DestinationIndex].Population

		b.Positive += relevanceWeight*a.relevance(g) +
			populationWeight*populationEfficiency(w, util, vehicle.CapacityKg, population) +
			utilizationBonus(util) +
			loadWeight*w

		b.TotalFuel += fuel
		attended[route.DestinationIndex] = struct{}{}
	}

	b.DuplicateMembers = dupCount
	b.DuplicatePenalty = duplicatePenalty * float64(dupCount)

	b.Attended = len(attended)
	b.CoverageBonus = coverageBonus * float64(b.Attended) / float64(a.sc.DestinationCount())
	if b.Attended == a.sc.DestinationCount() {
		b.FullCoverage = true
		b.CoverageBonus += fullCoverageBonus
	}

	b.FuelPenalty = fuelPenaltyFactor * b.TotalFuel

	b.AverageUtilization = utilizationSum / float64(len(ch.Genes))
	switch {
	case b.AverageUtilization < 0.25:
		b.UnderUtilizationPenalty = 350
	case b.AverageUtilization < 0.4:
		b.UnderUtilizationPenalty = 180
	}

	b.EmptyPenalty = emptyVehiclePenalty * float64(b.EmptyVehicles)

	score := b.Positive + b.CoverageBonus -
		b.OverweightPenalty - b.IncompatiblePenalty - b.DuplicatePenalty -
		b.FuelPenalty - b.UnderUtilizationPenalty - b.EmptyPenalty
	b.Score = max(0, score)

	return b
}

// relevance: 优先物资每件计 2.5，其余每件计 1，再加上 25 × 出现的物资类别数
func (a *Allocator) relevance(g *Gene) float64 {
	total := 0.0
	categories := make(map[string]struct{})
	for idx, q := range g.Supplies {
		if q <= 0 {
			continue
		}
		factor := 1.0
		if a.sc.Priority[idx] {
			factor = priorityRelevanceFactor
		}
		total += float64(q) * factor
		categories[a.sc.Supplies[idx].Category] = struct{}{}
	}
	return total + categoryDiversityBonus*float64(len(categories))
}

func populationEfficiency(weight, util, capacity float64, population int) float64 {
	pop := float64(population)
	eff := (weight / 50) * (pop / 500)

	switch {
	case util >= 0.85:
		eff += 120
	case util >= 0.65:
		eff += 80
	case util >= 0.45:
		eff += 40
	default:
		eff -= 40
	}

	// 车辆规模与目的地人口是否匹配
	switch {
	case capacity >= 3000 && population >= 1000:
		eff += 80
	case capacity < 1500 && population < 500:
		eff += 60
	case capacity >= 3000 && population < 200:
		eff -= 60
	}

	// 人均物资量
	if population > 0 {
		perPerson := weight / pop
		switch {
		case perPerson >= 0.4 && perPerson <= 1.8:
			eff += 40
		case perPerson < 0.15:
			eff -= 25
		}
	}

	return eff
}

func utilizationBonus(util float64) float64 {
	switch {
	case util >= 0.9:
		return 180
	case util >= 0.75:
		return 120
	case util >= 0.6:
		return 80
	case util >= 0.4:
		return 40
	default:
		return 0
	}
}

func (a *Allocator) evaluate(ch *Chromosome) float64 {
	ch.Fitness = a.breakdown(ch).Score
	ch.evaluated = true
	return ch.Fitness
}

// evaluatePopulation 并行评估整个种群，评估只读取场景，不使用随机数，因此结果与并行度无关
func (a *Allocator) evaluatePopulation(pop []*Chromosome) error {
	var g errgroup.Group
	g.SetLimit(a.parallelism)

	for i, ch := range pop {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("评估第 %d 个个体时 panic: %v", i, r)
				}
			}()
			a.evaluate(ch)
			return nil
		})
	}

	return g.Wait()
}

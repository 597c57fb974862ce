package allocator

import "fmt"

func (a *Allocator) destinationOf(g *Gene) int {
	return a.sc.DestinationOf(g.AssignmentID)
}

// duplicates 按目的地对基因分组，返回大小超过 1 的分组（组内是基因下标，按出现顺序）
func (a *Allocator) duplicates(ch *Chromosome) [][]int {
	groupOf := make(map[int]int)
	var groups [][]int

	for i, g := range ch.Genes {
		d := a.destinationOf(g)
		idx, exists := groupOf[d]
		if !exists {
			idx = len(groups)
			groupOf[d] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], i)
	}

	result := make([][]int, 0)
	for _, group := range groups {
		if len(group) > 1 {
			result = append(result, group)
		}
	}
	return result
}

// duplicateMembers 标记每个重复分组中除第一个以外的基因
func (a *Allocator) duplicateMembers(ch *Chromosome) ([]bool, int) {
	members := make([]bool, len(ch.Genes))
	count := 0
	for _, group := range a.duplicates(ch) {
		for _, i := range group[1:] {
			members[i] = true
			count++
		}
	}
	return members, count
}

// markValid 返回每个基因是否有效
//
// 重复分组中只有第一个基因有效；路线关闭、车型不被允许或超载的基因同样无效
func (a *Allocator) markValid(ch *Chromosome) []bool {
	members, _ := a.duplicateMembers(ch)
	valid := make([]bool, len(ch.Genes))
	for i, g := range ch.Genes {
		valid[i] = !members[i] && a.failureReason(g) == ""
	}
	return valid
}

// failureReason 返回配送失败的原因，可以成功配送时返回空字符串
func (a *Allocator) failureReason(g *Gene) string {
	route := a.sc.Route(g.AssignmentID)
	vehicle := a.sc.Vehicles[g.VehicleIndex]

	if !route.State.Open() {
		if route.State.Reason != "" {
			return fmt.Sprintf("路线已关闭: %s", route.State.Reason)
		}
		return "路线已关闭"
	}
	if !route.State.Allows(vehicle.Type) {
		return fmt.Sprintf("车型 %s 不允许通行该路线", vehicle.Type)
	}
	if w := a.weight(g); w > vehicle.CapacityKg {
		return fmt.Sprintf("装载 %.1f kg 超过容量 %.1f kg", w, vehicle.CapacityKg)
	}
	return ""
}

// repairDuplicates 保留每个重复分组的第一个基因，其余基因重新分配到尚未使用的目的地
func (a *Allocator) repairDuplicates(ch *Chromosome) {
	groups := a.duplicates(ch)
	if len(groups) == 0 {
		return
	}

	used := make([]bool, a.sc.DestinationCount())
	for _, g := range ch.Genes {
		used[a.destinationOf(g)] = true
	}

	for _, group := range groups {
		for _, i := range group[1:] {
			gene := ch.Genes[i]
			gene.AssignmentID = a.findFreeDestination(used, gene.VehicleIndex)
			used[a.destinationOf(gene)] = true
		}
	}
	ch.invalidate()
}

// findFreeDestination 优先在车辆兼容的路线中挑选一个未被使用的目的地
//
// 找不到时退回任意兼容路线，车辆没有任何兼容路线时随机选择目录中的一项
func (a *Allocator) findFreeDestination(used []bool, vehicleIndex int) int {
	compatible := a.sc.CompatibleRoutes(vehicleIndex)

	free := make([]int, 0, len(compatible))
	for _, id := range compatible {
		if !used[a.sc.DestinationOf(id)] {
			free = append(free, id)
		}
	}
	if len(free) > 0 {
		return free[a.rng.Intn(len(free))]
	}
	if len(compatible) > 0 {
		return compatible[a.rng.Intn(len(compatible))]
	}
	return a.rng.Intn(len(a.sc.Routes))
}

func (a *Allocator) uniqueDestinations(ch *Chromosome) int {
	seen := make(map[int]struct{})
	for _, g := range ch.Genes {
		seen[a.destinationOf(g)] = struct{}{}
	}
	return len(seen)
}

// coverageRate = unique_destinations / |destinations|
func (a *Allocator) coverageRate(ch *Chromosome) float64 {
	if a.sc.DestinationCount() == 0 {
		return 0
	}
	return float64(a.uniqueDestinations(ch)) / float64(a.sc.DestinationCount())
}

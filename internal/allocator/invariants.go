package allocator

import (
	"errors"
	"fmt"
)

// validateChromosome 检查染色体的结构约束：
// 长度等于车队大小且 Genes[i].VehicleIndex == i，assignment id 在目录范围内，
// 物资向量长度等于目录大小且数量非负，修复后的基因不超载
func (a *Allocator) validateChromosome(ch *Chromosome) error {
	if len(ch.Genes) != a.sc.VehicleCount() {
		return fmt.Errorf("染色体长度 %d 与车队大小 %d 不一致", len(ch.Genes), a.sc.VehicleCount())
	}

	for i, g := range ch.Genes {
		if g == nil {
			return fmt.Errorf("第 %d 个基因为空", i)
		}
		if g.VehicleIndex != i {
			return fmt.Errorf("第 %d 个基因的车辆下标为 %d", i, g.VehicleIndex)
		}
		if g.AssignmentID < 0 || g.AssignmentID >= len(a.sc.Routes) {
			return fmt.Errorf("车辆 %d 的 assignment id %d 超出目录范围", i, g.AssignmentID)
		}
		if len(g.Supplies) != a.sc.SupplyCount() {
			return fmt.Errorf("车辆 %d 的物资向量长度 %d 与目录大小 %d 不一致", i, len(g.Supplies), a.sc.SupplyCount())
		}
		for j, q := range g.Supplies {
			if q < 0 {
				return fmt.Errorf("车辆 %d 的物资 %d 数量为负数 %d", i, j, q)
			}
		}
		if w, c := a.weight(g), a.capacity(g); w > c {
			return fmt.Errorf("车辆 %d 装载 %.1f kg 超过容量 %.1f kg", i, w, c)
		}
	}

	return nil
}

// checkInvariants 检查运行结果：历史最优和最后一代的每个个体都必须满足结构约束，历史最优单调不减
func (a *Allocator) checkInvariants(out *Outcome) error {
	if out.Best == nil {
		return errors.New("没有历史最优个体")
	}
	if err := a.validateChromosome(out.Best); err != nil {
		return fmt.Errorf("历史最优个体: %w", err)
	}
	for i, ch := range out.Population {
		if err := a.validateChromosome(ch); err != nil {
			return fmt.Errorf("第 %d 个个体: %w", i, err)
		}
	}

	bestSoFar := 0.0
	for _, h := range out.History {
		if h.Best > bestSoFar {
			bestSoFar = h.Best
		}
	}
	if out.Best.Fitness < bestSoFar {
		return fmt.Errorf("历史最优适应度 %.4f 小于历史记录中的最优值 %.4f", out.Best.Fitness, bestSoFar)
	}

	return nil
}

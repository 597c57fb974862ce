package allocator

import "slices"

// Gene: 一辆车的分配决策（车辆 → 路线实例 → 物资向量）
type Gene struct {
	VehicleIndex int
	AssignmentID int
	Supplies     []int // 长度等于物资目录大小，每个分量是非负整数数量
}

// Chromosome: 整个车队的分配方案，Genes[i].VehicleIndex == i
type Chromosome struct {
	Genes     []*Gene
	Fitness   float64
	evaluated bool
}

// 遗传算法参数
type Parameters struct {
	PopulationSize int               // 种群大小
	Generations    int               // 迭代次数
	CrossoverRate  float64           // 交叉概率
	MutationRate   float64           // 变异概率
	ElitismRate    float64           // 精英比例
	Selection      SelectionStrategy // 父本选择策略
}

type SelectionStrategy string

const (
	SelectionTournament SelectionStrategy = "torneo"
	SelectionRank       SelectionStrategy = "ranking"
)

// GenerationStats 是每一代评估完成后的适应度统计
type GenerationStats struct {
	Generation int
	Best       float64
	Average    float64
	Worst      float64
}

func (g *Gene) clone() *Gene {
	return &Gene{
		VehicleIndex: g.VehicleIndex,
		AssignmentID: g.AssignmentID,
		Supplies:     slices.Clone(g.Supplies),
	}
}

// Clone 深拷贝染色体，保存历史最优时必须使用深拷贝，防止后续繁殖修改到同一个物资向量
func (c *Chromosome) Clone() *Chromosome {
	genes := make([]*Gene, len(c.Genes))
	for i, g := range c.Genes {
		genes[i] = g.clone()
	}
	return &Chromosome{
		Genes:     genes,
		Fitness:   c.Fitness,
		evaluated: c.evaluated,
	}
}

func (c *Chromosome) Evaluated() bool {
	return c.evaluated
}

func (c *Chromosome) invalidate() {
	c.evaluated = false
	c.Fitness = 0
}

package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

// Catalog 是只读的物资目录与灾害优先级表，加载一次后在整个运行期间共享
//
// 物资按 id 升序排列，物资向量的第 i 个分量对应 Items[i]
type Catalog struct {
	Items      []domain.SupplyItem
	disasters  map[string]*domain.Disaster
	categories map[string][]int
	indexByID  map[int]int
}

func New(items []domain.SupplyItem, disasters []domain.Disaster) (*Catalog, error) {
	if len(items) == 0 {
		return nil, domain.NewError(domain.ErrCatalogLoad, "物资目录为空")
	}
	if len(disasters) == 0 {
		return nil, domain.NewError(domain.ErrCatalogLoad, "灾害表为空")
	}

	c := &Catalog{
		Items:      slices.Clone(items),
		disasters:  make(map[string]*domain.Disaster, len(disasters)),
		categories: make(map[string][]int),
		indexByID:  make(map[int]int, len(items)),
	}

	sort.SliceStable(c.Items, func(i, j int) bool {
		return c.Items[i].ID < c.Items[j].ID
	})

	for i, item := range c.Items {
		if _, exists := c.indexByID[item.ID]; exists {
			return nil, domain.NewError(domain.ErrCatalogLoad, "物资 id %d 重复", item.ID)
		}
		if strings.TrimSpace(item.Category) == "" {
			return nil, domain.NewError(domain.ErrCatalogLoad, "物资 %d 缺少类别", item.ID)
		}
		if item.UnitWeightKg <= 0 {
			return nil, domain.NewError(domain.ErrCatalogLoad, "物资 %d 的单位重量必须大于 0", item.ID)
		}
		c.indexByID[item.ID] = i
		c.categories[item.Category] = append(c.categories[item.Category], i)
	}

	for _, d := range disasters {
		key := normalizeType(d.Type)
		if key == "" {
			return nil, domain.NewError(domain.ErrCatalogLoad, "灾害类型不能为空")
		}
		if _, exists := c.disasters[key]; exists {
			return nil, domain.NewError(domain.ErrCatalogLoad, "灾害类型 %s 重复", d.Type)
		}
		for _, p := range d.Priorities {
			if !p.Level.Valid() {
				return nil, domain.NewError(domain.ErrCatalogLoad, "灾害 %s 中类别 %s 的优先级 %q 无效", d.Type, p.Category, p.Level)
			}
		}
		disaster := domain.Disaster{
			Type:       d.Type,
			Priorities: slices.Clone(d.Priorities),
		}
		c.disasters[key] = &disaster
	}

	return c, nil
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func (c *Catalog) Len() int {
	return len(c.Items)
}

// IndexOf 根据物资 id 返回其在物资向量中的下标
func (c *Catalog) IndexOf(id int) (int, bool) {
	idx, ok := c.indexByID[id]
	return idx, ok
}

func (c *Catalog) ItemsInCategory(category string) []int {
	return c.categories[category]
}

func (c *Catalog) Disaster(disasterType string) (*domain.Disaster, error) {
	d, ok := c.disasters[normalizeType(disasterType)]
	if !ok {
		return nil, domain.NewError(domain.ErrUnknownDisaster, "未知的灾害类型 %q", disasterType)
	}
	return d, nil
}

func (c *Catalog) Disasters() []domain.Disaster {
	result := make([]domain.Disaster, 0, len(c.disasters))
	for _, d := range c.disasters {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}

// PrioritySet 返回在该灾害下优先级为 alta 或 media 的物资下标（升序）
func (c *Catalog) PrioritySet(disasterType string) ([]int, error) {
	d, err := c.Disaster(disasterType)
	if err != nil {
		return nil, err
	}

	set := make([]int, 0)
	for _, p := range d.Priorities {
		if p.Level != domain.PriorityHigh && p.Level != domain.PriorityMedium {
			continue
		}
		set = append(set, c.categories[p.Category]...)
	}
	slices.Sort(set)
	return slices.Compact(set), nil
}

// PriorityWeights 返回每个物资在该灾害下的优先级权重，没有配置的类别权重为 0
func (c *Catalog) PriorityWeights(disasterType string) ([]int, error) {
	d, err := c.Disaster(disasterType)
	if err != nil {
		return nil, err
	}

	weights := make([]int, len(c.Items))
	for i, item := range c.Items {
		weights[i] = d.LevelOf(item.Category).Weight()
	}
	return weights, nil
}

// String 用于启动日志
func (c *Catalog) String() string {
	return fmt.Sprintf("catalog(%d items, %d disasters)", len(c.Items), len(c.disasters))
}

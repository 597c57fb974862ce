package domain

type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "alta"
	PriorityMedium PriorityLevel = "media"
	PriorityLow    PriorityLevel = "baja"
)

// Weight 返回优先级权重: alta=3, media=2, baja=1，未知等级为 0
func (l PriorityLevel) Weight() int {
	switch l {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (l PriorityLevel) Valid() bool {
	return l.Weight() > 0
}

type CategoryPriority struct {
	Category string        `json:"categoria" yaml:"categoria"`
	Level    PriorityLevel `json:"nivel" yaml:"nivel"`
}

type Disaster struct {
	Type       string             `json:"tipo" yaml:"tipo"`
	Priorities []CategoryPriority `json:"prioridades" yaml:"prioridades"`
}

// LevelOf 返回某个物资类别在该灾害下的优先级，没有配置时返回空字符串
func (d *Disaster) LevelOf(category string) PriorityLevel {
	for _, p := range d.Priorities {
		if p.Category == category {
			return p.Level
		}
	}
	return ""
}

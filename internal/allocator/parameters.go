package allocator

import (
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

const (
	DefaultPopulationSize = 50
	DefaultGenerations    = 100
	DefaultCrossoverRate  = 0.8
	DefaultMutationRate   = 0.15
	DefaultElitismRate    = 0.1
)

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize: DefaultPopulationSize,
		Generations:    DefaultGenerations,
		CrossoverRate:  DefaultCrossoverRate,
		MutationRate:   DefaultMutationRate,
		ElitismRate:    DefaultElitismRate,
		Selection:      SelectionTournament,
	}
}

// ResolveParameters 把请求中的 ag_params 合并到默认值上
//
// 超出范围的参数回退到默认值，并以 ParameterOutOfRange 警告的形式返回，不会中断运行
func ResolveParameters(raw *domain.AGParams) (Parameters, []*domain.Error) {
	p := DefaultParameters()
	if raw == nil {
		return p, nil
	}

	var warnings []*domain.Error
	outOfRange := func(name string, value any, lo, hi any, def any) {
		warnings = append(warnings, domain.NewError(domain.ErrParameterOutOfRange,
			"参数 %s=%v 超出范围 [%v, %v]，使用默认值 %v", name, value, lo, hi, def))
	}

	if raw.PoblacionSize != nil {
		if v := *raw.PoblacionSize; v >= 20 && v <= 100 {
			p.PopulationSize = v
		} else {
			outOfRange("poblacion_size", v, 20, 100, DefaultPopulationSize)
		}
	}
	if raw.Generaciones != nil {
		if v := *raw.Generaciones; v >= 50 && v <= 300 {
			p.Generations = v
		} else {
			outOfRange("generaciones", v, 50, 300, DefaultGenerations)
		}
	}
	if raw.ProbCruza != nil {
		if v := *raw.ProbCruza; v >= 0.5 && v <= 1.0 {
			p.CrossoverRate = v
		} else {
			outOfRange("prob_cruza", v, 0.5, 1.0, DefaultCrossoverRate)
		}
	}
	if raw.ProbMutacion != nil {
		if v := *raw.ProbMutacion; v >= 0.05 && v <= 0.3 {
			p.MutationRate = v
		} else {
			outOfRange("prob_mutacion", v, 0.05, 0.3, DefaultMutationRate)
		}
	}
	if raw.ElitismoRate != nil {
		if v := *raw.ElitismoRate; v >= 0.05 && v <= 0.2 {
			p.ElitismRate = v
		} else {
			outOfRange("elitismo_rate", v, 0.05, 0.2, DefaultElitismRate)
		}
	}
	if raw.EstrategiaSeleccion != nil {
		switch s := SelectionStrategy(*raw.EstrategiaSeleccion); s {
		case SelectionTournament, SelectionRank:
			p.Selection = s
		default:
			warnings = append(warnings, domain.NewError(domain.ErrParameterOutOfRange,
				"未知的选择策略 %q，使用默认值 %s", s, SelectionTournament))
		}
	}

	return p, warnings
}

// EliteCount 返回每一代直接保留的精英数量 ⌊elitism_rate × pop_size⌋
func (p Parameters) EliteCount() int {
	n := int(p.ElitismRate*float64(p.PopulationSize) + 1e-9)
	return min(max(n, 0), p.PopulationSize)
}

func (p Parameters) ToDomain() domain.ResolvedParameters {
	return domain.ResolvedParameters{
		PoblacionSize:       p.PopulationSize,
		Generaciones:        p.Generations,
		ProbCruza:           p.CrossoverRate,
		ProbMutacion:        p.MutationRate,
		ElitismoRate:        p.ElitismRate,
		EstrategiaSeleccion: string(p.Selection),
	}
}

package allocator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

// TopK 是结果中返回的最优方案数量
const TopK = 3

// Report 把运行结果整理成对外的结果对象
func (a *Allocator) Report(out *Outcome) *domain.OptimizationResult {
	result := &domain.OptimizationResult{
		MejoresSoluciones: make([]domain.Solution, 0, TopK),
		EvolucionFitness:  make([]domain.GenerationRecord, 0, len(out.History)),
		Parametros:        a.params.ToDomain(),
		Semilla:           a.seed,
		Cancelado:         out.Cancelled,
		Advertencias:      a.warningMessages(),
	}

	for i, ch := range a.topK(out, TopK) {
		result.MejoresSoluciones = append(result.MejoresSoluciones, a.solution(i+1, ch))
	}

	for i, s := range result.MejoresSoluciones {
		m := &result.MetricasGlobales
		if i == 0 || s.Resumen.TiempoTotalHoras < m.MejorTiempo {
			m.MejorTiempo = s.Resumen.TiempoTotalHoras
		}
		if i == 0 || s.Resumen.DistanciaTotalKm < m.MejorDistancia {
			m.MejorDistancia = s.Resumen.DistanciaTotalKm
		}
		if i == 0 || s.Resumen.CombustibleTotalLitros < m.MejorCombustible {
			m.MejorCombustible = s.Resumen.CombustibleTotalLitros
		}
	}

	for _, h := range out.History {
		result.EvolucionFitness = append(result.EvolucionFitness, domain.GenerationRecord{
			Generacion: h.Generation,
			Mejor:      round(h.Best, 4),
			Promedio:   round(h.Average, 4),
			Peor:       round(h.Worst, 4),
		})
	}

	result.Convergencia = domain.Convergence{
		GeneracionesEjecutadas: out.Generations,
		MejoraPorcentual:       round(improvementPercent(out.History), 2),
		Estado:                 convergenceState(out.History),
	}

	return result
}

func (a *Allocator) warningMessages() []string {
	messages := make([]string, 0, len(a.warnings)+len(a.sc.Warnings))
	for _, w := range a.warnings {
		messages = append(messages, w.Message)
	}
	return append(messages, a.sc.Warnings...)
}

// topK 从历史最优和最后一代中去重后按适应度降序取前 k 个
func (a *Allocator) topK(out *Outcome, k int) []*Chromosome {
	candidates := make([]*Chromosome, 0, len(out.Population)+1)
	if out.Best != nil {
		candidates = append(candidates, out.Best)
	}
	candidates = append(candidates, out.Population...)

	seen := make(map[string]struct{})
	unique := make([]*Chromosome, 0, len(candidates))
	for _, ch := range candidates {
		fp := fingerprint(ch)
		if _, exists := seen[fp]; exists {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, ch)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Fitness > unique[j].Fitness
	})
	if len(unique) > k {
		unique = unique[:k]
	}
	return unique
}

func fingerprint(ch *Chromosome) string {
	var sb strings.Builder
	for _, g := range ch.Genes {
		fmt.Fprintf(&sb, "%d:%v;", g.AssignmentID, g.Supplies)
	}
	return sb.String()
}

func (a *Allocator) solution(position int, ch *Chromosome) domain.Solution {
	s := domain.Solution{
		Posicion:     position,
		Fitness:      round(ch.Fitness, 4),
		Asignaciones: make([]domain.AssignmentRecord, 0, len(ch.Genes)),
	}

	summary := &s.Resumen
	summary.TotalDestinos = a.sc.DestinationCount()
	covered := make(map[int]struct{})

	for _, g := range ch.Genes {
		record := a.assignmentRecord(g)
		s.Asignaciones = append(s.Asignaciones, record)

		if record.EstadoEntrega != domain.DeliverySuccessful {
			summary.EntregasFallidas++
			continue
		}
		summary.EntregasExitosas++
		summary.PesoTotalKg += record.PesoTotalKg
		summary.CombustibleTotalLitros += record.CombustibleLitros
		summary.DistanciaTotalKm += record.DistanciaKm
		summary.TiempoTotalHoras += record.TiempoHoras

		// 同一个目的地的受益人口只计算一次
		d := a.destinationOf(g)
		if _, exists := covered[d]; !exists {
			covered[d] = struct{}{}
			summary.PoblacionBeneficiada += a.sc.Destinations[d].Population
		}
	}

	summary.DestinosCubiertos = len(covered)
	if summary.TotalDestinos > 0 {
		summary.Cobertura = round(float64(len(covered))/float64(summary.TotalDestinos), 4)
	}
	summary.PesoTotalKg = round(summary.PesoTotalKg, 2)
	summary.CombustibleTotalLitros = round(summary.CombustibleTotalLitros, 2)
	summary.DistanciaTotalKm = round(summary.DistanciaTotalKm, 2)
	summary.TiempoTotalHoras = round(summary.TiempoTotalHoras, 2)

	return s
}

func (a *Allocator) assignmentRecord(g *Gene) domain.AssignmentRecord {
	vehicle := a.sc.Vehicles[g.VehicleIndex]
	route := a.sc.Route(g.AssignmentID)
	weight := a.weight(g)

	record := domain.AssignmentRecord{
		Vehiculo:          vehicle,
		Destino:           a.sc.Destinations[route.DestinationIndex],
		IDAsignacion:      g.AssignmentID,
		RutaIndice:        route.RouteIndex,
		DistanciaKm:       round(route.DistanceKm, 2),
		TiempoHoras:       round(route.DistanceKm/vehicle.SpeedKmh, 2),
		CombustibleLitros: round(route.DistanceKm*vehicle.FuelPerKm, 2),
		PesoTotalKg:       round(weight, 2),
		Utilizacion:       round(weight/vehicle.CapacityKg, 4),
		Insumos:           make([]domain.SupplyLine, 0),
		PorCategoria:      make([]domain.CategoryTotal, 0),
		EstadoEntrega:     domain.DeliverySuccessful,
	}

	if reason := a.failureReason(g); reason != "" {
		record.EstadoEntrega = domain.DeliveryFailed
		record.RazonFallo = reason
	}

	categoryIndex := make(map[string]int)
	for idx, q := range g.Supplies {
		if q <= 0 {
			continue
		}
		item := a.sc.Supplies[idx]
		w := float64(q) * item.UnitWeightKg

		record.Insumos = append(record.Insumos, domain.SupplyLine{
			IDInsumo:  item.ID,
			Nombre:    item.Name,
			Categoria: item.Category,
			Cantidad:  q,
			PesoKg:    round(w, 2),
		})

		ci, exists := categoryIndex[item.Category]
		if !exists {
			ci = len(record.PorCategoria)
			categoryIndex[item.Category] = ci
			record.PorCategoria = append(record.PorCategoria, domain.CategoryTotal{
				Categoria:     item.Category,
				Prioridad:     a.sc.Disaster.LevelOf(item.Category),
				PesoPrioridad: a.sc.PriorityWeights[idx],
			})
		}
		record.PorCategoria[ci].Cantidad += q
		record.PorCategoria[ci].PesoKg = round(record.PorCategoria[ci].PesoKg+w, 2)
	}

	return record
}

func round(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}

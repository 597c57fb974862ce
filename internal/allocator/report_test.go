package allocator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

func TestReportTopSolutionsSortedAndUnique(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))
	out, err := a.Run(context.Background())
	require.NoError(t, err)

	result := a.Report(out)
	require.NotEmpty(t, result.MejoresSoluciones)
	assert.LessOrEqual(t, len(result.MejoresSoluciones), TopK)

	for i, s := range result.MejoresSoluciones {
		assert.Equal(t, i+1, s.Posicion)
		if i > 0 {
			assert.GreaterOrEqual(t, result.MejoresSoluciones[i-1].Fitness, s.Fitness)
		}
		assert.Len(t, s.Asignaciones, a.sc.VehicleCount())
		assert.Equal(t, a.sc.DestinationCount(), s.Resumen.TotalDestinos)
		assert.Equal(t, a.sc.VehicleCount(), s.Resumen.EntregasExitosas+s.Resumen.EntregasFallidas)
	}
	assert.InDelta(t, out.Best.Fitness, result.MejoresSoluciones[0].Fitness, 1e-4)

	assert.Equal(t, a.Seed(), result.Semilla)
	assert.Equal(t, a.Parameters().ToDomain(), result.Parametros)
	assert.Len(t, result.EvolucionFitness, len(out.History))
}

func TestReportGlobalMetricsAreMinima(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))
	out, err := a.Run(context.Background())
	require.NoError(t, err)

	result := a.Report(out)
	for _, s := range result.MejoresSoluciones {
		assert.LessOrEqual(t, result.MetricasGlobales.MejorTiempo, s.Resumen.TiempoTotalHoras)
		assert.LessOrEqual(t, result.MetricasGlobales.MejorDistancia, s.Resumen.DistanciaTotalKm)
		assert.LessOrEqual(t, result.MetricasGlobales.MejorCombustible, s.Resumen.CombustibleTotalLitros)
	}
}

func TestAssignmentRecord(t *testing.T) {
	sc := mixedScenario(t)
	a := newAllocator(t, sc, WithParameters(fastParameters(50)))

	// 车辆 2 (camion, 3500 kg) 使用目的地 A 的第 0 条路线
	g := &Gene{VehicleIndex: 1, AssignmentID: 0, Supplies: make([]int, sc.SupplyCount())}
	g.Supplies[0] = 10 // Agua, 2 kg
	g.Supplies[5] = 4  // Agua, 7 kg
	g.Supplies[2] = 3  // Medicamentos, 4 kg

	record := a.assignmentRecord(g)
	assert.Equal(t, domain.DeliverySuccessful, record.EstadoEntrega)
	assert.Empty(t, record.RazonFallo)
	assert.Equal(t, "A", record.Destino.ID)
	assert.Equal(t, 0, record.RutaIndice)
	assert.Equal(t, 12.0, record.DistanciaKm)
	assert.Equal(t, 0.2, record.TiempoHoras)
	assert.InDelta(t, 12*0.12, record.CombustibleLitros, 1e-9)
	assert.Equal(t, 60.0, record.PesoTotalKg)
	require.Len(t, record.Insumos, 3)

	require.Len(t, record.PorCategoria, 2)
	assert.Equal(t, "Agua", record.PorCategoria[0].Categoria)
	assert.Equal(t, 14, record.PorCategoria[0].Cantidad)
	assert.Equal(t, 48.0, record.PorCategoria[0].PesoKg)
	assert.Equal(t, domain.PriorityHigh, record.PorCategoria[0].Prioridad)
	assert.Equal(t, 3, record.PorCategoria[0].PesoPrioridad)
	assert.Equal(t, "Medicamentos", record.PorCategoria[1].Categoria)
	assert.Equal(t, domain.PriorityMedium, record.PorCategoria[1].Prioridad)
	assert.Equal(t, 2, record.PorCategoria[1].PesoPrioridad)

	// 目的地 A 的第 1 条路线已关闭
	g.AssignmentID = 1
	record = a.assignmentRecord(g)
	assert.Equal(t, domain.DeliveryFailed, record.EstadoEntrega)
	assert.Contains(t, record.RazonFallo, "derrumbe")

	// 目的地 C 的第 0 条路线不允许 camion
	g.AssignmentID = 4
	record = a.assignmentRecord(g)
	assert.Equal(t, domain.DeliveryFailed, record.EstadoEntrega)
	assert.Contains(t, record.RazonFallo, "camion")
}

func TestSolutionCountsBeneficiariesOnce(t *testing.T) {
	sc := mixedScenario(t)
	a := newAllocator(t, sc, WithParameters(fastParameters(50)))

	ch := a.newChromosome()
	// 所有车辆都前往目的地 E (人口 2000)，路线 E-ruta-0 对所有车型开放
	for _, g := range ch.Genes {
		g.Supplies = make([]int, sc.SupplyCount())
		g.Supplies[1] = 5
		g.AssignmentID = 8
	}

	s := a.solution(1, ch)
	assert.Equal(t, 2000, s.Resumen.PoblacionBeneficiada)
	assert.Equal(t, 1, s.Resumen.DestinosCubiertos)
	assert.Equal(t, 0.2, s.Resumen.Cobertura)
	assert.Equal(t, 4, s.Resumen.EntregasExitosas)
}

func TestTopKDeduplicates(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))

	pop := a.initialPopulation(5)
	require.NoError(t, a.evaluatePopulation(pop))
	best := byFitness(pop)[0]

	out := &Outcome{
		Best:       best.Clone(),
		Population: []*Chromosome{best, best.Clone(), pop[0], pop[1]},
	}
	top := a.topK(out, TopK)
	seen := make(map[string]struct{})
	for _, ch := range top {
		fp := fingerprint(ch)
		_, dup := seen[fp]
		assert.False(t, dup)
		seen[fp] = struct{}{}
	}
	assert.Equal(t, best.Fitness, top[0].Fitness)
}

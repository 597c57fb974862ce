package allocator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/scenario"
)

func ptr[T any](v T) *T {
	return &v
}

// reliefItems 生成 n 种物资，按顺序轮流分配到 categories 中的类别
func reliefItems(n int, weight func(i int) float64, categories ...string) []domain.SupplyItem {
	items := make([]domain.SupplyItem, n)
	for i := range items {
		items[i] = domain.SupplyItem{
			ID:           i,
			Name:         fmt.Sprintf("物资-%d", i),
			Category:     categories[i%len(categories)],
			UnitWeightKg: weight(i),
		}
	}
	return items
}

func flatWeight(w float64) func(int) float64 {
	return func(int) float64 { return w }
}

func disaster(name string, levels map[string]domain.PriorityLevel) domain.Disaster {
	d := domain.Disaster{Type: name}
	for category, level := range levels {
		d.Priorities = append(d.Priorities, domain.CategoryPriority{Category: category, Level: level})
	}
	return d
}

func newCatalog(t *testing.T, items []domain.SupplyItem, disasters ...domain.Disaster) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(items, disasters)
	require.NoError(t, err)
	return cat
}

// standardCatalog: 25 种物资，平均单位重量约 6 kg，洪水灾害下 Agua 和 Medicamentos 为优先
func standardCatalog(t *testing.T) *catalog.Catalog {
	items := reliefItems(25, func(i int) float64 { return float64(2 + i%9) }, "Agua", "Alimentos", "Medicamentos", "Higiene", "Abrigo")
	return newCatalog(t, items, disaster("inundacion", map[string]domain.PriorityLevel{
		"Agua":         domain.PriorityHigh,
		"Medicamentos": domain.PriorityMedium,
		"Abrigo":       domain.PriorityLow,
	}))
}

type destinationFixture struct {
	id         string
	population int
	routesKm   []float64
}

func vehicle(id int, vehicleType string, capacityKg float64) domain.VehicleInput {
	return domain.VehicleInput{
		ID:              id,
		Modelo:          fmt.Sprintf("modelo-%d", id),
		Tipo:            vehicleType,
		VelocidadKmh:    ptr(60.0),
		ConsumoLitrosKm: ptr(0.12),
		CapacidadKg:     ptr(capacityKg),
	}
}

func scenarioInput(disasterType string, vehicles []domain.VehicleInput, destinations []destinationFixture, states []map[string]domain.RouteStateInput) *domain.ScenarioInput {
	mapData := &domain.MapData{}
	for _, d := range destinations {
		entry := domain.DestinationRoutes{
			Destino: domain.DestinationInput{
				ClaveLocalidad: d.id,
				Nombre:         "localidad " + d.id,
				Poblacion:      d.population,
			},
		}
		for _, km := range d.routesKm {
			entry.Rutas = append(entry.Rutas, domain.RouteInput{Distancia: domain.Measure{Value: km * 1000}})
		}
		mapData.RutasData = append(mapData.RutasData, entry)
	}

	return &domain.ScenarioInput{
		MapData: mapData,
		ScenarioConfig: &domain.ScenarioConfig{
			TipoDesastre:         disasterType,
			VehiculosDisponibles: vehicles,
			RutasEstado:          states,
		},
	}
}

func loadScenario(t *testing.T, input *domain.ScenarioInput, cat *catalog.Catalog) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Load(input, cat)
	require.NoError(t, err)
	return sc
}

func fastParameters(generations int) Parameters {
	p := DefaultParameters()
	p.PopulationSize = 20
	p.Generations = generations
	return p
}

func newAllocator(t *testing.T, sc *scenario.Scenario, opts ...Option) *Allocator {
	t.Helper()
	a, err := New(sc, append([]Option{WithSeed(42), WithParallelism(4)}, opts...)...)
	require.NoError(t, err)
	return a
}

// mixedScenario: 4 辆车、5 个目的地，每个目的地有两条路线
func mixedScenario(t *testing.T) *scenario.Scenario {
	vehicles := []domain.VehicleInput{
		vehicle(1, "camioneta", 800),
		vehicle(2, "camion", 3500),
		vehicle(3, "camion", 1500),
		vehicle(4, "pickup", 1000),
	}
	destinations := []destinationFixture{
		{id: "A", population: 1200, routesKm: []float64{12, 18}},
		{id: "B", population: 300, routesKm: []float64{25, 30}},
		{id: "C", population: 800, routesKm: []float64{8, 40}},
		{id: "D", population: 150, routesKm: []float64{55, 60}},
		{id: "E", population: 2000, routesKm: []float64{20, 22}},
	}
	states := []map[string]domain.RouteStateInput{
		{"A-ruta-1": {Estado: "cerrada", RazonBloqueo: "derrumbe"}},
		{"C-ruta-0": {Estado: "abierta", VehiculosPermitidos: []string{"pickup", "camioneta"}}},
	}
	return loadScenario(t, scenarioInput("inundacion", vehicles, destinations, states), standardCatalog(t))
}

package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]domain.SupplyItem{
			{ID: 0, Name: "agua", Category: "Agua", UnitWeightKg: 9},
			{ID: 1, Name: "arroz", Category: "Alimentos", UnitWeightKg: 5},
			{ID: 2, Name: "cobija", Category: "Abrigo", UnitWeightKg: 1.5},
		},
		[]domain.Disaster{
			{Type: "inundacion", Priorities: []domain.CategoryPriority{
				{Category: "Agua", Level: domain.PriorityHigh},
				{Category: "Alimentos", Level: domain.PriorityMedium},
				{Category: "Abrigo", Level: domain.PriorityLow},
			}},
		},
	)
	require.NoError(t, err)
	return cat
}

func baseInput() *domain.ScenarioInput {
	return &domain.ScenarioInput{
		MapData: &domain.MapData{
			RutasData: []domain.DestinationRoutes{
				{
					Destino: domain.DestinationInput{ClaveLocalidad: "A01", Nombre: "Alvarado", Poblacion: 900},
					Rutas:   []domain.RouteInput{{Distancia: domain.Measure{Value: 12000}}, {Distancia: domain.Measure{Value: 15500}}},
				},
				{
					Destino: domain.DestinationInput{ClaveLocalidad: "B02", Poblacion: 300},
					Rutas:   []domain.RouteInput{{Distancia: domain.Measure{Value: 8000}}},
				},
			},
		},
		ScenarioConfig: &domain.ScenarioConfig{
			TipoDesastre: "Inundacion",
			VehiculosDisponibles: []domain.VehicleInput{
				{ID: 10, Modelo: "Ranger", Tipo: "Pickup", MaximoPesoTon: ptr(1.5)},
				{ID: 11, Modelo: "Hino", Tipo: "camion", CapacidadKg: ptr(3000.0), VelocidadKmh: ptr(45.0), ConsumoLitrosKm: ptr(0.3)},
				{ID: 12, Modelo: "Desconocido", Tipo: "camion"},
			},
		},
	}
}

func TestLoad(t *testing.T) {
	sc, err := Load(baseInput(), testCatalog(t))
	require.NoError(t, err)

	require.Equal(t, 3, sc.VehicleCount())
	assert.Equal(t, 1500.0, sc.Vehicles[0].CapacityKg)
	assert.Equal(t, DefaultSpeedKmh, sc.Vehicles[0].SpeedKmh)
	assert.Equal(t, DefaultFuelPerKm, sc.Vehicles[0].FuelPerKm)
	assert.Equal(t, 3000.0, sc.Vehicles[1].CapacityKg)
	assert.Equal(t, 45.0, sc.Vehicles[1].SpeedKmh)
	assert.Equal(t, DefaultCapacityKg, sc.Vehicles[2].CapacityKg)

	require.Equal(t, 2, sc.DestinationCount())
	assert.Equal(t, "B02", sc.Destinations[1].Name)

	require.Len(t, sc.Routes, 3)
	for i, r := range sc.Routes {
		assert.Equal(t, i, r.AssignmentID)
		assert.True(t, r.State.Open())
	}
	assert.Equal(t, 12.0, sc.Routes[0].DistanceKm)
	assert.Equal(t, 1, sc.Routes[1].RouteIndex)
	assert.Equal(t, 1, sc.DestinationOf(2))
	assert.Equal(t, []int{0, 1}, sc.RoutesTo(0))

	assert.Equal(t, []int{0, 1}, sc.PriorityItems)
	assert.Equal(t, []bool{true, true, false}, sc.Priority)
	assert.Equal(t, []int{3, 2, 1}, sc.PriorityWeights)
	assert.Equal(t, 3, sc.SupplyCount())

	for v := range sc.Vehicles {
		assert.Equal(t, []int{0, 1, 2}, sc.CompatibleRoutes(v))
	}
	assert.Empty(t, sc.Warnings)
}

func TestLoadRouteStates(t *testing.T) {
	input := baseInput()
	input.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{
		{"A01-ruta-0": {Estado: "abierta", VehiculosPermitidos: []string{"PICKUP"}}},
		{"Destino1-Ruta2": {Estado: "cerrada", RazonBloqueo: "deslave"}},
	}

	sc, err := Load(input, testCatalog(t))
	require.NoError(t, err)

	assert.True(t, sc.Routes[0].State.Allows("pickup"))
	assert.False(t, sc.Routes[0].State.Allows("camion"))
	assert.Equal(t, []string{"pickup"}, sc.Routes[0].State.AllowedTypes())

	assert.False(t, sc.Routes[1].State.Open())
	assert.Equal(t, "deslave", sc.Routes[1].State.Reason)

	// B02 没有状态记录，对整个车队开放
	assert.True(t, sc.Routes[2].State.Open())
	assert.Equal(t, []string{"camion", "pickup"}, sc.Routes[2].State.AllowedTypes())

	assert.Equal(t, []int{0, 2}, sc.CompatibleRoutes(0))
	assert.Equal(t, []int{2}, sc.CompatibleRoutes(1))
	assert.True(t, sc.Compatible(0, 0))
	assert.False(t, sc.Compatible(1, 0))
	assert.False(t, sc.Compatible(1, 1))
}

func TestLoadWarnsWhenNothingIsCompatible(t *testing.T) {
	input := baseInput()
	input.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{
		{"A01-ruta-0": {Estado: "cerrada"}},
		{"A01-ruta-1": {Estado: "abierta", VehiculosPermitidos: []string{"lancha"}}},
		{"B02-ruta-0": {Estado: "closed"}},
	}

	sc, err := Load(input, testCatalog(t))
	require.NoError(t, err)
	for v := range sc.Vehicles {
		assert.Empty(t, sc.CompatibleRoutes(v))
	}
	assert.Len(t, sc.Warnings, 4)
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *domain.ScenarioInput)
		kind   domain.ErrorKind
	}{
		{"missing map_data", func(in *domain.ScenarioInput) { in.MapData = nil }, domain.ErrInvalidScenario},
		{"missing scenario_config", func(in *domain.ScenarioInput) { in.ScenarioConfig = nil }, domain.ErrInvalidScenario},
		{"empty fleet", func(in *domain.ScenarioInput) { in.ScenarioConfig.VehiculosDisponibles = nil }, domain.ErrInvalidScenario},
		{"empty routes", func(in *domain.ScenarioInput) { in.MapData.RutasData = nil }, domain.ErrInvalidScenario},
		{"missing disaster", func(in *domain.ScenarioInput) { in.ScenarioConfig.TipoDesastre = "  " }, domain.ErrInvalidScenario},
		{"unknown disaster", func(in *domain.ScenarioInput) { in.ScenarioConfig.TipoDesastre = "volcan" }, domain.ErrUnknownDisaster},
		{"vehicle without type", func(in *domain.ScenarioInput) { in.ScenarioConfig.VehiculosDisponibles[0].Tipo = "" }, domain.ErrInvalidScenario},
		{"duplicate vehicle", func(in *domain.ScenarioInput) { in.ScenarioConfig.VehiculosDisponibles[1].ID = 10 }, domain.ErrInvalidScenario},
		{"duplicate destination", func(in *domain.ScenarioInput) { in.MapData.RutasData[1].Destino.ClaveLocalidad = "A01" }, domain.ErrInvalidScenario},
		{"negative population", func(in *domain.ScenarioInput) { in.MapData.RutasData[0].Destino.Poblacion = -1 }, domain.ErrInvalidScenario},
		{"destination without routes", func(in *domain.ScenarioInput) { in.MapData.RutasData[1].Rutas = nil }, domain.ErrInvalidScenario},
		{"zero distance", func(in *domain.ScenarioInput) { in.MapData.RutasData[1].Rutas[0].Distancia.Value = 0 }, domain.ErrInvalidScenario},
		{"unknown route key", func(in *domain.ScenarioInput) {
			in.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{{"ruta-A01": {}}}
		}, domain.ErrInvalidScenario},
		{"route index out of range", func(in *domain.ScenarioInput) {
			in.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{{"B02-ruta-1": {}}}
		}, domain.ErrInvalidScenario},
		{"legacy key out of range", func(in *domain.ScenarioInput) {
			in.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{{"Destino3-Ruta1": {}}}
		}, domain.ErrInvalidScenario},
		{"conflicting key formats", func(in *domain.ScenarioInput) {
			in.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{
				{"A01-ruta-0": {Estado: "abierta"}},
				{"Destino1-Ruta1": {Estado: "cerrada"}},
			}
		}, domain.ErrInvalidScenario},
		{"unknown status", func(in *domain.ScenarioInput) {
			in.ScenarioConfig.RutasEstado = []map[string]domain.RouteStateInput{{"A01-ruta-0": {Estado: "intermitente"}}}
		}, domain.ErrInvalidScenario},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			tt.mutate(input)
			_, err := Load(input, testCatalog(t))
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestLoadWithoutCatalog(t *testing.T) {
	_, err := Load(baseInput(), nil)
	assert.Equal(t, domain.ErrCatalogLoad, domain.KindOf(err))
}

func TestNormalizeRouteKey(t *testing.T) {
	destinations := []domain.Destination{{ID: "A01"}, {ID: "B02"}}

	tests := map[string]string{
		"A01-ruta-0":      "A01-ruta-0",
		" B02-ruta-3 ":    "B02-ruta-3",
		"Destino1-Ruta1":  "A01-ruta-0",
		"Destino2-Ruta3":  "B02-ruta-2",
		"x-ruta-y-ruta-2": "x-ruta-y-ruta-2",
	}
	for raw, want := range tests {
		got, err := normalizeRouteKey(raw, destinations)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []string{"Destino0-Ruta1", "Destino1-Ruta0", "A01", "A01-ruta-", ""} {
		_, err := normalizeRouteKey(raw, destinations)
		assert.Error(t, err, raw)
	}
}

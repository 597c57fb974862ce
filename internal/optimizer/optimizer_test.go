package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/allocator"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.FileSource{
		SuppliesPath:  "../../data/insumos.yaml",
		DisastersPath: "../../data/desastres.yaml",
	}.Load(context.Background())
	require.NoError(t, err)
	return cat
}

func demoInput() *domain.ScenarioInput {
	return &domain.ScenarioInput{
		MapData: &domain.MapData{
			RutasData: []domain.DestinationRoutes{
				{
					Destino: domain.DestinationInput{ClaveLocalidad: "301450001", Nombre: "Tlacotalpan", Poblacion: 1800},
					Rutas:   []domain.RouteInput{{Distancia: domain.Measure{Value: 24500}}, {Distancia: domain.Measure{Value: 31200}}},
				},
				{
					Destino: domain.DestinationInput{ClaveLocalidad: "301450012", Nombre: "Chacaltianguis", Poblacion: 650},
					Rutas:   []domain.RouteInput{{Distancia: domain.Measure{Value: 12800}}},
				},
				{
					Destino: domain.DestinationInput{ClaveLocalidad: "301450020", Nombre: "Amatitlán", Poblacion: 320},
					Rutas:   []domain.RouteInput{{Distancia: domain.Measure{Value: 40100}}},
				},
			},
		},
		ScenarioConfig: &domain.ScenarioConfig{
			TipoDesastre: "inundacion",
			VehiculosDisponibles: []domain.VehicleInput{
				{ID: 1, Modelo: "NP300", Tipo: "pickup", MaximoPesoTon: ptr(1.2)},
				{ID: 2, Modelo: "Hino 500", Tipo: "camion", CapacidadKg: ptr(3500.0), VelocidadKmh: ptr(50.0)},
			},
			RutasEstado: []map[string]domain.RouteStateInput{
				{"Destino1-Ruta2": {Estado: "cerrada", RazonBloqueo: "puente colapsado"}},
			},
			AGParams: &domain.AGParams{
				PoblacionSize: ptr(20),
				Generaciones:  ptr(50),
				ProbMutacion:  ptr(0.9),
			},
		},
	}
}

func TestOptimize(t *testing.T) {
	svc := New(loadCatalog(t), Options{Parallelism: 2})

	result, err := svc.Optimize(context.Background(), demoInput(), 99, OriginCLI)
	require.NoError(t, err)

	assert.Equal(t, int64(99), result.Semilla)
	assert.Equal(t, 20, result.Parametros.PoblacionSize)
	assert.Equal(t, 50, result.Parametros.Generaciones)
	assert.Equal(t, allocator.DefaultMutationRate, result.Parametros.ProbMutacion)
	assert.Len(t, result.Advertencias, 1)
	assert.Len(t, result.EvolucionFitness, 50)
	assert.False(t, result.Cancelado)

	require.NotEmpty(t, result.MejoresSoluciones)
	best := result.MejoresSoluciones[0]
	assert.Greater(t, best.Fitness, 0.0)
	assert.Len(t, best.Asignaciones, 2)
	for _, record := range best.Asignaciones {
		assert.LessOrEqual(t, record.PesoTotalKg, record.Vehiculo.CapacityKg)
	}
}

func TestOptimizeIsReproducible(t *testing.T) {
	svc := New(loadCatalog(t), Options{Parallelism: 4})

	first, err := svc.Optimize(context.Background(), demoInput(), 7, OriginCLI)
	require.NoError(t, err)
	second, err := svc.Optimize(context.Background(), demoInput(), 7, OriginCLI)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOptimizeRejectsInvalidScenario(t *testing.T) {
	svc := New(loadCatalog(t), Options{})

	input := demoInput()
	input.ScenarioConfig.VehiculosDisponibles = nil
	_, err := svc.Optimize(context.Background(), input, 1, OriginCLI)
	assert.Equal(t, domain.ErrInvalidScenario, domain.KindOf(err))

	input = demoInput()
	input.ScenarioConfig.TipoDesastre = "meteorito"
	_, err = svc.Optimize(context.Background(), input, 1, OriginCLI)
	assert.Equal(t, domain.ErrUnknownDisaster, domain.KindOf(err))
	assert.True(t, domain.IsInputError(err))
}

func TestOptimizeCancelledContext(t *testing.T) {
	svc := New(loadCatalog(t), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Optimize(ctx, demoInput(), 1, OriginCLI)
	assert.ErrorIs(t, err, context.Canceled)
}

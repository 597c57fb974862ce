package seed

import (
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

var localityNames = []string{
	"Tlacotalpan", "Chacaltianguis", "Amatitlán", "Cosamaloapan", "Otatitlán",
	"Tlalixcoyan", "Alvarado", "Ignacio de la Llave", "Carlos A. Carrillo", "Tuxtilla",
	"Acula", "Ixmatlahuacan", "Lerdo de Tejada", "Saltabarranca", "Tierra Blanca",
}

var localitySuffixes = []string{"Centro", "Norte", "Sur", "La Loma", "El Paso", "San José"}

type vehicleTemplate struct {
	modelo    string
	tipo      string
	capacidad float64
	velocidad float64
	consumo   float64
}

var vehicleTemplates = []vehicleTemplate{
	{"NP300", "pickup", 1000, 70, 0.11},
	{"Transit", "camioneta", 800, 75, 0.10},
	{"Hino 300", "camion", 1500, 60, 0.18},
	{"Hino 500", "camion", 3500, 50, 0.28},
	{"Unimog", "todoterreno", 2000, 45, 0.25},
}

var blockReasons = []string{"derrumbe", "puente colapsado", "inundación", "deslave", "árboles caídos"}

func generateLocalityName(rng *rand.Rand) string {
	name := localityNames[rng.Intn(len(localityNames))]
	if rng.Intn(2) == 0 {
		return name
	}
	return name + " " + localitySuffixes[rng.Intn(len(localitySuffixes))]
}

// 使用 Fisher-Yates 洗牌算法来生成一个非空随机子集
func generateRandomSubset(rng *rand.Rand, arr []string) []string {
	arrCopy := append([]string{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rng.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rng.Intn(len(arrCopy)) + 1
	return arrCopy[:l]
}

func generateVehicles(rng *rand.Rand) []domain.VehicleInput {
	n := rng.Intn(4) + 2
	vehicles := make([]domain.VehicleInput, n)

	for i := range vehicles {
		t := vehicleTemplates[rng.Intn(len(vehicleTemplates))]
		capacidad := t.capacidad
		velocidad := t.velocidad
		consumo := t.consumo
		vehicles[i] = domain.VehicleInput{
			ID:              i + 1,
			Modelo:          t.modelo,
			Tipo:            t.tipo,
			VelocidadKmh:    &velocidad,
			ConsumoLitrosKm: &consumo,
			CapacidadKg:     &capacidad,
		}
	}

	return vehicles
}

// GenerateRandomScenario 生成包含 n 个目的地的演示场景，相同的 rng 种子生成相同的场景
func GenerateRandomScenario(rng *rand.Rand, n int, disasterTypes []string) *domain.ScenarioInput {
	vehicles := generateVehicles(rng)
	fleetTypes := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		fleetTypes = append(fleetTypes, v.Tipo)
	}

	rutasData := make([]domain.DestinationRoutes, n)
	rutasEstado := make([]map[string]domain.RouteStateInput, 0)
	used := make(map[string]struct{}, n)

	for i := range rutasData {
		clave := fmt.Sprintf("30%07d", rng.Intn(10_000_000))
		for {
			if _, exists := used[clave]; !exists {
				break
			}
			clave = fmt.Sprintf("30%07d", rng.Intn(10_000_000))
		}
		used[clave] = struct{}{}

		routes := make([]domain.RouteInput, rng.Intn(3)+1)
		for r := range routes {
			meters := float64(5_000 + rng.Intn(75_000))
			seconds := meters / 1000 / 50 * 3600
			routes[r] = domain.RouteInput{
				Distancia: domain.Measure{Value: meters, Text: fmt.Sprintf("%.1f km", meters/1000)},
				Duracion:  &domain.Measure{Value: seconds, Text: fmt.Sprintf("%.0f min", seconds/60)},
			}

			key := fmt.Sprintf("%s-ruta-%d", clave, r)
			switch p := rng.Float64(); {
			case p < 0.15:
				rutasEstado = append(rutasEstado, map[string]domain.RouteStateInput{
					key: {Estado: "cerrada", RazonBloqueo: blockReasons[rng.Intn(len(blockReasons))]},
				})
			case p < 0.35:
				rutasEstado = append(rutasEstado, map[string]domain.RouteStateInput{
					key: {Estado: "abierta", VehiculosPermitidos: generateRandomSubset(rng, fleetTypes)},
				})
			}
		}

		rutasData[i] = domain.DestinationRoutes{
			Destino: domain.DestinationInput{
				ClaveLocalidad: clave,
				Nombre:         generateLocalityName(rng),
				Poblacion:      50 + rng.Intn(4950),
				Latitud:        18 + rng.Float64()*2,
				Longitud:       -97 + rng.Float64()*2,
			},
			Rutas: routes,
		}
	}

	poblacion := 40
	generaciones := 60
	return &domain.ScenarioInput{
		MapData: &domain.MapData{RutasData: rutasData},
		ScenarioConfig: &domain.ScenarioConfig{
			TipoDesastre:         disasterTypes[rng.Intn(len(disasterTypes))],
			VehiculosDisponibles: vehicles,
			RutasEstado:          rutasEstado,
			AGParams: &domain.AGParams{
				PoblacionSize: &poblacion,
				Generaciones:  &generaciones,
			},
		},
	}
}

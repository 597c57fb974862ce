package scenario

import (
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

const (
	DefaultCapacityKg = 1000.0
	DefaultSpeedKmh   = 60.0
	DefaultFuelPerKm  = 0.15
)

// Scenario 是校验并建立索引之后的场景，运行期间只读，可以被多个 goroutine 共享
type Scenario struct {
	Vehicles     []domain.Vehicle
	Destinations []domain.Destination
	Routes       []RouteInstance // 分配目录，下标即 assignment id
	Supplies     []domain.SupplyItem
	Disaster     domain.Disaster

	Priority        []bool // 按物资下标，是否属于当前灾害的优先集合
	PriorityItems   []int
	PriorityWeights []int

	Params   *domain.AGParams
	Warnings []string

	byDestination [][]int
	compatible    [][]int // 按车辆下标，开放且允许该车型通行的 assignment id
}

func invalid(format string, args ...any) error {
	return domain.NewError(domain.ErrInvalidScenario, format, args...)
}

// Load 校验原始输入并构建场景索引
func Load(input *domain.ScenarioInput, cat *catalog.Catalog) (*Scenario, error) {
	if input == nil {
		return nil, invalid("场景为空")
	}
	if input.MapData == nil {
		return nil, invalid("缺少 map_data")
	}
	if input.ScenarioConfig == nil {
		return nil, invalid("缺少 scenario_config")
	}
	if len(input.ScenarioConfig.VehiculosDisponibles) == 0 {
		return nil, invalid("vehiculos_disponibles 不能为空")
	}
	if len(input.MapData.RutasData) == 0 {
		return nil, invalid("rutas_data 不能为空")
	}
	if strings.TrimSpace(input.ScenarioConfig.TipoDesastre) == "" {
		return nil, invalid("缺少 tipo_desastre")
	}
	if cat == nil {
		return nil, domain.NewError(domain.ErrCatalogLoad, "物资目录未加载")
	}

	disaster, err := cat.Disaster(input.ScenarioConfig.TipoDesastre)
	if err != nil {
		return nil, err
	}

	sc := &Scenario{
		Supplies: cat.Items,
		Disaster: *disaster,
		Params:   input.ScenarioConfig.AGParams,
	}

	// 车队
	fleetTypes := make(map[string]struct{})
	seenVehicles := make(map[int]struct{})
	for i, v := range input.ScenarioConfig.VehiculosDisponibles {
		vehicle, err := normalizeVehicle(v)
		if err != nil {
			return nil, invalid("第 %d 辆车: %v", i+1, err)
		}
		if _, exists := seenVehicles[vehicle.ID]; exists {
			return nil, invalid("车辆 id %d 重复", vehicle.ID)
		}
		seenVehicles[vehicle.ID] = struct{}{}
		fleetTypes[normalizeVehicleType(vehicle.Type)] = struct{}{}
		sc.Vehicles = append(sc.Vehicles, vehicle)
	}

	// 目的地
	routeCounts := make(map[string]int)
	for i, entry := range input.MapData.RutasData {
		dest := entry.Destino
		dest.ClaveLocalidad = strings.TrimSpace(dest.ClaveLocalidad)
		if dest.ClaveLocalidad == "" {
			return nil, invalid("第 %d 个目的地缺少 clave_localidad", i+1)
		}
		if _, exists := routeCounts[dest.ClaveLocalidad]; exists {
			return nil, invalid("目的地 %q 重复", dest.ClaveLocalidad)
		}
		if dest.Poblacion < 0 {
			return nil, invalid("目的地 %q 的人口不能为负数", dest.ClaveLocalidad)
		}
		if len(entry.Rutas) == 0 {
			return nil, invalid("目的地 %q 没有任何路线", dest.ClaveLocalidad)
		}
		routeCounts[dest.ClaveLocalidad] = len(entry.Rutas)

		name := dest.Nombre
		if name == "" {
			name = dest.ClaveLocalidad
		}
		sc.Destinations = append(sc.Destinations, domain.Destination{
			ID:         dest.ClaveLocalidad,
			Name:       name,
			Population: dest.Poblacion,
			Latitude:   dest.Latitud,
			Longitude:  dest.Longitud,
		})
	}

	states, err := buildRouteStates(input.ScenarioConfig.RutasEstado, sc.Destinations, routeCounts, fleetTypes)
	if err != nil {
		return nil, invalid("%v", err)
	}

	// 按输入顺序展开 (目的地, 路线) 得到分配目录
	sc.byDestination = make([][]int, len(sc.Destinations))
	for d, entry := range input.MapData.RutasData {
		for r, route := range entry.Rutas {
			if route.Distancia.Value <= 0 {
				return nil, invalid("目的地 %q 的第 %d 条路线距离必须大于 0", sc.Destinations[d].ID, r)
			}

			key := RouteKey(sc.Destinations[d].ID, r)
			state, ok := states[key]
			if !ok {
				state = defaultRouteState(fleetTypes)
			}

			id := len(sc.Routes)
			sc.Routes = append(sc.Routes, RouteInstance{
				AssignmentID:     id,
				DestinationIndex: d,
				DestinationID:    sc.Destinations[d].ID,
				RouteIndex:       r,
				DistanceKm:       route.Distancia.Value / 1000,
				State:            state,
			})
			sc.byDestination[d] = append(sc.byDestination[d], id)
		}
	}

	// 物资优先级
	priorityItems, err := cat.PrioritySet(disaster.Type)
	if err != nil {
		return nil, err
	}
	weights, err := cat.PriorityWeights(disaster.Type)
	if err != nil {
		return nil, err
	}
	sc.PriorityItems = priorityItems
	sc.PriorityWeights = weights
	sc.Priority = make([]bool, len(sc.Supplies))
	for _, idx := range priorityItems {
		sc.Priority[idx] = true
	}

	// 每辆车可以使用的路线
	sc.compatible = make([][]int, len(sc.Vehicles))
	anyCompatible := false
	for v, vehicle := range sc.Vehicles {
		for _, route := range sc.Routes {
			if route.State.Open() && route.State.Allows(vehicle.Type) {
				sc.compatible[v] = append(sc.compatible[v], route.AssignmentID)
			}
		}
		if len(sc.compatible[v]) == 0 {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("车辆 %d (%s) 没有任何可通行的路线", vehicle.ID, vehicle.Type))
		} else {
			anyCompatible = true
		}
	}
	if !anyCompatible {
		sc.Warnings = append(sc.Warnings, "没有任何车辆与开放路线兼容，所有配送都将失败")
	}

	return sc, nil
}

func normalizeVehicle(v domain.VehicleInput) (domain.Vehicle, error) {
	if strings.TrimSpace(v.Tipo) == "" {
		return domain.Vehicle{}, fmt.Errorf("车辆 %d 缺少 tipo", v.ID)
	}

	capacity := DefaultCapacityKg
	switch {
	case v.CapacidadKg != nil && *v.CapacidadKg > 0:
		capacity = *v.CapacidadKg
	case v.MaximoPesoTon != nil && *v.MaximoPesoTon > 0:
		capacity = *v.MaximoPesoTon * 1000
	}

	speed := DefaultSpeedKmh
	if v.VelocidadKmh != nil && *v.VelocidadKmh > 0 {
		speed = *v.VelocidadKmh
	}

	fuel := DefaultFuelPerKm
	if v.ConsumoLitrosKm != nil && *v.ConsumoLitrosKm >= 0 {
		fuel = *v.ConsumoLitrosKm
	}

	return domain.Vehicle{
		ID:         v.ID,
		Model:      v.Modelo,
		Type:       strings.TrimSpace(v.Tipo),
		SpeedKmh:   speed,
		FuelPerKm:  fuel,
		CapacityKg: capacity,
	}, nil
}

func (s *Scenario) VehicleCount() int {
	return len(s.Vehicles)
}

func (s *Scenario) DestinationCount() int {
	return len(s.Destinations)
}

func (s *Scenario) SupplyCount() int {
	return len(s.Supplies)
}

func (s *Scenario) Route(assignmentID int) *RouteInstance {
	return &s.Routes[assignmentID]
}

// DestinationOf 返回 assignment id 对应的目的地下标
func (s *Scenario) DestinationOf(assignmentID int) int {
	return s.Routes[assignmentID].DestinationIndex
}

func (s *Scenario) RoutesTo(destinationIndex int) []int {
	return s.byDestination[destinationIndex]
}

// CompatibleRoutes 返回车辆可以使用的 assignment id（路线开放且允许该车型）
func (s *Scenario) CompatibleRoutes(vehicleIndex int) []int {
	return s.compatible[vehicleIndex]
}

func (s *Scenario) Compatible(vehicleIndex, assignmentID int) bool {
	route := s.Routes[assignmentID]
	return route.State.Open() && route.State.Allows(s.Vehicles[vehicleIndex].Type)
}

package scenario

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

// RouteState 描述一条备选路线当前是否可通行以及允许通行的车辆类型
type RouteState struct {
	Status  domain.RouteStatus
	Allowed map[string]struct{}
	Reason  string
}

func (s RouteState) Open() bool {
	return s.Status == domain.RouteOpen
}

func (s RouteState) Allows(vehicleType string) bool {
	_, ok := s.Allowed[normalizeVehicleType(vehicleType)]
	return ok
}

// AllowedTypes 返回允许通行的车辆类型（已排序）
func (s RouteState) AllowedTypes() []string {
	types := make([]string, 0, len(s.Allowed))
	for t := range s.Allowed {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// RouteInstance 是分配目录中的一项：某个目的地的某条备选路线
type RouteInstance struct {
	AssignmentID     int
	DestinationIndex int
	DestinationID    string
	RouteIndex       int
	DistanceKm       float64
	State            RouteState
}

// RouteKey 返回路线状态的规范键 "<clave_localidad>-ruta-<idx>"，idx 从 0 开始
func RouteKey(destinationID string, routeIndex int) string {
	return fmt.Sprintf("%s-ruta-%d", destinationID, routeIndex)
}

var (
	canonicalKeyPattern = regexp.MustCompile(`^(.+)-ruta-(\d+)$`)
	legacyKeyPattern    = regexp.MustCompile(`^Destino(\d+)-Ruta(\d+)$`)
)

// normalizeRouteKey 把两种历史格式统一成规范键
//
// 旧格式 "Destino<d>-Ruta<k>" 中 d 是目的地在输入中的位置（从 1 开始），k = idx + 1
func normalizeRouteKey(key string, destinations []domain.Destination) (string, error) {
	key = strings.TrimSpace(key)

	if m := legacyKeyPattern.FindStringSubmatch(key); m != nil {
		d, _ := strconv.Atoi(m[1])
		k, _ := strconv.Atoi(m[2])
		if d < 1 || d > len(destinations) {
			return "", fmt.Errorf("路线状态 %q 引用了不存在的第 %d 个目的地", key, d)
		}
		if k < 1 {
			return "", fmt.Errorf("路线状态 %q 的路线编号必须从 1 开始", key)
		}
		return RouteKey(destinations[d-1].ID, k-1), nil
	}

	if m := canonicalKeyPattern.FindStringSubmatch(key); m != nil {
		idx, _ := strconv.Atoi(m[2])
		return RouteKey(m[1], idx), nil
	}

	return "", fmt.Errorf("无法识别的路线状态键 %q", key)
}

func parseRouteStatus(s string) (domain.RouteStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abierta", "abierto", "open":
		return domain.RouteOpen, nil
	case "cerrada", "cerrado", "bloqueada", "closed":
		return domain.RouteClosed, nil
	default:
		return "", fmt.Errorf("未知的路线状态 %q", s)
	}
}

func normalizeVehicleType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// buildRouteStates 把输入中的路线状态记录规范化，并检查每条记录都能对应到目录中的某条路线
func buildRouteStates(records []map[string]domain.RouteStateInput, destinations []domain.Destination, routeCounts map[string]int, fleetTypes map[string]struct{}) (map[string]RouteState, error) {
	states := make(map[string]RouteState)

	for _, record := range records {
		for rawKey, input := range record {
			key, err := normalizeRouteKey(rawKey, destinations)
			if err != nil {
				return nil, err
			}

			m := canonicalKeyPattern.FindStringSubmatch(key)
			destID := m[1]
			idx, _ := strconv.Atoi(m[2])
			count, exists := routeCounts[destID]
			if !exists {
				return nil, fmt.Errorf("路线状态 %q 引用了不存在的目的地 %q", rawKey, destID)
			}
			if idx >= count {
				return nil, fmt.Errorf("路线状态 %q 引用了不存在的路线 %d（目的地 %q 只有 %d 条路线）", rawKey, idx, destID, count)
			}
			if _, exists := states[key]; exists {
				return nil, fmt.Errorf("路线 %q 存在重复的状态记录", key)
			}

			status, err := parseRouteStatus(input.Estado)
			if err != nil {
				return nil, fmt.Errorf("路线状态 %q: %w", rawKey, err)
			}

			allowed := make(map[string]struct{})
			for _, t := range input.VehiculosPermitidos {
				if t = normalizeVehicleType(t); t != "" {
					allowed[t] = struct{}{}
				}
			}
			// 没有列出允许的车辆类型时视为全部车型都可以通行
			if len(allowed) == 0 {
				for t := range fleetTypes {
					allowed[t] = struct{}{}
				}
			}

			states[key] = RouteState{
				Status:  status,
				Allowed: allowed,
				Reason:  input.RazonBloqueo,
			}
		}
	}

	return states, nil
}

// defaultRouteState 用于没有状态记录的路线：开放且整个车队的车型都可以通行
func defaultRouteState(fleetTypes map[string]struct{}) RouteState {
	allowed := make(map[string]struct{}, len(fleetTypes))
	for t := range fleetTypes {
		allowed[t] = struct{}{}
	}
	return RouteState{
		Status:  domain.RouteOpen,
		Allowed: allowed,
	}
}

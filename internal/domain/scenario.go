package domain

// ScenarioInput 是一次优化请求的原始输入，由路径服务与前端拼装而成
type ScenarioInput struct {
	MapData        *MapData        `json:"map_data" yaml:"map_data"`
	ScenarioConfig *ScenarioConfig `json:"scenario_config" yaml:"scenario_config"`
}

type MapData struct {
	RutasData []DestinationRoutes `json:"rutas_data" yaml:"rutas_data"`
}

type DestinationRoutes struct {
	Destino DestinationInput `json:"destino" yaml:"destino"`
	Rutas   []RouteInput     `json:"rutas" yaml:"rutas"`
}

type DestinationInput struct {
	ClaveLocalidad string  `json:"clave_localidad" yaml:"clave_localidad"`
	Nombre         string  `json:"nombre" yaml:"nombre"`
	Poblacion      int     `json:"poblacion" yaml:"poblacion"`
	Latitud        float64 `json:"latitud" yaml:"latitud"`
	Longitud       float64 `json:"longitud" yaml:"longitud"`
}

type RouteInput struct {
	Distancia Measure  `json:"distancia" yaml:"distancia"`
	Duracion  *Measure `json:"duracion,omitempty" yaml:"duracion,omitempty"`
}

// Measure 沿用 OSRM / Google 风格的 {value, text}，distancia 的 value 单位为米
type Measure struct {
	Value float64 `json:"value" yaml:"value"`
	Text  string  `json:"text,omitempty" yaml:"text,omitempty"`
}

type ScenarioConfig struct {
	TipoDesastre         string                       `json:"tipo_desastre" yaml:"tipo_desastre"`
	VehiculosDisponibles []VehicleInput               `json:"vehiculos_disponibles" yaml:"vehiculos_disponibles"`
	RutasEstado          []map[string]RouteStateInput `json:"rutas_estado" yaml:"rutas_estado"`
	AGParams             *AGParams                    `json:"ag_params,omitempty" yaml:"ag_params,omitempty"`
}

// VehicleInput 中的数值字段都可能缺失，因此使用指针区分 "未提供" 和 "0"
type VehicleInput struct {
	ID              int      `json:"id" yaml:"id"`
	Modelo          string   `json:"modelo" yaml:"modelo"`
	Tipo            string   `json:"tipo" yaml:"tipo"`
	VelocidadKmh    *float64 `json:"velocidad_kmh,omitempty" yaml:"velocidad_kmh,omitempty"`
	ConsumoLitrosKm *float64 `json:"consumo_litros_km,omitempty" yaml:"consumo_litros_km,omitempty"`
	MaximoPesoTon   *float64 `json:"maximo_peso_ton,omitempty" yaml:"maximo_peso_ton,omitempty"`
	CapacidadKg     *float64 `json:"capacidad_kg,omitempty" yaml:"capacidad_kg,omitempty"`
}

type RouteStateInput struct {
	Estado              string   `json:"estado" yaml:"estado"`
	VehiculosPermitidos []string `json:"vehiculos_permitidos" yaml:"vehiculos_permitidos"`
	RazonBloqueo        string   `json:"razon_bloqueo,omitempty" yaml:"razon_bloqueo,omitempty"`
}

type AGParams struct {
	PoblacionSize       *int     `json:"poblacion_size,omitempty" yaml:"poblacion_size,omitempty"`
	Generaciones        *int     `json:"generaciones,omitempty" yaml:"generaciones,omitempty"`
	ProbCruza           *float64 `json:"prob_cruza,omitempty" yaml:"prob_cruza,omitempty"`
	ProbMutacion        *float64 `json:"prob_mutacion,omitempty" yaml:"prob_mutacion,omitempty"`
	ElitismoRate        *float64 `json:"elitismo_rate,omitempty" yaml:"elitismo_rate,omitempty"`
	EstrategiaSeleccion *string  `json:"estrategia_seleccion,omitempty" yaml:"estrategia_seleccion,omitempty"`
}

package domain

type DeliveryStatus string

const (
	DeliverySuccessful DeliveryStatus = "successful"
	DeliveryFailed     DeliveryStatus = "failed"
)

type ConvergenceState string

const (
	Converged     ConvergenceState = "converged"
	SemiConverged ConvergenceState = "semi-converged"
	Evolving      ConvergenceState = "evolving"
)

type OptimizationResult struct {
	MejoresSoluciones []Solution         `json:"mejores_soluciones"`
	MetricasGlobales  GlobalMetrics      `json:"metricas_globales"`
	Convergencia      Convergence        `json:"convergencia"`
	EvolucionFitness  []GenerationRecord `json:"evolucion_fitness"`
	Parametros        ResolvedParameters `json:"parametros"`
	Semilla           int64              `json:"semilla"`
	Cancelado         bool               `json:"cancelado"`
	Advertencias      []string           `json:"advertencias"`
}

type Solution struct {
	Posicion     int                `json:"posicion"`
	Fitness      float64            `json:"fitness"`
	Asignaciones []AssignmentRecord `json:"asignaciones"`
	Resumen      SolutionSummary    `json:"resumen"`
}

type AssignmentRecord struct {
	Vehiculo          Vehicle         `json:"vehiculo"`
	Destino           Destination     `json:"destino"`
	IDAsignacion      int             `json:"id_asignacion"`
	RutaIndice        int             `json:"ruta_indice"`
	DistanciaKm       float64         `json:"distancia_km"`
	TiempoHoras       float64         `json:"tiempo_horas"`
	CombustibleLitros float64         `json:"combustible_litros"`
	PesoTotalKg       float64         `json:"peso_total_kg"`
	Utilizacion       float64         `json:"utilizacion"`
	Insumos           []SupplyLine    `json:"insumos"`
	PorCategoria      []CategoryTotal `json:"por_categoria"`
	EstadoEntrega     DeliveryStatus  `json:"estado_entrega"`
	RazonFallo        string          `json:"razon_fallo,omitempty"`
}

type SupplyLine struct {
	IDInsumo  int     `json:"id_insumo"`
	Nombre    string  `json:"nombre"`
	Categoria string  `json:"categoria"`
	Cantidad  int     `json:"cantidad"`
	PesoKg    float64 `json:"peso_kg"`
}

type CategoryTotal struct {
	Categoria     string        `json:"categoria"`
	Cantidad      int           `json:"cantidad"`
	PesoKg        float64       `json:"peso_kg"`
	Prioridad     PriorityLevel `json:"prioridad,omitempty"`
	PesoPrioridad int           `json:"peso_prioridad"` // alta=3, media=2, baja=1, 未配置为 0
}

type SolutionSummary struct {
	Cobertura              float64 `json:"cobertura"`
	DestinosCubiertos      int     `json:"destinos_cubiertos"`
	TotalDestinos          int     `json:"total_destinos"`
	PesoTotalKg            float64 `json:"peso_total_kg"`
	CombustibleTotalLitros float64 `json:"combustible_total_litros"`
	DistanciaTotalKm       float64 `json:"distancia_total_km"`
	TiempoTotalHoras       float64 `json:"tiempo_total_horas"`
	PoblacionBeneficiada   int     `json:"poblacion_beneficiada"`
	EntregasExitosas       int     `json:"entregas_exitosas"`
	EntregasFallidas       int     `json:"entregas_fallidas"`
}

type GlobalMetrics struct {
	MejorTiempo      float64 `json:"mejor_tiempo"`
	MejorDistancia   float64 `json:"mejor_distancia"`
	MejorCombustible float64 `json:"mejor_combustible"`
}

type Convergence struct {
	GeneracionesEjecutadas int              `json:"generaciones_ejecutadas"`
	MejoraPorcentual       float64          `json:"mejora_porcentual"`
	Estado                 ConvergenceState `json:"estado"`
}

type GenerationRecord struct {
	Generacion int     `json:"generacion"`
	Mejor      float64 `json:"mejor"`
	Promedio   float64 `json:"promedio"`
	Peor       float64 `json:"peor"`
}

type ResolvedParameters struct {
	PoblacionSize       int     `json:"poblacion_size"`
	Generaciones        int     `json:"generaciones"`
	ProbCruza           float64 `json:"prob_cruza"`
	ProbMutacion        float64 `json:"prob_mutacion"`
	ElitismoRate        float64 `json:"elitismo_rate"`
	EstrategiaSeleccion string  `json:"estrategia_seleccion"`
}

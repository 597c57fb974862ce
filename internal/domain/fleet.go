package domain

type Vehicle struct {
	ID         int     `json:"id"`
	Model      string  `json:"modelo"`
	Type       string  `json:"tipo"`
	SpeedKmh   float64 `json:"velocidad_kmh"`
	FuelPerKm  float64 `json:"consumo_litros_km"`
	CapacityKg float64 `json:"capacidad_kg"`
}

type SupplyItem struct {
	ID           int     `json:"id_insumo" yaml:"id_insumo"`
	Name         string  `json:"nombre" yaml:"nombre"`
	Category     string  `json:"categoria" yaml:"categoria"`
	UnitWeightKg float64 `json:"peso_kg" yaml:"peso_kg"`
}

type Destination struct {
	ID         string  `json:"clave_localidad"`
	Name       string  `json:"nombre"`
	Population int     `json:"poblacion"`
	Latitude   float64 `json:"latitud"`
	Longitude  float64 `json:"longitud"`
}

type RouteStatus string

const (
	RouteOpen   RouteStatus = "abierta"
	RouteClosed RouteStatus = "cerrada"
)

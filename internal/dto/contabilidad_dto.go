package dto

import "github.com/shopspring/decimal"

// MovimientoManualRequest records an external service or an adjustment.
// Tipo decides the sign; Monto is always positive.
type MovimientoManualRequest struct {
	PuntoAtencionID string          `json:"punto_atencion_id" validate:"omitempty,uuid"`
	MonedaID        string          `json:"moneda_id"         validate:"required,uuid"`
	Tipo            string          `json:"tipo"              validate:"required,oneof=INGRESO EGRESO"`
	Medio           string          `json:"medio"             validate:"required,oneof=EFECTIVO BANCO"`
	ReferenciaTipo  string          `json:"referencia_tipo"   validate:"required,oneof=SERVICIO_EXTERNO AJUSTE"`
	Monto           decimal.Decimal `json:"monto"             validate:"gt=0"`
	Descripcion     string          `json:"descripcion"       validate:"required,min=3,max=300"`
}

type MovimientoResponse struct {
	ID             string          `json:"id"`
	MonedaID       string          `json:"moneda_id"`
	MonedaCodigo   string          `json:"moneda_codigo,omitempty"`
	Tipo           string          `json:"tipo"`
	Medio          string          `json:"medio"`
	Monto          decimal.Decimal `json:"monto"`
	ReferenciaTipo string          `json:"referencia_tipo"`
	ReferenciaID   *string         `json:"referencia_id"`
	Descripcion    string          `json:"descripcion"`
	UsuarioID      string          `json:"usuario_id"`
	Fecha          string          `json:"fecha"`
}

// SaldoMoneda is the running balance of one currency at the end of the day.
type SaldoMoneda struct {
	MonedaID string          `json:"moneda_id"`
	Codigo   string          `json:"codigo"`
	Efectivo decimal.Decimal `json:"efectivo"`
	Bancos   decimal.Decimal `json:"bancos"`
}

type ContabilidadDiariaResponse struct {
	PuntoAtencionID string               `json:"punto_atencion_id"`
	Fecha           string               `json:"fecha"`
	Movimientos     []MovimientoResponse `json:"movimientos"`
	Saldos          []SaldoMoneda        `json:"saldos"`
}

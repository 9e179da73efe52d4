package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ConteoMoneda is what the operator counted for one currency.
type ConteoMoneda struct {
	MonedaID      string          `json:"moneda_id"      validate:"required,uuid"`
	Billetes      decimal.Decimal `json:"billetes"       validate:"min=0"`
	Monedas       decimal.Decimal `json:"monedas"        validate:"min=0"`
	ConteoBancos  decimal.Decimal `json:"conteo_bancos"  validate:"min=0"`
	Observaciones *string         `json:"observaciones"  validate:"omitempty,max=500"`
}

type CerrarCuadreRequest struct {
	PuntoAtencionID string         `json:"punto_atencion_id" validate:"omitempty,uuid"`
	Fecha           string         `json:"fecha"             validate:"omitempty,datetime=2006-01-02"`
	Detalles        []ConteoMoneda `json:"detalles"          validate:"dive"`
	Observaciones   *string        `json:"observaciones"     validate:"omitempty,max=1000"`
}

type CuadreFilter struct {
	PuntoAtencionID string `form:"punto_atencion_id" validate:"omitempty,uuid"`
	Desde           string `form:"desde"             validate:"omitempty,datetime=2006-01-02"`
	Hasta           string `form:"hasta"             validate:"omitempty,datetime=2006-01-02"`
	Page            int    `form:"page,default=1"    validate:"min=1"`
	Limit           int    `form:"limit,default=30"  validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetalleResumen struct {
	MonedaID        string          `json:"moneda_id"`
	Codigo          string          `json:"codigo"`
	Nombre          string          `json:"nombre"`
	SaldoApertura   decimal.Decimal `json:"saldo_apertura"`
	IngresosPeriodo decimal.Decimal `json:"ingresos_periodo"`
	EgresosPeriodo  decimal.Decimal `json:"egresos_periodo"`
	SaldoCierre     decimal.Decimal `json:"saldo_cierre"`
	BancosTeorico   decimal.Decimal `json:"bancos_teorico"`
	Tolerancia      decimal.Decimal `json:"tolerancia"`
}

type TotalesResumen struct {
	Cambios               int64 `json:"cambios"`
	TransferenciasEntrada int64 `json:"transferencias_entrada"`
	TransferenciasSalida  int64 `json:"transferencias_salida"`
	OtrosMovimientos      int64 `json:"otros_movimientos"`
	CambiosPendientes     int64 `json:"cambios_pendientes"`
}

// ResumenCuadreResponse is what GET /api/cuadre-caja returns.
type ResumenCuadreResponse struct {
	PuntoAtencionID string           `json:"punto_atencion_id"`
	Fecha           string           `json:"fecha"`
	YaCerrado       bool             `json:"ya_cerrado"`
	Detalles        []DetalleResumen `json:"detalles"`
	Totales         TotalesResumen   `json:"totales"`
}

type DetalleCuadreResponse struct {
	MonedaID         string          `json:"moneda_id"`
	Codigo           string          `json:"codigo"`
	SaldoApertura    decimal.Decimal `json:"saldo_apertura"`
	IngresosPeriodo  decimal.Decimal `json:"ingresos_periodo"`
	EgresosPeriodo   decimal.Decimal `json:"egresos_periodo"`
	SaldoCierre      decimal.Decimal `json:"saldo_cierre"`
	BancosTeorico    decimal.Decimal `json:"bancos_teorico"`
	ConteoBilletes   decimal.Decimal `json:"conteo_billetes"`
	ConteoMonedas    decimal.Decimal `json:"conteo_monedas"`
	ConteoFisico     decimal.Decimal `json:"conteo_fisico"`
	ConteoBancos     decimal.Decimal `json:"conteo_bancos"`
	DiferenciaFisico decimal.Decimal `json:"diferencia_fisico"`
	DiferenciaBancos decimal.Decimal `json:"diferencia_bancos"`
}

type CuadreResponse struct {
	ID                         string                  `json:"id"`
	PuntoAtencionID            string                  `json:"punto_atencion_id"`
	UsuarioID                  string                  `json:"usuario_id"`
	Fecha                      string                  `json:"fecha"`
	Estado                     string                  `json:"estado"`
	TotalCambios               int                     `json:"total_cambios"`
	TotalTransferenciasEntrada int                     `json:"total_transferencias_entrada"`
	TotalTransferenciasSalida  int                     `json:"total_transferencias_salida"`
	OtrosMovimientos           int                     `json:"otros_movimientos"`
	Observaciones              *string                 `json:"observaciones"`
	FechaCierre                string                  `json:"fecha_cierre"`
	Detalles                   []DetalleCuadreResponse `json:"detalles"`
	// JornadaFinalizada is true when the close also ended the operator's shift.
	JornadaFinalizada bool `json:"jornada_finalizada"`
}

type CuadreListResponse struct {
	Data  []CuadreResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

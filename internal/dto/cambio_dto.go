package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// CambioFilter is bound from the query string of GET /api/exchanges.
type CambioFilter struct {
	PuntoAtencionID string `form:"punto_atencion_id" validate:"omitempty,uuid"`
	Fecha           string `form:"fecha"             validate:"omitempty,datetime=2006-01-02"`
	Estado          string `form:"estado"            validate:"omitempty,oneof=PENDIENTE COMPLETADO CANCELADO"`
	Page            int    `form:"page,default=1"    validate:"min=1"`
	Limit           int    `form:"limit,default=50"  validate:"min=1,max=200"`
}

type CambioListResponse struct {
	Data  []CambioResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearCambioRequest describes a new exchange. When the billetes/monedas
// breakdown received from the customer is present it drives the calculation;
// otherwise MontoOrigen is converted entirely at TasaCambioBilletes.
// MontoDestino is optional: the server always recomputes it.
type CrearCambioRequest struct {
	PuntoAtencionID string `json:"punto_atencion_id" validate:"omitempty,uuid"`
	MonedaOrigenID  string `json:"moneda_origen_id"  validate:"required,uuid"`
	MonedaDestinoID string `json:"moneda_destino_id" validate:"required,uuid,nefield=MonedaOrigenID"`
	TipoOperacion   string `json:"tipo_operacion"    validate:"required,oneof=COMPRA VENTA"`

	MontoOrigen        decimal.Decimal  `json:"monto_origen"         validate:"min=0"`
	MontoDestino       *decimal.Decimal `json:"monto_destino"`
	TasaCambioBilletes decimal.Decimal  `json:"tasa_cambio_billetes" validate:"gt=0"`
	TasaCambioMonedas  decimal.Decimal  `json:"tasa_cambio_monedas"  validate:"min=0"`

	DivisasRecibidasBilletes  decimal.Decimal `json:"divisas_recibidas_billetes"  validate:"min=0"`
	DivisasRecibidasMonedas   decimal.Decimal `json:"divisas_recibidas_monedas"   validate:"min=0"`
	DivisasEntregadasBilletes decimal.Decimal `json:"divisas_entregadas_billetes" validate:"min=0"`
	DivisasEntregadasMonedas  decimal.Decimal `json:"divisas_entregadas_monedas"  validate:"min=0"`

	MetodoEntrega       string  `json:"metodo_entrega"       validate:"required,oneof=efectivo transferencia"`
	TransferenciaBanco  *string `json:"transferencia_banco"  validate:"omitempty,max=100"`
	TransferenciaNumero *string `json:"transferencia_numero" validate:"omitempty,max=100"`

	// AbonoInicialMonto turns the exchange into a partial one.
	AbonoInicialMonto *decimal.Decimal `json:"abono_inicial_monto"`

	ClienteNombre    string  `json:"cliente_nombre"    validate:"max=150"`
	ClienteDocumento string  `json:"cliente_documento" validate:"max=30"`
	Observacion      *string `json:"observacion"       validate:"omitempty,max=500"`
}

// EntregaRequest is how the outstanding balance is handed to the customer:
// a cash breakdown or a bank transfer reference.
type EntregaRequest struct {
	Metodo           string          `json:"metodo"            validate:"required,oneof=efectivo transferencia"`
	Billetes         decimal.Decimal `json:"billetes"          validate:"min=0"`
	Monedas          decimal.Decimal `json:"monedas"           validate:"min=0"`
	Monto            decimal.Decimal `json:"monto"             validate:"min=0"`
	Banco            *string         `json:"banco"             validate:"omitempty,max=100"`
	NumeroReferencia *string         `json:"numero_referencia" validate:"omitempty,max=100"`
	Observaciones    *string         `json:"observaciones"     validate:"omitempty,max=500"`
}

// Total is the amount handed over: the cash breakdown when present, Monto otherwise.
func (e EntregaRequest) Total() decimal.Decimal {
	if e.Metodo == "efectivo" {
		if cash := e.Billetes.Add(e.Monedas); cash.IsPositive() {
			return cash
		}
	}
	return e.Monto
}

type CompletarCambioRequest struct {
	Entrega EntregaRequest `json:"entrega" validate:"required"`
}

// AbonoRequest registers a partial payment. There is deliberately no
// recibido_por field: it comes from the token.
type AbonoRequest struct {
	Pago EntregaRequest `json:"pago" validate:"required"`
}

type CancelarCambioRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3,max=500"`
}

// CalcularCambioRequest backs the server-side preview of the engine.
type CalcularCambioRequest struct {
	MonedaOrigenID     string          `json:"moneda_origen_id"     validate:"required,uuid"`
	MonedaDestinoID    string          `json:"moneda_destino_id"    validate:"required,uuid"`
	TipoOperacion      string          `json:"tipo_operacion"       validate:"required,oneof=COMPRA VENTA"`
	Billetes           decimal.Decimal `json:"billetes"             validate:"min=0"`
	Monedas            decimal.Decimal `json:"monedas"              validate:"min=0"`
	TasaCambioBilletes decimal.Decimal `json:"tasa_cambio_billetes" validate:"gt=0"`
	TasaCambioMonedas  decimal.Decimal `json:"tasa_cambio_monedas"  validate:"min=0"`
	// MontoDestino asks the inverse question: how much origin currency the
	// customer must hand over to receive this amount, at the billetes rate.
	MontoDestino *decimal.Decimal `json:"monto_destino,omitempty"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AbonoResponse struct {
	ID               string          `json:"id"`
	Monto            decimal.Decimal `json:"monto"`
	Metodo           string          `json:"metodo"`
	Banco            *string         `json:"banco"`
	NumeroReferencia *string         `json:"numero_referencia"`
	RecibidoPor      string          `json:"recibido_por"`
	EsPagoFinal      bool            `json:"es_pago_final"`
	CreatedAt        string          `json:"created_at"`
}

type CambioResponse struct {
	ID                        string           `json:"id"`
	NumeroRecibo              string           `json:"numero_recibo"`
	PuntoAtencionID           string           `json:"punto_atencion_id"`
	UsuarioID                 string           `json:"usuario_id"`
	MonedaOrigen              *MonedaResponse  `json:"moneda_origen,omitempty"`
	MonedaDestino             *MonedaResponse  `json:"moneda_destino,omitempty"`
	TipoOperacion             string           `json:"tipo_operacion"`
	MontoOrigen               decimal.Decimal  `json:"monto_origen"`
	MontoDestino              decimal.Decimal  `json:"monto_destino"`
	TasaCambioBilletes        decimal.Decimal  `json:"tasa_cambio_billetes"`
	TasaCambioMonedas         decimal.Decimal  `json:"tasa_cambio_monedas"`
	DivisasRecibidasBilletes  decimal.Decimal  `json:"divisas_recibidas_billetes"`
	DivisasRecibidasMonedas   decimal.Decimal  `json:"divisas_recibidas_monedas"`
	DivisasEntregadasBilletes decimal.Decimal  `json:"divisas_entregadas_billetes"`
	DivisasEntregadasMonedas  decimal.Decimal  `json:"divisas_entregadas_monedas"`
	MetodoEntrega             string           `json:"metodo_entrega"`
	TransferenciaBanco        *string          `json:"transferencia_banco"`
	TransferenciaNumero       *string          `json:"transferencia_numero"`
	Estado                    string           `json:"estado"`
	SaldoPendiente            *decimal.Decimal `json:"saldo_pendiente"`
	AbonoInicialMonto         *decimal.Decimal `json:"abono_inicial_monto"`
	AbonoInicialFecha         *string          `json:"abono_inicial_fecha"`
	ClienteNombre             string           `json:"cliente_nombre"`
	ClienteDocumento          string           `json:"cliente_documento"`
	Observacion               *string          `json:"observacion"`
	FechaCompletado           *string          `json:"fecha_completado"`
	CreatedAt                 string           `json:"created_at"`
	Abonos                    []AbonoResponse  `json:"abonos"`
}

type ParcialResponse struct {
	Origen  decimal.Decimal `json:"origen"`
	Destino decimal.Decimal `json:"destino"`
}

type CalculoResponse struct {
	Comportamiento string          `json:"comportamiento"`
	Billetes       ParcialResponse `json:"billetes"`
	Monedas        ParcialResponse `json:"monedas"`
	Totales        ParcialResponse `json:"totales"`
	// MontoOrigenRequerido is set only when the request carried monto_destino.
	MontoOrigenRequerido *decimal.Decimal `json:"monto_origen_requerido,omitempty"`
}

package dto

import "github.com/shopspring/decimal"

type CrearTransferenciaRequest struct {
	OrigenID          *string         `json:"origen_id"          validate:"omitempty,uuid"`
	DestinoID         string          `json:"destino_id"         validate:"required,uuid"`
	MonedaID          string          `json:"moneda_id"          validate:"required,uuid"`
	Monto             decimal.Decimal `json:"monto"              validate:"gt=0"`
	TipoTransferencia string          `json:"tipo_transferencia" validate:"required,oneof=ENTRE_PUNTOS DEPOSITO_MATRIZ RETIRO_GERENCIA DEPOSITO_GERENCIA"`
	Descripcion       *string         `json:"descripcion"        validate:"omitempty,max=500"`
}

// ResolverTransferenciaRequest is the body of approve / reject. Both fields optional.
type ResolverTransferenciaRequest struct {
	Observaciones *string `json:"observaciones" validate:"omitempty,max=500"`
}

type TransferenciaFilter struct {
	PuntoAtencionID string `form:"punto_atencion_id" validate:"omitempty,uuid"`
	Estado          string `form:"estado"            validate:"omitempty,oneof=PENDIENTE APROBADO RECHAZADO EN_TRANSITO RECIBIDO"`
	Page            int    `form:"page,default=1"    validate:"min=1"`
	Limit           int    `form:"limit,default=50"  validate:"min=1,max=200"`
}

type TransferenciaResponse struct {
	ID                      string          `json:"id"`
	NumeroRecibo            string          `json:"numero_recibo"`
	OrigenID                *string         `json:"origen_id"`
	DestinoID               string          `json:"destino_id"`
	MonedaID                string          `json:"moneda_id"`
	MonedaCodigo            string          `json:"moneda_codigo,omitempty"`
	Monto                   decimal.Decimal `json:"monto"`
	TipoTransferencia       string          `json:"tipo_transferencia"`
	Estado                  string          `json:"estado"`
	Descripcion             *string         `json:"descripcion"`
	SolicitadoPor           string          `json:"solicitado_por"`
	AprobadoPor             *string         `json:"aprobado_por"`
	RechazadoPor            *string         `json:"rechazado_por"`
	FechaAprobacion         *string         `json:"fecha_aprobacion"`
	FechaRechazo            *string         `json:"fecha_rechazo"`
	ObservacionesAprobacion *string         `json:"observaciones_aprobacion"`
	CreatedAt               string          `json:"created_at"`
}

type TransferenciaListResponse struct {
	Data  []TransferenciaResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

type ConteoPendientesResponse struct {
	Pendientes int64 `json:"pendientes"`
}

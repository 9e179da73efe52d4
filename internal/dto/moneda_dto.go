package dto

type CrearMonedaRequest struct {
	Codigo               string `json:"codigo"                validate:"required,min=3,max=10,alphanum"`
	Nombre               string `json:"nombre"                validate:"required,min=2,max=100"`
	Simbolo              string `json:"simbolo"               validate:"required,max=10"`
	ComportamientoCompra string `json:"comportamiento_compra" validate:"required,oneof=MULTIPLICA DIVIDE"`
	ComportamientoVenta  string `json:"comportamiento_venta"  validate:"required,oneof=MULTIPLICA DIVIDE"`
	OrdenDisplay         int    `json:"orden_display"         validate:"min=0"`
}

// ActualizarMonedaRequest only touches the fields that are present.
type ActualizarMonedaRequest struct {
	Nombre               *string `json:"nombre"                validate:"omitempty,min=2,max=100"`
	Simbolo              *string `json:"simbolo"               validate:"omitempty,max=10"`
	ComportamientoCompra *string `json:"comportamiento_compra" validate:"omitempty,oneof=MULTIPLICA DIVIDE"`
	ComportamientoVenta  *string `json:"comportamiento_venta"  validate:"omitempty,oneof=MULTIPLICA DIVIDE"`
	OrdenDisplay         *int    `json:"orden_display"         validate:"omitempty,min=0"`
	Activo               *bool   `json:"activo"`
}

type MonedaResponse struct {
	ID                   string `json:"id"`
	Codigo               string `json:"codigo"`
	Nombre               string `json:"nombre"`
	Simbolo              string `json:"simbolo"`
	Activo               bool   `json:"activo"`
	ComportamientoCompra string `json:"comportamiento_compra"`
	ComportamientoVenta  string `json:"comportamiento_venta"`
	OrdenDisplay         int    `json:"orden_display"`
}

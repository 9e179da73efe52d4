package dto

type CrearPuntoRequest struct {
	Nombre      string `json:"nombre"       validate:"required,min=2,max=100"`
	Direccion   string `json:"direccion"    validate:"max=200"`
	Ciudad      string `json:"ciudad"       validate:"max=100"`
	EsPrincipal bool   `json:"es_principal"`
}

type PuntoResponse struct {
	ID          string `json:"id"`
	Nombre      string `json:"nombre"`
	Direccion   string `json:"direccion"`
	Ciudad      string `json:"ciudad"`
	EsPrincipal bool   `json:"es_principal"`
	Activo      bool   `json:"activo"`
}

package dto

type IniciarJornadaRequest struct {
	PuntoAtencionID string `json:"punto_atencion_id" validate:"required,uuid"`
}

type JornadaResponse struct {
	ID                  string  `json:"id"`
	UsuarioID           string  `json:"usuario_id"`
	PuntoAtencionID     string  `json:"punto_atencion_id"`
	FechaInicio         string  `json:"fecha_inicio"`
	FechaSalida         *string `json:"fecha_salida"`
	Estado              string  `json:"estado"`
	FinalizadaPorCierre bool    `json:"finalizada_por_cierre"`
}

package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type CrearUsuarioRequest struct {
	Username        string  `json:"username"          validate:"required,min=1,max=150"`
	Nombre          string  `json:"nombre"            validate:"required,min=2,max=100"`
	Correo          *string `json:"correo"            validate:"omitempty,email"`
	Password        string  `json:"password"          validate:"required,min=8"`
	Rol             string  `json:"rol"               validate:"required,oneof=OPERADOR CONCESION ADMIN SUPER_USUARIO"`
	PuntoAtencionID *string `json:"punto_atencion_id" validate:"omitempty,uuid"`
}

// ActualizarUsuarioRequest changes only the fields that are present.
// An empty punto_atencion_id unassigns the point.
type ActualizarUsuarioRequest struct {
	Nombre          *string `json:"nombre"            validate:"omitempty,min=2,max=100"`
	Correo          *string `json:"correo"            validate:"omitempty,email"`
	Password        *string `json:"password"          validate:"omitempty,min=8"`
	Rol             *string `json:"rol"               validate:"omitempty,oneof=OPERADOR CONCESION ADMIN SUPER_USUARIO"`
	PuntoAtencionID *string `json:"punto_atencion_id"`
}

// UsuarioFilter is bound from the query string of GET /api/users.
type UsuarioFilter struct {
	PuntoAtencionID  string `form:"punto_atencion_id" validate:"omitempty,uuid"`
	IncluirInactivos bool   `form:"incluir_inactivos"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UsuarioResponse struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Nombre          string  `json:"nombre"`
	Correo          *string `json:"correo"`
	Rol             string  `json:"rol"`
	PuntoAtencionID *string `json:"punto_atencion_id"`
	Activo          bool    `json:"activo"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"` // seconds
	User         UsuarioResponse `json:"user"`
	// JornadaActiva lets the client skip the point selector when a shift is already open.
	JornadaActiva *JornadaResponse `json:"jornada_activa"`
}

package handler

import (
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Login godoc
// @Summary Login de usuario
// @Description Devuelve tokens de acceso y refresco y la jornada activa si existe.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credenciales"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Refresh godoc
// @Summary Renovar tokens
// @Description Solo acepta el refresh token; un access token responde 401.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RefreshRequest true "Refresh token"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// ── Usuarios Handler ─────────────────────────────────────────────────────────

type UsuariosHandler struct{ svc service.AuthService }

func NewUsuariosHandler(svc service.AuthService) *UsuariosHandler {
	return &UsuariosHandler{svc: svc}
}

// Crear godoc
// @Summary Crear usuario
// @Tags usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearUsuarioRequest true "Usuario"
// @Success 201 {object} dto.UsuarioResponse
// @Failure 409 {object} apierror.APIError
// @Router /api/users [post]
func (h *UsuariosHandler) Crear(c *gin.Context) {
	var req dto.CrearUsuarioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearUsuario(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

// Listar godoc
// @Summary Listar usuarios
// @Tags usuarios
// @Produce json
// @Security BearerAuth
// @Param punto_atencion_id query string false "Punto"
// @Param incluir_inactivos query bool false "Incluir desactivados"
// @Success 200 {array} dto.UsuarioResponse
// @Router /api/users [get]
func (h *UsuariosHandler) Listar(c *gin.Context) {
	var f dto.UsuarioFilter
	if !bindQuery(c, &f) {
		return
	}
	users, err := h.svc.ListarUsuarios(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, users)
}

// Actualizar godoc
// @Summary Actualizar usuario
// @Description Cambia nombre, correo, rol, punto o clave. Un punto vacío lo desasigna.
// @Tags usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Usuario"
// @Param body body dto.ActualizarUsuarioRequest true "Campos a cambiar"
// @Success 200 {object} dto.UsuarioResponse
// @Failure 422 {object} apierror.APIError
// @Router /api/users/{id} [patch]
func (h *UsuariosHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarUsuarioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	u, err := h.svc.ActualizarUsuario(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, u)
}

// Desactivar godoc
// @Summary Desactivar usuario
// @Tags usuarios
// @Produce json
// @Security BearerAuth
// @Param id path string true "Usuario"
// @Success 200 {object} map[string]bool
// @Failure 409 {object} apierror.APIError "jornada activa"
// @Router /api/users/{id}/deactivate [patch]
func (h *UsuariosHandler) Desactivar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DesactivarUsuario(c.Request.Context(), a, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"desactivado": true})
}

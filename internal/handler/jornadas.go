package handler

import (
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
)

type JornadasHandler struct{ svc service.JornadaService }

func NewJornadasHandler(svc service.JornadaService) *JornadasHandler {
	return &JornadasHandler{svc: svc}
}

// Iniciar godoc
// @Summary Iniciar jornada
// @Tags jornadas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.IniciarJornadaRequest true "Punto de atención"
// @Success 201 {object} dto.JornadaResponse
// @Failure 409 {object} apierror.APIError
// @Router /api/schedules [post]
func (h *JornadasHandler) Iniciar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.IniciarJornadaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Iniciar(c.Request.Context(), a, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

func (h *JornadasHandler) Finalizar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Finalizar(c.Request.Context(), a)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Activa returns data:null when the user has no open shift.
func (h *JornadasHandler) Activa(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Activa(c.Request.Context(), a.UsuarioID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

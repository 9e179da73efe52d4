package handler

import (
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
)

type ContabilidadHandler struct{ svc service.ContabilidadService }

func NewContabilidadHandler(svc service.ContabilidadService) *ContabilidadHandler {
	return &ContabilidadHandler{svc: svc}
}

// Diaria godoc
// @Summary      Movimientos del día
// @Description  Lista de auditoría de los movimientos de saldo del punto y saldos al cierre del día.
// @Tags         contabilidad
// @Produce      json
// @Security     BearerAuth
// @Param        puntoId path string true "UUID del punto"
// @Param        fecha   path string true "Fecha YYYY-MM-DD"
// @Success      200 {object} dto.ContabilidadDiariaResponse
// @Router       /api/contabilidad-diaria/{puntoId}/{fecha} [get]
func (h *ContabilidadHandler) Diaria(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Diaria(c.Request.Context(), a, c.Param("puntoId"), c.Param("fecha"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary      Registrar movimiento manual
// @Description  Servicio externo u ajuste (solo administradores). EGRESO se registra con signo negativo.
// @Tags         contabilidad
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.MovimientoManualRequest true "Movimiento"
// @Success      201  {object} dto.MovimientoResponse
// @Router       /api/contabilidad-diaria/movimientos [post]
func (h *ContabilidadHandler) RegistrarMovimiento(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), a, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

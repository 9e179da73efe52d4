package handler

import (
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
)

type CuadreHandler struct{ svc service.CuadreService }

func NewCuadreHandler(svc service.CuadreService) *CuadreHandler { return &CuadreHandler{svc: svc} }

// Resumen godoc
// @Summary      Resumen del cuadre de caja
// @Description  Saldos de apertura, ingresos, egresos y saldo teórico por moneda del día.
// @Tags         cuadre
// @Produce      json
// @Security     BearerAuth
// @Param        fecha             query string false "Fecha YYYY-MM-DD (default: hoy)"
// @Param        punto_atencion_id query string false "Punto (solo administradores)"
// @Success      200 {object} dto.ResumenCuadreResponse
// @Router       /api/cuadre-caja [get]
func (h *CuadreHandler) Resumen(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerResumen(c.Request.Context(), a, c.Query("punto_atencion_id"), c.Query("fecha"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Cerrar godoc
// @Summary      Cerrar la caja del día
// @Description  Rechaza el cierre con 422 y data.fuera_de_tolerancia si alguna moneda supera la tolerancia (USD ±1.00, otras ±0.01).
// @Tags         cuadre
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CerrarCuadreRequest true "Conteo por moneda"
// @Success      201  {object} dto.CuadreResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /api/cuadre-caja [post]
func (h *CuadreHandler) Cerrar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CerrarCuadreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), a, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

func (h *CuadreHandler) Historial(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter dto.CuadreFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), a, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
)

// ── Monedas ──────────────────────────────────────────────────────────────────

type MonedasHandler struct{ svc service.MonedaService }

func NewMonedasHandler(svc service.MonedaService) *MonedasHandler {
	return &MonedasHandler{svc: svc}
}

// Listar godoc
// @Summary Listar monedas
// @Tags monedas
// @Produce json
// @Security BearerAuth
// @Param activas query bool false "Solo monedas activas (default true)"
// @Success 200 {array} dto.MonedaResponse
// @Router /api/currencies [get]
func (h *MonedasHandler) Listar(c *gin.Context) {
	soloActivas := c.DefaultQuery("activas", "true") != "false"
	resp, err := h.svc.Listar(c.Request.Context(), soloActivas)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Crear godoc
// @Summary Crear moneda
// @Tags monedas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearMonedaRequest true "Moneda"
// @Success 201 {object} dto.MonedaResponse
// @Failure 409 {object} apierror.APIError
// @Router /api/currencies [post]
func (h *MonedasHandler) Crear(c *gin.Context) {
	var req dto.CrearMonedaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

// Actualizar godoc
// @Summary Actualizar moneda
// @Description Cambia nombre, estado o comportamientos. No recalcula cambios ya registrados.
// @Tags monedas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "UUID de la moneda"
// @Param body body dto.ActualizarMonedaRequest true "Campos a modificar"
// @Success 200 {object} dto.MonedaResponse
// @Router /api/currencies/{id} [put]
func (h *MonedasHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarMonedaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// ── Puntos de atención ───────────────────────────────────────────────────────

type PuntosHandler struct{ svc service.PuntoService }

func NewPuntosHandler(svc service.PuntoService) *PuntosHandler { return &PuntosHandler{svc: svc} }

func (h *PuntosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *PuntosHandler) Crear(c *gin.Context) {
	var req dto.CrearPuntoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

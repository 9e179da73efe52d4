package handler

import (
	"fmt"
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/infra"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
)

type CambiosHandler struct {
	svc    service.CambioService
	puntos service.PuntoService
}

func NewCambiosHandler(svc service.CambioService, puntos service.PuntoService) *CambiosHandler {
	return &CambiosHandler{svc: svc, puntos: puntos}
}

// Crear godoc
// @Summary      Registrar un cambio de divisas
// @Description  Recalcula monto_destino en el servidor, registra los movimientos de saldo y deja el cambio COMPLETADO o PENDIENTE (abono parcial o entrega por transferencia).
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearCambioRequest true "Cambio"
// @Success      201  {object} dto.CambioResponse
// @Failure      422  {object} apierror.APIError
// @Router       /api/exchanges [post]
func (h *CambiosHandler) Crear(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CrearCambioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), a, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar cambios
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        punto_atencion_id query string false "Punto (solo administradores)"
// @Param        fecha  query string false "Fecha YYYY-MM-DD"
// @Param        estado query string false "PENDIENTE | COMPLETADO | CANCELADO"
// @Param        page   query int    false "Página (default 1)"
// @Param        limit  query int    false "Registros por página (default 50)"
// @Success      200    {object} dto.CambioListResponse
// @Router       /api/exchanges [get]
func (h *CambiosHandler) Listar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter dto.CambioFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), a, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Pendientes godoc
// @Summary      Cambios con saldo pendiente
// @Tags         cambios
// @Produce      json
// @Security     BearerAuth
// @Param        punto_atencion_id query string false "Punto (solo administradores)"
// @Success      200 {array} dto.CambioResponse
// @Router       /api/exchanges/pending [get]
func (h *CambiosHandler) Pendientes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarPendientes(c.Request.Context(), a, c.Query("punto_atencion_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *CambiosHandler) Obtener(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), a, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Completar godoc
// @Summary      Completar un cambio pendiente
// @Description  El pago debe coincidir con el saldo pendiente (±0.01).
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID del cambio"
// @Param        body body dto.CompletarCambioRequest true "Entrega final"
// @Success      200  {object} dto.CambioResponse
// @Failure      409  {object} apierror.APIError
// @Router       /api/exchanges/{id}/complete [post]
func (h *CambiosHandler) Completar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CompletarCambioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Completar(c.Request.Context(), a, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// RegistrarAbono godoc
// @Summary      Registrar un abono parcial
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID del cambio"
// @Param        body body dto.AbonoRequest true "Abono"
// @Success      201  {object} dto.CambioResponse
// @Failure      422  {object} apierror.APIError
// @Router       /api/exchanges/{id}/partial-payments [post]
func (h *CambiosHandler) RegistrarAbono(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarAbono(c.Request.Context(), a, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, resp)
}

// Cancelar godoc
// @Summary      Cancelar un cambio pendiente
// @Description  Registra movimientos inversos; los movimientos originales nunca se modifican.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID del cambio"
// @Param        body body dto.CancelarCambioRequest true "Motivo"
// @Success      200  {object} dto.CambioResponse
// @Router       /api/exchanges/{id}/cancel [post]
func (h *CambiosHandler) Cancelar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarCambioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), a, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Recibo godoc
// @Summary      Comprobante PDF del cambio
// @Tags         cambios
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path string true "UUID del cambio"
// @Success      200
// @Router       /api/exchanges/{id}/receipt [get]
func (h *CambiosHandler) Recibo(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	cambio, err := h.svc.ObtenerModelo(c.Request.Context(), a, id)
	if err != nil {
		fail(c, err)
		return
	}
	puntoNombre := ""
	if p, err := h.puntos.Obtener(c.Request.Context(), cambio.PuntoAtencionID); err == nil {
		puntoNombre = p.Nombre
	}
	pdf, err := infra.ReciboCambioPDF(cambio, puntoNombre)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=recibo_%s.pdf", cambio.NumeroRecibo))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Calcular godoc
// @Summary      Previsualizar un cálculo
// @Description  Aplica el motor de cálculo sin registrar nada.
// @Tags         cambios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CalcularCambioRequest true "Datos del cálculo"
// @Success      200  {object} dto.CalculoResponse
// @Router       /api/exchanges/calculate [post]
func (h *CambiosHandler) Calcular(c *gin.Context) {
	var req dto.CalcularCambioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Calcular(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

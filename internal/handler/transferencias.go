package handler

import (
	"context"
	"net/http"

	"puntocambio/internal/dto"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransferenciasHandler struct{ svc service.TransferenciaService }

func NewTransferenciasHandler(svc service.TransferenciaService) *TransferenciasHandler {
	return &TransferenciasHandler{svc: svc}
}

// Crear godoc
// @Summary      Solicitar una transferencia
// @Description  Queda PENDIENTE hasta que el destino (o un administrador) la apruebe.
// @Tags         transferencias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearTransferenciaRequest true "Transferencia"
// @Success      201  {object} dto.TransferenciaResponse
// @Router       /api/transfers [post]
func (h *TransferenciasHandler) Crear(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CrearTransferenciaRequest
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

func (h *TransferenciasHandler) Listar(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter dto.TransferenciaFilter
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

// ── Aprobaciones ─────────────────────────────────────────────────────────────

// Pendientes godoc
// @Summary      Transferencias pendientes de aprobación
// @Tags         transferencias
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.TransferenciaResponse
// @Router       /api/transfer-approvals [get]
func (h *TransferenciasHandler) Pendientes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarPendientes(c.Request.Context(), a)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *TransferenciasHandler) ContarPendientes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	n, err := h.svc.ContarPendientes(c.Request.Context(), a)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, dto.ConteoPendientesResponse{Pendientes: n})
}

// Aprobar godoc
// @Summary      Aprobar transferencia
// @Description  Acredita el destino y debita el origen. Repetir la aprobación es idempotente; aprobar una rechazada devuelve 409.
// @Tags         transferencias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID de la transferencia"
// @Param        body body dto.ResolverTransferenciaRequest false "Observaciones"
// @Success      200  {object} dto.TransferenciaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /api/transfer-approvals/{id}/approve [patch]
func (h *TransferenciasHandler) Aprobar(c *gin.Context) {
	h.resolver(c, h.svc.Aprobar)
}

// Rechazar godoc
// @Summary      Rechazar transferencia
// @Tags         transferencias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID de la transferencia"
// @Param        body body dto.ResolverTransferenciaRequest false "Observaciones"
// @Success      200  {object} dto.TransferenciaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /api/transfer-approvals/{id}/reject [patch]
func (h *TransferenciasHandler) Rechazar(c *gin.Context) {
	h.resolver(c, h.svc.Rechazar)
}

type resolverFn func(ctx context.Context, actor service.Actor, id uuid.UUID, req dto.ResolverTransferenciaRequest) (*dto.TransferenciaResponse, error)

func (h *TransferenciasHandler) resolver(c *gin.Context, fn resolverFn) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	// the body is optional
	var req dto.ResolverTransferenciaRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := fn(c.Request.Context(), a, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

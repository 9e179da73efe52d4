package service

import (
	"context"
	"strings"

	"puntocambio/internal/apierror"
	"puntocambio/internal/dto"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type MonedaService interface {
	Listar(ctx context.Context, soloActivas bool) ([]dto.MonedaResponse, error)
	Crear(ctx context.Context, req dto.CrearMonedaRequest) (*dto.MonedaResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarMonedaRequest) (*dto.MonedaResponse, error)
}

type monedaService struct {
	repo repository.MonedaRepository
}

func NewMonedaService(repo repository.MonedaRepository) MonedaService {
	return &monedaService{repo: repo}
}

func (s *monedaService) Listar(ctx context.Context, soloActivas bool) ([]dto.MonedaResponse, error) {
	monedas, err := s.repo.List(ctx, soloActivas)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.MonedaResponse, len(monedas))
	for i := range monedas {
		resp[i] = *monedaToResponse(&monedas[i])
	}
	return resp, nil
}

func (s *monedaService) Crear(ctx context.Context, req dto.CrearMonedaRequest) (*dto.MonedaResponse, error) {
	codigo := strings.ToUpper(strings.TrimSpace(req.Codigo))
	if existing, err := s.repo.FindByCodigo(ctx, codigo); err == nil && existing != nil && existing.ID != uuid.Nil {
		return nil, apierror.Conflict("ya existe una moneda con el código " + codigo)
	}
	m := &model.Moneda{
		Codigo:               codigo,
		Nombre:               req.Nombre,
		Simbolo:              req.Simbolo,
		Activo:               true,
		ComportamientoCompra: model.Comportamiento(req.ComportamientoCompra),
		ComportamientoVenta:  model.Comportamiento(req.ComportamientoVenta),
		OrdenDisplay:         req.OrdenDisplay,
	}
	if !m.ComportamientoCompra.Valido() || !m.ComportamientoVenta.Valido() {
		return nil, apierror.Validation("los comportamientos deben ser MULTIPLICA o DIVIDE")
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return monedaToResponse(m), nil
}

// Actualizar changes a currency. New behaviours only affect future exchanges:
// persisted amounts are never recomputed.
func (s *monedaService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarMonedaRequest) (*dto.MonedaResponse, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "moneda no encontrada")
	}
	if req.Nombre != nil {
		m.Nombre = *req.Nombre
	}
	if req.Simbolo != nil {
		m.Simbolo = *req.Simbolo
	}
	if req.ComportamientoCompra != nil {
		m.ComportamientoCompra = model.Comportamiento(*req.ComportamientoCompra)
	}
	if req.ComportamientoVenta != nil {
		m.ComportamientoVenta = model.Comportamiento(*req.ComportamientoVenta)
	}
	if req.OrdenDisplay != nil {
		m.OrdenDisplay = *req.OrdenDisplay
	}
	if req.Activo != nil {
		m.Activo = *req.Activo
	}
	if !m.ComportamientoCompra.Valido() || !m.ComportamientoVenta.Valido() {
		return nil, apierror.Validation("los comportamientos deben ser MULTIPLICA o DIVIDE")
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	log.Info().
		Str("moneda", m.Codigo).
		Str("compra", string(m.ComportamientoCompra)).
		Str("venta", string(m.ComportamientoVenta)).
		Msg("moneda actualizada")
	return monedaToResponse(m), nil
}

func monedaToResponse(m *model.Moneda) *dto.MonedaResponse {
	if m == nil {
		return nil
	}
	return &dto.MonedaResponse{
		ID:                   m.ID.String(),
		Codigo:               m.Codigo,
		Nombre:               m.Nombre,
		Simbolo:              m.Simbolo,
		Activo:               m.Activo,
		ComportamientoCompra: string(m.ComportamientoCompra),
		ComportamientoVenta:  string(m.ComportamientoVenta),
		OrdenDisplay:         m.OrdenDisplay,
	}
}

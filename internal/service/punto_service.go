package service

import (
	"context"

	"puntocambio/internal/dto"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
)

type PuntoService interface {
	Listar(ctx context.Context) ([]dto.PuntoResponse, error)
	Crear(ctx context.Context, req dto.CrearPuntoRequest) (*dto.PuntoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.PuntoResponse, error)
}

type puntoService struct {
	repo repository.PuntoRepository
}

func NewPuntoService(repo repository.PuntoRepository) PuntoService {
	return &puntoService{repo: repo}
}

func (s *puntoService) Listar(ctx context.Context) ([]dto.PuntoResponse, error) {
	puntos, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.PuntoResponse, len(puntos))
	for i, p := range puntos {
		resp[i] = puntoToResponse(&p)
	}
	return resp, nil
}

func (s *puntoService) Crear(ctx context.Context, req dto.CrearPuntoRequest) (*dto.PuntoResponse, error) {
	p := &model.PuntoAtencion{
		Nombre:      req.Nombre,
		Direccion:   req.Direccion,
		Ciudad:      req.Ciudad,
		EsPrincipal: req.EsPrincipal,
		Activo:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	resp := puntoToResponse(p)
	return &resp, nil
}

func (s *puntoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.PuntoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "punto de atención no encontrado")
	}
	resp := puntoToResponse(p)
	return &resp, nil
}

func puntoToResponse(p *model.PuntoAtencion) dto.PuntoResponse {
	return dto.PuntoResponse{
		ID:          p.ID.String(),
		Nombre:      p.Nombre,
		Direccion:   p.Direccion,
		Ciudad:      p.Ciudad,
		EsPrincipal: p.EsPrincipal,
		Activo:      p.Activo,
	}
}

package service

import (
	"context"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/dto"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type JornadaService interface {
	Iniciar(ctx context.Context, actor Actor, req dto.IniciarJornadaRequest) (*dto.JornadaResponse, error)
	Finalizar(ctx context.Context, actor Actor) (*dto.JornadaResponse, error)
	// Activa returns nil without error when the user has no open shift.
	Activa(ctx context.Context, usuarioID uuid.UUID) (*dto.JornadaResponse, error)
}

type jornadaService struct {
	repo   repository.JornadaRepository
	puntos repository.PuntoRepository
}

func NewJornadaService(repo repository.JornadaRepository, puntos repository.PuntoRepository) JornadaService {
	return &jornadaService{repo: repo, puntos: puntos}
}

func (s *jornadaService) Iniciar(ctx context.Context, actor Actor, req dto.IniciarJornadaRequest) (*dto.JornadaResponse, error) {
	puntoID, err := actor.Punto(req.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.puntos.FindByID(ctx, puntoID); err != nil {
		return nil, notFound(err, "punto de atención no encontrado")
	}
	activas, err := s.repo.ListActivas(ctx, actor.UsuarioID)
	if err != nil {
		return nil, err
	}
	if len(activas) > 0 {
		return nil, apierror.Conflict("ya tiene una jornada activa")
	}

	now := time.Now()
	j := &model.Jornada{
		ID:              uuid.New(),
		UsuarioID:       actor.UsuarioID,
		PuntoAtencionID: puntoID,
		FechaInicio:     now,
		Estado:          model.JornadaActiva,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	log.Info().Str("usuario_id", actor.UsuarioID.String()).Str("punto_id", puntoID.String()).Msg("jornada iniciada")
	resp := jornadaToResponse(j)
	return &resp, nil
}

func (s *jornadaService) Finalizar(ctx context.Context, actor Actor) (*dto.JornadaResponse, error) {
	activas, err := s.repo.ListActivas(ctx, actor.UsuarioID)
	if err != nil {
		return nil, err
	}
	if len(activas) == 0 {
		return nil, apierror.NotFound("no tiene una jornada activa")
	}
	j := activas[len(activas)-1]
	now := time.Now()
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.FinalizarTx(tx, j.ID, now, false)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.Conflict("la jornada ya fue finalizada")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	j.Estado = model.JornadaCompletada
	j.FechaSalida = &now
	log.Info().Str("usuario_id", actor.UsuarioID.String()).Str("jornada_id", j.ID.String()).Msg("jornada finalizada")
	resp := jornadaToResponse(&j)
	return &resp, nil
}

func (s *jornadaService) Activa(ctx context.Context, usuarioID uuid.UUID) (*dto.JornadaResponse, error) {
	activas, err := s.repo.ListActivas(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if len(activas) == 0 {
		return nil, nil
	}
	resp := jornadaToResponse(&activas[len(activas)-1])
	return &resp, nil
}

func jornadaToResponse(j *model.Jornada) dto.JornadaResponse {
	return dto.JornadaResponse{
		ID:                  j.ID.String(),
		UsuarioID:           j.UsuarioID.String(),
		PuntoAtencionID:     j.PuntoAtencionID.String(),
		FechaInicio:         fmtFecha(j.FechaInicio),
		FechaSalida:         fmtFechaPtr(j.FechaSalida),
		Estado:              j.Estado,
		FinalizadaPorCierre: j.FinalizadaPorCierre,
	}
}

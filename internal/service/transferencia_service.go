package service

import (
	"context"
	"fmt"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/dto"
	"puntocambio/internal/events"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type TransferenciaService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearTransferenciaRequest) (*dto.TransferenciaResponse, error)
	Listar(ctx context.Context, actor Actor, f dto.TransferenciaFilter) (*dto.TransferenciaListResponse, error)
	ListarPendientes(ctx context.Context, actor Actor) ([]dto.TransferenciaResponse, error)
	ContarPendientes(ctx context.Context, actor Actor) (int64, error)
	Aprobar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ResolverTransferenciaRequest) (*dto.TransferenciaResponse, error)
	Rechazar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ResolverTransferenciaRequest) (*dto.TransferenciaResponse, error)
}

type transferenciaService struct {
	repo        repository.TransferenciaRepository
	monedas     repository.MonedaRepository
	puntos      repository.PuntoRepository
	movimientos repository.MovimientoSaldoRepository
	locker      Locker
	bus         events.Publisher
}

func NewTransferenciaService(
	repo repository.TransferenciaRepository,
	monedas repository.MonedaRepository,
	puntos repository.PuntoRepository,
	movimientos repository.MovimientoSaldoRepository,
	locker Locker,
	bus events.Publisher,
) TransferenciaService {
	return &transferenciaService{
		repo:        repo,
		monedas:     monedas,
		puntos:      puntos,
		movimientos: movimientos,
		locker:      lockerOrNoop(locker),
		bus:         bus,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *transferenciaService) Crear(ctx context.Context, actor Actor, req dto.CrearTransferenciaRequest) (*dto.TransferenciaResponse, error) {
	destinoID, err := uuid.Parse(req.DestinoID)
	if err != nil {
		return nil, apierror.Validation("destino_id inválido")
	}
	var origenID *uuid.UUID
	if req.OrigenID != nil && *req.OrigenID != "" {
		id, err := uuid.Parse(*req.OrigenID)
		if err != nil {
			return nil, apierror.Validation("origen_id inválido")
		}
		if id == destinoID {
			return nil, apierror.Validation("el punto de origen y destino deben ser distintos")
		}
		if err := actor.PuedeOperar(id); err != nil {
			return nil, err
		}
		origenID = &id
	} else if !actor.EsAdmin() {
		// Only head office can inject funds without an origin point.
		return nil, apierror.Forbidden("solo un administrador puede registrar depósitos sin punto de origen")
	}
	if !req.Monto.IsPositive() {
		return nil, apierror.Validation("el monto debe ser mayor a cero")
	}
	monedaID, err := uuid.Parse(req.MonedaID)
	if err != nil {
		return nil, apierror.Validation("moneda_id inválido")
	}
	moneda, err := s.monedas.FindByID(ctx, monedaID)
	if err != nil || !moneda.Activo {
		return nil, apierror.Validation("la moneda no existe o está inactiva")
	}
	if _, err := s.puntos.FindByID(ctx, destinoID); err != nil {
		return nil, notFound(err, "punto de destino no encontrado")
	}

	now := time.Now()
	t := &model.Transferencia{
		ID:                uuid.New(),
		NumeroRecibo:      nuevoRecibo("TRF", now),
		OrigenID:          origenID,
		DestinoID:         destinoID,
		MonedaID:          monedaID,
		Monto:             req.Monto.Round(2),
		TipoTransferencia: req.TipoTransferencia,
		Estado:            model.TransferenciaPendiente,
		Descripcion:       req.Descripcion,
		SolicitadoPor:     actor.UsuarioID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	t.Moneda = moneda
	log.Info().Str("transferencia_id", t.ID.String()).Str("monto", t.Monto.StringFixed(2)).Msg("transferencia solicitada")
	resp := transferenciaToResponse(t)
	return &resp, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *transferenciaService) Listar(ctx context.Context, actor Actor, f dto.TransferenciaFilter) (*dto.TransferenciaListResponse, error) {
	alcance, err := actor.Alcance(f.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	filtro := repository.TransferenciaFiltro{PuntoAtencionID: alcance, Estado: f.Estado, Page: f.Page, Limit: f.Limit}
	if filtro.Page < 1 {
		filtro.Page = 1
	}
	if filtro.Limit < 1 {
		filtro.Limit = 50
	}
	ts, total, err := s.repo.List(ctx, filtro)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TransferenciaResponse, len(ts))
	for i := range ts {
		data[i] = transferenciaToResponse(&ts[i])
	}
	return &dto.TransferenciaListResponse{Data: data, Total: total, Page: filtro.Page, Limit: filtro.Limit}, nil
}

// alcanceAprobacion is which pending transfers the actor can resolve:
// admins see all of them, operators only those addressed to their point.
func alcanceAprobacion(actor Actor) *uuid.UUID {
	if actor.EsAdmin() {
		return nil
	}
	if actor.PuntoAtencionID == nil {
		none := uuid.Nil
		return &none
	}
	return actor.PuntoAtencionID
}

func (s *transferenciaService) ListarPendientes(ctx context.Context, actor Actor) ([]dto.TransferenciaResponse, error) {
	ts, err := s.repo.ListPendientes(ctx, alcanceAprobacion(actor))
	if err != nil {
		return nil, err
	}
	resp := make([]dto.TransferenciaResponse, len(ts))
	for i := range ts {
		resp[i] = transferenciaToResponse(&ts[i])
	}
	return resp, nil
}

func (s *transferenciaService) ContarPendientes(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.ContarPendientes(ctx, alcanceAprobacion(actor))
}

// ── Aprobar / Rechazar ────────────────────────────────────────────────────────
// PENDIENTE → APROBADO | RECHAZADO, terminal. Repeating the same action is a
// no-op that returns the current state so a client may retry safely; the
// opposite action on a resolved transfer is a conflict.

func (s *transferenciaService) Aprobar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ResolverTransferenciaRequest) (*dto.TransferenciaResponse, error) {
	return s.resolver(ctx, actor, id, model.TransferenciaAprobado, req.Observaciones)
}

func (s *transferenciaService) Rechazar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ResolverTransferenciaRequest) (*dto.TransferenciaResponse, error) {
	return s.resolver(ctx, actor, id, model.TransferenciaRechazado, req.Observaciones)
}

func (s *transferenciaService) resolver(ctx context.Context, actor Actor, id uuid.UUID, estado model.EstadoTransferencia, obs *string) (*dto.TransferenciaResponse, error) {
	unlock, err := s.locker.Lock(ctx, "lock:transferencia:"+id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "transferencia no encontrada")
	}
	if err := actor.PuedeOperar(t.DestinoID); err != nil {
		return nil, err
	}
	switch {
	case t.Estado == estado:
		resp := transferenciaToResponse(t)
		return &resp, nil
	case t.Estado != model.TransferenciaPendiente:
		return nil, apierror.Conflict(fmt.Sprintf("la transferencia ya fue resuelta (estado %s)", t.Estado))
	}

	now := time.Now()
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.ResolverTx(tx, id, repository.Resolucion{
			Estado:        estado,
			UsuarioID:     actor.UsuarioID,
			Observaciones: obs,
			Fecha:         now,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.Conflict("la transferencia fue resuelta por otro usuario")
		}
		if estado != model.TransferenciaAprobado {
			return nil
		}
		return s.registrarMovimientos(tx, t, actor.UsuarioID, now)
	})
	if txErr != nil {
		return nil, txErr
	}

	t.Estado = estado
	t.ObservacionesAprobacion = obs
	t.UpdatedAt = now
	if estado == model.TransferenciaAprobado {
		t.AprobadoPor, t.FechaAprobacion = &actor.UsuarioID, &now
	} else {
		t.RechazadoPor, t.FechaRechazo = &actor.UsuarioID, &now
	}

	log.Info().
		Str("transferencia_id", t.ID.String()).
		Str("estado", string(estado)).
		Str("usuario_id", actor.UsuarioID.String()).
		Msg("transferencia resuelta")

	if estado == model.TransferenciaAprobado {
		s.notificarAprobacion(t)
	}
	resp := transferenciaToResponse(t)
	return &resp, nil
}

// registrarMovimientos moves the cash: EGRESO at the origin (when there is
// one) and INGRESO at the destination.
func (s *transferenciaService) registrarMovimientos(tx *gorm.DB, t *model.Transferencia, usuarioID uuid.UUID, now time.Time) error {
	ref := t.ID
	if t.OrigenID != nil {
		if err := s.movimientos.CreateTx(tx, &model.MovimientoSaldo{
			PuntoAtencionID: *t.OrigenID,
			MonedaID:        t.MonedaID,
			Tipo:            model.MovimientoEgreso,
			Medio:           model.MedioEfectivo,
			Monto:           t.Monto.Neg(),
			ReferenciaTipo:  model.RefTransferencia,
			ReferenciaID:    &ref,
			Descripcion:     fmt.Sprintf("Transferencia %s enviada", t.NumeroRecibo),
			UsuarioID:       usuarioID,
			Fecha:           now,
		}); err != nil {
			return err
		}
	}
	return s.movimientos.CreateTx(tx, &model.MovimientoSaldo{
		PuntoAtencionID: t.DestinoID,
		MonedaID:        t.MonedaID,
		Tipo:            model.MovimientoIngreso,
		Medio:           model.MedioEfectivo,
		Monto:           t.Monto,
		ReferenciaTipo:  model.RefTransferencia,
		ReferenciaID:    &ref,
		Descripcion:     fmt.Sprintf("Transferencia %s recibida", t.NumeroRecibo),
		UsuarioID:       usuarioID,
		Fecha:           now,
	})
}

func (s *transferenciaService) notificarAprobacion(t *model.Transferencia) {
	publicar(s.bus, events.Event{
		Tipo:            events.TransferApproved,
		PuntoAtencionID: t.DestinoID,
		ReferenciaID:    t.ID,
		Payload:         events.TransferApprovedPayload{TransferenciaID: t.ID, OrigenID: t.OrigenID, DestinoID: t.DestinoID},
	})
	saldos := events.SaldosPayload{MonedaIDs: []uuid.UUID{t.MonedaID}}
	publicar(s.bus, events.Event{Tipo: events.SaldosUpdated, PuntoAtencionID: t.DestinoID, ReferenciaID: t.ID, Payload: saldos})
	if t.OrigenID != nil {
		publicar(s.bus, events.Event{Tipo: events.SaldosUpdated, PuntoAtencionID: *t.OrigenID, ReferenciaID: t.ID, Payload: saldos})
	}
}

func transferenciaToResponse(t *model.Transferencia) dto.TransferenciaResponse {
	resp := dto.TransferenciaResponse{
		ID:                      t.ID.String(),
		NumeroRecibo:            t.NumeroRecibo,
		OrigenID:                uuidPtrString(t.OrigenID),
		DestinoID:               t.DestinoID.String(),
		MonedaID:                t.MonedaID.String(),
		Monto:                   t.Monto,
		TipoTransferencia:       t.TipoTransferencia,
		Estado:                  string(t.Estado),
		Descripcion:             t.Descripcion,
		SolicitadoPor:           t.SolicitadoPor.String(),
		AprobadoPor:             uuidPtrString(t.AprobadoPor),
		RechazadoPor:            uuidPtrString(t.RechazadoPor),
		FechaAprobacion:         fmtFechaPtr(t.FechaAprobacion),
		FechaRechazo:            fmtFechaPtr(t.FechaRechazo),
		ObservacionesAprobacion: t.ObservacionesAprobacion,
		CreatedAt:               fmtFecha(t.CreatedAt),
	}
	if t.Moneda != nil {
		resp.MonedaCodigo = t.Moneda.Codigo
	}
	return resp
}

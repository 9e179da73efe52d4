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
	"github.com/shopspring/decimal"
)

// ContabilidadService exposes the balance ledger: the audit list of a day and
// manual entries for external services and adjustments.
type ContabilidadService interface {
	Diaria(ctx context.Context, actor Actor, puntoID, fecha string) (*dto.ContabilidadDiariaResponse, error)
	RegistrarMovimiento(ctx context.Context, actor Actor, req dto.MovimientoManualRequest) (*dto.MovimientoResponse, error)
}

type contabilidadService struct {
	movimientos repository.MovimientoSaldoRepository
	monedas     repository.MonedaRepository
	bus         events.Publisher
	cal         Calendario
}

func NewContabilidadService(
	movimientos repository.MovimientoSaldoRepository,
	monedas repository.MonedaRepository,
	bus events.Publisher,
	cal Calendario,
) ContabilidadService {
	return &contabilidadService{movimientos: movimientos, monedas: monedas, bus: bus, cal: cal}
}

func (s *contabilidadService) Diaria(ctx context.Context, actor Actor, puntoStr, fechaStr string) (*dto.ContabilidadDiariaResponse, error) {
	puntoID, err := actor.Punto(puntoStr)
	if err != nil {
		return nil, err
	}
	dia, err := s.cal.Fecha(fechaStr)
	if err != nil {
		return nil, err
	}
	inicio, fin := s.cal.Dia(dia)

	movs, err := s.movimientos.List(ctx, repository.MovimientoFiltro{PuntoAtencionID: puntoID, Desde: &inicio, Hasta: fin})
	if err != nil {
		return nil, err
	}
	efectivo, err := s.movimientos.Totales(ctx, repository.MovimientoFiltro{PuntoAtencionID: puntoID, Medio: model.MedioEfectivo, Hasta: fin})
	if err != nil {
		return nil, err
	}
	bancos, err := s.movimientos.Totales(ctx, repository.MovimientoFiltro{PuntoAtencionID: puntoID, Medio: model.MedioBanco, Hasta: fin})
	if err != nil {
		return nil, err
	}

	saldos := map[uuid.UUID]*dto.SaldoMoneda{}
	var orden []uuid.UUID
	saldo := func(id uuid.UUID) *dto.SaldoMoneda {
		if sm, ok := saldos[id]; ok {
			return sm
		}
		sm := &dto.SaldoMoneda{MonedaID: id.String(), Efectivo: decimal.Zero, Bancos: decimal.Zero}
		saldos[id] = sm
		orden = append(orden, id)
		return sm
	}
	for _, t := range efectivo {
		saldo(t.MonedaID).Efectivo = t.Neto()
	}
	for _, t := range bancos {
		saldo(t.MonedaID).Bancos = t.Neto()
	}
	ids := append([]uuid.UUID(nil), orden...)
	for _, m := range movs {
		if _, ok := saldos[m.MonedaID]; !ok {
			ids = append(ids, m.MonedaID)
		}
	}
	monedas, err := s.monedas.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &dto.ContabilidadDiariaResponse{
		PuntoAtencionID: puntoID.String(),
		Fecha:           s.cal.FechaContable(dia).Format("2006-01-02"),
		Movimientos:     make([]dto.MovimientoResponse, len(movs)),
		Saldos:          make([]dto.SaldoMoneda, 0, len(orden)),
	}
	for i := range movs {
		resp.Movimientos[i] = movimientoToResponse(&movs[i], monedas[movs[i].MonedaID].Codigo)
	}
	for _, id := range orden {
		sm := saldos[id]
		sm.Codigo = monedas[id].Codigo
		resp.Saldos = append(resp.Saldos, *sm)
	}
	return resp, nil
}

func (s *contabilidadService) RegistrarMovimiento(ctx context.Context, actor Actor, req dto.MovimientoManualRequest) (*dto.MovimientoResponse, error) {
	puntoID, err := actor.Punto(req.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	if req.ReferenciaTipo == model.RefAjuste && !actor.EsAdmin() {
		return nil, apierror.Forbidden("solo un administrador puede registrar ajustes")
	}
	monedaID, err := uuid.Parse(req.MonedaID)
	if err != nil {
		return nil, apierror.Validation("moneda_id inválido")
	}
	moneda, err := s.monedas.FindByID(ctx, monedaID)
	if err != nil {
		return nil, notFound(err, "moneda no encontrada")
	}
	if !req.Monto.IsPositive() {
		return nil, apierror.Validation("el monto debe ser mayor a cero")
	}

	monto := req.Monto.Round(2)
	if req.Tipo == model.MovimientoEgreso {
		monto = monto.Neg()
	}
	now := time.Now()
	m := &model.MovimientoSaldo{
		ID:              uuid.New(),
		PuntoAtencionID: puntoID,
		MonedaID:        monedaID,
		Tipo:            req.Tipo,
		Medio:           req.Medio,
		Monto:           monto,
		ReferenciaTipo:  req.ReferenciaTipo,
		Descripcion:     req.Descripcion,
		UsuarioID:       actor.UsuarioID,
		Fecha:           now,
		CreatedAt:       now,
	}
	if err := s.movimientos.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	log.Info().
		Str("punto_id", puntoID.String()).
		Str("referencia", req.ReferenciaTipo).
		Str("monto", monto.StringFixed(2)).
		Msg("movimiento manual registrado")

	publicar(s.bus, events.Event{
		Tipo:            events.SaldosUpdated,
		PuntoAtencionID: puntoID,
		ReferenciaID:    m.ID,
		Payload:         events.SaldosPayload{MonedaIDs: []uuid.UUID{monedaID}},
	})
	resp := movimientoToResponse(m, moneda.Codigo)
	return &resp, nil
}

func movimientoToResponse(m *model.MovimientoSaldo, codigo string) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:             m.ID.String(),
		MonedaID:       m.MonedaID.String(),
		MonedaCodigo:   codigo,
		Tipo:           m.Tipo,
		Medio:          m.Medio,
		Monto:          m.Monto,
		ReferenciaTipo: m.ReferenciaTipo,
		ReferenciaID:   uuidPtrString(m.ReferenciaID),
		Descripcion:    m.Descripcion,
		UsuarioID:      m.UsuarioID.String(),
		Fecha:          fmtFecha(m.Fecha),
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/cuadre"
	"puntocambio/internal/dto"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ColaCierre receives finished closes for report generation and delivery.
type ColaCierre interface {
	EnqueueCierre(ctx context.Context, cuadreID uuid.UUID) error
}

type CuadreService interface {
	ObtenerResumen(ctx context.Context, actor Actor, puntoID, fecha string) (*dto.ResumenCuadreResponse, error)
	Cerrar(ctx context.Context, actor Actor, req dto.CerrarCuadreRequest) (*dto.CuadreResponse, error)
	Historial(ctx context.Context, actor Actor, f dto.CuadreFilter) (*dto.CuadreListResponse, error)
}

type cuadreService struct {
	cuadres        repository.CuadreRepository
	movimientos    repository.MovimientoSaldoRepository
	cambios        repository.CambioRepository
	transferencias repository.TransferenciaRepository
	jornadas       repository.JornadaRepository
	monedas        repository.MonedaRepository
	locker         Locker
	cola           ColaCierre
	cal            Calendario
}

func NewCuadreService(
	cuadres repository.CuadreRepository,
	movimientos repository.MovimientoSaldoRepository,
	cambios repository.CambioRepository,
	transferencias repository.TransferenciaRepository,
	jornadas repository.JornadaRepository,
	monedas repository.MonedaRepository,
	locker Locker,
	cola ColaCierre,
	cal Calendario,
) CuadreService {
	return &cuadreService{
		cuadres:        cuadres,
		movimientos:    movimientos,
		cambios:        cambios,
		transferencias: transferencias,
		jornadas:       jornadas,
		monedas:        monedas,
		locker:         lockerOrNoop(locker),
		cola:           cola,
		cal:            cal,
	}
}

// esperado is the server-side expectation for one currency.
type esperado struct {
	moneda        model.Moneda
	saldoApertura decimal.Decimal
	ingresos      decimal.Decimal
	egresos       decimal.Decimal
	bancos        decimal.Decimal
}

func (e esperado) saldoCierre() decimal.Decimal {
	return e.saldoApertura.Add(e.ingresos).Sub(e.egresos)
}

// ── Resumen ───────────────────────────────────────────────────────────────────

func (s *cuadreService) ObtenerResumen(ctx context.Context, actor Actor, puntoStr, fechaStr string) (*dto.ResumenCuadreResponse, error) {
	puntoID, err := actor.Punto(puntoStr)
	if err != nil {
		return nil, err
	}
	dia, err := s.cal.Fecha(fechaStr)
	if err != nil {
		return nil, err
	}

	lineas, totales, err := s.calcular(ctx, puntoID, dia)
	if err != nil {
		return nil, err
	}
	_, err = s.cuadres.FindByPuntoFecha(ctx, puntoID, s.cal.FechaContable(dia))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	resp := &dto.ResumenCuadreResponse{
		PuntoAtencionID: puntoID.String(),
		Fecha:           s.cal.FechaContable(dia).Format("2006-01-02"),
		YaCerrado:       err == nil,
		Detalles:        make([]dto.DetalleResumen, len(lineas)),
		Totales:         totales,
	}
	for i, l := range lineas {
		resp.Detalles[i] = dto.DetalleResumen{
			MonedaID:        l.moneda.ID.String(),
			Codigo:          l.moneda.Codigo,
			Nombre:          l.moneda.Nombre,
			SaldoApertura:   l.saldoApertura,
			IngresosPeriodo: l.ingresos,
			EgresosPeriodo:  l.egresos,
			SaldoCierre:     l.saldoCierre(),
			BancosTeorico:   l.bancos,
			Tolerancia:      cuadre.Tolerancia(l.moneda.Codigo),
		}
	}
	return resp, nil
}

// calcular derives the expected balances of every currency moved on the day.
// A day without exchanges yields no lines, but its transfers and other
// movements are still counted in the totals.
func (s *cuadreService) calcular(ctx context.Context, puntoID uuid.UUID, dia time.Time) ([]esperado, dto.TotalesResumen, error) {
	inicio, fin := s.cal.Dia(dia)

	var tot dto.TotalesResumen
	var err error
	if tot.Cambios, err = s.cambios.Contar(ctx, puntoID, inicio, fin, ""); err != nil {
		return nil, tot, err
	}
	if tot.CambiosPendientes, err = s.cambios.Contar(ctx, puntoID, inicio, fin, string(model.CambioPendiente)); err != nil {
		return nil, tot, err
	}
	if tot.TransferenciasEntrada, tot.TransferenciasSalida, err = s.transferencias.ContarAprobadas(ctx, puntoID, inicio, fin); err != nil {
		return nil, tot, err
	}
	if tot.OtrosMovimientos, err = s.movimientos.ContarPorReferencia(ctx, puntoID, inicio, fin,
		model.RefServicioExterno, model.RefAjuste); err != nil {
		return nil, tot, err
	}
	if tot.Cambios == 0 {
		return nil, tot, nil
	}

	apertura, err := s.aperturas(ctx, puntoID, dia, inicio)
	if err != nil {
		return nil, tot, err
	}

	delDia, err := s.movimientos.Totales(ctx, repository.MovimientoFiltro{
		PuntoAtencionID: puntoID, Desde: &inicio, Hasta: fin,
	})
	if err != nil {
		return nil, tot, err
	}
	efectivoDia, err := s.movimientos.Totales(ctx, repository.MovimientoFiltro{
		PuntoAtencionID: puntoID, Medio: model.MedioEfectivo, Desde: &inicio, Hasta: fin,
	})
	if err != nil {
		return nil, tot, err
	}
	bancos, err := s.movimientos.Totales(ctx, repository.MovimientoFiltro{
		PuntoAtencionID: puntoID, Medio: model.MedioBanco, Hasta: fin,
	})
	if err != nil {
		return nil, tot, err
	}

	ids := make([]uuid.UUID, 0, len(delDia))
	for _, t := range delDia {
		ids = append(ids, t.MonedaID)
	}
	monedas, err := s.monedas.FindByIDs(ctx, ids)
	if err != nil {
		return nil, tot, err
	}

	porMoneda := make(map[uuid.UUID]*esperado, len(ids))
	for _, id := range ids {
		m, ok := monedas[id]
		if !ok {
			m = model.Moneda{ID: id, Codigo: "?"}
		}
		porMoneda[id] = &esperado{moneda: m, saldoApertura: apertura[id]}
	}
	for _, t := range efectivoDia {
		if e, ok := porMoneda[t.MonedaID]; ok {
			e.ingresos, e.egresos = t.Ingresos, t.Egresos
		}
	}
	for _, t := range bancos {
		if e, ok := porMoneda[t.MonedaID]; ok {
			e.bancos = t.Neto()
		}
	}

	lineas := make([]esperado, 0, len(porMoneda))
	for _, e := range porMoneda {
		lineas = append(lineas, *e)
	}
	sort.Slice(lineas, func(i, j int) bool {
		if lineas[i].moneda.OrdenDisplay != lineas[j].moneda.OrdenDisplay {
			return lineas[i].moneda.OrdenDisplay < lineas[j].moneda.OrdenDisplay
		}
		return lineas[i].moneda.Codigo < lineas[j].moneda.Codigo
	})
	return lineas, tot, nil
}

// aperturas is the opening cash per currency. A currency counted at an
// earlier close starts from its latest count plus the cash moved after that
// close day; one never counted starts from its whole cash history. Closes
// without a line for a currency leave its balance rolling forward.
func (s *cuadreService) aperturas(ctx context.Context, puntoID uuid.UUID, dia, inicio time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	conteos, err := s.cuadres.UltimosConteos(ctx, puntoID, s.cal.FechaContable(dia))
	if err != nil {
		return nil, err
	}

	apertura := make(map[uuid.UUID]decimal.Decimal, len(conteos))
	contada := make(map[uuid.UUID]bool, len(conteos))
	// currencies grouped by the close they were last counted at
	porCierre := map[string][]uuid.UUID{}
	fechas := map[string]time.Time{}
	for _, c := range conteos {
		apertura[c.MonedaID] = c.ConteoFisico
		contada[c.MonedaID] = true
		k := c.Fecha.Format("2006-01-02")
		porCierre[k] = append(porCierre[k], c.MonedaID)
		fechas[k] = c.Fecha
	}

	sumar := func(desde *time.Time, incluir func(uuid.UUID) bool) error {
		tot, err := s.movimientos.Totales(ctx, repository.MovimientoFiltro{
			PuntoAtencionID: puntoID, Medio: model.MedioEfectivo, Desde: desde, Hasta: inicio,
		})
		if err != nil {
			return err
		}
		for _, t := range tot {
			if incluir(t.MonedaID) {
				apertura[t.MonedaID] = apertura[t.MonedaID].Add(t.Neto())
			}
		}
		return nil
	}

	if err := sumar(nil, func(id uuid.UUID) bool { return !contada[id] }); err != nil {
		return nil, err
	}
	for k, ids := range porCierre {
		grupo := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			grupo[id] = true
		}
		_, finCierre := s.cal.DiaDeFecha(fechas[k])
		if err := sumar(&finCierre, func(id uuid.UUID) bool { return grupo[id] }); err != nil {
			return nil, err
		}
	}
	return apertura, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Expectations are recomputed here; the client's own figures are never
// trusted. One close per point and date.

func (s *cuadreService) Cerrar(ctx context.Context, actor Actor, req dto.CerrarCuadreRequest) (*dto.CuadreResponse, error) {
	puntoID, err := actor.Punto(req.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	dia, err := s.cal.Fecha(req.Fecha)
	if err != nil {
		return nil, err
	}
	fecha := s.cal.FechaContable(dia)

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("lock:cuadre:%s:%s", puntoID, fecha.Format("2006-01-02")))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.cuadres.FindByPuntoFecha(ctx, puntoID, fecha); err == nil {
		return nil, apierror.Conflict("ya existe un cierre de caja para este punto y fecha")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conteos := make(map[uuid.UUID]dto.ConteoMoneda, len(req.Detalles))
	for _, d := range req.Detalles {
		id, err := uuid.Parse(d.MonedaID)
		if err != nil {
			return nil, apierror.Validation("moneda_id inválido: " + d.MonedaID)
		}
		if _, dup := conteos[id]; dup {
			return nil, apierror.Validation("moneda repetida en el conteo: " + d.MonedaID)
		}
		conteos[id] = d
	}

	esperados, totales, err := s.calcular(ctx, puntoID, dia)
	if err != nil {
		return nil, err
	}

	lineas := make([]cuadre.Linea, len(esperados))
	for i, e := range esperados {
		c := conteos[e.moneda.ID]
		lineas[i] = cuadre.Linea{
			MonedaID:      e.moneda.ID,
			Codigo:        e.moneda.Codigo,
			SaldoCierre:   e.saldoCierre(),
			BancosTeorico: e.bancos,
			Billetes:      c.Billetes,
			Monedas:       c.Monedas,
			ConteoBancos:  c.ConteoBancos,
		}
	}
	if err := cuadre.Verificar(lineas); err != nil {
		log.Warn().Str("punto_id", puntoID.String()).Err(err).Msg("cierre rechazado por tolerancia")
		return nil, err
	}

	now := time.Now()
	cc := &model.CuadreCaja{
		ID:                         uuid.New(),
		PuntoAtencionID:            puntoID,
		UsuarioID:                  actor.UsuarioID,
		Fecha:                      fecha,
		Estado:                     model.CuadreCerrado,
		TotalCambios:               int(totales.Cambios),
		TotalTransferenciasEntrada: int(totales.TransferenciasEntrada),
		TotalTransferenciasSalida:  int(totales.TransferenciasSalida),
		OtrosMovimientos:           int(totales.OtrosMovimientos),
		Observaciones:              req.Observaciones,
		FechaCierre:                now,
		CreatedAt:                  now,
		Detalles:                   make([]model.CuadreDetalle, len(esperados)),
	}
	for i, e := range esperados {
		l := lineas[i]
		cc.Detalles[i] = model.CuadreDetalle{
			ID:               uuid.New(),
			CuadreID:         cc.ID,
			MonedaID:         e.moneda.ID,
			SaldoApertura:    e.saldoApertura,
			IngresosPeriodo:  e.ingresos,
			EgresosPeriodo:   e.egresos,
			SaldoCierre:      l.SaldoCierre,
			BancosTeorico:    l.BancosTeorico,
			ConteoBilletes:   l.Billetes,
			ConteoMonedas:    l.Monedas,
			ConteoFisico:     l.ConteoFisico(),
			ConteoBancos:     l.ConteoBancos,
			DiferenciaFisico: l.ConteoFisico().Sub(l.SaldoCierre),
			DiferenciaBancos: l.ConteoBancos.Sub(l.BancosTeorico),
			Observaciones:    conteos[e.moneda.ID].Observaciones,
		}
	}

	// The shift is finalized only when it is unambiguous which one to end.
	activas, err := s.jornadas.ListActivas(ctx, actor.UsuarioID)
	if err != nil {
		return nil, err
	}

	jornadaFinalizada := false
	txErr := runTx(ctx, s.cuadres.DB(), func(tx *gorm.DB) error {
		if err := s.cuadres.CreateTx(tx, cc); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.Conflict("ya existe un cierre de caja para este punto y fecha")
			}
			return err
		}
		if len(activas) != 1 {
			return nil
		}
		n, err := s.jornadas.FinalizarTx(tx, activas[0].ID, now, true)
		if err != nil {
			return err
		}
		jornadaFinalizada = n == 1
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for i := range cc.Detalles {
		cc.Detalles[i].Moneda = &esperados[i].moneda
	}

	log.Info().
		Str("cuadre_id", cc.ID.String()).
		Str("punto_id", puntoID.String()).
		Str("fecha", fecha.Format("2006-01-02")).
		Int("lineas", len(cc.Detalles)).
		Bool("jornada_finalizada", jornadaFinalizada).
		Msg("cierre de caja registrado")

	if s.cola != nil {
		if err := s.cola.EnqueueCierre(ctx, cc.ID); err != nil {
			// The close is committed; the report can be regenerated later.
			log.Warn().Err(err).Str("cuadre_id", cc.ID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}

	resp := cuadreToResponse(cc)
	resp.JornadaFinalizada = jornadaFinalizada
	return &resp, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cuadreService) Historial(ctx context.Context, actor Actor, f dto.CuadreFilter) (*dto.CuadreListResponse, error) {
	alcance, err := actor.Alcance(f.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	filtro := repository.CuadreFiltro{PuntoAtencionID: alcance, Page: f.Page, Limit: f.Limit}
	if filtro.Page < 1 {
		filtro.Page = 1
	}
	if filtro.Limit < 1 {
		filtro.Limit = 30
	}
	if f.Desde != "" {
		d, err := s.cal.Fecha(f.Desde)
		if err != nil {
			return nil, err
		}
		desde := s.cal.FechaContable(d)
		filtro.Desde = &desde
	}
	if f.Hasta != "" {
		h, err := s.cal.Fecha(f.Hasta)
		if err != nil {
			return nil, err
		}
		hasta := s.cal.FechaContable(h)
		filtro.Hasta = &hasta
	}

	cuadres, total, err := s.cuadres.List(ctx, filtro)
	if err != nil {
		return nil, err
	}
	data := make([]dto.CuadreResponse, len(cuadres))
	for i := range cuadres {
		data[i] = cuadreToResponse(&cuadres[i])
	}
	return &dto.CuadreListResponse{Data: data, Total: total, Page: filtro.Page, Limit: filtro.Limit}, nil
}

func cuadreToResponse(c *model.CuadreCaja) dto.CuadreResponse {
	resp := dto.CuadreResponse{
		ID:                         c.ID.String(),
		PuntoAtencionID:            c.PuntoAtencionID.String(),
		UsuarioID:                  c.UsuarioID.String(),
		Fecha:                      c.Fecha.Format("2006-01-02"),
		Estado:                     c.Estado,
		TotalCambios:               c.TotalCambios,
		TotalTransferenciasEntrada: c.TotalTransferenciasEntrada,
		TotalTransferenciasSalida:  c.TotalTransferenciasSalida,
		OtrosMovimientos:           c.OtrosMovimientos,
		Observaciones:              c.Observaciones,
		FechaCierre:                fmtFecha(c.FechaCierre),
		Detalles:                   make([]dto.DetalleCuadreResponse, len(c.Detalles)),
	}
	for i, d := range c.Detalles {
		codigo := ""
		if d.Moneda != nil {
			codigo = d.Moneda.Codigo
		}
		resp.Detalles[i] = dto.DetalleCuadreResponse{
			MonedaID:         d.MonedaID.String(),
			Codigo:           codigo,
			SaldoApertura:    d.SaldoApertura,
			IngresosPeriodo:  d.IngresosPeriodo,
			EgresosPeriodo:   d.EgresosPeriodo,
			SaldoCierre:      d.SaldoCierre,
			BancosTeorico:    d.BancosTeorico,
			ConteoBilletes:   d.ConteoBilletes,
			ConteoMonedas:    d.ConteoMonedas,
			ConteoFisico:     d.ConteoFisico,
			ConteoBancos:     d.ConteoBancos,
			DiferenciaFisico: d.DiferenciaFisico,
			DiferenciaBancos: d.DiferenciaBancos,
		}
	}
	return resp
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/calculo"
	"puntocambio/internal/dto"
	"puntocambio/internal/events"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// toleranciaMonto absorbs cent rounding between client and server amounts.
var toleranciaMonto = decimal.RequireFromString("0.01")

type CambioService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearCambioRequest) (*dto.CambioResponse, error)
	Completar(ctx context.Context, actor Actor, id uuid.UUID, req dto.CompletarCambioRequest) (*dto.CambioResponse, error)
	RegistrarAbono(ctx context.Context, actor Actor, id uuid.UUID, req dto.AbonoRequest) (*dto.CambioResponse, error)
	Cancelar(ctx context.Context, actor Actor, id uuid.UUID, req dto.CancelarCambioRequest) (*dto.CambioResponse, error)
	Listar(ctx context.Context, actor Actor, f dto.CambioFilter) (*dto.CambioListResponse, error)
	ListarPendientes(ctx context.Context, actor Actor, puntoID string) ([]dto.CambioResponse, error)
	Obtener(ctx context.Context, actor Actor, id uuid.UUID) (*dto.CambioResponse, error)
	// ObtenerModelo returns the persisted exchange, used to render the receipt.
	ObtenerModelo(ctx context.Context, actor Actor, id uuid.UUID) (*model.CambioDivisa, error)
	Calcular(ctx context.Context, req dto.CalcularCambioRequest) (*dto.CalculoResponse, error)
}

type cambioService struct {
	repo        repository.CambioRepository
	monedas     repository.MonedaRepository
	movimientos repository.MovimientoSaldoRepository
	locker      Locker
	bus         events.Publisher
	cal         Calendario
}

func NewCambioService(
	repo repository.CambioRepository,
	monedas repository.MonedaRepository,
	movimientos repository.MovimientoSaldoRepository,
	locker Locker,
	bus events.Publisher,
	cal Calendario,
) CambioService {
	return &cambioService{
		repo:        repo,
		monedas:     monedas,
		movimientos: movimientos,
		locker:      lockerOrNoop(locker),
		bus:         bus,
		cal:         cal,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// The server is authoritative for monto_destino: it is recomputed from the
// rates and the currencies' current behaviour, and a client value that
// disagrees by more than a cent is rejected.

func (s *cambioService) Crear(ctx context.Context, actor Actor, req dto.CrearCambioRequest) (*dto.CambioResponse, error) {
	puntoID, err := actor.Punto(req.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	origen, destino, err := s.cargarMonedas(ctx, req.MonedaOrigenID, req.MonedaDestinoID)
	if err != nil {
		return nil, err
	}

	tipo := model.TipoOperacion(req.TipoOperacion)
	comp := calculo.ComportamientoAplicable(*origen, *destino, tipo)
	if err := calculo.ValidarTasaCambio(req.TasaCambioBilletes, comp); err != nil {
		return nil, apierror.Validation(err.Error())
	}

	billetes, monedas := req.DivisasRecibidasBilletes, req.DivisasRecibidasMonedas
	if !billetes.Add(monedas).IsPositive() {
		billetes, monedas = req.MontoOrigen, decimal.Zero
	} else if req.MontoOrigen.IsPositive() && difiere(req.MontoOrigen, billetes.Add(monedas)) {
		return nil, apierror.Validation("monto_origen no coincide con el desglose de billetes y monedas recibido")
	}
	tasaMonedas := req.TasaCambioMonedas
	if monedas.IsPositive() {
		if !tasaMonedas.IsPositive() {
			tasaMonedas = req.TasaCambioBilletes
		}
		if err := calculo.ValidarTasaCambio(tasaMonedas, comp); err != nil {
			return nil, apierror.Validation("tasa de monedas: " + err.Error())
		}
	}

	detalle := calculo.CalcularDetallado(*origen, *destino, tipo, billetes, monedas, req.TasaCambioBilletes, tasaMonedas)
	montoOrigen := calculo.Redondear(detalle.Totales.Origen)
	montoDestino := calculo.Redondear(detalle.Totales.Destino)
	if !montoOrigen.IsPositive() || !montoDestino.IsPositive() {
		return nil, apierror.Validation("el monto del cambio debe ser mayor a cero")
	}
	if req.MontoDestino != nil && difiere(*req.MontoDestino, montoDestino) {
		return nil, apierror.Validation(fmt.Sprintf(
			"monto_destino enviado (%s) no coincide con el calculado (%s)", req.MontoDestino.StringFixed(2), montoDestino.StringFixed(2)))
	}

	porTransferencia := req.MetodoEntrega == model.EntregaTransferencia
	if porTransferencia && (vacio(req.TransferenciaBanco) || vacio(req.TransferenciaNumero)) {
		return nil, apierror.Validation("banco y número de transferencia son obligatorios para entregas por transferencia")
	}

	now := time.Now()
	c := &model.CambioDivisa{
		ID:                       uuid.New(),
		NumeroRecibo:             nuevoRecibo("CAM", now),
		PuntoAtencionID:          puntoID,
		UsuarioID:                actor.UsuarioID,
		MonedaOrigenID:           origen.ID,
		MonedaDestinoID:          destino.ID,
		TipoOperacion:            tipo,
		MontoOrigen:              montoOrigen,
		MontoDestino:             montoDestino,
		TasaCambioBilletes:       req.TasaCambioBilletes,
		TasaCambioMonedas:        tasaMonedas,
		DivisasRecibidasBilletes: calculo.Redondear(detalle.Billetes.Origen),
		DivisasRecibidasMonedas:  calculo.Redondear(detalle.Monedas.Origen),
		MetodoEntrega:            req.MetodoEntrega,
		TransferenciaBanco:       req.TransferenciaBanco,
		TransferenciaNumero:      req.TransferenciaNumero,
		Estado:                   model.CambioCompletado,
		ClienteNombre:            strings.TrimSpace(req.ClienteNombre),
		ClienteDocumento:         strings.TrimSpace(req.ClienteDocumento),
		Observacion:              req.Observacion,
		CreatedAt:                now,
	}

	// entregado is the destination amount handed over in cash right now.
	entregado := montoDestino
	switch {
	case req.AbonoInicialMonto != nil:
		abono := calculo.Redondear(*req.AbonoInicialMonto)
		saldo, err := calculo.SaldoPendiente(montoDestino, abono)
		if err != nil {
			return nil, apierror.Validation(fmt.Sprintf("%s (total %s)", err.Error(), montoDestino.StringFixed(2)))
		}
		c.Estado = model.CambioPendiente
		c.AbonoInicialMonto = &abono
		c.AbonoInicialFecha = &now
		c.AbonoInicialRecibidoPor = &actor.UsuarioID
		c.SaldoPendiente = &saldo
		entregado = abono
	case porTransferencia:
		saldo := montoDestino
		c.Estado = model.CambioPendiente
		c.SaldoPendiente = &saldo
		entregado = decimal.Zero
	}
	if c.Estado == model.CambioCompletado {
		c.FechaCompletado = &now
	}

	entBilletes, entMonedas := req.DivisasEntregadasBilletes, req.DivisasEntregadasMonedas
	if sum := entBilletes.Add(entMonedas); sum.IsPositive() {
		if difiere(sum, entregado) {
			return nil, apierror.Validation(fmt.Sprintf(
				"el desglose entregado (%s) no coincide con lo que corresponde entregar (%s)", sum.StringFixed(2), entregado.StringFixed(2)))
		}
	} else {
		entBilletes, entMonedas = entregado, decimal.Zero
	}
	c.DivisasEntregadasBilletes = entBilletes
	c.DivisasEntregadasMonedas = entMonedas

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, c); err != nil {
			return err
		}
		ref := c.ID
		if err := s.movimientos.CreateTx(tx, &model.MovimientoSaldo{
			PuntoAtencionID: puntoID,
			MonedaID:        origen.ID,
			Tipo:            model.MovimientoIngreso,
			Medio:           model.MedioEfectivo,
			Monto:           montoOrigen,
			ReferenciaTipo:  model.RefCambioDivisa,
			ReferenciaID:    &ref,
			Descripcion:     fmt.Sprintf("Cambio %s recibido", c.NumeroRecibo),
			UsuarioID:       actor.UsuarioID,
			Fecha:           now,
		}); err != nil {
			return err
		}
		if !entregado.IsPositive() {
			return nil
		}
		return s.movimientos.CreateTx(tx, &model.MovimientoSaldo{
			PuntoAtencionID: puntoID,
			MonedaID:        destino.ID,
			Tipo:            model.MovimientoEgreso,
			Medio:           model.MedioEfectivo,
			Monto:           entregado.Neg(),
			ReferenciaTipo:  model.RefCambioDivisa,
			ReferenciaID:    &ref,
			Descripcion:     fmt.Sprintf("Cambio %s entregado", c.NumeroRecibo),
			UsuarioID:       actor.UsuarioID,
			Fecha:           now,
		})
	})
	if txErr != nil {
		return nil, fmt.Errorf("crear cambio: %w", txErr)
	}

	c.MonedaOrigen, c.MonedaDestino = origen, destino
	log.Info().
		Str("cambio_id", c.ID.String()).
		Str("recibo", c.NumeroRecibo).
		Str("estado", string(c.Estado)).
		Str("monto_destino", montoDestino.StringFixed(2)).
		Msg("cambio registrado")

	s.notificar(c, origen.ID, destino.ID)
	return cambioToResponse(c), nil
}

// ── Completar ─────────────────────────────────────────────────────────────────

func (s *cambioService) Completar(ctx context.Context, actor Actor, id uuid.UUID, req dto.CompletarCambioRequest) (*dto.CambioResponse, error) {
	return s.pagar(ctx, actor, id, req.Entrega, true)
}

// ── RegistrarAbono ────────────────────────────────────────────────────────────
// recibido_por is always the acting user.

func (s *cambioService) RegistrarAbono(ctx context.Context, actor Actor, id uuid.UUID, req dto.AbonoRequest) (*dto.CambioResponse, error) {
	return s.pagar(ctx, actor, id, req.Pago, false)
}

// pagar records a payment against a pending exchange. completar demands that
// the payment settle the whole balance; a partial payment that happens to
// reach zero completes the exchange too.
func (s *cambioService) pagar(ctx context.Context, actor Actor, id uuid.UUID, entrega dto.EntregaRequest, completar bool) (*dto.CambioResponse, error) {
	unlock, err := s.locker.Lock(ctx, "lock:cambio:"+id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "cambio no encontrado")
	}
	if err := actor.PuedeOperar(c.PuntoAtencionID); err != nil {
		return nil, err
	}
	if c.Estado != model.CambioPendiente {
		return nil, apierror.Conflict(fmt.Sprintf("el cambio %s no está pendiente (estado %s)", c.NumeroRecibo, c.Estado))
	}

	pago := calculo.Redondear(entrega.Total())
	if !pago.IsPositive() {
		return nil, apierror.Validation("el monto del pago debe ser mayor a cero")
	}
	if entrega.Metodo == model.EntregaTransferencia && (vacio(entrega.Banco) || vacio(entrega.NumeroReferencia)) {
		return nil, apierror.Validation("banco y número de referencia son obligatorios para pagos por transferencia")
	}

	saldo := saldoActual(c)
	if completar {
		if pago.LessThan(saldo.Sub(toleranciaMonto)) {
			return nil, apierror.Validation(fmt.Sprintf(
				"el pago (%s) no cubre el saldo pendiente (%s)", pago.StringFixed(2), saldo.StringFixed(2)))
		}
		if pago.GreaterThan(saldo.Add(toleranciaMonto)) {
			return nil, apierror.Validation(fmt.Sprintf(
				"el pago (%s) excede el saldo pendiente (%s)", pago.StringFixed(2), saldo.StringFixed(2)))
		}
	} else if pago.GreaterThan(saldo) {
		return nil, apierror.Validation(fmt.Sprintf(
			"el abono (%s) excede el saldo pendiente (%s)", pago.StringFixed(2), saldo.StringFixed(2)))
	}

	nuevoSaldo := saldo.Sub(pago)
	final := completar || !nuevoSaldo.GreaterThan(toleranciaMonto)
	if final || nuevoSaldo.IsNegative() {
		nuevoSaldo = decimal.Zero
	}

	now := time.Now()
	abono := &model.AbonoCambio{
		ID:               uuid.New(),
		CambioID:         c.ID,
		Monto:            pago,
		Metodo:           entrega.Metodo,
		Banco:            entrega.Banco,
		NumeroReferencia: entrega.NumeroReferencia,
		RecibidoPor:      actor.UsuarioID,
		EsPagoFinal:      final,
		Observaciones:    entrega.Observaciones,
		CreatedAt:        now,
	}

	medio := model.MedioEfectivo
	if entrega.Metodo == model.EntregaTransferencia {
		medio = model.MedioBanco
		if c.TransferenciaBanco == nil {
			c.TransferenciaBanco, c.TransferenciaNumero = entrega.Banco, entrega.NumeroReferencia
		}
	} else if cash := entrega.Billetes.Add(entrega.Monedas); cash.IsPositive() {
		c.DivisasEntregadasBilletes = c.DivisasEntregadasBilletes.Add(entrega.Billetes)
		c.DivisasEntregadasMonedas = c.DivisasEntregadasMonedas.Add(entrega.Monedas)
	} else {
		c.DivisasEntregadasBilletes = c.DivisasEntregadasBilletes.Add(pago)
	}
	c.SaldoPendiente = &nuevoSaldo
	if final {
		c.Estado = model.CambioCompletado
		c.FechaCompletado = &now
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, c); err != nil {
			return err
		}
		if err := s.repo.CreateAbonoTx(tx, abono); err != nil {
			return err
		}
		ref := abono.ID
		return s.movimientos.CreateTx(tx, &model.MovimientoSaldo{
			PuntoAtencionID: c.PuntoAtencionID,
			MonedaID:        c.MonedaDestinoID,
			Tipo:            model.MovimientoEgreso,
			Medio:           medio,
			Monto:           pago.Neg(),
			ReferenciaTipo:  model.RefAbonoCambio,
			ReferenciaID:    &ref,
			Descripcion:     fmt.Sprintf("Pago de cambio %s", c.NumeroRecibo),
			UsuarioID:       actor.UsuarioID,
			Fecha:           now,
		})
	})
	if txErr != nil {
		return nil, fmt.Errorf("registrar pago: %w", txErr)
	}
	c.Abonos = append(c.Abonos, *abono)

	log.Info().
		Str("cambio_id", c.ID.String()).
		Str("pago", pago.StringFixed(2)).
		Str("saldo_pendiente", nuevoSaldo.StringFixed(2)).
		Bool("completado", final).
		Msg("pago de cambio registrado")

	s.notificar(c, c.MonedaDestinoID)
	return cambioToResponse(c), nil
}

// ── Cancelar ──────────────────────────────────────────────────────────────────
// Only PENDIENTE exchanges can be cancelled. The ledger is never edited:
// every movement the exchange produced gets its inverse.

func (s *cambioService) Cancelar(ctx context.Context, actor Actor, id uuid.UUID, req dto.CancelarCambioRequest) (*dto.CambioResponse, error) {
	unlock, err := s.locker.Lock(ctx, "lock:cambio:"+id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "cambio no encontrado")
	}
	if err := actor.PuedeOperar(c.PuntoAtencionID); err != nil {
		return nil, err
	}
	if c.Estado != model.CambioPendiente {
		return nil, apierror.Conflict(fmt.Sprintf("solo se pueden cancelar cambios pendientes (estado %s)", c.Estado))
	}

	efectivo, banco := decimal.Zero, decimal.Zero
	if c.AbonoInicialMonto != nil {
		efectivo = efectivo.Add(*c.AbonoInicialMonto)
	}
	for _, a := range c.Abonos {
		if a.Metodo == model.EntregaTransferencia {
			banco = banco.Add(a.Monto)
		} else {
			efectivo = efectivo.Add(a.Monto)
		}
	}

	now := time.Now()
	motivo := "Cancelado: " + strings.TrimSpace(req.Motivo)
	if c.Observacion != nil && *c.Observacion != "" {
		motivo = *c.Observacion + " | " + motivo
	}
	c.Observacion = &motivo
	c.Estado = model.CambioCancelado

	ref := c.ID
	reversos := []model.MovimientoSaldo{{
		PuntoAtencionID: c.PuntoAtencionID,
		MonedaID:        c.MonedaOrigenID,
		Tipo:            model.MovimientoEgreso,
		Medio:           model.MedioEfectivo,
		Monto:           c.MontoOrigen.Neg(),
		ReferenciaTipo:  model.RefCambioDivisa,
		ReferenciaID:    &ref,
		Descripcion:     fmt.Sprintf("Reverso por cancelación de %s", c.NumeroRecibo),
		UsuarioID:       actor.UsuarioID,
		Fecha:           now,
	}}
	for _, r := range []struct {
		medio string
		monto decimal.Decimal
	}{{model.MedioEfectivo, efectivo}, {model.MedioBanco, banco}} {
		medio, monto := r.medio, r.monto
		if !monto.IsPositive() {
			continue
		}
		reversos = append(reversos, model.MovimientoSaldo{
			PuntoAtencionID: c.PuntoAtencionID,
			MonedaID:        c.MonedaDestinoID,
			Tipo:            model.MovimientoIngreso,
			Medio:           medio,
			Monto:           monto,
			ReferenciaTipo:  model.RefCambioDivisa,
			ReferenciaID:    &ref,
			Descripcion:     fmt.Sprintf("Reverso de entregas por cancelación de %s", c.NumeroRecibo),
			UsuarioID:       actor.UsuarioID,
			Fecha:           now,
		})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, c); err != nil {
			return err
		}
		for i := range reversos {
			if err := s.movimientos.CreateTx(tx, &reversos[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("cancelar cambio: %w", txErr)
	}

	log.Info().Str("cambio_id", c.ID.String()).Str("motivo", req.Motivo).Msg("cambio cancelado")
	publicar(s.bus, events.Event{
		Tipo:            events.SaldosUpdated,
		PuntoAtencionID: c.PuntoAtencionID,
		ReferenciaID:    c.ID,
		Payload:         events.SaldosPayload{MonedaIDs: []uuid.UUID{c.MonedaOrigenID, c.MonedaDestinoID}},
	})
	return cambioToResponse(c), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cambioService) Listar(ctx context.Context, actor Actor, f dto.CambioFilter) (*dto.CambioListResponse, error) {
	alcance, err := actor.Alcance(f.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	filtro := repository.CambioFiltro{PuntoAtencionID: alcance, Estado: f.Estado, Page: f.Page, Limit: f.Limit}
	if filtro.Page < 1 {
		filtro.Page = 1
	}
	if filtro.Limit < 1 {
		filtro.Limit = 50
	}
	if f.Fecha != "" {
		dia, err := s.cal.Fecha(f.Fecha)
		if err != nil {
			return nil, err
		}
		desde, hasta := s.cal.Dia(dia)
		filtro.Desde, filtro.Hasta = &desde, &hasta
	}

	cambios, total, err := s.repo.List(ctx, filtro)
	if err != nil {
		return nil, err
	}
	data := make([]dto.CambioResponse, len(cambios))
	for i := range cambios {
		data[i] = *cambioToResponse(&cambios[i])
	}
	return &dto.CambioListResponse{Data: data, Total: total, Page: filtro.Page, Limit: filtro.Limit}, nil
}

func (s *cambioService) ListarPendientes(ctx context.Context, actor Actor, puntoID string) ([]dto.CambioResponse, error) {
	alcance, err := actor.Alcance(puntoID)
	if err != nil {
		return nil, err
	}
	cambios, err := s.repo.ListPendientes(ctx, alcance)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.CambioResponse, len(cambios))
	for i := range cambios {
		resp[i] = *cambioToResponse(&cambios[i])
	}
	return resp, nil
}

func (s *cambioService) ObtenerModelo(ctx context.Context, actor Actor, id uuid.UUID) (*model.CambioDivisa, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "cambio no encontrado")
	}
	if err := actor.PuedeOperar(c.PuntoAtencionID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *cambioService) Obtener(ctx context.Context, actor Actor, id uuid.UUID) (*dto.CambioResponse, error) {
	c, err := s.ObtenerModelo(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return cambioToResponse(c), nil
}

// Calcular previews the engine without persisting anything.
func (s *cambioService) Calcular(ctx context.Context, req dto.CalcularCambioRequest) (*dto.CalculoResponse, error) {
	origen, destino, err := s.cargarMonedas(ctx, req.MonedaOrigenID, req.MonedaDestinoID)
	if err != nil {
		return nil, err
	}
	tipo := model.TipoOperacion(req.TipoOperacion)
	comp := calculo.ComportamientoAplicable(*origen, *destino, tipo)
	if err := calculo.ValidarTasaCambio(req.TasaCambioBilletes, comp); err != nil {
		return nil, apierror.Validation(err.Error())
	}
	tasaMonedas := req.TasaCambioMonedas
	if !tasaMonedas.IsPositive() {
		tasaMonedas = req.TasaCambioBilletes
	}
	d := calculo.CalcularDetallado(*origen, *destino, tipo, req.Billetes, req.Monedas, req.TasaCambioBilletes, tasaMonedas)
	parcial := func(p calculo.Parcial) dto.ParcialResponse {
		return dto.ParcialResponse{Origen: calculo.Redondear(p.Origen), Destino: calculo.Redondear(p.Destino)}
	}
	resp := &dto.CalculoResponse{
		Comportamiento: string(comp),
		Billetes:       parcial(d.Billetes),
		Monedas:        parcial(d.Monedas),
		Totales:        parcial(d.Totales),
	}
	if req.MontoDestino != nil {
		if !req.MontoDestino.IsPositive() {
			return nil, apierror.Validation("monto_destino debe ser mayor a cero")
		}
		requerido := calculo.Redondear(calculo.CalcularMontoOrigen(*origen, *destino, tipo, *req.MontoDestino, req.TasaCambioBilletes))
		resp.MontoOrigenRequerido = &requerido
	}
	return resp, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *cambioService) cargarMonedas(ctx context.Context, origenStr, destinoStr string) (*model.Moneda, *model.Moneda, error) {
	origenID, err := uuid.Parse(origenStr)
	if err != nil {
		return nil, nil, apierror.Validation("moneda_origen_id inválido")
	}
	destinoID, err := uuid.Parse(destinoStr)
	if err != nil {
		return nil, nil, apierror.Validation("moneda_destino_id inválido")
	}
	if origenID == destinoID {
		return nil, nil, apierror.Validation("la moneda de origen y destino deben ser distintas")
	}
	monedas, err := s.monedas.FindByIDs(ctx, []uuid.UUID{origenID, destinoID})
	if err != nil {
		return nil, nil, err
	}
	origen, ok := monedas[origenID]
	if !ok || !origen.Activo {
		return nil, nil, apierror.Validation("la moneda de origen no existe o está inactiva")
	}
	destino, ok := monedas[destinoID]
	if !ok || !destino.Activo {
		return nil, nil, apierror.Validation("la moneda de destino no existe o está inactiva")
	}
	return &origen, &destino, nil
}

func (s *cambioService) notificar(c *model.CambioDivisa, monedas ...uuid.UUID) {
	if c.Estado == model.CambioCompletado {
		publicar(s.bus, events.Event{
			Tipo:            events.ExchangeCompleted,
			PuntoAtencionID: c.PuntoAtencionID,
			ReferenciaID:    c.ID,
			Payload:         events.ExchangeCompletedPayload{CambioID: c.ID, NumeroRecibo: c.NumeroRecibo},
		})
	}
	publicar(s.bus, events.Event{
		Tipo:            events.SaldosUpdated,
		PuntoAtencionID: c.PuntoAtencionID,
		ReferenciaID:    c.ID,
		Payload:         events.SaldosPayload{MonedaIDs: monedas},
	})
}

// saldoActual derives the outstanding balance from what was actually paid.
func saldoActual(c *model.CambioDivisa) decimal.Decimal {
	pagado := decimal.Zero
	if c.AbonoInicialMonto != nil {
		pagado = pagado.Add(*c.AbonoInicialMonto)
	}
	for _, a := range c.Abonos {
		pagado = pagado.Add(a.Monto)
	}
	saldo := c.MontoDestino.Sub(pagado)
	if saldo.IsNegative() {
		return decimal.Zero
	}
	return saldo
}

func difiere(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(toleranciaMonto)
}

func vacio(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func cambioToResponse(c *model.CambioDivisa) *dto.CambioResponse {
	resp := &dto.CambioResponse{
		ID:                        c.ID.String(),
		NumeroRecibo:              c.NumeroRecibo,
		PuntoAtencionID:           c.PuntoAtencionID.String(),
		UsuarioID:                 c.UsuarioID.String(),
		MonedaOrigen:              monedaToResponse(c.MonedaOrigen),
		MonedaDestino:             monedaToResponse(c.MonedaDestino),
		TipoOperacion:             string(c.TipoOperacion),
		MontoOrigen:               c.MontoOrigen,
		MontoDestino:              c.MontoDestino,
		TasaCambioBilletes:        c.TasaCambioBilletes,
		TasaCambioMonedas:         c.TasaCambioMonedas,
		DivisasRecibidasBilletes:  c.DivisasRecibidasBilletes,
		DivisasRecibidasMonedas:   c.DivisasRecibidasMonedas,
		DivisasEntregadasBilletes: c.DivisasEntregadasBilletes,
		DivisasEntregadasMonedas:  c.DivisasEntregadasMonedas,
		MetodoEntrega:             c.MetodoEntrega,
		TransferenciaBanco:        c.TransferenciaBanco,
		TransferenciaNumero:       c.TransferenciaNumero,
		Estado:                    string(c.Estado),
		SaldoPendiente:            c.SaldoPendiente,
		AbonoInicialMonto:         c.AbonoInicialMonto,
		AbonoInicialFecha:         fmtFechaPtr(c.AbonoInicialFecha),
		ClienteNombre:             c.ClienteNombre,
		ClienteDocumento:          c.ClienteDocumento,
		Observacion:               c.Observacion,
		FechaCompletado:           fmtFechaPtr(c.FechaCompletado),
		CreatedAt:                 fmtFecha(c.CreatedAt),
		Abonos:                    make([]dto.AbonoResponse, len(c.Abonos)),
	}
	for i, a := range c.Abonos {
		resp.Abonos[i] = dto.AbonoResponse{
			ID:               a.ID.String(),
			Monto:            a.Monto,
			Metodo:           a.Metodo,
			Banco:            a.Banco,
			NumeroReferencia: a.NumeroReferencia,
			RecibidoPor:      a.RecibidoPor.String(),
			EsPagoFinal:      a.EsPagoFinal,
			CreatedAt:        fmtFecha(a.CreatedAt),
		}
	}
	return resp
}

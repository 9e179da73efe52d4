package client

import (
	"context"
	"net/http"
	"net/url"

	"puntocambio/internal/apierror"
	"puntocambio/internal/dto"
	"puntocambio/internal/events"
	"puntocambio/internal/model"

	"github.com/google/uuid"
)

// ── Sesión ───────────────────────────────────────────────────────────────────

// Login authenticates and initializes the session from the response.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	req := dto.LoginRequest{Username: username, Password: password}
	if err := c.validarRequest(req); err != nil {
		return nil, err
	}
	var resp dto.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	c.session.iniciar(&resp)
	return &resp, nil
}

// Refrescar renews the tokens with the session's refresh token.
func (c *Client) Refrescar(ctx context.Context) error {
	rt := c.session.RefreshToken()
	if rt == "" {
		return ErrSinSesion
	}
	var resp dto.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, dto.RefreshRequest{RefreshToken: rt}, &resp); err != nil {
		return err
	}
	c.session.renovar(&resp)
	return nil
}

func (c *Client) Logout() { c.session.Logout() }

func (c *Client) requireSession() error {
	if !c.session.Autenticada() {
		return ErrSinSesion
	}
	return nil
}

// ── Jornadas ─────────────────────────────────────────────────────────────────

// IniciarJornada opens a shift at puntoID and selects that point.
func (c *Client) IniciarJornada(ctx context.Context, puntoID uuid.UUID) (*dto.JornadaResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var j dto.JornadaResponse
	req := dto.IniciarJornadaRequest{PuntoAtencionID: puntoID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/schedules", nil, req, &j); err != nil {
		return nil, err
	}
	c.session.setJornada(&j)
	return &j, nil
}

// JornadaActiva returns nil when the user has no open shift.
func (c *Client) JornadaActiva(ctx context.Context) (*dto.JornadaResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var j *dto.JornadaResponse
	if err := c.do(ctx, http.MethodGet, "/api/schedules/active", nil, nil, &j); err != nil {
		return nil, err
	}
	if j != nil {
		c.session.setJornada(j)
	}
	return j, nil
}

func (c *Client) FinalizarJornada(ctx context.Context) (*dto.JornadaResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var j dto.JornadaResponse
	if err := c.do(ctx, http.MethodPatch, "/api/schedules/finish", nil, nil, &j); err != nil {
		return nil, err
	}
	c.session.setJornada(nil)
	return &j, nil
}

// ── Cambios ──────────────────────────────────────────────────────────────────

// CrearCambio registers an exchange at the selected point unless the request
// names one.
func (c *Client) CrearCambio(ctx context.Context, req dto.CrearCambioRequest) (*dto.CambioResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if req.PuntoAtencionID == "" {
		if p, ok := c.session.PuntoSeleccionado(); ok {
			req.PuntoAtencionID = p.String()
		}
	}
	if err := c.validarRequest(req); err != nil {
		return nil, err
	}
	if req.MetodoEntrega == "transferencia" && (vacio(req.TransferenciaBanco) || vacio(req.TransferenciaNumero)) {
		return nil, apierror.Validation("banco y número de transferencia son obligatorios")
	}
	if abono := req.AbonoInicialMonto; abono != nil {
		if req.MontoDestino == nil {
			return nil, apierror.Validation("indique el monto destino para registrar un abono inicial")
		}
		if total := *req.MontoDestino; !abono.IsPositive() || abono.GreaterThanOrEqual(total) {
			return nil, apierror.Validation("el abono inicial debe ser mayor a 0 y menor al monto destino (" + total.StringFixed(2) + ")")
		}
	}

	release, err := c.inflight.Begin("cambio:crear")
	if err != nil {
		return nil, err
	}
	defer release()

	var resp dto.CambioResponse
	if err := c.do(ctx, http.MethodPost, "/api/exchanges", nil, req, &resp); err != nil {
		return nil, err
	}
	c.publicarCambio(&resp)
	return &resp, nil
}

func (c *Client) CambiosPendientes(ctx context.Context) ([]dto.CambioResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var q url.Values
	if p, ok := c.session.PuntoSeleccionado(); ok {
		q = url.Values{"punto_atencion_id": {p.String()}}
	}
	var out []dto.CambioResponse
	if err := c.do(ctx, http.MethodGet, "/api/exchanges/pending", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompletarCambio delivers the outstanding balance of a pending exchange.
func (c *Client) CompletarCambio(ctx context.Context, id uuid.UUID, entrega dto.EntregaRequest) (*dto.CambioResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	req := dto.CompletarCambioRequest{Entrega: entrega}
	if err := c.validarEntrega(req, entrega); err != nil {
		return nil, err
	}

	release, err := c.inflight.Begin("cambio:" + id.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var resp dto.CambioResponse
	if err := c.do(ctx, http.MethodPost, "/api/exchanges/"+id.String()+"/complete", nil, req, &resp); err != nil {
		return nil, err
	}
	c.publicarCambio(&resp)
	return &resp, nil
}

// RegistrarAbono records a partial delivery. The amount must be positive and
// below the outstanding balance; paying it all is CompletarCambio.
func (c *Client) RegistrarAbono(ctx context.Context, cambio dto.CambioResponse, pago dto.EntregaRequest) (*dto.CambioResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(cambio.ID)
	if err != nil {
		return nil, apierror.Validation("ID de cambio inválido")
	}
	req := dto.AbonoRequest{Pago: pago}
	if err := c.validarEntrega(req, pago); err != nil {
		return nil, err
	}
	saldo := cambio.MontoDestino
	if cambio.SaldoPendiente != nil {
		saldo = *cambio.SaldoPendiente
	}
	if monto := pago.Total(); !monto.IsPositive() || monto.GreaterThanOrEqual(saldo) {
		return nil, apierror.Validation("el abono debe ser mayor a 0 y menor al saldo pendiente (" + saldo.StringFixed(2) + ")")
	}

	release, err := c.inflight.Begin("cambio:" + id.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var resp dto.CambioResponse
	if err := c.do(ctx, http.MethodPost, "/api/exchanges/"+id.String()+"/partial-payments", nil, req, &resp); err != nil {
		return nil, err
	}
	c.publicarCambio(&resp)
	return &resp, nil
}

func (c *Client) CancelarCambio(ctx context.Context, id uuid.UUID, motivo string) (*dto.CambioResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	req := dto.CancelarCambioRequest{Motivo: motivo}
	if err := c.validarRequest(req); err != nil {
		return nil, err
	}

	release, err := c.inflight.Begin("cambio:" + id.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var resp dto.CambioResponse
	if err := c.do(ctx, http.MethodPost, "/api/exchanges/"+id.String()+"/cancel", nil, req, &resp); err != nil {
		return nil, err
	}
	c.publicarCambio(&resp)
	return &resp, nil
}

func (c *Client) validarEntrega(req any, e dto.EntregaRequest) error {
	if err := c.validarRequest(req); err != nil {
		return err
	}
	if e.Metodo == "transferencia" && (vacio(e.Banco) || vacio(e.NumeroReferencia)) {
		return apierror.Validation("banco y número de referencia son obligatorios para una transferencia")
	}
	return nil
}

// publicarCambio announces the balance change and, once the customer has
// everything, the completed exchange.
func (c *Client) publicarCambio(resp *dto.CambioResponse) {
	punto := parseID(resp.PuntoAtencionID)
	ref := parseID(resp.ID)
	var monedas []uuid.UUID
	for _, m := range []*dto.MonedaResponse{resp.MonedaOrigen, resp.MonedaDestino} {
		if m != nil {
			monedas = append(monedas, parseID(m.ID))
		}
	}
	c.publish(events.Event{
		Tipo:            events.SaldosUpdated,
		PuntoAtencionID: punto,
		ReferenciaID:    ref,
		Payload:         events.SaldosPayload{MonedaIDs: monedas},
	})
	if model.EstadoCambio(resp.Estado) == model.CambioCompletado {
		c.publish(events.Event{
			Tipo:            events.ExchangeCompleted,
			PuntoAtencionID: punto,
			ReferenciaID:    ref,
			Payload:         events.ExchangeCompletedPayload{CambioID: ref, NumeroRecibo: resp.NumeroRecibo},
		})
	}
}

// ── Transferencias ───────────────────────────────────────────────────────────

func (c *Client) CrearTransferencia(ctx context.Context, req dto.CrearTransferenciaRequest) (*dto.TransferenciaResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if err := c.validarRequest(req); err != nil {
		return nil, err
	}
	release, err := c.inflight.Begin("transferencia:crear")
	if err != nil {
		return nil, err
	}
	defer release()

	var resp dto.TransferenciaResponse
	if err := c.do(ctx, http.MethodPost, "/api/transfers", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) TransferenciasPendientes(ctx context.Context) ([]dto.TransferenciaResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out []dto.TransferenciaResponse
	if err := c.do(ctx, http.MethodGet, "/api/transfer-approvals", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ContarPendientes(ctx context.Context) (int64, error) {
	if err := c.requireSession(); err != nil {
		return 0, err
	}
	var out dto.ConteoPendientesResponse
	if err := c.do(ctx, http.MethodGet, "/api/transfer-approvals/count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Pendientes, nil
}

// AprobarTransferencia credits the destination. Approve and reject share one
// in-flight id so the two cannot race for the same transfer.
func (c *Client) AprobarTransferencia(ctx context.Context, id uuid.UUID, observaciones *string) (*dto.TransferenciaResponse, error) {
	resp, err := c.resolver(ctx, id, "approve", observaciones)
	if err != nil {
		return nil, err
	}
	destino := parseID(resp.DestinoID)
	ref := parseID(resp.ID)
	var origen *uuid.UUID
	if resp.OrigenID != nil {
		origen = parseOpt(*resp.OrigenID)
	}
	c.publish(events.Event{
		Tipo:            events.TransferApproved,
		PuntoAtencionID: destino,
		ReferenciaID:    ref,
		Payload:         events.TransferApprovedPayload{TransferenciaID: ref, OrigenID: origen, DestinoID: destino},
	})
	c.publish(events.Event{
		Tipo:            events.SaldosUpdated,
		PuntoAtencionID: destino,
		ReferenciaID:    ref,
		Payload:         events.SaldosPayload{MonedaIDs: []uuid.UUID{parseID(resp.MonedaID)}},
	})
	return resp, nil
}

func (c *Client) RechazarTransferencia(ctx context.Context, id uuid.UUID, observaciones *string) (*dto.TransferenciaResponse, error) {
	return c.resolver(ctx, id, "reject", observaciones)
}

func (c *Client) resolver(ctx context.Context, id uuid.UUID, accion string, observaciones *string) (*dto.TransferenciaResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	release, err := c.inflight.Begin("transferencia:" + id.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var resp dto.TransferenciaResponse
	req := dto.ResolverTransferenciaRequest{Observaciones: observaciones}
	if err := c.do(ctx, http.MethodPatch, "/api/transfer-approvals/"+id.String()+"/"+accion, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VigilarAprobaciones polls the pending approvals count every interval and
// reports it through fn. The caller owns the returned poller.
func (c *Client) VigilarAprobaciones(ctx context.Context, fn func(pendientes int64), opts ...PollerOption) *Poller {
	p := NewPoller("aprobaciones", func(ctx context.Context) error {
		n, err := c.ContarPendientes(ctx)
		if err != nil {
			return err
		}
		fn(n)
		return nil
	}, opts...)
	p.Start(ctx)
	return p
}

func vacio(s *string) bool { return s == nil || *s == "" }

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

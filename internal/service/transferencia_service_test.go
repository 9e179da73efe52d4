package service_test

import (
	"context"
	"testing"

	"puntocambio/internal/apierror"
	"puntocambio/internal/dto"
	"puntocambio/internal/events"
	"puntocambio/internal/model"
	"puntocambio/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferenciaFixture struct {
	svc            service.TransferenciaService
	repo           *fakeTransferenciaRepo
	movs           *fakeMovimientoRepo
	bus            *recorder
	origen         uuid.UUID
	destino        uuid.UUID
	operadorOrigen service.Actor
	operadorDest   service.Actor
	admin          service.Actor
}

func newTransferenciaFixture(t *testing.T) *transferenciaFixture {
	t.Helper()
	f := &transferenciaFixture{
		repo:    newFakeTransferenciaRepo(),
		movs:    &fakeMovimientoRepo{},
		bus:     &recorder{},
		origen:  uuid.New(),
		destino: uuid.New(),
	}
	f.operadorOrigen = service.Actor{UsuarioID: uuid.New(), Rol: model.RolOperador, PuntoAtencionID: &f.origen}
	f.operadorDest = service.Actor{UsuarioID: uuid.New(), Rol: model.RolOperador, PuntoAtencionID: &f.destino}
	f.admin = service.Actor{UsuarioID: uuid.New(), Rol: model.RolAdmin}
	f.svc = service.NewTransferenciaService(f.repo, newFakeMonedaRepo(usd, eur),
		newFakePuntoRepo(f.origen, f.destino), f.movs, nil, f.bus)
	return f
}

func (f *transferenciaFixture) solicitar(t *testing.T, monto string) uuid.UUID {
	t.Helper()
	origen := f.origen.String()
	resp, err := f.svc.Crear(context.Background(), f.operadorOrigen, dto.CrearTransferenciaRequest{
		OrigenID:          &origen,
		DestinoID:         f.destino.String(),
		MonedaID:          usd.ID.String(),
		Monto:             dec(monto),
		TipoTransferencia: "ENTRE_PUNTOS",
	})
	require.NoError(t, err)
	require.Equal(t, string(model.TransferenciaPendiente), resp.Estado)
	return mustUUID(t, resp.ID)
}

func TestCrearTransferencia_Validaciones(t *testing.T) {
	f := newTransferenciaFixture(t)
	mismo := f.destino.String()

	_, err := f.svc.Crear(context.Background(), f.admin, dto.CrearTransferenciaRequest{
		OrigenID: &mismo, DestinoID: f.destino.String(), MonedaID: usd.ID.String(),
		Monto: dec("10"), TipoTransferencia: "ENTRE_PUNTOS",
	})
	assert.ErrorIs(t, err, apierror.ErrValidation, "origen must differ from destino")

	_, err = f.svc.Crear(context.Background(), f.operadorOrigen, dto.CrearTransferenciaRequest{
		DestinoID: f.destino.String(), MonedaID: usd.ID.String(),
		Monto: dec("10"), TipoTransferencia: "DEPOSITO_MATRIZ",
	})
	assert.ErrorIs(t, err, apierror.ErrForbidden, "only admins deposit without origin")

	resp, err := f.svc.Crear(context.Background(), f.admin, dto.CrearTransferenciaRequest{
		DestinoID: f.destino.String(), MonedaID: usd.ID.String(),
		Monto: dec("10"), TipoTransferencia: "DEPOSITO_MATRIZ",
	})
	require.NoError(t, err)
	assert.Nil(t, resp.OrigenID)
	assert.Equal(t, "USD", resp.MonedaCodigo)
	assert.Regexp(t, `^TRF-`, resp.NumeroRecibo)
}

func TestAprobarTransferencia(t *testing.T) {
	f := newTransferenciaFixture(t)
	id := f.solicitar(t, "250")

	n, err := f.svc.ContarPendientes(context.Background(), f.operadorDest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = f.svc.ContarPendientes(context.Background(), f.operadorOrigen)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "operators only see transfers addressed to them")

	resp, err := f.svc.Aprobar(context.Background(), f.operadorDest, id, dto.ResolverTransferenciaRequest{Observaciones: strPtr("recibido completo")})

	require.NoError(t, err)
	assert.Equal(t, string(model.TransferenciaAprobado), resp.Estado)
	assert.Equal(t, f.operadorDest.UsuarioID.String(), *resp.AprobadoPor)
	assertDec(t, "-250", f.movs.saldo(f.origen, usd.ID, model.MedioEfectivo))
	assertDec(t, "250", f.movs.saldo(f.destino, usd.ID, model.MedioEfectivo))
	assert.Equal(t, []events.Tipo{events.TransferApproved, events.SaldosUpdated, events.SaldosUpdated}, f.bus.tipos())
}

func TestAprobarTransferencia_ReintentoEsIdempotente(t *testing.T) {
	f := newTransferenciaFixture(t)
	id := f.solicitar(t, "100")

	_, err := f.svc.Aprobar(context.Background(), f.admin, id, dto.ResolverTransferenciaRequest{})
	require.NoError(t, err)

	resp, err := f.svc.Aprobar(context.Background(), f.admin, id, dto.ResolverTransferenciaRequest{})
	require.NoError(t, err)
	assert.Equal(t, string(model.TransferenciaAprobado), resp.Estado)
	assert.Len(t, f.movs.movs, 2, "a retried approval must not move money twice")

	_, err = f.svc.Rechazar(context.Background(), f.admin, id, dto.ResolverTransferenciaRequest{})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestRechazarTransferencia_SinMovimientos(t *testing.T) {
	f := newTransferenciaFixture(t)
	id := f.solicitar(t, "100")

	resp, err := f.svc.Rechazar(context.Background(), f.operadorDest, id, dto.ResolverTransferenciaRequest{Observaciones: strPtr("monto incorrecto")})

	require.NoError(t, err)
	assert.Equal(t, string(model.TransferenciaRechazado), resp.Estado)
	assert.NotNil(t, resp.RechazadoPor)
	assert.Empty(t, f.movs.movs)
	assert.Empty(t, f.bus.tipos())

	_, err = f.svc.Aprobar(context.Background(), f.operadorDest, id, dto.ResolverTransferenciaRequest{})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestAprobarTransferencia_CarreraPerdidaEsConflicto(t *testing.T) {
	f := newTransferenciaFixture(t)
	id := f.solicitar(t, "100")
	f.repo.robada = true

	_, err := f.svc.Aprobar(context.Background(), f.admin, id, dto.ResolverTransferenciaRequest{})

	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.Empty(t, f.movs.movs)
}

func TestAprobarTransferencia_OrigenNoPuedeAprobar(t *testing.T) {
	f := newTransferenciaFixture(t)
	id := f.solicitar(t, "100")

	_, err := f.svc.Aprobar(context.Background(), f.operadorOrigen, id, dto.ResolverTransferenciaRequest{})

	assert.ErrorIs(t, err, apierror.ErrForbidden)
}

func TestListarTransferencias(t *testing.T) {
	f := newTransferenciaFixture(t)
	f.solicitar(t, "10")
	f.solicitar(t, "20")

	resp, err := f.svc.Listar(context.Background(), f.operadorOrigen, dto.TransferenciaFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)

	pend, err := f.svc.ListarPendientes(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, pend, 2)
}

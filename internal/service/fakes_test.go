package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"puntocambio/internal/events"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func paginar[T any](all []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(all) || start < 0 {
		return nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// ── Monedas ───────────────────────────────────────────────────────────────────

type fakeMonedaRepo struct {
	monedas map[uuid.UUID]*model.Moneda
}

func newFakeMonedaRepo(ms ...model.Moneda) *fakeMonedaRepo {
	r := &fakeMonedaRepo{monedas: map[uuid.UUID]*model.Moneda{}}
	for i := range ms {
		m := ms[i]
		r.monedas[m.ID] = &m
	}
	return r
}

func (r *fakeMonedaRepo) Create(_ context.Context, m *model.Moneda) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.monedas[m.ID] = &cp
	return nil
}

func (r *fakeMonedaRepo) Update(_ context.Context, m *model.Moneda) error {
	cp := *m
	r.monedas[m.ID] = &cp
	return nil
}

func (r *fakeMonedaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Moneda, error) {
	m, ok := r.monedas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMonedaRepo) FindByCodigo(_ context.Context, codigo string) (*model.Moneda, error) {
	for _, m := range r.monedas {
		if strings.EqualFold(m.Codigo, codigo) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMonedaRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Moneda, error) {
	out := make(map[uuid.UUID]model.Moneda, len(ids))
	for _, id := range ids {
		if m, ok := r.monedas[id]; ok {
			out[id] = *m
		}
	}
	return out, nil
}

func (r *fakeMonedaRepo) List(_ context.Context, soloActivas bool) ([]model.Moneda, error) {
	var out []model.Moneda
	for _, m := range r.monedas {
		if soloActivas && !m.Activo {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrdenDisplay < out[j].OrdenDisplay })
	return out, nil
}

var _ repository.MonedaRepository = (*fakeMonedaRepo)(nil)

// ── Puntos ────────────────────────────────────────────────────────────────────

type fakePuntoRepo struct {
	puntos map[uuid.UUID]model.PuntoAtencion
}

func newFakePuntoRepo(ids ...uuid.UUID) *fakePuntoRepo {
	r := &fakePuntoRepo{puntos: map[uuid.UUID]model.PuntoAtencion{}}
	for _, id := range ids {
		r.puntos[id] = model.PuntoAtencion{ID: id, Nombre: "Punto " + id.String()[:4], Activo: true}
	}
	return r
}

func (r *fakePuntoRepo) Create(_ context.Context, p *model.PuntoAtencion) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.puntos[p.ID] = *p
	return nil
}

func (r *fakePuntoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PuntoAtencion, error) {
	p, ok := r.puntos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakePuntoRepo) List(_ context.Context) ([]model.PuntoAtencion, error) {
	out := make([]model.PuntoAtencion, 0, len(r.puntos))
	for _, p := range r.puntos {
		out = append(out, p)
	}
	return out, nil
}

var _ repository.PuntoRepository = (*fakePuntoRepo)(nil)

// ── Movimientos ───────────────────────────────────────────────────────────────

type fakeMovimientoRepo struct {
	movs []model.MovimientoSaldo
}

func (r *fakeMovimientoRepo) Create(_ context.Context, m *model.MovimientoSaldo) error {
	return r.CreateTx(nil, m)
}

func (r *fakeMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoSaldo) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Fecha.IsZero() {
		m.Fecha = time.Now()
	}
	r.movs = append(r.movs, *m)
	return nil
}

func (r *fakeMovimientoRepo) filtrar(f repository.MovimientoFiltro) []model.MovimientoSaldo {
	var out []model.MovimientoSaldo
	for _, m := range r.movs {
		if m.PuntoAtencionID != f.PuntoAtencionID || !m.Fecha.Before(f.Hasta) {
			continue
		}
		if f.Desde != nil && m.Fecha.Before(*f.Desde) {
			continue
		}
		if f.MonedaID != nil && m.MonedaID != *f.MonedaID {
			continue
		}
		if f.Medio != "" && m.Medio != f.Medio {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (r *fakeMovimientoRepo) Totales(_ context.Context, f repository.MovimientoFiltro) ([]repository.TotalMoneda, error) {
	idx := map[uuid.UUID]int{}
	var out []repository.TotalMoneda
	for _, m := range r.filtrar(f) {
		i, ok := idx[m.MonedaID]
		if !ok {
			i = len(out)
			idx[m.MonedaID] = i
			out = append(out, repository.TotalMoneda{MonedaID: m.MonedaID})
		}
		if m.Monto.IsPositive() {
			out[i].Ingresos = out[i].Ingresos.Add(m.Monto)
		} else {
			out[i].Egresos = out[i].Egresos.Add(m.Monto.Neg())
		}
	}
	return out, nil
}

func (r *fakeMovimientoRepo) List(_ context.Context, f repository.MovimientoFiltro) ([]model.MovimientoSaldo, error) {
	return r.filtrar(f), nil
}

func (r *fakeMovimientoRepo) ContarPorReferencia(_ context.Context, puntoID uuid.UUID, desde, hasta time.Time, tipos ...string) (int64, error) {
	var n int64
	for _, m := range r.movs {
		if m.PuntoAtencionID != puntoID || m.Fecha.Before(desde) || !m.Fecha.Before(hasta) {
			continue
		}
		for _, t := range tipos {
			if m.ReferenciaTipo == t {
				n++
				break
			}
		}
	}
	return n, nil
}

// saldo sums the signed ledger of one point, currency and medio.
func (r *fakeMovimientoRepo) saldo(punto, moneda uuid.UUID, medio string) decimal.Decimal {
	total := decimal.Zero
	for _, m := range r.movs {
		if m.PuntoAtencionID == punto && m.MonedaID == moneda && m.Medio == medio {
			total = total.Add(m.Monto)
		}
	}
	return total
}

var _ repository.MovimientoSaldoRepository = (*fakeMovimientoRepo)(nil)

// ── Cambios ───────────────────────────────────────────────────────────────────

type fakeCambioRepo struct {
	cambios map[uuid.UUID]model.CambioDivisa
	abonos  []model.AbonoCambio
}

func newFakeCambioRepo() *fakeCambioRepo {
	return &fakeCambioRepo{cambios: map[uuid.UUID]model.CambioDivisa{}}
}

func (r *fakeCambioRepo) DB() *gorm.DB { return nil }

func (r *fakeCambioRepo) CreateTx(_ *gorm.DB, c *model.CambioDivisa) error {
	cp := *c
	cp.Abonos = nil
	r.cambios[c.ID] = cp
	return nil
}

func (r *fakeCambioRepo) UpdateTx(_ *gorm.DB, c *model.CambioDivisa) error {
	if _, ok := r.cambios[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Abonos = nil
	r.cambios[c.ID] = cp
	return nil
}

func (r *fakeCambioRepo) CreateAbonoTx(_ *gorm.DB, a *model.AbonoCambio) error {
	r.abonos = append(r.abonos, *a)
	return nil
}

func (r *fakeCambioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CambioDivisa, error) {
	c, ok := r.cambios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, a := range r.abonos {
		if a.CambioID == id {
			c.Abonos = append(c.Abonos, a)
		}
	}
	return &c, nil
}

func (r *fakeCambioRepo) filtrar(f repository.CambioFiltro) []model.CambioDivisa {
	var out []model.CambioDivisa
	for _, c := range r.cambios {
		if f.PuntoAtencionID != nil && c.PuntoAtencionID != *f.PuntoAtencionID {
			continue
		}
		if f.Estado != "" && string(c.Estado) != f.Estado {
			continue
		}
		if f.Desde != nil && c.CreatedAt.Before(*f.Desde) {
			continue
		}
		if f.Hasta != nil && !c.CreatedAt.Before(*f.Hasta) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeCambioRepo) List(_ context.Context, f repository.CambioFiltro) ([]model.CambioDivisa, int64, error) {
	all := r.filtrar(f)
	return paginar(all, f.Page, f.Limit), int64(len(all)), nil
}

func (r *fakeCambioRepo) ListPendientes(_ context.Context, puntoID *uuid.UUID) ([]model.CambioDivisa, error) {
	return r.filtrar(repository.CambioFiltro{PuntoAtencionID: puntoID, Estado: string(model.CambioPendiente)}), nil
}

func (r *fakeCambioRepo) Contar(_ context.Context, puntoID uuid.UUID, desde, hasta time.Time, estado string) (int64, error) {
	var n int64
	for _, c := range r.filtrar(repository.CambioFiltro{PuntoAtencionID: &puntoID, Estado: estado, Desde: &desde, Hasta: &hasta}) {
		if estado == "" && c.Estado == model.CambioCancelado {
			continue
		}
		n++
	}
	return n, nil
}

var _ repository.CambioRepository = (*fakeCambioRepo)(nil)

// ── Transferencias ────────────────────────────────────────────────────────────

type fakeTransferenciaRepo struct {
	ts map[uuid.UUID]model.Transferencia
	// robada simulates another instance resolving the transfer between read and update.
	robada bool
}

func newFakeTransferenciaRepo() *fakeTransferenciaRepo {
	return &fakeTransferenciaRepo{ts: map[uuid.UUID]model.Transferencia{}}
}

func (r *fakeTransferenciaRepo) DB() *gorm.DB { return nil }

func (r *fakeTransferenciaRepo) Create(_ context.Context, t *model.Transferencia) error {
	cp := *t
	cp.Moneda = nil
	r.ts[t.ID] = cp
	return nil
}

func (r *fakeTransferenciaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Transferencia, error) {
	t, ok := r.ts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *fakeTransferenciaRepo) ResolverTx(_ *gorm.DB, id uuid.UUID, res repository.Resolucion) (int64, error) {
	t, ok := r.ts[id]
	if !ok || t.Estado != model.TransferenciaPendiente || r.robada {
		return 0, nil
	}
	t.Estado = res.Estado
	t.ObservacionesAprobacion = res.Observaciones
	uid, fecha := res.UsuarioID, res.Fecha
	if res.Estado == model.TransferenciaAprobado {
		t.AprobadoPor, t.FechaAprobacion = &uid, &fecha
	} else {
		t.RechazadoPor, t.FechaRechazo = &uid, &fecha
	}
	r.ts[id] = t
	return 1, nil
}

func (r *fakeTransferenciaRepo) List(_ context.Context, f repository.TransferenciaFiltro) ([]model.Transferencia, int64, error) {
	var all []model.Transferencia
	for _, t := range r.ts {
		if f.PuntoAtencionID != nil && t.DestinoID != *f.PuntoAtencionID &&
			(t.OrigenID == nil || *t.OrigenID != *f.PuntoAtencionID) {
			continue
		}
		if f.Estado != "" && string(t.Estado) != f.Estado {
			continue
		}
		all = append(all, t)
	}
	return paginar(all, f.Page, f.Limit), int64(len(all)), nil
}

func (r *fakeTransferenciaRepo) ListPendientes(_ context.Context, destinoID *uuid.UUID) ([]model.Transferencia, error) {
	var out []model.Transferencia
	for _, t := range r.ts {
		if t.Estado == model.TransferenciaPendiente && (destinoID == nil || t.DestinoID == *destinoID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTransferenciaRepo) ContarPendientes(ctx context.Context, destinoID *uuid.UUID) (int64, error) {
	ts, _ := r.ListPendientes(ctx, destinoID)
	return int64(len(ts)), nil
}

func (r *fakeTransferenciaRepo) ContarAprobadas(_ context.Context, puntoID uuid.UUID, desde, hasta time.Time) (int64, int64, error) {
	var entrada, salida int64
	for _, t := range r.ts {
		if t.Estado != model.TransferenciaAprobado || t.FechaAprobacion == nil ||
			t.FechaAprobacion.Before(desde) || !t.FechaAprobacion.Before(hasta) {
			continue
		}
		if t.DestinoID == puntoID {
			entrada++
		}
		if t.OrigenID != nil && *t.OrigenID == puntoID {
			salida++
		}
	}
	return entrada, salida, nil
}

var _ repository.TransferenciaRepository = (*fakeTransferenciaRepo)(nil)

// ── Jornadas ──────────────────────────────────────────────────────────────────

type fakeJornadaRepo struct {
	js []model.Jornada
}

func (r *fakeJornadaRepo) DB() *gorm.DB { return nil }

func (r *fakeJornadaRepo) Create(_ context.Context, j *model.Jornada) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	r.js = append(r.js, *j)
	return nil
}

func (r *fakeJornadaRepo) ListActivas(_ context.Context, usuarioID uuid.UUID) ([]model.Jornada, error) {
	var out []model.Jornada
	for _, j := range r.js {
		if j.UsuarioID == usuarioID && j.Estado == model.JornadaActiva {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJornadaRepo) FinalizarTx(_ *gorm.DB, id uuid.UUID, salida time.Time, porCierre bool) (int64, error) {
	for i := range r.js {
		if r.js[i].ID == id && r.js[i].Estado == model.JornadaActiva {
			r.js[i].Estado = model.JornadaCompletada
			r.js[i].FechaSalida = &salida
			r.js[i].FinalizadaPorCierre = porCierre
			return 1, nil
		}
	}
	return 0, nil
}

var _ repository.JornadaRepository = (*fakeJornadaRepo)(nil)

// ── Cuadres ───────────────────────────────────────────────────────────────────

type fakeCuadreRepo struct {
	cuadres []model.CuadreCaja
}

func (r *fakeCuadreRepo) DB() *gorm.DB { return nil }

func (r *fakeCuadreRepo) CreateTx(_ *gorm.DB, c *model.CuadreCaja) error {
	for _, x := range r.cuadres {
		if x.PuntoAtencionID == c.PuntoAtencionID && x.Fecha.Equal(c.Fecha) {
			return gorm.ErrDuplicatedKey
		}
	}
	r.cuadres = append(r.cuadres, *c)
	return nil
}

func (r *fakeCuadreRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CuadreCaja, error) {
	for _, c := range r.cuadres {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCuadreRepo) FindByPuntoFecha(_ context.Context, puntoID uuid.UUID, fecha time.Time) (*model.CuadreCaja, error) {
	for _, c := range r.cuadres {
		if c.PuntoAtencionID == puntoID && c.Fecha.Equal(fecha) {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCuadreRepo) UltimosConteos(_ context.Context, puntoID uuid.UUID, fecha time.Time) ([]repository.ConteoAnterior, error) {
	ultimo := map[uuid.UUID]repository.ConteoAnterior{}
	for _, c := range r.cuadres {
		if c.PuntoAtencionID != puntoID || !c.Fecha.Before(fecha) {
			continue
		}
		for _, d := range c.Detalles {
			if prev, ok := ultimo[d.MonedaID]; !ok || c.Fecha.After(prev.Fecha) {
				ultimo[d.MonedaID] = repository.ConteoAnterior{MonedaID: d.MonedaID, Fecha: c.Fecha, ConteoFisico: d.ConteoFisico}
			}
		}
	}
	out := make([]repository.ConteoAnterior, 0, len(ultimo))
	for _, c := range ultimo {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCuadreRepo) List(_ context.Context, f repository.CuadreFiltro) ([]model.CuadreCaja, int64, error) {
	var all []model.CuadreCaja
	for _, c := range r.cuadres {
		if f.PuntoAtencionID != nil && c.PuntoAtencionID != *f.PuntoAtencionID {
			continue
		}
		all = append(all, c)
	}
	return paginar(all, f.Page, f.Limit), int64(len(all)), nil
}

var _ repository.CuadreRepository = (*fakeCuadreRepo)(nil)

// ── Usuarios ──────────────────────────────────────────────────────────────────

type fakeUsuarioRepo struct {
	users []model.Usuario
}

func (r *fakeUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users = append(r.users, *u)
	return nil
}

func (r *fakeUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	for _, u := range r.users {
		if u.Activo && (u.Username == username || (u.Correo != nil && strings.EqualFold(*u.Correo, username))) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUsuarioRepo) List(_ context.Context, f repository.UsuarioFiltro) ([]model.Usuario, error) {
	var out []model.Usuario
	for _, u := range r.users {
		if !u.Activo && !f.IncluirInactivos {
			continue
		}
		if f.PuntoAtencionID != nil && (u.PuntoAtencionID == nil || *u.PuntoAtencionID != *f.PuntoAtencionID) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	for i := range r.users {
		if r.users[i].ID == u.ID {
			r.users[i] = *u
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var _ repository.UsuarioRepository = (*fakeUsuarioRepo)(nil)

// ── Events & locks ────────────────────────────────────────────────────────────

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) tipos() []events.Tipo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Tipo, len(r.events))
	for i, e := range r.events {
		out[i] = e.Tipo
	}
	return out
}

// keyLocker records lock keys so tests can assert which aggregate was serialized.
type keyLocker struct {
	keys []string
}

func (l *keyLocker) Lock(_ context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	return func() {}, nil
}

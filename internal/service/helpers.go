package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/events"
	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// Locker serializes mutations of one aggregate across API instances.
// The returned func releases the lock; it is always non-nil on success.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func lockerOrNoop(l Locker) Locker {
	if l == nil {
		return noopLocker{}
	}
	return l
}

func publicar(pub events.Publisher, e events.Event) {
	if pub != nil {
		pub.Publish(e)
	}
}

// notFound translates gorm's not-found into the domain error, leaving other errors intact.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(msg)
	}
	return err
}

// nuevoRecibo builds human readable receipt numbers like CAM-20260118-3F9A12BC.
func nuevoRecibo(prefijo string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefijo, t.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// ── Actor ─────────────────────────────────────────────────────────────────────

// Actor is the authenticated user behind a call, as read from the JWT.
type Actor struct {
	UsuarioID       uuid.UUID
	Rol             string
	PuntoAtencionID *uuid.UUID
}

// EsAdmin reports whether the actor may act on any point.
func (a Actor) EsAdmin() bool {
	return a.Rol == model.RolAdmin || a.Rol == model.RolSuperUsuario
}

// Punto resolves which point a request acts on. Operators are pinned to their
// own point; admins must name one unless they also have an assigned point.
func (a Actor) Punto(solicitado string) (uuid.UUID, error) {
	if solicitado != "" {
		id, err := uuid.Parse(solicitado)
		if err != nil {
			return uuid.Nil, apierror.Validation("punto_atencion_id inválido")
		}
		if !a.EsAdmin() && (a.PuntoAtencionID == nil || *a.PuntoAtencionID != id) {
			return uuid.Nil, apierror.Forbidden("no tiene acceso a ese punto de atención")
		}
		return id, nil
	}
	if a.PuntoAtencionID != nil {
		return *a.PuntoAtencionID, nil
	}
	return uuid.Nil, apierror.Validation("debe indicar el punto de atención")
}

// Alcance is Punto for list endpoints: admins without a point see everything (nil).
func (a Actor) Alcance(solicitado string) (*uuid.UUID, error) {
	if solicitado == "" && a.EsAdmin() {
		return nil, nil
	}
	id, err := a.Punto(solicitado)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ── Calendario ────────────────────────────────────────────────────────────────

// Calendario decides which business day an instant belongs to.
type Calendario struct {
	loc *time.Location
}

func NewCalendario(tz string) (Calendario, error) {
	if tz == "" {
		return Calendario{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Calendario{}, fmt.Errorf("zona horaria %q: %w", tz, err)
	}
	return Calendario{loc: loc}, nil
}

func (c Calendario) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Dia returns [inicio, fin) of the business day containing t.
func (c Calendario) Dia(t time.Time) (time.Time, time.Time) {
	lt := t.In(c.location())
	inicio := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.location())
	return inicio, inicio.AddDate(0, 0, 1)
}

// Fecha parses YYYY-MM-DD in the business zone; empty means today.
func (c Calendario) Fecha(s string) (time.Time, error) {
	if s == "" {
		inicio, _ := c.Dia(time.Now())
		return inicio, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, c.location())
	if err != nil {
		return time.Time{}, apierror.Validation("fecha inválida, use el formato AAAA-MM-DD")
	}
	return t, nil
}

func fmtFecha(t time.Time) string { return t.Format(time.RFC3339) }

func fmtFechaPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtFecha(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// PuedeOperar checks the actor may touch data of the given point.
func (a Actor) PuedeOperar(punto uuid.UUID) error {
	if a.EsAdmin() {
		return nil
	}
	if a.PuntoAtencionID == nil || *a.PuntoAtencionID != punto {
		return apierror.Forbidden("no tiene acceso a ese punto de atención")
	}
	return nil
}

// FechaContable maps a business day to the calendar date stored in DATE columns.
func (c Calendario) FechaContable(dia time.Time) time.Time {
	lt := dia.In(c.location())
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// DiaDeFecha is the inverse of FechaContable: [inicio, fin) of a stored date.
func (c Calendario) DiaDeFecha(f time.Time) (time.Time, time.Time) {
	inicio := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, c.location())
	return inicio, inicio.AddDate(0, 0, 1)
}

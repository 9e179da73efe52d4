package repository

import (
	"context"
	"time"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalMoneda aggregates the movements of one currency. Egresos is positive.
type TotalMoneda struct {
	MonedaID uuid.UUID
	Ingresos decimal.Decimal
	Egresos  decimal.Decimal
}

// Neto is ingresos minus egresos.
func (t TotalMoneda) Neto() decimal.Decimal { return t.Ingresos.Sub(t.Egresos) }

// MovimientoFiltro selects ledger entries of one point. A nil Desde means
// "since the beginning"; Hasta is exclusive.
type MovimientoFiltro struct {
	PuntoAtencionID uuid.UUID
	MonedaID        *uuid.UUID
	Medio           string
	Desde           *time.Time
	Hasta           time.Time
}

// MovimientoSaldoRepository is append-only: there is no Update nor Delete.
type MovimientoSaldoRepository interface {
	Create(ctx context.Context, m *model.MovimientoSaldo) error
	CreateTx(tx *gorm.DB, m *model.MovimientoSaldo) error
	Totales(ctx context.Context, f MovimientoFiltro) ([]TotalMoneda, error)
	List(ctx context.Context, f MovimientoFiltro) ([]model.MovimientoSaldo, error)
	// ContarPorReferencia counts entries in [desde, hasta) whose referencia_tipo is one of tipos.
	ContarPorReferencia(ctx context.Context, puntoID uuid.UUID, desde, hasta time.Time, tipos ...string) (int64, error)
}

type movimientoSaldoRepo struct{ db *gorm.DB }

func NewMovimientoSaldoRepository(db *gorm.DB) MovimientoSaldoRepository {
	return &movimientoSaldoRepo{db: db}
}

func (r *movimientoSaldoRepo) Create(ctx context.Context, m *model.MovimientoSaldo) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *movimientoSaldoRepo) CreateTx(tx *gorm.DB, m *model.MovimientoSaldo) error {
	return tx.Create(m).Error
}

func (r *movimientoSaldoRepo) filtrar(ctx context.Context, f MovimientoFiltro) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.MovimientoSaldo{}).
		Where("punto_atencion_id = ? AND fecha < ?", f.PuntoAtencionID, f.Hasta)
	if f.Desde != nil {
		q = q.Where("fecha >= ?", *f.Desde)
	}
	if f.MonedaID != nil {
		q = q.Where("moneda_id = ?", *f.MonedaID)
	}
	if f.Medio != "" {
		q = q.Where("medio = ?", f.Medio)
	}
	return q
}

func (r *movimientoSaldoRepo) Totales(ctx context.Context, f MovimientoFiltro) ([]TotalMoneda, error) {
	var rows []struct {
		MonedaID uuid.UUID
		Ingresos decimal.Decimal
		Egresos  decimal.Decimal
	}
	err := r.filtrar(ctx, f).
		Select(`moneda_id,
			COALESCE(SUM(CASE WHEN monto > 0 THEN monto ELSE 0 END), 0) AS ingresos,
			COALESCE(SUM(CASE WHEN monto < 0 THEN -monto ELSE 0 END), 0) AS egresos`).
		Group("moneda_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]TotalMoneda, 0, len(rows))
	for _, row := range rows {
		out = append(out, TotalMoneda{MonedaID: row.MonedaID, Ingresos: row.Ingresos, Egresos: row.Egresos})
	}
	return out, nil
}

func (r *movimientoSaldoRepo) List(ctx context.Context, f MovimientoFiltro) ([]model.MovimientoSaldo, error) {
	var movs []model.MovimientoSaldo
	err := r.filtrar(ctx, f).Order("fecha ASC, created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *movimientoSaldoRepo) ContarPorReferencia(ctx context.Context, puntoID uuid.UUID, desde, hasta time.Time, tipos ...string) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.MovimientoSaldo{}).
		Where("punto_atencion_id = ? AND fecha >= ? AND fecha < ?", puntoID, desde, hasta)
	if len(tipos) > 0 {
		q = q.Where("referencia_tipo IN ?", tipos)
	}
	err := q.Count(&n).Error
	return n, err
}

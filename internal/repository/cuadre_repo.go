package repository

import (
	"context"
	"time"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CuadreFiltro struct {
	PuntoAtencionID *uuid.UUID
	Desde, Hasta    *time.Time
	Page, Limit     int
}

// ConteoAnterior is one currency's count at the close of Fecha.
type ConteoAnterior struct {
	MonedaID     uuid.UUID
	Fecha        time.Time
	ConteoFisico decimal.Decimal
}

type CuadreRepository interface {
	// CreateTx inserts the close together with its detail lines.
	CreateTx(tx *gorm.DB, c *model.CuadreCaja) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CuadreCaja, error)
	FindByPuntoFecha(ctx context.Context, puntoID uuid.UUID, fecha time.Time) (*model.CuadreCaja, error)
	// UltimosConteos returns, per currency, the physical count of the most
	// recent close strictly before fecha that had a line for that currency.
	UltimosConteos(ctx context.Context, puntoID uuid.UUID, fecha time.Time) ([]ConteoAnterior, error)
	List(ctx context.Context, f CuadreFiltro) ([]model.CuadreCaja, int64, error)
	DB() *gorm.DB
}

type cuadreRepo struct{ db *gorm.DB }

func NewCuadreRepository(db *gorm.DB) CuadreRepository { return &cuadreRepo{db: db} }

func (r *cuadreRepo) DB() *gorm.DB { return r.db }

func (r *cuadreRepo) CreateTx(tx *gorm.DB, c *model.CuadreCaja) error {
	return tx.Create(c).Error
}

func (r *cuadreRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CuadreCaja, error) {
	var c model.CuadreCaja
	err := r.db.WithContext(ctx).Preload("Detalles.Moneda").First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cuadreRepo) FindByPuntoFecha(ctx context.Context, puntoID uuid.UUID, fecha time.Time) (*model.CuadreCaja, error) {
	var c model.CuadreCaja
	err := r.db.WithContext(ctx).Preload("Detalles.Moneda").
		Where("punto_atencion_id = ? AND fecha = ?", puntoID, fecha.Format("2006-01-02")).
		First(&c).Error
	return &c, err
}

func (r *cuadreRepo) UltimosConteos(ctx context.Context, puntoID uuid.UUID, fecha time.Time) ([]ConteoAnterior, error) {
	var out []ConteoAnterior
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (d.moneda_id) d.moneda_id, c.fecha, d.conteo_fisico
		FROM cuadres_detalle d
		JOIN cuadres_caja c ON c.id = d.cuadre_id
		WHERE c.punto_atencion_id = ? AND c.fecha < ?
		ORDER BY d.moneda_id, c.fecha DESC`,
		puntoID, fecha.Format("2006-01-02")).
		Scan(&out).Error
	return out, err
}

func (r *cuadreRepo) List(ctx context.Context, f CuadreFiltro) ([]model.CuadreCaja, int64, error) {
	var cuadres []model.CuadreCaja
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := r.db.WithContext(ctx).Model(&model.CuadreCaja{})
	if f.PuntoAtencionID != nil {
		q = q.Where("punto_atencion_id = ?", *f.PuntoAtencionID)
	}
	if f.Desde != nil {
		q = q.Where("fecha >= ?", f.Desde.Format("2006-01-02"))
	}
	if f.Hasta != nil {
		q = q.Where("fecha <= ?", f.Hasta.Format("2006-01-02"))
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Detalles.Moneda").
		Order("fecha DESC").
		Offset(offset).Limit(f.Limit).
		Find(&cuadres).Error
	return cuadres, total, err
}

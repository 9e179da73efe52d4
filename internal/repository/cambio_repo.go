package repository

import (
	"context"
	"time"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CambioFiltro is the repository view of dto.CambioFilter, already parsed.
type CambioFiltro struct {
	PuntoAtencionID *uuid.UUID
	Desde, Hasta    *time.Time
	Estado          string
	Page, Limit     int
}

type CambioRepository interface {
	CreateTx(tx *gorm.DB, c *model.CambioDivisa) error
	UpdateTx(tx *gorm.DB, c *model.CambioDivisa) error
	CreateAbonoTx(tx *gorm.DB, a *model.AbonoCambio) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CambioDivisa, error)
	List(ctx context.Context, f CambioFiltro) ([]model.CambioDivisa, int64, error)
	ListPendientes(ctx context.Context, puntoID *uuid.UUID) ([]model.CambioDivisa, error)
	// Contar counts the exchanges of a point created in [desde, hasta), any estado
	// except CANCELADO when estado is empty.
	Contar(ctx context.Context, puntoID uuid.UUID, desde, hasta time.Time, estado string) (int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type cambioRepo struct{ db *gorm.DB }

func NewCambioRepository(db *gorm.DB) CambioRepository { return &cambioRepo{db: db} }

func (r *cambioRepo) DB() *gorm.DB { return r.db }

func (r *cambioRepo) CreateTx(tx *gorm.DB, c *model.CambioDivisa) error {
	return tx.Omit("MonedaOrigen", "MonedaDestino").Create(c).Error
}

func (r *cambioRepo) UpdateTx(tx *gorm.DB, c *model.CambioDivisa) error {
	return tx.Omit("MonedaOrigen", "MonedaDestino", "Abonos").Save(c).Error
}

func (r *cambioRepo) CreateAbonoTx(tx *gorm.DB, a *model.AbonoCambio) error {
	return tx.Create(a).Error
}

func (r *cambioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CambioDivisa, error) {
	var c model.CambioDivisa
	err := r.db.WithContext(ctx).
		Preload("MonedaOrigen").Preload("MonedaDestino").
		Preload("Abonos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cambioRepo) List(ctx context.Context, f CambioFiltro) ([]model.CambioDivisa, int64, error) {
	var cambios []model.CambioDivisa
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := r.db.WithContext(ctx).Model(&model.CambioDivisa{})
	if f.PuntoAtencionID != nil {
		q = q.Where("punto_atencion_id = ?", *f.PuntoAtencionID)
	}
	if f.Desde != nil {
		q = q.Where("created_at >= ?", *f.Desde)
	}
	if f.Hasta != nil {
		q = q.Where("created_at < ?", *f.Hasta)
	}
	if f.Estado != "" {
		q = q.Where("estado = ?", f.Estado)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("MonedaOrigen").Preload("MonedaDestino").
		Order("created_at DESC").
		Offset(offset).Limit(f.Limit).
		Find(&cambios).Error
	return cambios, total, err
}

func (r *cambioRepo) ListPendientes(ctx context.Context, puntoID *uuid.UUID) ([]model.CambioDivisa, error) {
	var cambios []model.CambioDivisa
	q := r.db.WithContext(ctx).Where("estado = ?", model.CambioPendiente)
	if puntoID != nil {
		q = q.Where("punto_atencion_id = ?", *puntoID)
	}
	err := q.Preload("MonedaOrigen").Preload("MonedaDestino").Preload("Abonos").
		Order("created_at ASC").Find(&cambios).Error
	return cambios, err
}

func (r *cambioRepo) Contar(ctx context.Context, puntoID uuid.UUID, desde, hasta time.Time, estado string) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.CambioDivisa{}).
		Where("punto_atencion_id = ? AND created_at >= ? AND created_at < ?", puntoID, desde, hasta)
	if estado != "" {
		q = q.Where("estado = ?", estado)
	} else {
		q = q.Where("estado <> ?", model.CambioCancelado)
	}
	err := q.Count(&n).Error
	return n, err
}

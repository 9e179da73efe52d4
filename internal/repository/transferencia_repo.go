package repository

import (
	"context"
	"time"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransferenciaFiltro struct {
	PuntoAtencionID *uuid.UUID
	Estado          string
	Page, Limit     int
}

// Resolucion is the outcome written by approve / reject.
type Resolucion struct {
	Estado        model.EstadoTransferencia
	UsuarioID     uuid.UUID
	Observaciones *string
	Fecha         time.Time
}

type TransferenciaRepository interface {
	Create(ctx context.Context, t *model.Transferencia) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transferencia, error)
	// ResolverTx moves a PENDIENTE transfer to r.Estado. It reports how many
	// rows changed: 0 means somebody else resolved it first.
	ResolverTx(tx *gorm.DB, id uuid.UUID, r Resolucion) (int64, error)
	List(ctx context.Context, f TransferenciaFiltro) ([]model.Transferencia, int64, error)
	ListPendientes(ctx context.Context, destinoID *uuid.UUID) ([]model.Transferencia, error)
	ContarPendientes(ctx context.Context, destinoID *uuid.UUID) (int64, error)
	// ContarAprobadas counts approved transfers of the day into and out of a point.
	ContarAprobadas(ctx context.Context, puntoID uuid.UUID, desde, hasta time.Time) (entrada, salida int64, err error)
	DB() *gorm.DB
}

type transferenciaRepo struct{ db *gorm.DB }

func NewTransferenciaRepository(db *gorm.DB) TransferenciaRepository {
	return &transferenciaRepo{db: db}
}

func (r *transferenciaRepo) DB() *gorm.DB { return r.db }

func (r *transferenciaRepo) Create(ctx context.Context, t *model.Transferencia) error {
	return r.db.WithContext(ctx).Omit("Moneda").Create(t).Error
}

func (r *transferenciaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transferencia, error) {
	var t model.Transferencia
	err := r.db.WithContext(ctx).Preload("Moneda").First(&t, "id = ?", id).Error
	return &t, err
}

func (r *transferenciaRepo) ResolverTx(tx *gorm.DB, id uuid.UUID, res Resolucion) (int64, error) {
	cols := map[string]any{
		"estado":                   res.Estado,
		"observaciones_aprobacion": res.Observaciones,
		"updated_at":               res.Fecha,
	}
	if res.Estado == model.TransferenciaAprobado {
		cols["aprobado_por"] = res.UsuarioID
		cols["fecha_aprobacion"] = res.Fecha
	} else {
		cols["rechazado_por"] = res.UsuarioID
		cols["fecha_rechazo"] = res.Fecha
	}
	result := tx.Model(&model.Transferencia{}).
		Where("id = ? AND estado = ?", id, model.TransferenciaPendiente).
		Updates(cols)
	return result.RowsAffected, result.Error
}

func (r *transferenciaRepo) List(ctx context.Context, f TransferenciaFiltro) ([]model.Transferencia, int64, error) {
	var ts []model.Transferencia
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := r.db.WithContext(ctx).Model(&model.Transferencia{})
	if f.PuntoAtencionID != nil {
		q = q.Where("origen_id = ? OR destino_id = ?", *f.PuntoAtencionID, *f.PuntoAtencionID)
	}
	if f.Estado != "" {
		q = q.Where("estado = ?", f.Estado)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Moneda").Order("created_at DESC").Offset(offset).Limit(f.Limit).Find(&ts).Error
	return ts, total, err
}

func (r *transferenciaRepo) pendientes(ctx context.Context, destinoID *uuid.UUID) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Transferencia{}).Where("estado = ?", model.TransferenciaPendiente)
	if destinoID != nil {
		q = q.Where("destino_id = ?", *destinoID)
	}
	return q
}

func (r *transferenciaRepo) ListPendientes(ctx context.Context, destinoID *uuid.UUID) ([]model.Transferencia, error) {
	var ts []model.Transferencia
	err := r.pendientes(ctx, destinoID).Preload("Moneda").Order("created_at ASC").Find(&ts).Error
	return ts, err
}

func (r *transferenciaRepo) ContarPendientes(ctx context.Context, destinoID *uuid.UUID) (int64, error) {
	var n int64
	err := r.pendientes(ctx, destinoID).Count(&n).Error
	return n, err
}

func (r *transferenciaRepo) ContarAprobadas(ctx context.Context, puntoID uuid.UUID, desde, hasta time.Time) (int64, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Transferencia{}).
			Where("estado = ? AND fecha_aprobacion >= ? AND fecha_aprobacion < ?", model.TransferenciaAprobado, desde, hasta)
	}
	var entrada, salida int64
	if err := base().Where("destino_id = ?", puntoID).Count(&entrada).Error; err != nil {
		return 0, 0, err
	}
	if err := base().Where("origen_id = ?", puntoID).Count(&salida).Error; err != nil {
		return 0, 0, err
	}
	return entrada, salida, nil
}

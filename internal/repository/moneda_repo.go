package repository

import (
	"context"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MonedaRepository interface {
	Create(ctx context.Context, m *model.Moneda) error
	Update(ctx context.Context, m *model.Moneda) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Moneda, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Moneda, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Moneda, error)
	List(ctx context.Context, soloActivas bool) ([]model.Moneda, error)
}

type monedaRepo struct{ db *gorm.DB }

func NewMonedaRepository(db *gorm.DB) MonedaRepository { return &monedaRepo{db: db} }

func (r *monedaRepo) Create(ctx context.Context, m *model.Moneda) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *monedaRepo) Update(ctx context.Context, m *model.Moneda) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *monedaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Moneda, error) {
	var m model.Moneda
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *monedaRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Moneda, error) {
	var m model.Moneda
	err := r.db.WithContext(ctx).Where("UPPER(codigo) = UPPER(?)", codigo).First(&m).Error
	return &m, err
}

func (r *monedaRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Moneda, error) {
	out := make(map[uuid.UUID]model.Moneda, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var monedas []model.Moneda
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&monedas).Error; err != nil {
		return nil, err
	}
	for _, m := range monedas {
		out[m.ID] = m
	}
	return out, nil
}

func (r *monedaRepo) List(ctx context.Context, soloActivas bool) ([]model.Moneda, error) {
	var monedas []model.Moneda
	q := r.db.WithContext(ctx)
	if soloActivas {
		q = q.Where("activo = true")
	}
	err := q.Order("orden_display ASC, codigo ASC").Find(&monedas).Error
	return monedas, err
}

package repository

import (
	"context"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PuntoRepository interface {
	Create(ctx context.Context, p *model.PuntoAtencion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PuntoAtencion, error)
	List(ctx context.Context) ([]model.PuntoAtencion, error)
}

type puntoRepo struct{ db *gorm.DB }

func NewPuntoRepository(db *gorm.DB) PuntoRepository { return &puntoRepo{db: db} }

func (r *puntoRepo) Create(ctx context.Context, p *model.PuntoAtencion) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *puntoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PuntoAtencion, error) {
	var p model.PuntoAtencion
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *puntoRepo) List(ctx context.Context) ([]model.PuntoAtencion, error) {
	var puntos []model.PuntoAtencion
	err := r.db.WithContext(ctx).Where("activo = true").Order("es_principal DESC, nombre ASC").Find(&puntos).Error
	return puntos, err
}

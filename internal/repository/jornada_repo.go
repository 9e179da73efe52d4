package repository

import (
	"context"
	"time"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JornadaRepository interface {
	Create(ctx context.Context, j *model.Jornada) error
	// ListActivas returns every ACTIVO shift of the user, oldest first.
	ListActivas(ctx context.Context, usuarioID uuid.UUID) ([]model.Jornada, error)
	// FinalizarTx closes a shift that is still ACTIVO; 0 rows means it was not.
	FinalizarTx(tx *gorm.DB, id uuid.UUID, salida time.Time, porCierre bool) (int64, error)
	DB() *gorm.DB
}

type jornadaRepo struct{ db *gorm.DB }

func NewJornadaRepository(db *gorm.DB) JornadaRepository { return &jornadaRepo{db: db} }

func (r *jornadaRepo) DB() *gorm.DB { return r.db }

func (r *jornadaRepo) Create(ctx context.Context, j *model.Jornada) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *jornadaRepo) ListActivas(ctx context.Context, usuarioID uuid.UUID) ([]model.Jornada, error) {
	var js []model.Jornada
	err := r.db.WithContext(ctx).
		Where("usuario_id = ? AND estado = ?", usuarioID, model.JornadaActiva).
		Order("fecha_inicio ASC").
		Find(&js).Error
	return js, err
}

func (r *jornadaRepo) FinalizarTx(tx *gorm.DB, id uuid.UUID, salida time.Time, porCierre bool) (int64, error) {
	result := tx.Model(&model.Jornada{}).
		Where("id = ? AND estado = ?", id, model.JornadaActiva).
		Updates(map[string]any{
			"estado":                model.JornadaCompletada,
			"fecha_salida":          salida,
			"finalizada_por_cierre": porCierre,
			"updated_at":            salida,
		})
	return result.RowsAffected, result.Error
}

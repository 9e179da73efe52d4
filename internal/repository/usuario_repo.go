package repository

import (
	"context"

	"puntocambio/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsuarioFiltro struct {
	PuntoAtencionID  *uuid.UUID
	IncluirInactivos bool
}

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	// FindByUsername matches the username or, case-insensitively, the correo.
	// Deactivated users are never returned.
	FindByUsername(ctx context.Context, login string) (*model.Usuario, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	List(ctx context.Context, f UsuarioFiltro) ([]model.Usuario, error)
	Update(ctx context.Context, u *model.Usuario) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByUsername(ctx context.Context, login string) (*model.Usuario, error) {
	u := new(model.Usuario)
	err := r.db.WithContext(ctx).
		Where("activo AND (username = ? OR LOWER(correo) = LOWER(?))", login, login).
		Take(u).Error
	return u, err
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	u := new(model.Usuario)
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(u).Error
	return u, err
}

func (r *usuarioRepo) List(ctx context.Context, f UsuarioFiltro) ([]model.Usuario, error) {
	q := r.db.WithContext(ctx).Model(&model.Usuario{})
	if !f.IncluirInactivos {
		q = q.Where("activo")
	}
	if f.PuntoAtencionID != nil {
		q = q.Where("punto_atencion_id = ?", *f.PuntoAtencionID)
	}
	var out []model.Usuario
	err := q.Order("rol, username").Find(&out).Error
	return out, err
}

// Update writes every column; callers load the row first.
func (r *usuarioRepo) Update(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Save(u).Error
}

package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolOperador     = "OPERADOR"
	RolConcesion    = "CONCESION"
	RolAdmin        = "ADMIN"
	RolSuperUsuario = "SUPER_USUARIO"
)

// Usuario stores system users with role-based access.
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	Correo       *string
	PasswordHash string `gorm:"not null"`
	Rol          string `gorm:"type:varchar(20);not null"`
	// PuntoAtencionID pins an operator to a point; nil lets admins act on any point.
	PuntoAtencionID *uuid.UUID `gorm:"type:uuid"`
	Activo          bool       `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Usuario) TableName() string { return "usuarios" }

package model

import (
	"time"

	"github.com/google/uuid"
)

type PuntoAtencion struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre      string    `gorm:"not null"`
	Direccion   string    `gorm:"not null;default:''"`
	Ciudad      string    `gorm:"not null;default:''"`
	EsPrincipal bool      `gorm:"not null;default:false"`
	Activo      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PuntoAtencion) TableName() string { return "puntos_atencion" }

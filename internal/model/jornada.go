package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	JornadaActiva     = "ACTIVO"
	JornadaCompletada = "COMPLETADO"
	JornadaCancelada  = "CANCELADO"
)

// Jornada is an operator's shift at a point.
type Jornada struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID       uuid.UUID `gorm:"type:uuid;index;not null"`
	PuntoAtencionID uuid.UUID `gorm:"type:uuid;not null"`
	FechaInicio     time.Time `gorm:"not null"`
	FechaSalida     *time.Time
	Estado          string `gorm:"type:varchar(20);not null;default:'ACTIVO'"`
	// FinalizadaPorCierre is true when a cuadre de caja closed the shift.
	FinalizadaPorCierre bool `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Jornada) TableName() string { return "jornadas" }

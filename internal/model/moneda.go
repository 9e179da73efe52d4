package model

import (
	"time"

	"github.com/google/uuid"
)

// Comportamiento tells whether a conversion multiplies or divides by the quoted rate.
type Comportamiento string

const (
	Multiplica Comportamiento = "MULTIPLICA"
	Divide     Comportamiento = "DIVIDE"
)

// Valido reports whether c is one of the two supported behaviours.
func (c Comportamiento) Valido() bool {
	return c == Multiplica || c == Divide
}

// Moneda is a currency handled by the exchange points.
// Both behaviours are NOT NULL: an active currency can never be left half configured.
type Moneda struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo               string         `gorm:"type:varchar(10);uniqueIndex;not null"`
	Nombre               string         `gorm:"not null"`
	Simbolo              string         `gorm:"type:varchar(10);not null"`
	Activo               bool           `gorm:"not null;default:true"`
	ComportamientoCompra Comportamiento `gorm:"type:varchar(12);not null;default:'MULTIPLICA'"`
	ComportamientoVenta  Comportamiento `gorm:"type:varchar(12);not null;default:'MULTIPLICA'"`
	OrdenDisplay         int            `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (Moneda) TableName() string { return "monedas" }

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EstadoTransferencia string

const (
	TransferenciaPendiente  EstadoTransferencia = "PENDIENTE"
	TransferenciaAprobado   EstadoTransferencia = "APROBADO"
	TransferenciaRechazado  EstadoTransferencia = "RECHAZADO"
	TransferenciaEnTransito EstadoTransferencia = "EN_TRANSITO"
	TransferenciaRecibido   EstadoTransferencia = "RECIBIDO"
)

// Transferencia moves funds between points (or from head office when OrigenID is nil).
// Approval is one-way: PENDIENTE → APROBADO | RECHAZADO.
type Transferencia struct {
	ID                      uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NumeroRecibo            string              `gorm:"type:varchar(40);uniqueIndex;not null"`
	OrigenID                *uuid.UUID          `gorm:"type:uuid"`
	DestinoID               uuid.UUID           `gorm:"type:uuid;not null"`
	MonedaID                uuid.UUID           `gorm:"type:uuid;not null"`
	Monto                   decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	TipoTransferencia       string              `gorm:"type:varchar(30);not null"`
	Estado                  EstadoTransferencia `gorm:"type:varchar(20);not null;index"`
	Descripcion             *string
	SolicitadoPor           uuid.UUID  `gorm:"type:uuid;not null"`
	AprobadoPor             *uuid.UUID `gorm:"type:uuid"`
	RechazadoPor            *uuid.UUID `gorm:"type:uuid"`
	FechaAprobacion         *time.Time
	FechaRechazo            *time.Time
	ObservacionesAprobacion *string
	CreatedAt               time.Time
	UpdatedAt               time.Time

	Moneda *Moneda `gorm:"foreignKey:MonedaID"`
}

func (Transferencia) TableName() string { return "transferencias" }

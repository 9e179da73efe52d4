package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MovimientoIngreso = "INGRESO"
	MovimientoEgreso  = "EGRESO"
)

// Medio tells whether a movement affects the physical drawer or the bank balance.
const (
	MedioEfectivo = "EFECTIVO"
	MedioBanco    = "BANCO"
)

const (
	RefCambioDivisa    = "CAMBIO_DIVISA"
	RefAbonoCambio     = "ABONO_CAMBIO"
	RefTransferencia   = "TRANSFERENCIA"
	RefServicioExterno = "SERVICIO_EXTERNO"
	RefAjuste          = "AJUSTE"
)

// MovimientoSaldo is an immutable entry in the balance ledger of a point.
// Monto is signed: egresos are stored negative. Entries are NEVER modified or
// deleted; a cancellation writes the inverse entry.
type MovimientoSaldo struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PuntoAtencionID uuid.UUID       `gorm:"type:uuid;not null;index:idx_mov_punto_fecha,priority:1"`
	MonedaID        uuid.UUID       `gorm:"type:uuid;not null"`
	Tipo            string          `gorm:"type:varchar(10);not null"`
	Medio           string          `gorm:"type:varchar(10);not null"`
	Monto           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReferenciaTipo  string          `gorm:"type:varchar(30);not null"`
	ReferenciaID    *uuid.UUID      `gorm:"type:uuid"`
	Descripcion     string          `gorm:"not null;default:''"`
	UsuarioID       uuid.UUID       `gorm:"type:uuid;not null"`
	Fecha           time.Time       `gorm:"not null;index:idx_mov_punto_fecha,priority:2"`
	CreatedAt       time.Time
}

func (MovimientoSaldo) TableName() string { return "movimientos_saldo" }

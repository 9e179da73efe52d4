package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const CuadreCerrado = "CERRADO"

// CuadreCaja is the end-of-day close of a point. One per point and date.
type CuadreCaja struct {
	ID                         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PuntoAtencionID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_cuadre_punto_fecha,priority:1"`
	UsuarioID                  uuid.UUID `gorm:"type:uuid;not null"`
	Fecha                      time.Time `gorm:"type:date;not null;uniqueIndex:uq_cuadre_punto_fecha,priority:2"`
	Estado                     string    `gorm:"type:varchar(20);not null;default:'CERRADO'"`
	TotalCambios               int       `gorm:"not null;default:0"`
	TotalTransferenciasEntrada int       `gorm:"not null;default:0"`
	TotalTransferenciasSalida  int       `gorm:"not null;default:0"`
	OtrosMovimientos           int       `gorm:"not null;default:0"`
	Observaciones              *string
	FechaCierre                time.Time
	CreatedAt                  time.Time

	Detalles []CuadreDetalle `gorm:"foreignKey:CuadreID"`
}

func (CuadreCaja) TableName() string { return "cuadres_caja" }

// CuadreDetalle is the per-currency reconciliation line of a close.
// SaldoCierre and BancosTeorico are always computed by the server.
type CuadreDetalle struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuadreID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	MonedaID         uuid.UUID       `gorm:"type:uuid;not null"`
	SaldoApertura    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IngresosPeriodo  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	EgresosPeriodo   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	SaldoCierre      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BancosTeorico    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConteoBilletes   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConteoMonedas    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConteoFisico     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConteoBancos     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DiferenciaFisico decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DiferenciaBancos decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Observaciones    *string

	Moneda *Moneda `gorm:"foreignKey:MonedaID"`
}

func (CuadreDetalle) TableName() string { return "cuadres_detalle" }

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TipoOperacion string

const (
	Compra TipoOperacion = "COMPRA"
	Venta  TipoOperacion = "VENTA"
)

type EstadoCambio string

const (
	CambioPendiente  EstadoCambio = "PENDIENTE"
	CambioCompletado EstadoCambio = "COMPLETADO"
	CambioCancelado  EstadoCambio = "CANCELADO"
)

const (
	EntregaEfectivo      = "efectivo"
	EntregaTransferencia = "transferencia"
)

// CambioDivisa is a single currency exchange operation at a punto de atención.
// Amounts are persisted as computed at creation time; later changes to a
// currency's behaviour never rewrite them.
type CambioDivisa struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NumeroRecibo    string        `gorm:"type:varchar(40);uniqueIndex;not null"`
	PuntoAtencionID uuid.UUID     `gorm:"type:uuid;index;not null"`
	UsuarioID       uuid.UUID     `gorm:"type:uuid;not null"`
	MonedaOrigenID  uuid.UUID     `gorm:"type:uuid;not null"`
	MonedaDestinoID uuid.UUID     `gorm:"type:uuid;not null"`
	TipoOperacion   TipoOperacion `gorm:"type:varchar(10);not null"`

	MontoOrigen        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MontoDestino       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TasaCambioBilletes decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TasaCambioMonedas  decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`

	// Breakdown of what the customer handed over (origen) and what was delivered (destino).
	DivisasRecibidasBilletes  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DivisasRecibidasMonedas   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DivisasEntregadasBilletes decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DivisasEntregadasMonedas  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	MetodoEntrega       string  `gorm:"type:varchar(20);not null;default:'efectivo'"`
	TransferenciaBanco  *string `gorm:"type:varchar(100)"`
	TransferenciaNumero *string `gorm:"type:varchar(100)"`

	Estado EstadoCambio `gorm:"type:varchar(20);not null;index"`
	// SaldoPendiente and AbonoInicialMonto stay NULL for exchanges that were never partial.
	SaldoPendiente          *decimal.Decimal `gorm:"type:decimal(18,2)"`
	AbonoInicialMonto       *decimal.Decimal `gorm:"type:decimal(18,2)"`
	AbonoInicialFecha       *time.Time
	AbonoInicialRecibidoPor *uuid.UUID `gorm:"type:uuid"`

	ClienteNombre    string `gorm:"not null;default:''"`
	ClienteDocumento string `gorm:"type:varchar(30);not null;default:''"`
	Observacion      *string

	FechaCompletado *time.Time
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time

	MonedaOrigen  *Moneda       `gorm:"foreignKey:MonedaOrigenID"`
	MonedaDestino *Moneda       `gorm:"foreignKey:MonedaDestinoID"`
	Abonos        []AbonoCambio `gorm:"foreignKey:CambioID"`
}

func (CambioDivisa) TableName() string { return "cambios_divisas" }

// AbonoCambio is a payment registered against a pending exchange.
// RecibidoPor is always the acting user, never client supplied.
type AbonoCambio struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CambioID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Monto            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Metodo           string          `gorm:"type:varchar(20);not null"`
	Banco            *string         `gorm:"type:varchar(100)"`
	NumeroReferencia *string         `gorm:"type:varchar(100)"`
	RecibidoPor      uuid.UUID       `gorm:"type:uuid;not null"`
	EsPagoFinal      bool            `gorm:"not null;default:false"`
	Observaciones    *string
	CreatedAt        time.Time
}

func (AbonoCambio) TableName() string { return "abonos_cambio" }

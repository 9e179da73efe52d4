// Package calculo holds the exchange arithmetic shared by the API and the client SDK.
//
// Which way a rate is applied depends on the currencies involved, not on the
// operator: for a COMPRA the origin currency's ComportamientoCompra controls the
// conversion, for a VENTA the destination currency's ComportamientoVenta does.
package calculo

import (
	"errors"
	"fmt"

	"puntocambio/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// ErrTasaInvalida is returned by ValidarTasaCambio for rates that are not positive.
	ErrTasaInvalida = errors.New("la tasa de cambio debe ser mayor a cero")
	// ErrTasaSospechosa flags rates outside the plausible range for the behaviour.
	ErrTasaSospechosa = errors.New("tasa de cambio fuera de rango")
	// ErrAbonoInvalido is returned by SaldoPendiente when the abono is not strictly between zero and the total.
	ErrAbonoInvalido = errors.New("el abono debe ser mayor a cero y menor al total")
)

var (
	tasaMinimaDivide     = decimal.RequireFromString("0.0001")
	tasaMaximaMultiplica = decimal.NewFromInt(10000)
)

// Parcial is one side (billetes or monedas) of a detailed calculation.
type Parcial struct {
	Origen  decimal.Decimal `json:"origen"`
	Destino decimal.Decimal `json:"destino"`
}

// Detalle is the result of CalcularDetallado. Totales is always the exact sum
// of Billetes and Monedas.
type Detalle struct {
	Billetes Parcial `json:"billetes"`
	Monedas  Parcial `json:"monedas"`
	Totales  Parcial `json:"totales"`
}

// ComportamientoAplicable returns the behaviour that controls the conversion.
func ComportamientoAplicable(origen, destino model.Moneda, tipo model.TipoOperacion) model.Comportamiento {
	if tipo == model.Venta {
		return destino.ComportamientoVenta
	}
	return origen.ComportamientoCompra
}

// CalcularMontoDestino converts montoOrigen with tasa. Non-positive amount or
// rate yields zero; callers validate inputs before relying on the result.
func CalcularMontoDestino(origen, destino model.Moneda, tipo model.TipoOperacion, montoOrigen, tasa decimal.Decimal) decimal.Decimal {
	if !montoOrigen.IsPositive() || !tasa.IsPositive() {
		return decimal.Zero
	}
	if ComportamientoAplicable(origen, destino, tipo) == model.Divide {
		return montoOrigen.Div(tasa)
	}
	return montoOrigen.Mul(tasa)
}

// CalcularMontoOrigen is the inverse of CalcularMontoDestino: the origin amount
// needed to deliver montoDestino.
func CalcularMontoOrigen(origen, destino model.Moneda, tipo model.TipoOperacion, montoDestino, tasa decimal.Decimal) decimal.Decimal {
	if !montoDestino.IsPositive() || !tasa.IsPositive() {
		return decimal.Zero
	}
	if ComportamientoAplicable(origen, destino, tipo) == model.Divide {
		return montoDestino.Mul(tasa)
	}
	return montoDestino.Div(tasa)
}

// CalcularDetallado applies the same rule separately to notes and coins so
// each can carry its own rate.
func CalcularDetallado(origen, destino model.Moneda, tipo model.TipoOperacion,
	billetes, monedas, tasaBilletes, tasaMonedas decimal.Decimal) Detalle {

	d := Detalle{
		Billetes: Parcial{
			Origen:  positivoOCero(billetes),
			Destino: CalcularMontoDestino(origen, destino, tipo, billetes, tasaBilletes),
		},
		Monedas: Parcial{
			Origen:  positivoOCero(monedas),
			Destino: CalcularMontoDestino(origen, destino, tipo, monedas, tasaMonedas),
		},
	}
	d.Totales = Parcial{
		Origen:  d.Billetes.Origen.Add(d.Monedas.Origen),
		Destino: d.Billetes.Destino.Add(d.Monedas.Destino),
	}
	return d
}

// ValidarTasaCambio rejects non-positive rates and rates that look like a
// typing mistake for the given behaviour.
func ValidarTasaCambio(tasa decimal.Decimal, c model.Comportamiento) error {
	if !tasa.IsPositive() {
		return ErrTasaInvalida
	}
	switch c {
	case model.Divide:
		if tasa.LessThan(tasaMinimaDivide) {
			return fmt.Errorf("%w: %s es menor a %s para DIVIDE", ErrTasaSospechosa, tasa, tasaMinimaDivide)
		}
	case model.Multiplica:
		if tasa.GreaterThan(tasaMaximaMultiplica) {
			return fmt.Errorf("%w: %s es mayor a %s para MULTIPLICA", ErrTasaSospechosa, tasa, tasaMaximaMultiplica)
		}
	}
	return nil
}

// SaldoPendiente is what remains owed after an abono inicial. An abono equal
// to the total is not partial and must be registered as a normal exchange.
func SaldoPendiente(totalDestino, abono decimal.Decimal) (decimal.Decimal, error) {
	if !abono.IsPositive() || !abono.LessThan(totalDestino) {
		return decimal.Zero, ErrAbonoInvalido
	}
	saldo := totalDestino.Sub(abono)
	if saldo.IsNegative() {
		saldo = decimal.Zero
	}
	return saldo, nil
}

// Redondear rounds to cents, the precision amounts are stored with.
func Redondear(monto decimal.Decimal) decimal.Decimal {
	return monto.Round(2)
}

func positivoOCero(v decimal.Decimal) decimal.Decimal {
	if v.IsPositive() {
		return v
	}
	return decimal.Zero
}

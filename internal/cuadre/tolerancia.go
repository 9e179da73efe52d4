// Package cuadre implements the tolerance gate of the daily cash close.
// Both the API and the client SDK run Validar before a close is accepted.
package cuadre

import (
	"fmt"
	"strings"

	"puntocambio/internal/apierror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	toleranciaUSD   = decimal.NewFromInt(1)
	toleranciaOtras = decimal.RequireFromString("0.01")
)

// Tolerancia is the largest accepted absolute difference for a currency.
func Tolerancia(codigo string) decimal.Decimal {
	if strings.EqualFold(strings.TrimSpace(codigo), "USD") {
		return toleranciaUSD
	}
	return toleranciaOtras
}

// Linea pairs the server-computed expectation with what the operator counted.
type Linea struct {
	MonedaID      uuid.UUID
	Codigo        string
	SaldoCierre   decimal.Decimal
	BancosTeorico decimal.Decimal
	Billetes      decimal.Decimal
	Monedas       decimal.Decimal
	ConteoBancos  decimal.Decimal
}

// ConteoFisico is billetes + monedas.
func (l Linea) ConteoFisico() decimal.Decimal {
	return l.Billetes.Add(l.Monedas)
}

// Diferencia describes a line that fails the gate.
type Diferencia struct {
	MonedaID   uuid.UUID       `json:"moneda_id"`
	Codigo     string          `json:"codigo"`
	DiffFisico decimal.Decimal `json:"diff_fisico"`
	DiffBancos decimal.Decimal `json:"diff_bancos"`
	Tolerancia decimal.Decimal `json:"tolerancia"`
}

// Diferencias returns the absolute physical and bank deltas of a line.
func Diferencias(l Linea) (fisico, bancos decimal.Decimal) {
	return l.ConteoFisico().Sub(l.SaldoCierre).Abs(), l.ConteoBancos.Sub(l.BancosTeorico).Abs()
}

// DentroDeTolerancia reports whether both deltas are within the currency tolerance.
// The bounds are inclusive.
func DentroDeTolerancia(l Linea) bool {
	fisico, bancos := Diferencias(l)
	tol := Tolerancia(l.Codigo)
	return fisico.LessThanOrEqual(tol) && bancos.LessThanOrEqual(tol)
}

// Validar returns every line outside tolerance, in input order.
// An empty result means the close may be submitted; zero lines always pass.
func Validar(lineas []Linea) []Diferencia {
	var fuera []Diferencia
	for _, l := range lineas {
		if DentroDeTolerancia(l) {
			continue
		}
		fisico, bancos := Diferencias(l)
		fuera = append(fuera, Diferencia{
			MonedaID:   l.MonedaID,
			Codigo:     l.Codigo,
			DiffFisico: fisico,
			DiffBancos: bancos,
			Tolerancia: Tolerancia(l.Codigo),
		})
	}
	return fuera
}

// ToleranciaError blocks a close. It matches apierror.ErrValidation so it is
// reported as a correctable input error, never as a server failure.
type ToleranciaError struct {
	Diferencias []Diferencia
}

func (e *ToleranciaError) Error() string {
	return fmt.Sprintf("%d moneda(s) fuera de tolerancia: revise las transacciones del día antes de cerrar", len(e.Diferencias))
}

func (e *ToleranciaError) Unwrap() error { return apierror.ErrValidation }

// Verificar is Validar as an error: nil when every line is within tolerance.
func Verificar(lineas []Linea) error {
	if fuera := Validar(lineas); len(fuera) > 0 {
		return &ToleranciaError{Diferencias: fuera}
	}
	return nil
}

package cuadre_test

import (
	"errors"
	"testing"

	"puntocambio/internal/apierror"
	"puntocambio/internal/cuadre"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func linea(codigo, esperado, contado string) cuadre.Linea {
	return cuadre.Linea{
		Codigo:        codigo,
		SaldoCierre:   d(esperado),
		BancosTeorico: decimal.Zero,
		Billetes:      d(contado),
		Monedas:       decimal.Zero,
		ConteoBancos:  decimal.Zero,
	}
}

func TestTolerancia(t *testing.T) {
	assert.Equal(t, "1", cuadre.Tolerancia("USD").String())
	assert.Equal(t, "1", cuadre.Tolerancia("usd").String())
	assert.Equal(t, "0.01", cuadre.Tolerancia("EUR").String())
	assert.Equal(t, "0.01", cuadre.Tolerancia("COP").String())
}

func TestDentroDeTolerancia_USD(t *testing.T) {
	for _, contado := range []string{"499.00", "499.50", "500.00", "501.00"} {
		assert.True(t, cuadre.DentroDeTolerancia(linea("USD", "500.00", contado)), contado)
	}
	for _, contado := range []string{"498.99", "501.01"} {
		assert.False(t, cuadre.DentroDeTolerancia(linea("USD", "500.00", contado)), contado)
	}
}

func TestDentroDeTolerancia_EUR(t *testing.T) {
	for _, contado := range []string{"199.99", "200.00", "200.01"} {
		assert.True(t, cuadre.DentroDeTolerancia(linea("EUR", "200.00", contado)), contado)
	}
	for _, contado := range []string{"199.98", "200.02"} {
		assert.False(t, cuadre.DentroDeTolerancia(linea("EUR", "200.00", contado)), contado)
	}
}

func TestConteoFisicoSumaBilletesYMonedas(t *testing.T) {
	l := cuadre.Linea{Codigo: "EUR", SaldoCierre: d("200.00"), Billetes: d("195"), Monedas: d("5.00")}
	assert.True(t, d("200").Equal(l.ConteoFisico()))
	assert.True(t, cuadre.DentroDeTolerancia(l))
}

func TestValidar_BancosFueraDeTolerancia(t *testing.T) {
	l := linea("EUR", "100", "100")
	l.BancosTeorico = d("50.00")
	l.ConteoBancos = d("49.90")

	fuera := cuadre.Validar([]cuadre.Linea{linea("USD", "10", "10"), l})
	require.Len(t, fuera, 1)
	assert.Equal(t, "EUR", fuera[0].Codigo)
	assert.True(t, fuera[0].DiffFisico.IsZero())
	assert.Equal(t, "0.1", fuera[0].DiffBancos.String())
}

func TestValidar_SinLineas(t *testing.T) {
	assert.Empty(t, cuadre.Validar(nil))
}

func TestVerificar_DevuelveToleranciaError(t *testing.T) {
	lineas := []cuadre.Linea{
		{Codigo: "USD", SaldoCierre: d("500"), Billetes: d("500")},
		{Codigo: "EUR", SaldoCierre: d("200"), Billetes: d("199.98")},
	}
	err := cuadre.Verificar(lineas)
	require.Error(t, err)

	var tolErr *cuadre.ToleranciaError
	require.True(t, errors.As(err, &tolErr))
	require.Len(t, tolErr.Diferencias, 1)
	assert.Equal(t, "EUR", tolErr.Diferencias[0].Codigo)
	assert.ErrorIs(t, err, apierror.ErrValidation)

	assert.NoError(t, cuadre.Verificar(lineas[:1]))
	assert.NoError(t, cuadre.Verificar(nil))
}

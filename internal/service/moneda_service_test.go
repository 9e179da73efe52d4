package service_test

import (
	"context"
	"testing"

	"puntocambio/internal/apierror"
	"puntocambio/internal/dto"
	"puntocambio/internal/model"
	"puntocambio/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneda_CrearNormalizaCodigoYRechazaDuplicado(t *testing.T) {
	svc := service.NewMonedaService(newFakeMonedaRepo(usd))

	resp, err := svc.Crear(context.Background(), dto.CrearMonedaRequest{
		Codigo: "cop", Nombre: "Peso colombiano", Simbolo: "$",
		ComportamientoCompra: "DIVIDE", ComportamientoVenta: "DIVIDE",
	})
	require.NoError(t, err)
	assert.Equal(t, "COP", resp.Codigo)
	assert.True(t, resp.Activo)

	_, err = svc.Crear(context.Background(), dto.CrearMonedaRequest{
		Codigo: "usd", Nombre: "Dólar", Simbolo: "$",
		ComportamientoCompra: "MULTIPLICA", ComportamientoVenta: "MULTIPLICA",
	})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestMoneda_ActualizarComportamiento(t *testing.T) {
	repo := newFakeMonedaRepo(eur)
	svc := service.NewMonedaService(repo)
	divide := string(model.Divide)

	resp, err := svc.Actualizar(context.Background(), eur.ID, dto.ActualizarMonedaRequest{ComportamientoCompra: &divide})
	require.NoError(t, err)
	assert.Equal(t, divide, resp.ComportamientoCompra)
	assert.Equal(t, model.Divide, repo.monedas[eur.ID].ComportamientoCompra)

	invalido := "SUMA"
	_, err = svc.Actualizar(context.Background(), eur.ID, dto.ActualizarMonedaRequest{ComportamientoVenta: &invalido})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = svc.Actualizar(context.Background(), uuid.New(), dto.ActualizarMonedaRequest{})
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"puntocambio/internal/cuadre"
	"puntocambio/internal/dto"
)

const cierreTimeout = 60 * time.Second

// ResumenCuadre fetches the expected balances of the day. fecha may be empty
// for today.
func (c *Client) ResumenCuadre(ctx context.Context, fecha string) (*dto.ResumenCuadreResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if fecha != "" {
		q.Set("fecha", fecha)
	}
	if p, ok := c.session.PuntoSeleccionado(); ok {
		q.Set("punto_atencion_id", p.String())
	}
	var out dto.ResumenCuadreResponse
	if err := c.do(ctx, http.MethodGet, "/api/cuadre-caja", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LineasCierre pairs each summary line with its count. A currency without a
// count is taken as counted zero, the same rule the server applies.
func LineasCierre(resumen dto.ResumenCuadreResponse, conteos []dto.ConteoMoneda) []cuadre.Linea {
	porMoneda := make(map[string]dto.ConteoMoneda, len(conteos))
	for _, ct := range conteos {
		porMoneda[ct.MonedaID] = ct
	}
	lineas := make([]cuadre.Linea, 0, len(resumen.Detalles))
	for _, d := range resumen.Detalles {
		ct := porMoneda[d.MonedaID]
		lineas = append(lineas, cuadre.Linea{
			MonedaID:      parseID(d.MonedaID),
			Codigo:        d.Codigo,
			SaldoCierre:   d.SaldoCierre,
			BancosTeorico: d.BancosTeorico,
			Billetes:      ct.Billetes,
			Monedas:       ct.Monedas,
			ConteoBancos:  ct.ConteoBancos,
		})
	}
	return lineas
}

// EnviarCierre submits the close of the day. Counts outside tolerance are
// rejected locally with *cuadre.ToleranciaError and nothing is sent. When the
// close also ends the operator's shift the session is cleared.
func (c *Client) EnviarCierre(ctx context.Context, resumen dto.ResumenCuadreResponse, req dto.CerrarCuadreRequest) (*dto.CuadreResponse, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if req.PuntoAtencionID == "" {
		req.PuntoAtencionID = resumen.PuntoAtencionID
	}
	if req.Fecha == "" {
		req.Fecha = resumen.Fecha
	}
	if err := c.validarRequest(req); err != nil {
		return nil, err
	}
	if err := cuadre.Verificar(LineasCierre(resumen, req.Detalles)); err != nil {
		return nil, err
	}

	release, err := c.inflight.Begin("cierre:" + req.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, cierreTimeout)
	defer cancel()

	var resp dto.CuadreResponse
	if err := c.do(ctx, http.MethodPost, "/api/cuadre-caja", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.JornadaFinalizada {
		c.session.Logout()
	}
	return &resp, nil
}

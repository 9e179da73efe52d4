package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/cuadre"
	"puntocambio/internal/dto"
	"puntocambio/internal/handler"
	"puntocambio/internal/middleware"
	"puntocambio/internal/model"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "secreto-handlers"

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Fields  map[string]string
}

func token(t *testing.T, rol string, punto *uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": uuid.NewString(),
		"rol":     rol,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	if punto != nil {
		claims["punto_atencion_id"] = punto.String()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, r http.Handler, method, path, tok, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// ── Fakes ────────────────────────────────────────────────────────────────────
// Embedding the interface satisfies it; calling a method that is not
// overridden panics, which is what these tests want.

type fakeCuadreSvc struct {
	service.CuadreService
	cerrarErr error
	actor     service.Actor
}

func (f *fakeCuadreSvc) Cerrar(_ context.Context, a service.Actor, req dto.CerrarCuadreRequest) (*dto.CuadreResponse, error) {
	f.actor = a
	if f.cerrarErr != nil {
		return nil, f.cerrarErr
	}
	return &dto.CuadreResponse{ID: uuid.NewString(), Fecha: req.Fecha}, nil
}

type fakeCambioSvc struct {
	service.CambioService
	err   error
	calls int
}

func (f *fakeCambioSvc) Crear(_ context.Context, _ service.Actor, req dto.CrearCambioRequest) (*dto.CambioResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CambioResponse{ID: uuid.NewString(), Estado: string(model.CambioCompletado)}, nil
}

func (f *fakeCambioSvc) Obtener(_ context.Context, _ service.Actor, _ uuid.UUID) (*dto.CambioResponse, error) {
	return nil, f.err
}

type fakeTransferenciaSvc struct {
	service.TransferenciaService
	obs *string
	err error
}

func (f *fakeTransferenciaSvc) Aprobar(_ context.Context, _ service.Actor, id uuid.UUID, req dto.ResolverTransferenciaRequest) (*dto.TransferenciaResponse, error) {
	f.obs = req.Observaciones
	if f.err != nil {
		return nil, f.err
	}
	return &dto.TransferenciaResponse{ID: id.String(), Estado: string(model.TransferenciaAprobado)}, nil
}

type fakeAuthSvc struct{ service.AuthService }

func (fakeAuthSvc) Login(context.Context, dto.LoginRequest) (*dto.LoginResponse, error) {
	return nil, service.ErrCredenciales
}

func (fakeAuthSvc) Refresh(context.Context, string) (*dto.LoginResponse, error) {
	return nil, service.ErrSesionInvalida
}

func (fakeAuthSvc) DesactivarUsuario(_ context.Context, a service.Actor, id uuid.UUID) error {
	if a.UsuarioID == id {
		return apierror.Validation("no puede desactivar su propio usuario")
	}
	return apierror.Conflict("el usuario tiene una jornada activa")
}

type fakeJornadaSvc struct{ service.JornadaService }

func (fakeJornadaSvc) Activa(context.Context, uuid.UUID) (*dto.JornadaResponse, error) {
	return nil, nil
}

// ── Router ───────────────────────────────────────────────────────────────────

type fakes struct {
	cuadre        *fakeCuadreSvc
	cambio        *fakeCambioSvc
	transferencia *fakeTransferenciaSvc
}

func newTestRouter() (*gin.Engine, *fakes) {
	f := &fakes{cuadre: &fakeCuadreSvc{}, cambio: &fakeCambioSvc{}, transferencia: &fakeTransferenciaSvc{}}

	r := gin.New()
	r.Use(middleware.Recovery())
	authH := handler.NewAuthHandler(fakeAuthSvc{})
	r.POST("/api/auth/login", authH.Login)
	r.POST("/api/auth/refresh", authH.Refresh)

	api := r.Group("/api", middleware.JWTAuth(secret))
	cuadreH := handler.NewCuadreHandler(f.cuadre)
	api.POST("/cuadre-caja", cuadreH.Cerrar)
	cambiosH := handler.NewCambiosHandler(f.cambio, nil)
	api.POST("/exchanges", cambiosH.Crear)
	api.GET("/exchanges/:id", cambiosH.Obtener)
	transH := handler.NewTransferenciasHandler(f.transferencia)
	api.PATCH("/transfer-approvals/:id/approve", transH.Aprobar)
	api.GET("/schedules/active", handler.NewJornadasHandler(fakeJornadaSvc{}).Activa)
	api.PATCH("/users/:id/deactivate", handler.NewUsuariosHandler(fakeAuthSvc{}).Desactivar)
	return r, f
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestCerrar_FueraDeTolerancia422ConDetalle(t *testing.T) {
	r, f := newTestRouter()
	usd := uuid.New()
	f.cuadre.cerrarErr = &cuadre.ToleranciaError{Diferencias: []cuadre.Diferencia{{
		MonedaID:   usd,
		Codigo:     "USD",
		DiffFisico: decimal.RequireFromString("1.50"),
		DiffBancos: decimal.Zero,
		Tolerancia: decimal.NewFromInt(1),
	}}}
	punto := uuid.New()

	w, env := do(t, r, http.MethodPost, "/api/cuadre-caja", token(t, model.RolOperador, &punto), `{"detalles":[]}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "fuera de tolerancia")
	var data struct {
		Fuera []cuadre.Diferencia `json:"fuera_de_tolerancia"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Fuera, 1)
	assert.Equal(t, "USD", data.Fuera[0].Codigo)
	assert.True(t, data.Fuera[0].DiffFisico.Equal(decimal.RequireFromString("1.5")))
}

func TestCerrar_ActorDesdeToken(t *testing.T) {
	r, f := newTestRouter()
	punto := uuid.New()

	w, env := do(t, r, http.MethodPost, "/api/cuadre-caja", token(t, model.RolOperador, &punto), `{"fecha":"2026-03-10"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	require.NotNil(t, f.cuadre.actor.PuntoAtencionID)
	assert.Equal(t, punto, *f.cuadre.actor.PuntoAtencionID)
	assert.Equal(t, model.RolOperador, f.cuadre.actor.Rol)
}

func TestErrores_MapeoDeEstados(t *testing.T) {
	punto := uuid.New()
	cases := []struct {
		name string
		err  error
		want int
		msg  string
	}{
		{"not found", apierror.NotFound("cambio no encontrado"), http.StatusNotFound, "cambio no encontrado"},
		{"conflict", apierror.Conflict("el cambio ya fue completado"), http.StatusConflict, "el cambio ya fue completado"},
		{"forbidden", apierror.Forbidden("no puede operar en otro punto"), http.StatusForbidden, "no puede operar en otro punto"},
		{"interno", context.DeadlineExceeded, http.StatusInternalServerError, "Error interno del servidor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, f := newTestRouter()
			f.cambio.err = tc.err

			w, env := do(t, r, http.MethodGet, "/api/exchanges/"+uuid.NewString(), token(t, model.RolOperador, &punto), "")

			assert.Equal(t, tc.want, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Error)
		})
	}
}

func TestCrearCambio_ValidacionAntesDelServicio(t *testing.T) {
	r, f := newTestRouter()
	punto := uuid.New()
	moneda := uuid.NewString()
	body := `{"moneda_origen_id":"` + moneda + `","moneda_destino_id":"` + moneda + `",
		"tipo_operacion":"COMPRA","monto_origen":"100","tasa_cambio_billetes":"0",
		"metodo_entrega":"efectivo"}`

	w, env := do(t, r, http.MethodPost, "/api/exchanges", token(t, model.RolOperador, &punto), body)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "nefield", env.Fields["moneda_destino_id"])
	assert.Equal(t, "gt", env.Fields["tasa_cambio_billetes"])
	assert.Zero(t, f.cambio.calls)
}

func TestCrearCambio_JSONInvalido(t *testing.T) {
	r, _ := newTestRouter()
	punto := uuid.New()

	w, _ := do(t, r, http.MethodPost, "/api/exchanges", token(t, model.RolOperador, &punto), `{"monto_origen":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCrearCambio_SinToken(t *testing.T) {
	r, f := newTestRouter()

	w, _ := do(t, r, http.MethodPost, "/api/exchanges", "", `{}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.cambio.calls)
}

func TestAprobar_CuerpoOpcional(t *testing.T) {
	r, f := newTestRouter()
	punto := uuid.New()
	tok := token(t, model.RolOperador, &punto)

	w, env := do(t, r, http.MethodPatch, "/api/transfer-approvals/"+uuid.NewString()+"/approve", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Nil(t, f.transferencia.obs)

	w, _ = do(t, r, http.MethodPatch, "/api/transfer-approvals/"+uuid.NewString()+"/approve", tok, `{"observaciones":"recibido conforme"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.transferencia.obs)
	assert.Equal(t, "recibido conforme", *f.transferencia.obs)
}

func TestAprobar_IDInvalido(t *testing.T) {
	r, _ := newTestRouter()
	punto := uuid.New()

	w, _ := do(t, r, http.MethodPatch, "/api/transfer-approvals/no-uuid/approve", token(t, model.RolAdmin, &punto), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAprobar_ResueltaEnSentidoContrario409(t *testing.T) {
	r, f := newTestRouter()
	f.transferencia.err = apierror.Conflict("la transferencia ya fue rechazada")

	w, env := do(t, r, http.MethodPatch, "/api/transfer-approvals/"+uuid.NewString()+"/approve", token(t, model.RolAdmin, nil), "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "la transferencia ya fue rechazada", env.Error)
}

func TestLogin_CredencialesInvalidas401(t *testing.T) {
	r, _ := newTestRouter()

	w, env := do(t, r, http.MethodPost, "/api/auth/login", "", `{"username":"ana","password":"clave-mala"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, service.ErrCredenciales.Error(), env.Error)
}

func TestRefresh_SesionInvalida401(t *testing.T) {
	r, _ := newTestRouter()

	w, env := do(t, r, http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"vencido"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, service.ErrSesionInvalida.Error(), env.Error)
}

func TestDesactivarUsuario_JornadaActiva409(t *testing.T) {
	r, _ := newTestRouter()

	w, env := do(t, r, http.MethodPatch, "/api/users/"+uuid.NewString()+"/deactivate", token(t, model.RolAdmin, nil), "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "el usuario tiene una jornada activa", env.Error)
}

func TestJornadaActiva_SinJornadaDevuelveNull(t *testing.T) {
	r, _ := newTestRouter()
	punto := uuid.New()

	w, env := do(t, r, http.MethodGet, "/api/schedules/active", token(t, model.RolOperador, &punto), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "null", string(env.Data))
}

//go:build integration

package router_test

// End-to-end flow against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"puntocambio/internal/config"
	"puntocambio/internal/cuadre"
	"puntocambio/internal/dto"
	"puntocambio/internal/events"
	"puntocambio/internal/infra"
	"puntocambio/internal/router"
	"puntocambio/internal/worker"
	"puntocambio/migrations"
	"puntocambio/pkg/client"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, token string, dest any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if dest != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return resp.StatusCode
}

func seedID(t *testing.T, db *gorm.DB, sql string, args ...any) string {
	t.Helper()
	var id string
	require.NoError(t, db.Raw(sql, args...).Scan(&id).Error)
	require.NotEmpty(t, id)
	return id
}

// ── Suite setup ──────────────────────────────────────────────────────────────

type testEnv struct {
	server     *httptest.Server
	db         *gorm.DB
	rdb        *redis.Client
	bus        *events.Bus
	adminToken string
	puntoID    string
	usdID      string
	eurID      string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("puntocambio_test"),
		tcPostgres.WithUsername("puntocambio"),
		tcPostgres.WithPassword("puntocambio"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		RateLimit:          "1000-M",
		LoginRateLimit:     "100-M",
		ReportStoragePath:  t.TempDir(),
		TimeZone:           "America/Guayaquil",
	}

	require.NoError(t, infra.RunMigrations(cfg.DatabaseURL, migrations.FS))
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-e2e-2026"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO usuarios (username, nombre, password_hash, rol)
		VALUES ('admin', 'Admin E2E', ?, 'ADMIN')`, string(hash)).Error)

	env := &testEnv{db: db, rdb: rdb, bus: events.NewBus()}
	env.puntoID = seedID(t, db, `INSERT INTO puntos_atencion (nombre, ciudad) VALUES ('Matriz Centro', 'Quito') RETURNING id`)
	env.usdID = seedID(t, db, `INSERT INTO monedas (codigo, nombre, simbolo) VALUES ('USD', 'Dólar', '$') RETURNING id`)
	env.eurID = seedID(t, db, `INSERT INTO monedas (codigo, nombre, simbolo) VALUES ('EUR', 'Euro', '€') RETURNING id`)

	r, err := router.New(cfg, db, rdb, router.Deps{Bus: env.bus})
	require.NoError(t, err)
	env.server = httptest.NewServer(r)
	t.Cleanup(env.server.Close)

	var login dto.LoginResponse
	status := call(t, env.server, http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Username: "admin", Password: "admin-e2e-2026"}, "", &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.AccessToken)
	env.adminToken = login.AccessToken
	return env
}

// operador creates an operator assigned to the env's point and returns a
// logged-in SDK client for it.
func (env *testEnv) operador(t *testing.T, username string) *client.Client {
	t.Helper()
	status := call(t, env.server, http.MethodPost, "/api/users", dto.CrearUsuarioRequest{
		Username: username, Nombre: "Operador " + username, Password: "operador-2026",
		Rol: "OPERADOR", PuntoAtencionID: &env.puntoID,
	}, env.adminToken, nil)
	require.Equal(t, http.StatusCreated, status)

	c := client.New(env.server.URL, client.WithHTTPClient(env.server.Client()))
	_, err := c.Login(context.Background(), username, "operador-2026")
	require.NoError(t, err)
	return c
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_DiaCompletoDeOperacion(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	op := env.operador(t, "ana")
	punto := uuid.MustParse(env.puntoID)

	// 1. No open shift yet: the SDK asks for a point, then opens the shift.
	require.True(t, op.Session().ForzarSeleccionPunto())
	_, err := op.IniciarJornada(ctx, punto)
	require.NoError(t, err)
	assert.False(t, op.Session().ForzarSeleccionPunto())

	// 2. Head office sends EUR cash; the point approves it.
	var tr dto.TransferenciaResponse
	status := call(t, env.server, http.MethodPost, "/api/transfers", dto.CrearTransferenciaRequest{
		DestinoID: env.puntoID, MonedaID: env.eurID, Monto: decimal.NewFromInt(1000),
		TipoTransferencia: "DEPOSITO_MATRIZ",
	}, env.adminToken, &tr)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "PENDIENTE", tr.Estado)

	n, err := op.ContarPendientes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	sse, cancel := env.bus.Subscribe(events.DelPunto(punto))
	defer cancel()

	aprobada, err := op.AprobarTransferencia(ctx, uuid.MustParse(tr.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, "APROBADO", aprobada.Estado)
	assert.Equal(t, events.TransferApproved, (<-sse).Tipo, "server publishes for the SSE stream")

	// approving again is idempotent; rejecting now conflicts
	_, err = op.AprobarTransferencia(ctx, uuid.MustParse(tr.ID), nil)
	require.NoError(t, err)
	_, err = op.RechazarTransferencia(ctx, uuid.MustParse(tr.ID), nil)
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	// 3. A customer sells 100 USD for EUR.
	cambio, err := op.CrearCambio(ctx, dto.CrearCambioRequest{
		MonedaOrigenID:     env.usdID,
		MonedaDestinoID:    env.eurID,
		TipoOperacion:      "COMPRA",
		MontoOrigen:        decimal.NewFromInt(100),
		TasaCambioBilletes: decimal.RequireFromString("0.92"),
		MetodoEntrega:      "efectivo",
		ClienteNombre:      "Juan Pérez",
	})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETADO", cambio.Estado)
	assert.Equal(t, env.puntoID, cambio.PuntoAtencionID)

	// 4. A second one paid in two parts.
	abono := decimal.NewFromInt(20)
	parcial, err := op.CrearCambio(ctx, dto.CrearCambioRequest{
		MonedaOrigenID:     env.usdID,
		MonedaDestinoID:    env.eurID,
		TipoOperacion:      "COMPRA",
		MontoOrigen:        decimal.NewFromInt(50),
		TasaCambioBilletes: decimal.RequireFromString("0.92"),
		MetodoEntrega:      "efectivo",
		AbonoInicialMonto:  &abono,
	})
	require.NoError(t, err)
	require.Equal(t, "PENDIENTE", parcial.Estado)
	require.NotNil(t, parcial.SaldoPendiente)

	completo, err := op.CompletarCambio(ctx, uuid.MustParse(parcial.ID), dto.EntregaRequest{
		Metodo: "efectivo", Billetes: *parcial.SaldoPendiente,
	})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETADO", completo.Estado)

	// 5. Close the day. The server rejects counts its own numbers disagree with,
	// even when a stale local summary would have let them through.
	resumen, err := op.ResumenCuadre(ctx, "")
	require.NoError(t, err)
	require.Len(t, resumen.Detalles, 2)

	var exacto []dto.ConteoMoneda
	for _, d := range resumen.Detalles {
		exacto = append(exacto, dto.ConteoMoneda{MonedaID: d.MonedaID, Billetes: d.SaldoCierre, ConteoBancos: d.BancosTeorico})
	}

	desfasado := *resumen
	desfasado.Detalles = append([]dto.DetalleResumen(nil), resumen.Detalles...)
	desfasado.Detalles[0].SaldoCierre = desfasado.Detalles[0].SaldoCierre.Add(decimal.NewFromInt(5))
	conteoMalo := append([]dto.ConteoMoneda(nil), exacto...)
	conteoMalo[0].Billetes = desfasado.Detalles[0].SaldoCierre

	_, err = op.EnviarCierre(ctx, desfasado, dto.CerrarCuadreRequest{Detalles: conteoMalo})
	var tol *cuadre.ToleranciaError
	require.ErrorAs(t, err, &tol)
	assert.Len(t, tol.Diferencias, 1)
	assert.True(t, op.Session().Autenticada())

	cierre, err := op.EnviarCierre(ctx, *resumen, dto.CerrarCuadreRequest{Detalles: exacto})
	require.NoError(t, err)
	assert.True(t, cierre.JornadaFinalizada)
	assert.False(t, op.Session().Autenticada(), "closing the day ends the session")

	// 6. Second close of the same day conflicts.
	var segundo dto.CuadreResponse
	status = call(t, env.server, http.MethodPost, "/api/cuadre-caja", dto.CerrarCuadreRequest{
		PuntoAtencionID: env.puntoID, Detalles: exacto,
	}, env.adminToken, &segundo)
	assert.Equal(t, http.StatusConflict, status)
}

func TestE2E_HealthYSinToken(t *testing.T) {
	env := setupTestEnv(t)

	var health map[string]any
	resp, err := env.server.Client().Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status := call(t, env.server, http.MethodGet, "/api/exchanges", nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestE2E_DLQReplay(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	job := worker.Job{Type: "email", Payload: json.RawMessage(`{"to":["gerencia@example.com"],"subject":"Cierre"}`)}
	worker.SendToDLQ(ctx, env.rdb, worker.QueueEmail, job, errors.New("smtp caído"))
	require.NoError(t, env.rdb.LPush(ctx, worker.DLQPrefix+worker.QueueEmail, "no-es-json").Err())
	assert.EqualValues(t, 2, worker.DLQLengths(ctx, env.rdb)[worker.QueueEmail])

	moved, err := worker.ReplayDLQ(ctx, env.rdb, worker.QueueEmail, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	raw, err := env.rdb.RPop(ctx, worker.QueueEmail).Result()
	require.NoError(t, err)
	var back worker.Job
	require.NoError(t, json.Unmarshal([]byte(raw), &back))
	assert.Equal(t, "email", back.Type)
	assert.JSONEq(t, string(job.Payload), string(back.Payload))

	assert.EqualValues(t, 0, worker.DLQLengths(ctx, env.rdb)[worker.QueueEmail])
	n, err := env.rdb.LLen(ctx, worker.DLQPrefix+worker.QueueEmail+":ilegible").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

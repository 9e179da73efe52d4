package router

import (
	"fmt"

	"puntocambio/internal/config"
	"puntocambio/internal/events"
	"puntocambio/internal/handler"
	"puntocambio/internal/infra"
	"puntocambio/internal/middleware"
	"puntocambio/internal/repository"
	"puntocambio/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators owned by the composition root.
type Deps struct {
	// Bus is the local fan-out read by the SSE endpoint.
	Bus *events.Bus
	// Publisher is what services publish to. With several replicas it is a
	// RedisBus feeding every replica's Bus; nil publishes to Bus directly.
	Publisher events.Publisher
	// Cola receives finished closes; nil skips report generation.
	Cola service.ColaCierre
	// SMTP is reported by /health when set.
	SMTP *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil in tests: locks become no-ops and rate limits are per process.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Publisher == nil {
		deps.Publisher = deps.Bus
	}

	cal, err := service.NewCalendario(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("zona horaria %q: %w", cfg.TimeZone, err)
	}
	apiLimiter, err := middleware.NewLimiter(rdb, cfg.RateLimit, "api")
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	loginLimiter, err := middleware.NewLimiter(rdb, cfg.LoginRateLimit, "login")
	if err != nil {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT: %w", err)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins, cfg.IsProduction()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimit(apiLimiter, "Demasiadas solicitudes, intente más tarde"))

	// ── Infrastructure ───────────────────────────────────────────────────────
	var locker service.Locker
	if rdb != nil {
		locker = infra.NewRedisLocker(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	puntoRepo := repository.NewPuntoRepository(db)
	monedaRepo := repository.NewMonedaRepository(db)
	cambioRepo := repository.NewCambioRepository(db)
	movimientoRepo := repository.NewMovimientoSaldoRepository(db)
	transferenciaRepo := repository.NewTransferenciaRepository(db)
	cuadreRepo := repository.NewCuadreRepository(db)
	jornadaRepo := repository.NewJornadaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, puntoRepo, jornadaRepo, cfg)
	monedaSvc := service.NewMonedaService(monedaRepo)
	puntoSvc := service.NewPuntoService(puntoRepo)
	cambioSvc := service.NewCambioService(cambioRepo, monedaRepo, movimientoRepo, locker, deps.Publisher, cal)
	transferenciaSvc := service.NewTransferenciaService(transferenciaRepo, monedaRepo, puntoRepo, movimientoRepo, locker, deps.Publisher)
	cuadreSvc := service.NewCuadreService(cuadreRepo, movimientoRepo, cambioRepo, transferenciaRepo, jornadaRepo, monedaRepo, locker, deps.Cola, cal)
	jornadaSvc := service.NewJornadaService(jornadaRepo, puntoRepo)
	contabilidadSvc := service.NewContabilidadService(movimientoRepo, monedaRepo, deps.Publisher, cal)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	monedasH := handler.NewMonedasHandler(monedaSvc)
	puntosH := handler.NewPuntosHandler(puntoSvc)
	cambiosH := handler.NewCambiosHandler(cambioSvc, puntoSvc)
	transferenciasH := handler.NewTransferenciasHandler(transferenciaSvc)
	cuadreH := handler.NewCuadreHandler(cuadreSvc)
	jornadasH := handler.NewJornadasHandler(jornadaSvc)
	contabilidadH := handler.NewContabilidadHandler(contabilidadSvc)
	eventsH := handler.NewEventsHandler(deps.Bus)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, deps.SMTP))

	// Auth (public)
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", middleware.RateLimit(loginLimiter, "Demasiados intentos de inicio de sesión"), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes; every role may operate, scope is enforced per point in services
	api := r.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	admin := middleware.RequireAdmin()
	{
		api.GET("/currencies", monedasH.Listar)
		api.POST("/currencies", admin, monedasH.Crear)
		api.PUT("/currencies/:id", admin, monedasH.Actualizar)

		api.GET("/points", puntosH.Listar)
		api.POST("/points", admin, puntosH.Crear)

		api.GET("/users", admin, usuariosH.Listar)
		api.POST("/users", admin, usuariosH.Crear)
		api.PATCH("/users/:id", admin, usuariosH.Actualizar)
		api.PATCH("/users/:id/deactivate", admin, usuariosH.Desactivar)

		ex := api.Group("/exchanges")
		{
			ex.POST("", cambiosH.Crear)
			ex.GET("", cambiosH.Listar)
			ex.GET("/pending", cambiosH.Pendientes)
			ex.POST("/calculate", cambiosH.Calcular)
			ex.GET("/:id", cambiosH.Obtener)
			ex.POST("/:id/complete", cambiosH.Completar)
			ex.POST("/:id/partial-payments", cambiosH.RegistrarAbono)
			ex.POST("/:id/cancel", cambiosH.Cancelar)
			ex.GET("/:id/receipt", cambiosH.Recibo)
		}

		api.GET("/transfers", transferenciasH.Listar)
		api.POST("/transfers", transferenciasH.Crear)
		ap := api.Group("/transfer-approvals")
		{
			ap.GET("", transferenciasH.Pendientes)
			ap.GET("/count", transferenciasH.ContarPendientes)
			ap.PATCH("/:id/approve", transferenciasH.Aprobar)
			ap.PATCH("/:id/reject", transferenciasH.Rechazar)
		}

		cc := api.Group("/cuadre-caja")
		{
			cc.GET("", cuadreH.Resumen)
			cc.POST("", cuadreH.Cerrar)
			cc.GET("/historial", cuadreH.Historial)
		}

		api.GET("/contabilidad-diaria/:puntoId/:fecha", contabilidadH.Diaria)
		api.POST("/contabilidad-diaria/movimientos", contabilidadH.RegistrarMovimiento)

		sch := api.Group("/schedules")
		{
			sch.POST("", jornadasH.Iniciar)
			sch.PATCH("/finish", jornadasH.Finalizar)
			sch.GET("/active", jornadasH.Activa)
		}

		api.GET("/events", eventsH.Stream)
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}

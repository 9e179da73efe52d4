package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"puntocambio/internal/middleware"
	"puntocambio/internal/model"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "secreto-de-prueba"

func init() { gin.SetMode(gin.TestMode) }

func firmar(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestJWTAuth_ActorDesdeClaims(t *testing.T) {
	uid, pid := uuid.New(), uuid.New()
	r := gin.New()
	r.GET("/yo", middleware.JWTAuth(secret), func(c *gin.Context) {
		actor, ok := middleware.GetActor(c)
		require.True(t, ok)
		assert.Equal(t, uid, actor.UsuarioID)
		require.NotNil(t, actor.PuntoAtencionID)
		assert.Equal(t, pid, *actor.PuntoAtencionID)
		c.Status(http.StatusNoContent)
	})

	tok := firmar(t, jwt.MapClaims{
		"user_id": uid.String(), "rol": model.RolOperador, "punto_atencion_id": pid.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/yo", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/yo", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_TokenExpirado(t *testing.T) {
	r := gin.New()
	r.GET("/yo", middleware.JWTAuth(secret), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok := firmar(t, jwt.MapClaims{"user_id": uuid.NewString(), "exp": time.Now().Add(-time.Minute).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/yo", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RechazaRefreshToken(t *testing.T) {
	r := gin.New()
	r.GET("/yo", middleware.JWTAuth(secret), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok := firmar(t, jwt.MapClaims{
		"user_id": uuid.NewString(), "typ": service.TokenRefresco, "exp": time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/yo", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := gin.New()
	r.GET("/admin", middleware.JWTAuth(secret), middleware.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for rol, want := range map[string]int{
		model.RolOperador:     http.StatusForbidden,
		model.RolAdmin:        http.StatusOK,
		model.RolSuperUsuario: http.StatusOK,
	} {
		tok := firmar(t, jwt.MapClaims{"user_id": uuid.NewString(), "rol": rol, "exp": time.Now().Add(time.Hour).Unix()})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, rol)
	}
}

func TestRateLimit_MemoryStore(t *testing.T) {
	l, err := middleware.NewLimiter(nil, "2-M", "test")
	require.NoError(t, err)
	r := gin.New()
	r.GET("/", middleware.RateLimit(l, "demasiadas solicitudes"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestID_PropagaOGenera(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Header().Get(middleware.RequestIDHeader))
	assert.NoError(t, err)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestErrorHandler_RespetaRespuestaEscrita(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/mudo", func(c *gin.Context) { _ = c.Error(errors.New("db caída")) })
	r.GET("/escrito", func(c *gin.Context) {
		_ = c.Error(errors.New("detalle interno"))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "dato inválido"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mudo", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db caída")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/escrito", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "dato inválido")
}

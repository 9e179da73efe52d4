package handler

import (
	"context"
	"net/http"
	"time"

	"puntocambio/internal/infra"
	"puntocambio/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthTimeout = 3 * time.Second

// Health godoc
// @Summary Estado del servicio
// @Description Postgres y Redis deciden el código. La cola de fallidos y el estado del SMTP son informativos.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func Health(db *gorm.DB, rdb *redis.Client, smtp *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		body := gin.H{
			"db":    estado(pingDB(ctx, db)),
			"redis": estado(pingRedis(ctx, rdb)),
		}
		ok := body["db"] == "connected" && body["redis"] == "connected"
		if body["redis"] == "connected" {
			body["dlq"] = worker.DLQLengths(ctx, rdb)
		}
		if smtp != nil {
			body["smtp"] = smtp.Snapshot()
		}
		body["ok"] = ok

		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, body)
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return redis.ErrClosed
	}
	return rdb.Ping(ctx).Err()
}

// estado never exposes the driver error itself.
func estado(err error) string {
	if err != nil {
		return "error"
	}
	return "connected"
}

package handler

import (
	"io"
	"net/http"
	"time"

	"puntocambio/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const keepAlive = 25 * time.Second

type EventsHandler struct{ bus *events.Bus }

func NewEventsHandler(bus *events.Bus) *EventsHandler { return &EventsHandler{bus: bus} }

// Stream godoc
// @Summary      Eventos en tiempo real (SSE)
// @Description  saldosUpdated, exchangeCompleted y transferApproved del punto del usuario. Los administradores sin punto reciben todos.
// @Tags         eventos
// @Produce      text/event-stream
// @Security     BearerAuth
// @Router       /api/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter func(events.Event) bool
	if a.PuntoAtencionID != nil {
		filter = events.DelPunto(*a.PuntoAtencionID)
	}
	ch, cancel := h.bus.Subscribe(filter)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	log.Debug().Str("usuario_id", a.UsuarioID.String()).Msg("sse: client connected")
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(string(e.Tipo), e)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
	log.Debug().Str("usuario_id", a.UsuarioID.String()).Msg("sse: client disconnected")
}

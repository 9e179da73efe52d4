// Package events is the typed publish/subscribe channel used to tell balance
// views that something changed. Delivery is per subscriber, in publish order,
// and never blocks the publisher: a subscriber whose buffer is full loses the
// event and the drop is logged.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Tipo string

const (
	SaldosUpdated     Tipo = "saldosUpdated"
	ExchangeCompleted Tipo = "exchangeCompleted"
	TransferApproved  Tipo = "transferApproved"
)

// Event is the envelope every subscriber receives.
type Event struct {
	Tipo            Tipo      `json:"tipo"`
	PuntoAtencionID uuid.UUID `json:"punto_atencion_id"`
	ReferenciaID    uuid.UUID `json:"referencia_id"`
	Payload         any       `json:"payload,omitempty"`
	At              time.Time `json:"at"`
}

// SaldosPayload lists the currencies whose balance moved.
type SaldosPayload struct {
	MonedaIDs []uuid.UUID `json:"moneda_ids"`
}

type ExchangeCompletedPayload struct {
	CambioID     uuid.UUID `json:"cambio_id"`
	NumeroRecibo string    `json:"numero_recibo"`
}

type TransferApprovedPayload struct {
	TransferenciaID uuid.UUID  `json:"transferencia_id"`
	OrigenID        *uuid.UUID `json:"origen_id,omitempty"`
	DestinoID       uuid.UUID  `json:"destino_id"`
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(e Event)
}

const defaultBuffer = 32

// Bus is an in-process broker.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	ch     chan Event
	filter func(Event) bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers a subscriber. filter may be nil to receive everything.
// The returned cancel func closes the channel and is safe to call twice.
func (b *Bus) Subscribe(filter func(Event) bool) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, defaultBuffer)
	b.subs[id] = subscription{ch: ch, filter: filter}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every matching subscriber.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, s := range b.subs {
		if s.filter != nil && !s.filter(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			log.Warn().Int("subscriber", id).Str("tipo", string(e.Tipo)).Msg("events: subscriber buffer full, event dropped")
		}
	}
}

// DelPunto keeps only the events of one point.
func DelPunto(puntoID uuid.UUID) func(Event) bool {
	return func(e Event) bool { return e.PuntoAtencionID == puntoID }
}

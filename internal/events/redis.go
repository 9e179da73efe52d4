package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisChannel = "puntocambio:events"

// RedisBus fans events out to every API instance. Publish goes to Redis only;
// Run copies what arrives from Redis into the local Bus, so a local subscriber
// sees an event once regardless of which instance produced it.
type RedisBus struct {
	rdb   *redis.Client
	local *Bus
}

func NewRedisBus(rdb *redis.Client, local *Bus) *RedisBus {
	return &RedisBus{rdb: rdb, local: local}
}

func (r *RedisBus) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("tipo", string(e.Tipo)).Msg("events: marshal failed")
		return
	}
	if err := r.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		// Redis down: still notify this instance.
		log.Warn().Err(err).Str("tipo", string(e.Tipo)).Msg("events: redis publish failed, delivering locally")
		r.local.Publish(e)
	}
}

// Run blocks until ctx is cancelled.
func (r *RedisBus) Run(ctx context.Context) {
	sub := r.rdb.Subscribe(ctx, redisChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Error().Err(err).Msg("events: invalid message from redis")
				continue
			}
			r.local.Publish(e)
		}
	}
}

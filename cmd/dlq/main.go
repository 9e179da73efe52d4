// cmd/dlq/main.go: muestra y reencola los trabajos de la dead letter queue.
// Uso: go run ./cmd/dlq  o  go run ./cmd/dlq -replay -queue jobs:email -n 50
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"puntocambio/internal/config"
	"puntocambio/internal/infra"
	"puntocambio/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	queue := flag.String("queue", worker.QueueCierre, "cola de origen (jobs:cierre | jobs:email)")
	replay := flag.Bool("replay", false, "reencolar los trabajos en su cola original")
	n := flag.Int("n", 100, "máximo de trabajos a reencolar")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for q, size := range worker.DLQLengths(ctx, rdb) {
		fmt.Printf("%-14s %d\n", q, size)
	}
	if !*replay {
		return
	}
	if *queue != worker.QueueCierre && *queue != worker.QueueEmail {
		log.Fatal().Str("queue", *queue).Msg("cola desconocida")
	}
	moved, err := worker.ReplayDLQ(ctx, rdb, *queue, *n)
	if err != nil {
		log.Fatal().Err(err).Int("reencolados", moved).Msg("replay")
	}
	fmt.Printf("reencolados: %d\n", moved)
}

package worker

// Jobs that still fail after their own retries are parked in dlq:{queue},
// newest first, until an operator replays them with cmd/dlq.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

type DLQEntry struct {
	Queue    string    `json:"queue"`
	Job      Job       `json:"job"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// SendToDLQ parks job. Failures are only logged: the worker has nothing
// better to do with the job.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, cause error) {
	entry := DLQEntry{Queue: queue, Job: job, Reason: cause.Error(), FailedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("job_type", job.Type).Msg("dlq: push failed, job lost")
		return
	}
	log.Warn().Str("queue", queue).Str("job_type", job.Type).Str("reason", entry.Reason).Msg("dlq: job parked")
}

// DLQLengths reports the backlog per queue for /health; -1 means unknown.
func DLQLengths(ctx context.Context, rdb *redis.Client) map[string]int64 {
	out := make(map[string]int64, 2)
	for _, q := range []string{QueueCierre, QueueEmail} {
		n, err := rdb.LLen(ctx, DLQPrefix+q).Result()
		if err != nil {
			n = -1
		}
		out[q] = n
	}
	return out
}

// ReplayDLQ moves up to limit parked jobs of queue back onto it, oldest first.
// Entries that cannot be decoded stay in dlq:{queue}:ilegible.
func ReplayDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int) (int, error) {
	key := DLQPrefix + queue
	moved := 0
	for moved < limit {
		raw, err := rdb.RPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Job.Type == "" {
			log.Error().Str("queue", queue).Msg("dlq: unreadable entry set aside")
			if err := rdb.LPush(ctx, key+":ilegible", raw).Err(); err != nil {
				return moved, err
			}
			continue
		}
		job, err := json.Marshal(entry.Job)
		if err != nil {
			return moved, err
		}
		if err := rdb.LPush(ctx, queue, job).Err(); err != nil {
			// put it back where it was
			_ = rdb.RPush(ctx, key, raw).Err()
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("jobs", moved).Msg("dlq: jobs replayed")
	}
	return moved, nil
}

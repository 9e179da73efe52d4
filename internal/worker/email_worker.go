package worker

// email_worker.go
// Processes email jobs from QueueEmail: close reports with their PDF and
// XLSX attachments.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"puntocambio/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// Sender is satisfied by *infra.Mailer.
type Sender interface {
	Send(to []string, subject, body string, attachments ...string) error
}

type EmailWorker struct {
	sender  Sender
	backoff time.Duration
}

func NewEmailWorker(sender Sender) *EmailWorker {
	return &EmailWorker{sender: sender, backoff: 2 * time.Second}
}

// Process sends the email, retrying twice. An open circuit is not retried:
// the relay is known to be down and the job goes straight to the DLQ.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return err
	}
	if len(payload.To) == 0 {
		log.Warn().Msg("email_worker: no recipients, skipping")
		return nil
	}

	err := withRetry(ctx, 3, w.backoff, func(attempt int) error {
		err := w.sender.Send(payload.To, payload.Subject, payload.Body, payload.Attachments...)
		if errors.Is(err, infra.ErrCircuitOpen) {
			return &permanent{err: err}
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("email_worker: send failed")
		}
		return err
	})
	if err != nil {
		log.Error().Err(err).Strs("to", payload.To).Msg("email_worker: failed to send email")
		return err
	}
	log.Info().Strs("to", payload.To).Str("subject", payload.Subject).Msg("email_worker: email sent")
	return nil
}

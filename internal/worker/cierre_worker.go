package worker

// cierre_worker.go
// Processes QueueCierre: renders the PDF and XLSX reports of a finished
// daily close and, when a notification address is configured, queues the
// email that carries them.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"puntocambio/internal/infra"
	"puntocambio/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CierreJobPayload struct {
	CuadreID string `json:"cuadre_id"`
}

type cuadreFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.CuadreCaja, error)
}

type puntoFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.PuntoAtencion, error)
}

type emailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type CierreWorker struct {
	cuadres     cuadreFinder
	puntos      puntoFinder
	emails      emailEnqueuer
	storagePath string
	notify      []string
	backoff     time.Duration
}

// NewCierreWorker wires the report job. emails may be nil when notify is empty.
func NewCierreWorker(cuadres cuadreFinder, puntos puntoFinder, emails emailEnqueuer, storagePath string, notify []string) *CierreWorker {
	return &CierreWorker{
		cuadres:     cuadres,
		puntos:      puntos,
		emails:      emails,
		storagePath: storagePath,
		notify:      notify,
		backoff:     time.Second,
	}
}

func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("cierre_worker: invalid payload")
		return err
	}
	id, err := uuid.Parse(payload.CuadreID)
	if err != nil {
		return fmt.Errorf("cierre_worker: cuadre_id invalido: %w", err)
	}

	// The job is enqueued right after commit; a short retry covers replicas
	// that do not see the row yet and transient DB errors.
	var cuadre *model.CuadreCaja
	err = withRetry(ctx, 3, w.backoff, func(attempt int) error {
		c, err := w.cuadres.FindByID(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("cuadre_id", payload.CuadreID).Msg("cierre_worker: load failed")
			return err
		}
		cuadre = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("cierre_worker: cargar cuadre %s: %w", payload.CuadreID, err)
	}

	puntoNombre := cuadre.PuntoAtencionID.String()
	if p, err := w.puntos.FindByID(ctx, cuadre.PuntoAtencionID); err == nil {
		puntoNombre = p.Nombre
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cierre_worker: cargar punto: %w", err)
	}

	pdfPath, err := infra.GenerateCierrePDF(cuadre, puntoNombre, w.storagePath)
	if err != nil {
		return err
	}
	xlsxPath, err := infra.GenerateCierreXLSX(cuadre, puntoNombre, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().
		Str("cuadre_id", payload.CuadreID).
		Str("pdf", pdfPath).
		Str("xlsx", xlsxPath).
		Msg("cierre_worker: reports generated")

	if len(w.notify) == 0 || w.emails == nil {
		return nil
	}
	fecha := cuadre.Fecha.Format("2006-01-02")
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		To:          w.notify,
		Subject:     fmt.Sprintf("Cuadre de caja %s - %s", puntoNombre, fecha),
		Body:        fmt.Sprintf("Se adjunta el cuadre de caja del punto %s correspondiente al %s.", puntoNombre, fecha),
		Attachments: []string{pdfPath, xlsxPath},
	})
}

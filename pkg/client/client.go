// Package client is the Go SDK for the Punto Cambio API used by operator
// front ends. It owns the session, validates every response before handing it
// to callers and republishes successful actions on a local events.Bus.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/cuadre"
	"puntocambio/internal/events"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 15 * time.Second
	maxBody        = 8 << 20
)

var (
	// ErrRespuestaInvalida means the server answered something the SDK cannot trust.
	ErrRespuestaInvalida = errors.New("respuesta inválida del servidor")
	ErrNoAutorizado      = errors.New("sesión expirada o inválida")
	ErrSinSesion         = errors.New("no hay una sesión iniciada")
)

// Error is a failed API call. It unwraps to the matching apierror kind so
// callers can use errors.Is(err, apierror.ErrConflict).
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error HTTP %d", e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrNoAutorizado
	case http.StatusForbidden:
		return apierror.ErrForbidden
	case http.StatusNotFound:
		return apierror.ErrNotFound
	case http.StatusConflict:
		return apierror.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apierror.ErrValidation
	}
	return nil
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

// Client talks to one API base URL on behalf of one session.
type Client struct {
	baseURL  string
	http     *http.Client
	session  *Session
	bus      *events.Bus
	inflight *InFlight
	validate *validator.Validate
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBus shares an existing bus, e.g. with the SSE reader of the same front end.
func WithBus(b *events.Bus) Option {
	return func(c *Client) { c.bus = b }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		session:  NewSession(),
		inflight: NewInFlight(),
		validate: newValidator(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.bus == nil {
		c.bus = events.NewBus()
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Bus() *events.Bus {
	return c.bus
}

func (c *Client) InFlight() *InFlight {
	return c.inflight
}

// ── Transport ────────────────────────────────────────────────────────────────

// do sends body as JSON and decodes the data of a successful envelope into
// out, which is validated before returning. out may be nil. Calls without a
// deadline get defaultTimeout.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("codificar solicitud: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decErr := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&env)

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusUnauthorized {
			c.session.Logout()
		}
		if decErr != nil {
			return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return errorDe(resp.StatusCode, env)
	}
	if decErr != nil {
		return fmt.Errorf("%w: %v", ErrRespuestaInvalida, decErr)
	}
	if !env.Success {
		return fmt.Errorf("%w: success=false con estado %d", ErrRespuestaInvalida, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrRespuestaInvalida, err)
	}
	return c.check(out)
}

// errorDe turns an error envelope into a typed error. A close rejected for
// tolerance comes back as *cuadre.ToleranciaError with the server's deltas.
func errorDe(status int, env envelope) error {
	if status == http.StatusUnprocessableEntity && len(env.Data) > 0 {
		var d struct {
			FueraDeTolerancia []cuadre.Diferencia `json:"fuera_de_tolerancia"`
		}
		if json.Unmarshal(env.Data, &d) == nil && len(d.FueraDeTolerancia) > 0 {
			return &cuadre.ToleranciaError{Diferencias: d.FueraDeTolerancia}
		}
	}
	return &Error{Status: status, Message: env.Error, Fields: env.Fields}
}

func (c *Client) publish(e events.Event) {
	if e.PuntoAtencionID == uuid.Nil {
		if p, ok := c.session.PuntoSeleccionado(); ok {
			e.PuntoAtencionID = p
		}
	}
	c.bus.Publish(e)
}

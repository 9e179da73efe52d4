package client

import (
	"sync"

	"puntocambio/internal/dto"
	"puntocambio/internal/model"

	"github.com/google/uuid"
)

// Vista is the screen the operator front end should show.
type Vista string

const (
	VistaLogin          Vista = "login"
	VistaSeleccionPunto Vista = "seleccion-punto"
	VistaOperacion      Vista = "operacion"
	VistaAdministracion Vista = "administracion"
)

// Session holds everything a logged-in front end needs between requests.
// The zero value is a logged-out session. Safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	token        string
	refreshToken string
	usuario      *dto.UsuarioResponse
	jornada      *dto.JornadaResponse
	punto        *uuid.UUID
	vista        Vista
	forzarPunto  bool
}

func NewSession() *Session {
	return &Session{vista: VistaLogin}
}

// iniciar loads a login or refresh response. An open shift fixes the point;
// operators without one must pick a point before operating.
func (s *Session) iniciar(resp *dto.LoginResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := resp.User
	s.token = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.usuario = &u
	s.jornada = resp.JornadaActiva
	s.punto = nil
	s.forzarPunto = false

	switch {
	case resp.JornadaActiva != nil:
		s.punto = parseOpt(resp.JornadaActiva.PuntoAtencionID)
		s.vista = VistaOperacion
	case u.Rol == model.RolAdmin || u.Rol == model.RolSuperUsuario:
		if u.PuntoAtencionID != nil {
			s.punto = parseOpt(*u.PuntoAtencionID)
		}
		s.vista = VistaAdministracion
	default:
		s.forzarPunto = true
		s.vista = VistaSeleccionPunto
	}
}

// renovar swaps the tokens and keeps the rest of the session.
func (s *Session) renovar(resp *dto.LoginResponse) {
	s.mu.Lock()
	s.token = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.mu.Unlock()
}

// Logout clears every field.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = Session{vista: VistaLogin}
}

func (s *Session) Autenticada() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Usuario returns a copy of the logged-in user.
func (s *Session) Usuario() (dto.UsuarioResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usuario == nil {
		return dto.UsuarioResponse{}, false
	}
	return *s.usuario, true
}

// Jornada returns the open shift, if any.
func (s *Session) Jornada() (dto.JornadaResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.jornada == nil {
		return dto.JornadaResponse{}, false
	}
	return *s.jornada, true
}

func (s *Session) PuntoSeleccionado() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.punto == nil {
		return uuid.Nil, false
	}
	return *s.punto, true
}

// SeleccionarPunto sets the working point and releases the point selector.
func (s *Session) SeleccionarPunto(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.punto = &id
	s.forzarPunto = false
	if s.vista == VistaSeleccionPunto {
		s.vista = VistaOperacion
	}
}

func (s *Session) ForzarSeleccionPunto() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forzarPunto
}

func (s *Session) Vista() Vista {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vista
}

func (s *Session) SetVista(v Vista) {
	s.mu.Lock()
	s.vista = v
	s.mu.Unlock()
}

func (s *Session) setJornada(j *dto.JornadaResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jornada = j
	if j != nil {
		s.punto = parseOpt(j.PuntoAtencionID)
		s.forzarPunto = false
		s.vista = VistaOperacion
	}
}

func parseOpt(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

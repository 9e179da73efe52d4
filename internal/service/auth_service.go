package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"puntocambio/internal/apierror"
	"puntocambio/internal/config"
	"puntocambio/internal/dto"
	"puntocambio/internal/model"
	"puntocambio/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrCredenciales is returned for any login failure so callers cannot probe usernames.
	ErrCredenciales = errors.New("credenciales inválidas")
	// ErrSesionInvalida covers every refresh failure: bad signature, expiry, wrong
	// token kind or a user deactivated since the token was issued.
	ErrSesionInvalida = errors.New("sesión inválida o expirada, ingrese nuevamente")
)

// Token kinds carried in the "typ" claim. The auth middleware refuses refresh tokens.
const (
	TokenAcceso   = "access"
	TokenRefresco = "refresh"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	CrearUsuario(ctx context.Context, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error)
	ActualizarUsuario(ctx context.Context, id uuid.UUID, req dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error)
	DesactivarUsuario(ctx context.Context, a Actor, id uuid.UUID) error
	ListarUsuarios(ctx context.Context, f dto.UsuarioFilter) ([]dto.UsuarioResponse, error)
}

type authService struct {
	usuarios   repository.UsuarioRepository
	puntos     repository.PuntoRepository
	jornadas   repository.JornadaRepository
	cfg        *config.Config
	bcryptCost int
}

func NewAuthService(
	usuarios repository.UsuarioRepository,
	puntos repository.PuntoRepository,
	jornadas repository.JornadaRepository,
	cfg *config.Config,
) AuthService {
	return &authService{usuarios: usuarios, puntos: puntos, jornadas: jornadas, cfg: cfg, bcryptCost: 12}
}

// ── Sesión ────────────────────────────────────────────────────────────────────

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	u, err := s.usuarios.FindByUsername(ctx, strings.TrimSpace(req.Username))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrCredenciales
	case err != nil:
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		log.Warn().Str("username", req.Username).Msg("intento de login fallido")
		return nil, ErrCredenciales
	}
	return s.sesion(ctx, u)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, ErrSesionInvalida
	}
	if typ, _ := claims["typ"].(string); typ != TokenRefresco {
		return nil, ErrSesionInvalida
	}
	sub, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrSesionInvalida
	}

	u, err := s.usuarios.FindByID(ctx, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !u.Activo) {
		return nil, ErrSesionInvalida
	}
	if err != nil {
		return nil, err
	}
	return s.sesion(ctx, u)
}

// sesion signs a fresh token pair and attaches the open shift, if any.
func (s *authService) sesion(ctx context.Context, u *model.Usuario) (*dto.LoginResponse, error) {
	acceso, err := s.firmar(u, TokenAcceso, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresco, err := s.firmar(u, TokenRefresco, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	resp := &dto.LoginResponse{
		AccessToken:  acceso,
		RefreshToken: refresco,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         usuarioToResponse(u),
	}
	if s.jornadas == nil {
		return resp, nil
	}
	activas, err := s.jornadas.ListActivas(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if n := len(activas); n > 0 {
		j := jornadaToResponse(&activas[n-1])
		resp.JornadaActiva = &j
	}
	return resp, nil
}

func (s *authService) firmar(u *model.Usuario, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":           u.ID.String(),
		"username":          u.Username,
		"rol":               u.Rol,
		"punto_atencion_id": uuidPtrString(u.PuntoAtencionID),
		"typ":               typ,
		"iat":               now.Unix(),
		"exp":               now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

func (s *authService) CrearUsuario(ctx context.Context, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error) {
	puntoID, err := s.resolverPunto(ctx, req.PuntoAtencionID)
	if err != nil {
		return nil, err
	}
	if err := exigirPunto(req.Rol, puntoID); err != nil {
		return nil, err
	}
	if _, err := s.usuarios.FindByUsername(ctx, req.Username); err == nil {
		return nil, apierror.Conflict("el usuario ya existe")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &model.Usuario{
		ID:              uuid.New(),
		Username:        req.Username,
		Nombre:          req.Nombre,
		Correo:          req.Correo,
		PasswordHash:    string(hash),
		Rol:             req.Rol,
		PuntoAtencionID: puntoID,
		Activo:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.usuarios.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict("el usuario ya existe")
		}
		return nil, err
	}
	log.Info().Str("username", u.Username).Str("rol", u.Rol).Msg("usuario creado")
	resp := usuarioToResponse(u)
	return &resp, nil
}

// ActualizarUsuario applies only the fields present in req. A new password
// invalidates nothing by itself: issued tokens live until they expire.
func (s *authService) ActualizarUsuario(ctx context.Context, id uuid.UUID, req dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error) {
	u, err := s.usuarios.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "usuario no encontrado")
	}
	if req.Nombre != nil {
		u.Nombre = *req.Nombre
	}
	if req.Correo != nil {
		u.Correo = req.Correo
	}
	if req.Rol != nil {
		u.Rol = *req.Rol
	}
	if req.PuntoAtencionID != nil {
		if u.PuntoAtencionID, err = s.resolverPunto(ctx, req.PuntoAtencionID); err != nil {
			return nil, err
		}
	}
	if err := exigirPunto(u.Rol, u.PuntoAtencionID); err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}
	u.UpdatedAt = time.Now()
	if err := s.usuarios.Update(ctx, u); err != nil {
		return nil, err
	}
	resp := usuarioToResponse(u)
	return &resp, nil
}

// DesactivarUsuario blocks login and refresh for the user. An operator with an
// open shift must close it first so the day's cuadre keeps an owner.
func (s *authService) DesactivarUsuario(ctx context.Context, a Actor, id uuid.UUID) error {
	if a.UsuarioID == id {
		return apierror.Validation("no puede desactivar su propio usuario")
	}
	u, err := s.usuarios.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "usuario no encontrado")
	}
	if !u.Activo {
		return nil
	}
	if s.jornadas != nil {
		activas, err := s.jornadas.ListActivas(ctx, id)
		if err != nil {
			return err
		}
		if len(activas) > 0 {
			return apierror.Conflict("el usuario tiene una jornada activa")
		}
	}
	u.Activo = false
	u.UpdatedAt = time.Now()
	if err := s.usuarios.Update(ctx, u); err != nil {
		return err
	}
	log.Info().Str("username", u.Username).Str("por", a.UsuarioID.String()).Msg("usuario desactivado")
	return nil
}

func (s *authService) ListarUsuarios(ctx context.Context, f dto.UsuarioFilter) ([]dto.UsuarioResponse, error) {
	filtro := repository.UsuarioFiltro{IncluirInactivos: f.IncluirInactivos}
	if f.PuntoAtencionID != "" {
		id, err := uuid.Parse(f.PuntoAtencionID)
		if err != nil {
			return nil, apierror.Validation("punto_atencion_id inválido")
		}
		filtro.PuntoAtencionID = &id
	}
	users, err := s.usuarios.List(ctx, filtro)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UsuarioResponse, len(users))
	for i := range users {
		resp[i] = usuarioToResponse(&users[i])
	}
	return resp, nil
}

// resolverPunto parses an optional point id and checks it exists. Empty means none.
func (s *authService) resolverPunto(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apierror.Validation("punto_atencion_id inválido")
	}
	if _, err := s.puntos.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "punto de atención no encontrado")
	}
	return &id, nil
}

// Operators without a point could never open a shift.
func exigirPunto(rol string, punto *uuid.UUID) error {
	if punto == nil && (rol == model.RolOperador || rol == model.RolConcesion) {
		return apierror.Validation("un operador debe tener un punto de atención asignado")
	}
	return nil
}

func usuarioToResponse(u *model.Usuario) dto.UsuarioResponse {
	return dto.UsuarioResponse{
		ID:              u.ID.String(),
		Username:        u.Username,
		Nombre:          u.Nombre,
		Correo:          u.Correo,
		Rol:             u.Rol,
		PuntoAtencionID: uuidPtrString(u.PuntoAtencionID),
		Activo:          u.Activo,
	}
}

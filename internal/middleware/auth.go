package middleware

import (
	"net/http"
	"strings"

	"puntocambio/internal/apierror"
	"puntocambio/internal/model"
	"puntocambio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	Rol             string  `json:"rol"`
	PuntoAtencionID *string `json:"punto_atencion_id"`
	Tipo            string  `json:"typ"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
// EventSource cannot set headers, so the SSE stream may pass ?token= instead.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenStr = strings.TrimPrefix(header, "Bearer ")
		} else if q := c.Query("token"); q != "" && c.GetHeader("Accept") == "text/event-stream" {
			tokenStr = q
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticación requerida"))
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid || claims.Tipo == service.TokenRefresco {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token inválido o expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRole for the two administrative roles.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(model.RolAdmin, model.RolSuperUsuario)
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// GetActor turns the token claims into the service-level actor.
// The second result is false when the claims are missing or malformed.
func GetActor(c *gin.Context) (service.Actor, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return service.Actor{}, false
	}
	claims, ok := v.(*JWTClaims)
	if !ok {
		return service.Actor{}, false
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return service.Actor{}, false
	}
	actor := service.Actor{UsuarioID: uid, Rol: claims.Rol}
	if claims.PuntoAtencionID != nil && *claims.PuntoAtencionID != "" {
		pid, err := uuid.Parse(*claims.PuntoAtencionID)
		if err != nil {
			return service.Actor{}, false
		}
		actor.PuntoAtencionID = &pid
	}
	return actor, true
}

package middleware

import (
	"net/http"
	"strings"

	"custodia/internal/model"
	"custodia/internal/service"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "actor"

// Authenticate validates the JWT (cookie first, Authorization header as
// fallback) and places the resulting service.Actor in the gin context.
//
// Expected claims: sub (user id), role, stations ([]string), zone (string).
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRole restricts a route to the given roles. Must run after
// Authenticate.
func RequireRole(allowed ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Not authenticated"))
			return
		}
		for _, role := range allowed {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// ActorFrom extracts the authenticated actor placed by Authenticate.
func ActorFrom(c *gin.Context) (service.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return service.Actor{}, false
	}
	actor, ok := value.(service.Actor)
	return actor, ok
}

func actorFromClaims(claims jwt.MapClaims) (service.Actor, error) {
	var actor service.Actor

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return actor, jwt.ErrTokenInvalidSubject
	}
	actor.ID = id

	rawRole, _ := claims["role"].(string)
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return actor, err
	}
	actor.Role = role

	if rawStations, ok := claims["stations"].([]interface{}); ok {
		for _, raw := range rawStations {
			s, ok := raw.(string)
			if !ok {
				continue
			}
			if stationID, parseErr := uuid.Parse(s); parseErr == nil {
				actor.StationIDs = append(actor.StationIDs, stationID)
			}
		}
	}
	if rawZone, ok := claims["zone"].(string); ok && rawZone != "" {
		if zoneID, parseErr := uuid.Parse(rawZone); parseErr == nil {
			actor.ZoneID = &zoneID
		}
	}
	return actor, nil
}

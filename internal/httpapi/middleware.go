package httpapi

import (
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/loppet/internal/identity"
	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
)

const actorContextKey = "auth_actor"

// requireAuth verifies the bearer session token and attaches the actor id,
// aborting 401 on any failure.
func (server *Server) requireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := server.sessionClaims(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(codeUnauthorized, "missing or invalid session"))
			return
		}
		ctx.Set(actorContextKey, claims.AccountID)
		ctx.Next()
	}
}

// optionalAuth attaches the actor id when a valid token is present and
// proceeds anonymously otherwise.
func (server *Server) optionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if claims, ok := server.sessionClaims(ctx); ok {
			ctx.Set(actorContextKey, claims.AccountID)
		}
		ctx.Next()
	}
}

// requireAdmin gates a route on the configured admin allow-list. Layered
// after requireAuth so a failure here is 403, never 401.
func (server *Server) requireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actorID, ok := server.actorID(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(codeUnauthorized, "missing or invalid session"))
			return
		}
		account, err := server.accounts.Get(ctx.Request.Context(), actorID)
		if err != nil {
			server.respondError(ctx, err)
			ctx.Abort()
			return
		}
		if _, admin := server.admins[strings.ToLower(account.Email)]; !admin {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorBody(codeForbidden, "administrator access required"))
			return
		}
		ctx.Next()
	}
}

func (server *Server) sessionClaims(ctx *gin.Context) (identity.SessionClaims, bool) {
	header := ctx.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return identity.SessionClaims{}, false
	}
	verified, err := server.sessions.Verify(strings.TrimSpace(token))
	if err != nil {
		return identity.SessionClaims{}, false
	}
	return verified, true
}

// actorID returns the authenticated account id attached by the middleware.
func (server *Server) actorID(ctx *gin.Context) (loppet.AccountID, bool) {
	value, ok := ctx.Get(actorContextKey)
	if !ok {
		return loppet.AccountID{}, false
	}
	actorID, ok := value.(loppet.AccountID)
	return actorID, ok
}

// actor returns the optional actor for read paths serving both anonymous and
// signed-in callers.
func (server *Server) actor(ctx *gin.Context) loppet.Actor {
	if actorID, ok := server.actorID(ctx); ok {
		return loppet.ActorFor(actorID)
	}
	return loppet.NoActor()
}

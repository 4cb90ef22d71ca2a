package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nbrandt/newsboard/utils"
)

const (
	// SessionCookie carries the signed session token in browser flows.
	SessionCookie = "session"
	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// TokenFromRequest finds the session token in the cookie or, failing that,
// in a Bearer authorization header.
func TokenFromRequest(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SessionContext resolves the session token when one is present and exposes
// the identity to handlers, without demanding one. Public pages use it to
// show viewer-specific bits; AuthRequired still guards the mutating routes.
func SessionContext() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx)
		if token == "" || utils.IsTokenBlacklisted(token) {
			ctx.Next()
			return
		}
		if claims, err := utils.ParseToken(token); err == nil {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextUsernameKey, claims.Username)
		}
		ctx.Next()
	}
}

// AuthRequired ensures the request carries a valid, unrevoked session token.
// Anything else is bounced to the login page; mutating requests never leak
// record contents to anonymous callers.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx)
		if token == "" || utils.IsTokenBlacklisted(token) {
			redirectToLogin(ctx)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			redirectToLogin(ctx)
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

func redirectToLogin(ctx *gin.Context) {
	next := url.QueryEscape(ctx.Request.URL.Path)
	ctx.Redirect(http.StatusFound, "/login/?next="+next)
	ctx.Abort()
}

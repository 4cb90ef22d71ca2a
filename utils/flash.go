package utils

import (
	"net/url"

	"github.com/gin-gonic/gin"
)

const flashCookie = "flash"

// SetFlash stores a one-shot notice for the next rendered page. Used for the
// "you cannot do that" style redirects, so the message survives the hop.
func SetFlash(ctx *gin.Context, message string) {
	ctx.SetCookie(flashCookie, url.QueryEscape(message), 60, "/", "", false, true)
}

// TakeFlash returns the pending notice, if any, and clears it.
func TakeFlash(ctx *gin.Context) string {
	raw, err := ctx.Cookie(flashCookie)
	if err != nil || raw == "" {
		return ""
	}
	ctx.SetCookie(flashCookie, "", -1, "/", "", false, true)
	msg, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	return msg
}

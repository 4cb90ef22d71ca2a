package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nbrandt/newsboard/forms"
	"github.com/nbrandt/newsboard/middleware"
	"github.com/nbrandt/newsboard/models"
	"github.com/nbrandt/newsboard/utils"
)

// currentUser resolves the acting user from the verified session claims. The
// account may have been deleted while a token was still live, so a lookup
// miss is treated as unauthenticated.
func currentUser(ctx *gin.Context, db *gorm.DB) (models.User, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return models.User{}, false
	}
	userID, ok := value.(uint)
	if !ok {
		return models.User{}, false
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return models.User{}, false
	}
	return user, true
}

// render wraps ctx.HTML, attaching the signed-in username and any pending
// flash notice so every page can show them.
func render(ctx *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if name, ok := ctx.Get(middleware.ContextUsernameKey); ok {
		data["CurrentUser"] = name
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.Errors{}
	}
	if flash := utils.TakeFlash(ctx); flash != "" {
		data["Flash"] = flash
	}
	ctx.HTML(status, tmpl, data)
}

func renderNotFound(ctx *gin.Context) {
	render(ctx, http.StatusNotFound, "not_found.html", nil)
}

// parseID reads a numeric path parameter. Zero means invalid.
func parseID(ctx *gin.Context, name string) uint {
	raw := strings.TrimSpace(ctx.Param(name))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0
	}
	return uint(id)
}

func uitoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// parseCategoryID reads the optional category selection from a form value.
// Empty means "no category"; a malformed value is reported as a field error
// by the caller via the ok result.
func parseCategoryID(raw string) (*uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, false
	}
	u := uint(id)
	return &u, true
}

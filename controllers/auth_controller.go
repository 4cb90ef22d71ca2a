package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nbrandt/newsboard/config"
	"github.com/nbrandt/newsboard/forms"
	"github.com/nbrandt/newsboard/middleware"
	"github.com/nbrandt/newsboard/models"
	"github.com/nbrandt/newsboard/utils"
)

// AuthController handles registration, login/logout, the account lifecycle
// and the emailed password reset flow.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// SignupForm renders the empty registration form.
func (a *AuthController) SignupForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "signup.html", nil)
}

// Signup validates the submitted credentials and creates the account.
// Duplicate usernames surface as a field error, whether caught by the
// pre-insert lookup or by the unique index.
func (a *AuthController) Signup(ctx *gin.Context) {
	form := forms.SignupForm{
		Username: ctx.PostForm("username"),
		Email:    ctx.PostForm("email"),
		Password: ctx.PostForm("password"),
		Confirm:  ctx.PostForm("confirm"),
	}

	errs := form.Validate()
	if _, taken := errs["username"]; !taken && form.Username != "" {
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", form.Username).Count(&count).Error; err == nil && count > 0 {
			errs["username"] = "username already taken"
		}
	}
	if len(errs) > 0 {
		render(ctx, http.StatusOK, "signup.html", gin.H{"Form": form, "Errors": errs})
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		utils.Sugar.Errorf("hash password: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// A concurrent signup can still trip the unique index. The database
		// is opened with TranslateError, so the driver's duplicate-key error
		// arrives as gorm.ErrDuplicatedKey.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			errs["username"] = "username already taken"
			render(ctx, http.StatusOK, "signup.html", gin.H{"Form": form, "Errors": errs})
			return
		}
		utils.Sugar.Errorf("create user: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	// Best effort; registration never fails on mail problems.
	go func(to, name string) {
		if err := utils.SendMail(to, "Welcome to newsboard", fmt.Sprintf("Hi %s, your account is ready.", name)); err != nil {
			utils.Sugar.Debugf("welcome mail to %s: %v", to, err)
		}
	}(user.Email, user.Username)

	ctx.Redirect(http.StatusFound, "/login/")
}

// LoginForm renders the login page, preserving the post-login destination.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "login.html", gin.H{"Next": safeNext(ctx.Query("next"))})
}

// Login verifies credentials and issues the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.PostForm("username"))
	password := ctx.PostForm("password")
	next := safeNext(ctx.PostForm("next"))

	var user models.User
	err := a.db.Where("username = ?", username).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, password) {
		render(ctx, http.StatusOK, "login.html", gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "invalid username or password",
		})
		return
	}

	cfg := config.Get()
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	token, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		utils.Sugar.Errorf("generate token: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	setSessionCookie(ctx, token, int(ttl.Seconds()))
	if next == "" {
		next = "/"
	}
	ctx.Redirect(http.StatusFound, next)
}

// Logout revokes the current token and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := middleware.TokenFromRequest(ctx)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(token, claims.ExpiresAt.Time)
	}
	setSessionCookie(ctx, "", -1)
	ctx.Redirect(http.StatusFound, "/")
}

// Settings renders the account settings page.
func (a *AuthController) Settings(ctx *gin.Context) {
	user, ok := currentUser(ctx, a.db)
	if !ok {
		ctx.Redirect(http.StatusFound, "/login/")
		return
	}
	render(ctx, http.StatusOK, "account_settings.html", gin.H{"User": user})
}

// DeleteAccountConfirm shows the confirmation page for self-deletion.
func (a *AuthController) DeleteAccountConfirm(ctx *gin.Context) {
	user, ok := currentUser(ctx, a.db)
	if !ok {
		ctx.Redirect(http.StatusFound, "/login/")
		return
	}
	render(ctx, http.StatusOK, "account_confirm_delete.html", gin.H{"User": user})
}

// DeleteAccount removes the acting user's own account, with all posts and
// comments, then ends the session. No other account is reachable here.
func (a *AuthController) DeleteAccount(ctx *gin.Context) {
	user, ok := currentUser(ctx, a.db)
	if !ok {
		ctx.Redirect(http.StatusFound, "/login/")
		return
	}
	if err := models.DeleteUser(a.db, user.ID); err != nil {
		utils.Sugar.Errorf("delete user %d: %v", user.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	token := middleware.TokenFromRequest(ctx)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(token, claims.ExpiresAt.Time)
	}
	setSessionCookie(ctx, "", -1)
	ctx.Redirect(http.StatusFound, "/")
}

// PasswordResetForm renders the request-a-code page.
func (a *AuthController) PasswordResetForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "password_reset.html", nil)
}

// PasswordReset mails a one-time code to the account's address. The response
// is the same whether or not the address exists.
func (a *AuthController) PasswordReset(ctx *gin.Context) {
	email := strings.TrimSpace(ctx.PostForm("email"))
	if email == "" {
		render(ctx, http.StatusOK, "password_reset.html", gin.H{"Error": "enter your email address"})
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err == nil {
		if utils.ResetCooldownTrySet(email, time.Minute) {
			code := utils.GenerateResetCode(6)
			body := fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.", code)
			if err := utils.SendMail(email, "newsboard password reset", body); err != nil {
				utils.Sugar.Warnf("reset mail to %s: %v", email, err)
			} else {
				utils.SaveResetCode(email, code, 10*time.Minute)
			}
		}
	}

	ctx.Redirect(http.StatusFound, "/password/reset/confirm/?email="+url.QueryEscape(email))
}

// PasswordResetConfirmForm renders the code + new password page.
func (a *AuthController) PasswordResetConfirmForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "password_reset_confirm.html", gin.H{"Email": strings.TrimSpace(ctx.Query("email"))})
}

// PasswordResetConfirm consumes the emailed code and sets the new password.
func (a *AuthController) PasswordResetConfirm(ctx *gin.Context) {
	email := strings.TrimSpace(ctx.PostForm("email"))
	code := strings.TrimSpace(ctx.PostForm("code"))
	password := ctx.PostForm("password")
	confirm := ctx.PostForm("confirm")

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		render(ctx, http.StatusOK, "password_reset_confirm.html", gin.H{
			"Email": email,
			"Error": "invalid or expired code",
		})
		return
	}

	if errs := forms.ValidateNewPassword(password, confirm, user.Username); len(errs) > 0 {
		render(ctx, http.StatusOK, "password_reset_confirm.html", gin.H{
			"Email":  email,
			"Errors": errs,
		})
		return
	}

	// Consume the code only after the new password is acceptable, so a
	// rejected password does not burn the code.
	if !utils.VerifyAndConsumeResetCode(email, code) {
		render(ctx, http.StatusOK, "password_reset_confirm.html", gin.H{
			"Email": email,
			"Error": "invalid or expired code",
		})
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		utils.Sugar.Errorf("hash password: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}
	if err := a.db.Model(&user).Update("password_hash", hash).Error; err != nil {
		utils.Sugar.Errorf("update password for user %d: %v", user.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	ctx.Redirect(http.StatusFound, "/login/")
}

func setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	cfg := config.Get()
	ctx.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", cfg.CookieSecure, true)
}

// safeNext keeps post-login redirects on this site.
func safeNext(raw string) string {
	next, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

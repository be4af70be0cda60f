package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yasut0ra/mini-task/internal/middleware"
	"github.com/yasut0ra/mini-task/internal/models"
	"github.com/yasut0ra/mini-task/internal/service"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	}
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed"})
		return
	}

	pair, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusCreated, pair)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed"})
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh reads the refresh token from the cookie, falling back to the JSON
// body for clients that do not use cookies.
func (h HandlerSet) Refresh(c *gin.Context) {
	refreshValue := h.refreshTokenFrom(c)
	if refreshValue == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_refresh_token"})
		return
	}

	accessToken, user, err := h.authService.Refresh(c.Request.Context(), refreshValue)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.setAccessCookie(c, accessToken)
	c.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        toUserResponse(user),
	})
}

// Logout is best-effort: logging out of an already-dead session still returns
// 200, and the cookies are cleared either way.
func (h HandlerSet) Logout(c *gin.Context) {
	refreshValue := h.refreshTokenFrom(c)
	if refreshValue != "" {
		if err := h.authService.Logout(c.Request.Context(), refreshValue); err != nil {
			h.log.Warn().Err(err).Msg("logout revoke failed")
		}
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessions, err := h.authService.ListSessions(c.Request.Context(), user.ID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, sessionResponse{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword answers identically whether or not the email is registered.
func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed"})
		return
	}

	if err := h.resetService.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset email has been sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed"})
		return
	}

	if err := h.resetService.ResetPassword(c.Request.Context(), c.Param("ticket"), req.Password); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password has been reset"})
}

// sendAuthResponse places the pair in both the JSON body and HTTP-only
// cookies; issuance itself never touches transport mechanics.
func (h HandlerSet) sendAuthResponse(c *gin.Context, status int, pair service.SessionPair) {
	h.setAccessCookie(c, pair.AccessToken)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		middleware.RefreshCookieName,
		pair.RefreshToken,
		int(h.cfg.Security.RefreshTTL.Seconds()),
		"/",
		h.cfg.Security.CookieDomain,
		h.cfg.Security.SecureCookies,
		true,
	)

	c.JSON(status, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toUserResponse(pair.User),
	})
}

func (h HandlerSet) setAccessCookie(c *gin.Context, accessToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		middleware.AccessCookieName,
		accessToken,
		int(h.cfg.Security.AccessTTL.Seconds()),
		"/",
		h.cfg.Security.CookieDomain,
		h.cfg.Security.SecureCookies,
		true,
	)
}

func (h HandlerSet) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessCookieName, "", -1, "/", h.cfg.Security.CookieDomain, h.cfg.Security.SecureCookies, true)
	c.SetCookie(middleware.RefreshCookieName, "", -1, "/", h.cfg.Security.CookieDomain, h.cfg.Security.SecureCookies, true)
}

func (h HandlerSet) refreshTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(middleware.RefreshCookieName); err == nil && cookie != "" {
		return cookie
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}

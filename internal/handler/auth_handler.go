package handler

import (
	"net/http"
	"strings"

	"tourhub/internal/middleware"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc     *service.AuthService
	userSvc *service.UserService
}

func NewAuthHandler(svc *service.AuthService, userSvc *service.UserService) *AuthHandler {
	return &AuthHandler{svc: svc, userSvc: userSvc}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	ID       uint   `json:"id" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Token    string `json:"token"`
}

const refreshCookie = "refreshToken"

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, tokens, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(refreshCookie, tokens.RefreshToken, 0, "/", "", c.Request.TLS != nil, true)
	respondOK(c, "Logged in successfully", gin.H{
		"user":                 u,
		"access_token":         tokens.AccessToken,
		"refresh_token":        tokens.RefreshToken,
		"need_password_change": tokens.NeedPasswordChange,
	})
}

// Refresh accepts the refresh token from the body or the refreshToken cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookie)
	}
	if token == "" {
		respondFail(c, http.StatusUnauthorized, "Refresh token is required")
		return
	}
	tokens, err := h.svc.Refresh(token)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Access token refreshed", tokens)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.ChangePassword(middleware.GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Password changed successfully", nil)
}

// ForgotPassword always answers 200 so emails cannot be probed.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "If the email exists, a reset link has been sent", nil)
}

// ResetPassword takes the reset token from the Authorization header or the body.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
	if token == "" {
		token = req.Token
	}
	if token == "" {
		respondFail(c, http.StatusUnauthorized, "Reset token is required")
		return
	}
	if err := h.svc.ResetPassword(token, req.ID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Password reset successfully", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.userSvc.Me(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Profile retrieved", u)
}

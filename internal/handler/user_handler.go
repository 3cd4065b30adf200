package handler

import (
	"net/http"

	"tourhub/internal/domain"
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type CreateUserRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	Name          string `json:"name" binding:"required"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
	Bio           string `json:"bio"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name"`
	ContactNumber   *string `json:"contact_number"`
	Address         *string `json:"address"`
	Bio             *string `json:"bio"`
	PayoutAccountID *string `json:"payout_account_id"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type FCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *UserHandler) CreateTourist(c *gin.Context) { h.create(c, domain.RoleTourist, "Tourist created successfully") }
func (h *UserHandler) CreateHost(c *gin.Context)    { h.create(c, domain.RoleHost, "Host created successfully") }
func (h *UserHandler) CreateAdmin(c *gin.Context)   { h.create(c, domain.RoleAdmin, "Admin created successfully") }

// create accepts JSON, or a multipart form with a "data" JSON field and an optional "file" photo.
func (h *UserHandler) create(c *gin.Context, role, msg string) {
	var req CreateUserRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	photo, closeFiles, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	u, err := h.svc.CreateAccount(c.Request.Context(), role, service.CreateUserInput{
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Bio:           req.Bio,
	}, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, msg, u)
}

func (h *UserHandler) List(c *gin.Context) {
	p := parsePage(c)
	users, total, err := h.svc.List(repository.UserFilter{
		Search: c.Query("searchTerm"),
		Role:   c.Query("role"),
		Status: c.Query("status"),
	}, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Users retrieved", users, p.Meta(total))
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.svc.Me(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Profile retrieved", u)
}

func (h *UserHandler) UpdateMyProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	photo, closeFiles, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), service.UpdateProfileInput{
		Name:            req.Name,
		ContactNumber:   req.ContactNumber,
		Address:         req.Address,
		Bio:             req.Bio,
		PayoutAccountID: req.PayoutAccountID,
	}, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Profile updated successfully", u)
}

func (h *UserHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.svc.ChangeStatus(actorOf(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "User status updated", u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "User deleted", nil)
}

func (h *UserHandler) SetFCMToken(c *gin.Context) {
	var req FCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "token is required")
		return
	}
	if err := h.svc.SetFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "FCM token saved", nil)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ibooks/internal/models"
	"ibooks/internal/services"
)

// UserHandler serves the admin-only user management endpoints.
type UserHandler struct {
	userService services.UserServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,min=1,max=50"`
	Password string  `json:"password" binding:"required,min=1,max=128"`
	Role     string  `json:"role" binding:"omitempty,role"`
	IsActive *bool   `json:"isActive"`
	TimeZone *string `json:"timeZone" binding:"omitempty,timezone"`
}

// UpdateUserRequest is the payload for a partial user update.
type UpdateUserRequest struct {
	Password *string `json:"password" binding:"omitempty,min=1,max=128"`
	Role     *string `json:"role" binding:"omitempty,role"`
	IsActive *bool   `json:"isActive"`
	TimeZone *string `json:"timeZone" binding:"omitempty,timezone"`
}

// ListUsers lists every user
// @Summary     List users
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  UserResponse
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /config/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreateUser creates a user
// @Summary     Create user
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateUserRequest true "User"
// @Success     201 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Username taken"
// @Router      /config/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in := services.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     models.Role(req.Role),
		IsActive: true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if req.TimeZone != nil {
		in.TimeZone = *req.TimeZone
	}

	user, err := h.userService.CreateUser(c.Request.Context(), in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// UpdateUser updates a user
// @Summary     Update user
// @Description Password, role, active flag and time zone. The last active admin cannot be demoted or disabled.
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "User ID"
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Last admin"
// @Router      /config/users/{id} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in := services.UpdateUserInput{
		Password: req.Password,
		IsActive: req.IsActive,
		TimeZone: req.TimeZone,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), actorID, userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

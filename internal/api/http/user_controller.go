package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/auth"
	"github.com/soniva/soniva/internal/service"
)

type UserController struct {
	users  service.UserInteractor
	tokens *auth.TokenManager
}

func NewUserController(users service.UserInteractor, tokens *auth.TokenManager) *UserController {
	return &UserController{users: users, tokens: tokens}
}

// CreateUser registers a profile and issues an access token for it, so a
// fresh client can open rooms without a second round trip.
func (c *UserController) CreateUser(ctx *gin.Context) {
	type request struct {
		Name      string `json:"name" binding:"required"`
		AvatarURL string `json:"avatar_url"`
		Bio       string `json:"bio"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "invalid request body")
		return
	}

	user, err := c.users.CreateUser(ctx.Request.Context(), req.Name, req.AvatarURL, req.Bio)
	if err != nil {
		respondError(ctx, err)
		return
	}

	token, expiresAt, err := c.tokens.NewAccessToken(user.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"user":       user.Profile(),
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (c *UserController) GetUser(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("userID"))
	if err != nil {
		respondBadRequest(ctx, "invalid user id")
		return
	}

	user, err := c.users.GetUser(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user.Profile()})
}

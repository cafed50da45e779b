package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soniva/soniva/internal/auth"
)

const ctxUserID = "user_id"

// JWTAuth extracts the bearer token, verifies it, and stores the subject
// user id in the request context for controllers.
func JWTAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondUnauthenticated(ctx, "missing bearer token")
			return
		}

		userID, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondUnauthenticated(ctx, "invalid token")
			return
		}

		ctx.Set(ctxUserID, userID)
		ctx.Next()
	}
}

// currentUserID reads the authenticated user id set by JWTAuth.
func currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	v, ok := ctx.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

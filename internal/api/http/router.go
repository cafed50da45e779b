package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/soniva/soniva/internal/auth"
)

func SetupRouter(
	roomController *RoomController,
	userController *UserController,
	gateway *RoomGateway,
	tokens *auth.TokenManager,
) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:3000",
	}
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	users := api.Group("/users")
	users.POST("/create", userController.CreateUser)
	users.GET("/:userID", userController.GetUser)

	rooms := api.Group("/rooms")
	rooms.GET("", roomController.ListRooms)
	// The gateway authenticates itself from the token query param; bearer
	// middleware does not apply to websocket handshakes.
	rooms.GET("/:roomID/ws", gateway.Serve)

	authed := rooms.Group("", JWTAuth(tokens))
	authed.POST("/create", roomController.CreateRoom)
	authed.GET("/code/:code", roomController.GetRoomByCode)
	authed.GET("/:roomID", roomController.GetRoomDetail)
	authed.PATCH("/:roomID", roomController.UpdateRoom)
	authed.POST("/:roomID/join", roomController.JoinRoom)
	authed.POST("/:roomID/leave", roomController.LeaveRoom)
	authed.POST("/:roomID/close", roomController.CloseRoom)
	authed.GET("/:roomID/messages", roomController.ListMessages)

	authed.POST("/:roomID/mic/request", roomController.RequestSeat)
	authed.GET("/:roomID/mic/pending", roomController.ListPendingRequests)
	authed.POST("/:roomID/mic/leave", roomController.LeaveSeat)
	authed.POST("/:roomID/mic/:requestID/approve", roomController.ApproveRequest)
	authed.POST("/:roomID/mic/:requestID/reject", roomController.RejectRequest)

	authed.POST("/:roomID/seats/:seatIndex/mute", roomController.ToggleMute)
	authed.POST("/:roomID/seats/:seatIndex/lock", roomController.LockSeat)
	authed.POST("/:roomID/seats/:seatIndex/unlock", roomController.UnlockSeat)

	return router
}

package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/syncroweb/launchpad/docs"
	"github.com/syncroweb/launchpad/internal/api/handler"
	"github.com/syncroweb/launchpad/internal/api/middleware"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
	"github.com/syncroweb/launchpad/internal/infrastructure/http/handlers"
)

// Services groups the core services the HTTP layer depends on.
type Services struct {
	Conversations ports.ConversationService
	Approvals     ports.ApprovalService
	Membership    ports.MembershipService
	Messages      ports.MessageService
	Notifications ports.NotificationService
	Identity      ports.IdentityProvider
	Bus           ports.Bus
}

// NewRouter builds and returns the Echo instance with all routes registered.
//
// @title                       Launchpad chat API
// @version                     1.0
// @description                 Conversations, approvals, group membership, message logs and notifications.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func NewRouter(db *mongo.Database, rdb *redis.Client, svc Services, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("chat"))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(handlers.DependencyProbes(db, rdb))

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Handlers ---
	conversationHandler := handler.NewConversationHandler(svc.Conversations, svc.Approvals)
	membershipHandler := handler.NewMembershipHandler(svc.Membership)
	messageHandler := handler.NewMessageHandler(svc.Messages)
	notificationHandler := handler.NewNotificationHandler(svc.Notifications)
	wsHandler := handler.NewWebsocketHandler(svc.Messages, svc.Bus, log.With().Str("component", "websocket").Logger())

	staffOnly := middleware.RequireRole(domain.RoleAdmin, domain.RoleEmployee)

	// --- v1 (JWT + identity required) ---
	v1 := e.Group("/v1", middleware.Auth(jwtSecret), middleware.Identity(svc.Identity))

	v1.GET("/ws", wsHandler.Serve)

	v1.GET("/conversations", conversationHandler.List)
	v1.POST("/conversations/direct", conversationHandler.StartDirect)
	v1.POST("/conversations/groups", conversationHandler.CreateGroup)
	v1.GET("/conversations/pending", conversationHandler.ListPending, staffOnly)
	v1.GET("/conversations/:id", conversationHandler.Get)
	v1.PATCH("/conversations/:id", conversationHandler.Rename)
	v1.PUT("/conversations/:id/avatar", conversationHandler.SetAvatar)
	v1.POST("/conversations/:id/approve", conversationHandler.Approve, staffOnly)

	v1.GET("/conversations/:id/members", membershipHandler.List)
	v1.POST("/conversations/:id/members", membershipHandler.Add)
	v1.DELETE("/conversations/:id/members/:user_id", membershipHandler.RequestRemoval)
	v1.POST("/conversations/:id/members/:user_id/promote", membershipHandler.Promote)
	v1.POST("/confirmations/:token", membershipHandler.Confirm)

	v1.GET("/conversations/:id/messages", messageHandler.List)
	v1.POST("/conversations/:id/messages", messageHandler.Append)

	v1.GET("/notifications", notificationHandler.List)
	v1.POST("/notifications/read", notificationHandler.MarkAllRead)
	v1.POST("/notifications/:id/read", notificationHandler.MarkRead)

	return e
}

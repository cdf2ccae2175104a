package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quietline/quietline/internal/infrastructure/http/middleware"
	"github.com/quietline/quietline/pkg/config"
	"github.com/quietline/quietline/pkg/jwt"
)

// Router holds all handlers
type Router struct {
	cfg           *config.Config
	jwtManager    *jwt.Manager
	authHandler   *Auth
	callHandler   *Call
	twilioHandler *Twilio
	streamHandler *Stream
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, jwtManager *jwt.Manager, authHandler *Auth, callHandler *Call, twilioHandler *Twilio, streamHandler *Stream) *Router {
	return &Router{
		cfg:           cfg,
		jwtManager:    jwtManager,
		authHandler:   authHandler,
		callHandler:   callHandler,
		twilioHandler: twilioHandler,
		streamHandler: streamHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")

	rt.setupAuthRoutes(v1)
	rt.setupWebhookRoutes(v1)
	rt.setupStreamRoutes(v1)
	rt.setupCallRoutes(v1)
}

// setupAuthRoutes configures authentication routes
func (rt *Router) setupAuthRoutes(g *echo.Group) {
	authGroup := g.Group("/auth")
	authGroup.POST("/login", rt.authHandler.Login)
	authGroup.POST("/refresh", rt.authHandler.Refresh)
}

// setupWebhookRoutes configures the signed telephony webhooks
func (rt *Router) setupWebhookRoutes(g *echo.Group) {
	webhookGroup := g.Group("/webhooks",
		middleware.TwilioAuth(rt.cfg.Twilio.AuthToken, rt.cfg.Server.PublicBaseURL))
	webhookGroup.POST("/voice", rt.twilioHandler.Voice)
	webhookGroup.POST("/status", rt.twilioHandler.Status)
}

// setupStreamRoutes configures the media-stream websocket endpoint. The
// stream is initiated by TwiML this service itself returned, so it is not
// behind the dashboard JWT.
func (rt *Router) setupStreamRoutes(g *echo.Group) {
	g.GET("/stream", rt.streamHandler.Handle)
}

// setupCallRoutes configures the JWT-protected dashboard API
func (rt *Router) setupCallRoutes(g *echo.Group) {
	auth := middleware.EchoAuth(rt.jwtManager)

	callGroup := g.Group("/calls", auth)
	callGroup.GET("", rt.callHandler.List)
	callGroup.GET("/:id", rt.callHandler.Get)
	callGroup.PATCH("/:id/rating", rt.callHandler.Rate)
	callGroup.PUT("/:id/notes", rt.callHandler.UpdateNotes)
	callGroup.PUT("/:id/tags", rt.callHandler.UpdateTags)
	callGroup.DELETE("/:id", rt.callHandler.Delete)
	callGroup.GET("/:id/recording", rt.callHandler.GetRecording)
	callGroup.POST("/:id/recording", rt.callHandler.UploadRecording)

	statsGroup := g.Group("/stats", auth)
	statsGroup.GET("", rt.callHandler.Stats)
	statsGroup.GET("/active", rt.callHandler.ActiveSessions)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}

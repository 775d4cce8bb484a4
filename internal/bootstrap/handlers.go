package bootstrap

import (
	"log/slog"
	"os"

	"github.com/careloop/careloop/internal/channel"
	"github.com/careloop/careloop/internal/conversation"
	"github.com/careloop/careloop/internal/gateway"
	"github.com/careloop/careloop/internal/knowledge"
	"github.com/careloop/careloop/internal/livesession"
	"github.com/careloop/careloop/internal/profile"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	KnowledgeHandler    *knowledge.Handler
	ProfileHandler      *profile.Handler
	ConversationHandler *conversation.Handler
	GatewayHandler      *gateway.Handler
	Config              *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.KnowledgeHandler.RegisterRoutes(api.Group("/knowledge"))
	params.ProfileHandler.RegisterRoutes(api.Group("/profiles"))
	params.ConversationHandler.RegisterRoutes(api.Group("/conversations"))
	params.GatewayHandler.RegisterRoutes(api.Group("/live"))

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())

	e.Static("/assets", params.Config.StaticDir)
	e.GET("/*", func(c echo.Context) error {
		return c.File(params.Config.IndexHTML)
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideKnowledgeHandler(index *knowledge.Index, logger *slog.Logger) *knowledge.Handler {
	return knowledge.NewHandler(index, logger.With("handler", "knowledge"))
}

func ProvideProfileHandler(store *profile.Store, logger *slog.Logger) *profile.Handler {
	return profile.NewHandler(store, logger.With("handler", "profile"))
}

func ProvideConversationHandler(store *conversation.Store, logger *slog.Logger) *conversation.Handler {
	return conversation.NewHandler(store, logger.With("handler", "conversation"))
}

func ProvideGatewayHandler(
	manager *livesession.Manager,
	dialer channel.Dialer,
	tools *livesession.ToolRegistry,
	transcripts *conversation.Store,
	session channel.SessionConfig,
	logger *slog.Logger,
) *gateway.Handler {
	return gateway.NewHandler(manager, dialer, tools, transcripts, session, logger.With("handler", "gateway"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideKnowledgeHandler,
		ProvideProfileHandler,
		ProvideConversationHandler,
		ProvideGatewayHandler,
	),
	fx.Invoke(RegisterRoutes),
)

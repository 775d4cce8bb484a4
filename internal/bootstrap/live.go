package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/careloop/careloop/internal/channel"
	"github.com/careloop/careloop/internal/gemini"
	"github.com/careloop/careloop/internal/knowledge"
	"github.com/careloop/careloop/internal/livesession"
	"github.com/careloop/careloop/internal/profile"
	"go.uber.org/fx"
	"google.golang.org/genai"
)

func ProvideEmbedder(client *genai.Client, cfg *Config) channel.Embedder {
	model := cfg.EmbedModel
	if model == "" {
		model = gemini.DefaultEmbedModel
	}
	return gemini.NewEmbedder(client, model)
}

func ProvideKnowledgeIndex(store *knowledge.Store, embedder channel.Embedder, logger *slog.Logger) *knowledge.Index {
	return knowledge.NewIndex(store, embedder, logger.With("component", "knowledge"))
}

func ProvideDialer(client *genai.Client, cfg *Config, logger *slog.Logger) channel.Dialer {
	model := cfg.LiveModel
	if model == "" {
		model = gemini.DefaultLiveModel
	}
	return gemini.NewDialer(client, model, logger.With("component", "gemini"))
}

func ProvideSessionManager(logger *slog.Logger) *livesession.Manager {
	return livesession.NewManager(logger)
}

func ProvideToolRegistry(
	cfg *Config,
	profiles *profile.Store,
	index *knowledge.Index,
	logger *slog.Logger,
) (*livesession.ToolRegistry, error) {
	registry := livesession.NewToolRegistry()
	userID := cfg.DefaultUserID
	log := logger.With("component", "tools")

	tools := []livesession.Tool{
		{
			Name:        "remember_user_details",
			Description: "Store one fact about the user for future conversations, such as an allergy, a medication, or their doctor's name.",
			Parameters: map[string]string{
				"key":   "short label for the fact, e.g. allergy, medication, doctor",
				"value": "the fact to remember",
			},
			ExpectsResponse: true,
			Handle: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				key := stringArg(args, "key")
				value := stringArg(args, "value")
				if key == "" || value == "" {
					return nil, fmt.Errorf("both key and value are required")
				}
				if _, err := profiles.ApplyDetails(ctx, userID, map[string]string{key: value}); err != nil {
					return nil, err
				}
				log.Info("user detail remembered", "key", key)
				return map[string]any{"status": "saved", "key": key}, nil
			},
		},
		{
			Name:        "search_health_records",
			Description: "Search the user's stored health records and documents for passages relevant to a question.",
			Parameters: map[string]string{
				"query": "what to look for in the user's records",
			},
			ExpectsResponse: true,
			Handle: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				query := stringArg(args, "query")
				if query == "" {
					return nil, fmt.Errorf("query is required")
				}
				matches, err := index.Query(ctx, userID, query, 0)
				if err != nil {
					return nil, err
				}
				results := make([]map[string]any, 0, len(matches))
				for _, m := range matches {
					results = append(results, map[string]any{
						"document_id": m.Chunk.DocumentID,
						"content":     m.Chunk.Content,
						"score":       m.Score,
					})
				}
				return map[string]any{"results": results, "count": len(results)}, nil
			},
		},
		{
			Name:        "create_document",
			Description: "Write a document for the user, such as a symptom summary or a question list for their next appointment. The document is shown directly to the user.",
			Parameters: map[string]string{
				"title":   "short file name for the document",
				"content": "full text of the document",
			},
			ExpectsResponse: false,
			Handle: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				content := stringArg(args, "content")
				if content == "" {
					return nil, fmt.Errorf("content is required")
				}
				return map[string]any{
					"document":        content,
					"attachment_name": stringArg(args, "title"),
				}, nil
			},
		},
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func ProvideSessionConfig(cfg *Config, registry *livesession.ToolRegistry) channel.SessionConfig {
	return channel.SessionConfig{
		SystemPrompt: cfg.SystemPrompt,
		Voice:        cfg.VoiceName,
		Tools:        registry.Declarations(),
	}
}

func CloseSessionsOnShutdown(lc fx.Lifecycle, manager *livesession.Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return manager.Close()
		},
	})
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

var LiveModule = fx.Options(
	fx.Provide(
		ProvideEmbedder,
		ProvideKnowledgeIndex,
		ProvideDialer,
		ProvideSessionManager,
		ProvideToolRegistry,
		ProvideSessionConfig,
	),
	fx.Invoke(CloseSessionsOnShutdown),
)

package bootstrap

import (
	"github.com/careloop/careloop/internal/conversation"
	"github.com/careloop/careloop/internal/knowledge"
	"github.com/careloop/careloop/internal/profile"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideKnowledgeStore(db *gorm.DB, qdrantClient *qdrant.Client) *knowledge.Store {
	return knowledge.NewStore(db, qdrantClient)
}

func ProvideProfileStore(db *gorm.DB) *profile.Store {
	return profile.NewStore(db)
}

func ProvideConversationStore(redisClient *redis.Client) *conversation.Store {
	return conversation.NewStore(redisClient)
}

func RunMigrations(knowledgeStore *knowledge.Store, profileStore *profile.Store) error {
	if err := knowledgeStore.Migrate(); err != nil {
		return err
	}
	return profileStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideKnowledgeStore,
		ProvideProfileStore,
		ProvideConversationStore,
	),
	fx.Invoke(RunMigrations),
)

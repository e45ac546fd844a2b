package wire

import (
	"context"

	"unibook-api/internal/application/auth"
	"unibook-api/internal/application/generation"
	"unibook-api/internal/config"
	"unibook-api/internal/domain/repository"
	"unibook-api/internal/infrastructure/email"
	"unibook-api/internal/infrastructure/messaging"
	"unibook-api/internal/infrastructure/persistence/postgres"
	"unibook-api/internal/infrastructure/persistence/redis"
	"unibook-api/internal/interfaces/http/handler"
	"unibook-api/internal/interfaces/http/middleware"
	"unibook-api/internal/interfaces/http/router"
	"unibook-api/internal/interfaces/stream"
	"unibook-api/pkg/logger"
	"unibook-api/pkg/utils"
)

// App 应用依赖容器
type App struct {
	Router     *router.Router
	Consumer   *messaging.Consumer
	Dispatcher *email.Dispatcher
}

// PostgresOnlyDataLayer 仅包含数据库的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient  *postgres.Client
	TxManager *postgres.TxManager
	UserRepo  *postgres.UserRepository
	BookRepo  *postgres.BookRepository
}

// ProvidePostgresClient 提供数据库客户端，按配置执行自动迁移
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := client.AutoMigrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideStatusStore 按配置选择生成状态存储
func ProvideStatusStore(ctx context.Context, cfg *config.Config, cache *redis.Cache) generation.StatusStore {
	if cfg.Generation.StatusStore == "memory" {
		logger.Warn(ctx, "generation status kept in memory, snapshots are lost on restart")
		return generation.NewMemoryStatusStore()
	}
	return redis.NewGenerationStatusStore(cache, cfg.Generation.StatusKeyPrefix, cfg.Generation.StatusTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideStepPublisher 提供生成步骤事件发布器
func ProvideStepPublisher(producer *messaging.Producer, cfg *config.Config) generation.EventPublisher {
	return messaging.NewStepPublisher(producer, cfg.Features.StepEvents.Enabled)
}

// ProvideDispatcher 提供异步验证邮件发送器
func ProvideDispatcher(cfg *config.Config) *email.Dispatcher {
	return email.NewDispatcher(email.NewMailer(&cfg.Email), cfg.Email.Timeout)
}

// ProvideJWTManager 提供 JWT 管理器
func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	return utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, cfg.Security.JWT.Expiration)
}

// ProvideAuthService 提供认证服务
func ProvideAuthService(users repository.UserRepository, jwt *utils.JWTManager, sender auth.CodeSender, cfg *config.Config) *auth.Service {
	return auth.NewService(users, jwt, sender, cfg.IsAdminEmail, cfg.Email.CodeTTL)
}

// ProvideAuthConfig 提供认证中间件配置
func ProvideAuthConfig(jwt *utils.JWTManager) middleware.AuthConfig {
	return middleware.AuthConfig{
		JWT:       jwt,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   true,
	}
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, rdb *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, rdb, cfg.App.Version)
}

// ProvideAgentConsumer 提供 Agent 事件消费者；功能关闭时返回 nil
func ProvideAgentConsumer(redisClient *redis.Client, svc *generation.Service, cfg *config.Config) *messaging.Consumer {
	if !cfg.Features.AgentConsumer.Enabled {
		return nil
	}
	sc := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamGenerationAgent,
		Group:         messaging.ConsumerGroupGeneration,
		ConsumerName:  sc.ConsumerName,
		BlockTimeout:  sc.BlockTimeout,
		ClaimInterval: sc.ClaimInterval,
		ClaimMinIdle:  sc.ClaimMinIdle,
		BatchSize:     sc.BatchSize,
		RetryLimit:    sc.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    sc.RetryBackoff.Initial,
			Max:        sc.RetryBackoff.Max,
			Multiplier: sc.RetryBackoff.Multiplier,
		},
	})
	stream.NewAgentHandler(svc).Register(consumer)
	return consumer
}

//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"unibook-api/internal/application/admin"
	"unibook-api/internal/application/auth"
	"unibook-api/internal/application/book"
	"unibook-api/internal/application/generation"
	"unibook-api/internal/config"
	"unibook-api/internal/domain/repository"
	"unibook-api/internal/infrastructure/email"
	"unibook-api/internal/infrastructure/persistence/postgres"
	"unibook-api/internal/infrastructure/persistence/redis"
	"unibook-api/internal/interfaces/http/handler"
	"unibook-api/internal/interfaces/http/middleware"
	"unibook-api/internal/interfaces/http/router"
)

// InitializePostgresOnly 仅初始化数据库数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		ServiceSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// PostgresSet 数据库提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewBookRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.BookRepository), new(*postgres.BookRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideStatusStore,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息流提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideStepPublisher,
	ProvideAgentConsumer,
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	ProvideJWTManager,
	ProvideDispatcher,
	ProvideAuthService,
	generation.NewService,
	book.NewService,
	admin.NewService,
	wire.Bind(new(auth.CodeSender), new(*email.Dispatcher)),
	wire.Bind(new(book.SessionDiscarder), new(*generation.Service)),
	wire.Bind(new(book.SessionGuard), new(*generation.Service)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthConfig,
	ProvideHealthHandler,
	handler.NewAuthHandler,
	handler.NewBookHandler,
	handler.NewGenerationHandler,
	handler.NewAdminHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)

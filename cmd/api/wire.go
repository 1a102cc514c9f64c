//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// 与main.go中的手动组装等价,运行 `wire gen ./cmd/api` 生成wire_gen.go
// 后即可用InitializeApp()替换手动依赖注入。
// Provider按层分组:基础设施 → 仓储 → 领域 → 应用 → 接口。

package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appbook "github.com/yilin/bookshop/internal/application/book"
	appcart "github.com/yilin/bookshop/internal/application/cart"
	apporder "github.com/yilin/bookshop/internal/application/order"
	appuser "github.com/yilin/bookshop/internal/application/user"
	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/cart"
	"github.com/yilin/bookshop/internal/domain/user"
	"github.com/yilin/bookshop/internal/infrastructure/config"
	"github.com/yilin/bookshop/internal/infrastructure/persistence/mysql"
	"github.com/yilin/bookshop/internal/infrastructure/persistence/redis"
	"github.com/yilin/bookshop/internal/interface/http/handler"
	"github.com/yilin/bookshop/internal/interface/http/middleware"
	"github.com/yilin/bookshop/pkg/jwt"
	"github.com/yilin/bookshop/pkg/logger"
	"github.com/yilin/bookshop/pkg/metrics"
	"github.com/yilin/bookshop/pkg/mq"
)

// infrastructureSet 基础设施层依赖
var infrastructureSet = wire.NewSet(
	config.Load,
	provideLogger,
	mysql.NewDB,
	redis.NewClient,
)

// repositorySet 仓储层依赖
var repositorySet = wire.NewSet(
	mysql.NewUserRepository,
	mysql.NewBookRepository,
	mysql.NewOrderRepository,
	provideTxManager,
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	user.NewService,
	book.NewService,
	provideCartStore,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,
	appuser.NewLoginUseCase,
	provideLogoutUseCase,
	appbook.NewPublishBookUseCase,
	appbook.NewListBooksUseCase,
	appbook.NewGetBookUseCase,
	provideEventPublisher,
	apporder.NewCreateOrderUseCase,
	apporder.NewListOrdersUseCase,
	apporder.NewGetOrderUseCase,
	apporder.NewUpdateStatusUseCase,
	appcart.NewCartUseCase,
)

// middlewareSet 中间件依赖
var middlewareSet = wire.NewSet(
	provideJWTManager,
	provideSessionStore,
	middleware.NewAuthMiddleware,
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewOrderHandler,
	handler.NewCartHandler,
)

// provideLogger 从配置创建zap日志器
func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
}

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

// provideSessionStore 从Redis客户端创建会话存储
func provideSessionStore(client *goredis.Client) *redis.SessionStore {
	return redis.NewSessionStore(client)
}

// provideTxManager 事务管理器(绑定到下单用例的接口)
func provideTxManager(db *gorm.DB) apporder.TxManager {
	return mysql.NewTxManager(db)
}

// provideCartStore 从配置创建购物车存储
func provideCartStore(cfg *config.Config) *cart.Store {
	return cart.NewStore(cfg.Cart.IdleTTL, cfg.Cart.CleanupInterval,
		cart.WithCountCallback(func(count int) {
			metrics.SetGauge(metrics.CartsActive, float64(count))
		}))
}

// provideEventPublisher 从配置创建事件发布器(未启用时返回nil,下单用例跳过发布)
func provideEventPublisher(cfg *config.Config) (apporder.EventPublisher, error) {
	if !cfg.MQ.Enabled() {
		return nil, nil
	}
	return mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
}

// provideLogoutUseCase 登出用例(登出时丢弃用户购物车)
func provideLogoutUseCase(sessionStore *redis.SessionStore, jwtManager *jwt.Manager, cartStore *cart.Store) *appuser.LogoutUseCase {
	return appuser.NewLogoutUseCase(sessionStore, jwtManager, func(userID uint) {
		cartStore.Delete(fmt.Sprintf("user:%d", userID))
	})
}

// provideGinEngine 创建Gin引擎并注册全部路由
func provideGinEngine(
	cfg *config.Config,
	zapLogger *zap.Logger,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	orderHandler *handler.OrderHandler,
	cartHandler *handler.CartHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(zapLogger))
	r.Use(middleware.Metrics())

	registerRoutes(r, userHandler, bookHandler, orderHandler, cartHandler, authMiddleware)
	return r
}

// InitializeApp 初始化整个应用
// Wire在编译期分析依赖链并生成组装代码
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		provideGinEngine,
	)
	return nil, nil
}

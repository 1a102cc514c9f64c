package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

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
	"github.com/yilin/bookshop/pkg/response"
	"github.com/yilin/bookshop/pkg/tracing"
)

// main 主程序入口
// 手动依赖注入:Repository ← Service ← UseCase ← Handler
// （wire.go提供等价的Wire注入器,wire gen后可切换到生成代码）
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	zapLogger, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	response.SetLogger(zapLogger)
	mq.SetLogger(zapLogger)

	zapLogger.Info("配置加载成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("database", fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)),
		zap.String("redis", cfg.Redis.Addr()))

	// 3. 初始化指标
	metrics.InitMetrics()

	// 4. 初始化链路追踪(可选)
	if cfg.Tracing.Enabled() {
		shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			zapLogger.Fatal("初始化链路追踪失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				zapLogger.Warn("关闭链路追踪失败", zap.Error(err))
			}
		}()
	}

	// 5. 初始化数据库与Redis
	db, err := mysql.NewDB(cfg)
	if err != nil {
		zapLogger.Fatal("初始化数据库失败", zap.Error(err))
	}

	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		zapLogger.Fatal("初始化Redis失败", zap.Error(err))
	}
	defer redisClient.Close()

	// 6. 初始化消息队列(可选,url为空时订单事件不发布)
	var publisher apporder.EventPublisher
	if cfg.MQ.Enabled() {
		mqPublisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
		if err != nil {
			zapLogger.Fatal("初始化消息队列失败", zap.Error(err))
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	}

	// 7. 购物车内存存储(空闲购物车定期回收)
	cartStore := cart.NewStore(cfg.Cart.IdleTTL, cfg.Cart.CleanupInterval,
		cart.WithCountCallback(func(count int) {
			metrics.SetGauge(metrics.CartsActive, float64(count))
		}))
	defer cartStore.Close()

	// 8. 依赖注入(手动组装)
	// 基础设施层
	userRepo := mysql.NewUserRepository(db)
	bookRepo := mysql.NewBookRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	txManager := mysql.NewTxManager(db)
	sessionStore := redis.NewSessionStore(redisClient)
	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)

	// 领域层
	userService := user.NewService(userRepo)
	bookService := book.NewService(bookRepo)

	// 应用层
	registerUseCase := appuser.NewRegisterUseCase(userService)
	loginUseCase := appuser.NewLoginUseCase(userService, jwtManager, sessionStore, zapLogger)
	logoutUseCase := appuser.NewLogoutUseCase(sessionStore, jwtManager, func(userID uint) {
		// 登出时丢弃用户购物车
		cartStore.Delete(fmt.Sprintf("user:%d", userID))
	})
	publishBookUseCase := appbook.NewPublishBookUseCase(bookService)
	listBooksUseCase := appbook.NewListBooksUseCase(bookService)
	getBookUseCase := appbook.NewGetBookUseCase(bookService)
	createOrderUseCase := apporder.NewCreateOrderUseCase(orderRepo, bookRepo, userRepo, txManager, publisher, zapLogger)
	listOrdersUseCase := apporder.NewListOrdersUseCase(orderRepo, userRepo, bookRepo)
	getOrderUseCase := apporder.NewGetOrderUseCase(orderRepo, bookRepo)
	updateStatusUseCase := apporder.NewUpdateStatusUseCase(orderRepo, zapLogger)
	cartUseCase := appcart.NewCartUseCase(cartStore, bookRepo)

	// 接口层
	userHandler := handler.NewUserHandler(registerUseCase, loginUseCase, logoutUseCase)
	bookHandler := handler.NewBookHandler(publishBookUseCase, listBooksUseCase, getBookUseCase)
	orderHandler := handler.NewOrderHandler(createOrderUseCase, listOrdersUseCase, getOrderUseCase, updateStatusUseCase)
	cartHandler := handler.NewCartHandler(cartUseCase)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, sessionStore)

	// 9. 初始化Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(zapLogger))
	r.Use(middleware.Metrics())
	if cfg.Tracing.Enabled() {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	// 10. 注册路由
	registerRoutes(r, userHandler, bookHandler, orderHandler, cartHandler, authMiddleware)

	// 11. 启动服务(优雅关闭)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("收到退出信号,开始优雅关闭")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("优雅关闭失败", zap.Error(err))
	}

	zapLogger.Info("服务已退出")
}

// registerRoutes 注册路由
func registerRoutes(
	r *gin.Engine,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	orderHandler *handler.OrderHandler,
	cartHandler *handler.CartHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger文档(访问 /swagger/index.html)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// 用户模块
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/logout", authMiddleware.RequireAuth(), userHandler.Logout)
		}

		// 图书模块
		books := v1.Group("/books")
		{
			books.GET("", bookHandler.ListBooks)
			books.GET("/:id", bookHandler.GetBook)
			books.POST("", authMiddleware.RequireAuth(), bookHandler.PublishBook)
		}

		// 订单模块(需要登录)
		orders := v1.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/user/:userId", orderHandler.ListUserOrders)
			orders.GET("/:orderId", orderHandler.GetOrder)
			orders.PUT("/:orderId/status", orderHandler.UpdateOrderStatus)
		}

		// 购物车模块(登录和匿名均可,匿名购物车通过X-Cart-Session定位)
		carts := v1.Group("/cart")
		carts.Use(authMiddleware.OptionalAuth())
		{
			carts.GET("/summary", cartHandler.GetCart)
			carts.POST("/add", cartHandler.AddItem)
			carts.PUT("/update/:bookId", cartHandler.UpdateItem)
			carts.DELETE("/remove/:bookId", cartHandler.RemoveItem)
			carts.DELETE("/clear", cartHandler.ClearCart)
		}
	}
}

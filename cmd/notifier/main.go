// 通知Worker:订阅订单事件并发送通知
//
// 独立于API进程运行,从RabbitMQ消费order.*事件,
// 下单主流程不等待通知结果。当前实现记录结构化日志,
// 接入真实邮件/短信渠道时替换handleEvent内的发送逻辑。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	apporder "github.com/yilin/bookshop/internal/application/order"
	"github.com/yilin/bookshop/internal/infrastructure/config"
	"github.com/yilin/bookshop/pkg/logger"
	"github.com/yilin/bookshop/pkg/mq"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "通知Worker启动失败: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.MQ.Enabled() {
		return fmt.Errorf("通知Worker需要启用消息队列(配置mq.url)")
	}

	// 2. 初始化日志
	zapLogger, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		return err
	}
	defer zapLogger.Sync()
	mq.SetLogger(zapLogger)

	// 3. 创建消费者(order.*通配订阅,队列持久化)
	consumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		cfg.MQ.Exchange,
		cfg.MQ.ExchangeType,
		"bookshop.notifications",
		[]string{"order.*"},
	)
	if err != nil {
		return err
	}
	defer consumer.Close()

	// 4. 信号触发优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("通知Worker已启动",
		zap.String("exchange", cfg.MQ.Exchange),
		zap.String("queue", "bookshop.notifications"))

	return consumer.Consume(ctx, func(body []byte) error {
		return handleEvent(zapLogger, body)
	})
}

// handleEvent 处理订单事件
// 返回错误时消息Nack重新入队,解析失败的消息直接丢弃避免死循环
func handleEvent(log *zap.Logger, body []byte) error {
	var event apporder.OrderCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn("事件解析失败,丢弃消息", zap.Error(err))
		return nil
	}

	// TODO: 接入邮件服务后按用户偏好发送订单确认邮件
	log.Info("发送订单确认通知",
		zap.String("order_no", event.OrderNo),
		zap.Uint("user_id", event.UserID),
		zap.Int64("total", event.Total))
	return nil
}

package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/order"
	"github.com/yilin/bookshop/internal/domain/user"
	apperrors "github.com/yilin/bookshop/pkg/errors"
	"github.com/yilin/bookshop/pkg/metrics"
	"github.com/yilin/bookshop/pkg/tracing"
)

// TxManager 事务管理接口
// 由mysql.TxManager实现,定义为接口便于单元测试注入假实现
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 领域事件发布接口
// 由mq.Publisher实现,nil表示未启用消息队列
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// OrderCreatedEvent 订单创建事件(发布到消息队列)
type OrderCreatedEvent struct {
	OrderID   uint   `json:"order_id"`
	OrderNo   string `json:"order_no"`
	UserID    uint   `json:"user_id"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"item_count"`
	CreatedAt string `json:"created_at"`
}

// CreateOrderUseCase 创建订单用例
// 整个项目最核心的用例:涉及事务处理、并发控制、业务规则校验
type CreateOrderUseCase struct {
	orderRepo order.Repository
	bookRepo  book.Repository
	userRepo  user.Repository
	txManager TxManager
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCreateOrderUseCase 创建下单用例
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	bookRepo book.Repository,
	userRepo user.Repository,
	txManager TxManager,
	publisher EventPublisher,
	logger *zap.Logger,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo: orderRepo,
		bookRepo:  bookRepo,
		userRepo:  userRepo,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrderRequest 下单请求DTO
type CreateOrderRequest struct {
	UserID          uint              // 买家用户ID
	Items           []CreateOrderItem // 订单明细
	ShippingAddress string            // 收货地址(可选)
}

// CreateOrderItem 订单明细项
type CreateOrderItem struct {
	BookID   uint // 图书ID
	Quantity int  // 购买数量
}

// CreateOrderResponse 下单响应DTO
type CreateOrderResponse struct {
	OrderID         uint        `json:"order_id"`
	OrderNo         string      `json:"order_no"`
	UserID          uint        `json:"user_id"`
	Total           int64       `json:"total"`
	TotalYuan       string      `json:"total_yuan"`
	Status          string      `json:"status"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	Items           []OrderLine `json:"items"`
	CreatedAt       string      `json:"created_at"`
}

// OrderLine 响应中的订单明细行
// Title为展示用冗余字段,按图书当前信息解析
type OrderLine struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`    // 下单时单价(分)
	Subtotal  int64  `json:"subtotal"` // 小计(分)
	PriceYuan string `json:"price_yuan"`
}

// Execute 执行下单用例
//
// 防止超卖的完整流程:
//  1. SELECT FOR UPDATE 锁定所有涉及的库存行(按BookID升序,避免交叉加锁死锁)
//  2. 逐行检查库存是否充足(任一不足则整单失败,不做部分履约)
//  3. 使用锁定时的数据库价格生成明细快照(防止改价攻击)
//  4. 创建订单(含明细)
//  5. 原子扣减库存
//  6. COMMIT释放锁,事后发布order.created事件
//
// 任何一步失败整个事务回滚:订单不会创建,库存不会减少。
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	start := time.Now()

	resp, err := uc.execute(ctx, req)

	metrics.ObserveHistogram(metrics.OrderCreationDuration, time.Since(start).Seconds())
	if err != nil {
		metrics.IncCounter(metrics.OrdersFailedTotal)
		return nil, err
	}
	metrics.IncCounter(metrics.OrdersCreatedTotal)
	metrics.ObserveHistogram(metrics.OrderAmount, float64(resp.Total))
	return resp, nil
}

func (uc *CreateOrderUseCase) execute(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	// 1. 参数校验
	if len(req.Items) == 0 {
		return nil, order.ErrInvalidOrderItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
	}

	// 2. 校验用户存在(订单必须关联有效用户)
	if _, err := uc.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	// 3. 合并重复书目(同一本书多行合并为一行,简化锁定逻辑)
	merged := mergeItems(req.Items)

	var result *order.Order
	titles := make(map[uint]string, len(merged))

	// 事务内的锁定、创建、扣减归入同一Span,便于定位慢事务
	spanCtx, span := tracing.StartSpan(ctx, "application/order", "CreateOrder.Tx")
	err := uc.txManager.Transaction(spanCtx, func(txCtx context.Context) error {
		// 4. 锁定库存(悲观锁,防止并发超卖)
		// 按BookID升序加锁:并发事务以相同顺序获取行锁,避免死锁
		bookMap := make(map[uint]*book.Book, len(merged))
		for _, item := range merged {
			b, err := uc.bookRepo.LockByID(txCtx, item.BookID)
			if err != nil {
				if errors.Is(err, book.ErrBookNotFound) {
					return apperrors.Newf(apperrors.ErrCodeBookNotFound, "图书不存在: %d", item.BookID)
				}
				return err
			}

			// 必须在锁定后检查库存,否则并发扣减会超卖
			if b.Stock < item.Quantity {
				return apperrors.Newf(apperrors.ErrCodeInsufficientStock,
					"图书《%s》库存不足,当前库存:%d,需要:%d",
					b.Title, b.Stock, item.Quantity)
			}

			bookMap[item.BookID] = b
			titles[item.BookID] = b.Title
		}

		// 5. 生成订单明细(使用数据库中的当前价格,防止改价攻击)
		orderItems := make([]order.OrderItem, len(merged))
		for i, item := range merged {
			b := bookMap[item.BookID]
			orderItems[i] = order.OrderItem{
				BookID:   item.BookID,
				Quantity: item.Quantity,
				Price:    b.Price,
			}
		}

		// 6. 创建订单(含明细)
		orderNo := order.GenerateOrderNo()
		newOrder := order.NewOrder(orderNo, req.UserID, orderItems, req.ShippingAddress)
		if err := uc.orderRepo.Create(txCtx, newOrder); err != nil {
			return err
		}

		// 7. 扣减库存
		// UpdateStock内部带WHERE stock + delta >= 0守卫,
		// 扣减失败时整个事务回滚
		for _, item := range merged {
			if err := uc.bookRepo.UpdateStock(txCtx, item.BookID, -item.Quantity); err != nil {
				return err
			}
		}

		result = newOrder
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	span.End()

	uc.logger.Info("订单创建成功",
		zap.String("order_no", result.OrderNo),
		zap.Uint("user_id", result.UserID),
		zap.Int64("total", result.Total))

	// 8. 发布订单创建事件(事务外,失败不影响下单结果)
	uc.publishCreated(ctx, result)

	return toCreateOrderResponse(result, titles), nil
}

// publishCreated 发布order.created事件
func (uc *CreateOrderUseCase) publishCreated(ctx context.Context, o *order.Order) {
	if uc.publisher == nil {
		return
	}

	event := OrderCreatedEvent{
		OrderID:   o.ID,
		OrderNo:   o.OrderNo,
		UserID:    o.UserID,
		Total:     o.Total,
		ItemCount: len(o.Items),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
	if err := uc.publisher.Publish(ctx, "order.created", event); err != nil {
		// 通知类事件,发布失败只记录日志
		uc.logger.Warn("发布订单创建事件失败",
			zap.String("order_no", o.OrderNo),
			zap.Error(err))
		return
	}
	metrics.IncCounterVec(metrics.MessagesPublishedTotal, map[string]string{
		"exchange":    "bookshop.events",
		"routing_key": "order.created",
	})
}

// mergeItems 合并重复BookID的明细行并按BookID升序排序
func mergeItems(items []CreateOrderItem) []CreateOrderItem {
	quantities := make(map[uint]int, len(items))
	for _, item := range items {
		quantities[item.BookID] += item.Quantity
	}

	merged := make([]CreateOrderItem, 0, len(quantities))
	for bookID, qty := range quantities {
		merged = append(merged, CreateOrderItem{BookID: bookID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].BookID < merged[j].BookID
	})
	return merged
}

// toCreateOrderResponse 领域实体 → 响应DTO
func toCreateOrderResponse(o *order.Order, titles map[uint]string) *CreateOrderResponse {
	lines := make([]OrderLine, len(o.Items))
	for i, item := range o.Items {
		lines[i] = OrderLine{
			BookID:    item.BookID,
			Title:     titles[item.BookID],
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal(),
			PriceYuan: formatPrice(item.Price),
		}
	}

	return &CreateOrderResponse{
		OrderID:         o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Total:           o.Total,
		TotalYuan:       formatPrice(o.Total),
		Status:          o.Status.String(),
		ShippingAddress: o.ShippingAddress,
		Items:           lines,
		CreatedAt:       o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// formatPrice 格式化价格(分→元)
func formatPrice(priceFen int64) string {
	yuan := float64(priceFen) / 100.0
	return fmt.Sprintf("%.2f", yuan)
}

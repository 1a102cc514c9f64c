package order

import (
	"time"
)

// OrderStatus 订单状态
// 设计说明:
// 1. 底层使用int(节省存储空间,便于索引)
// 2. 对外序列化为英文小写字符串(pending/processing/shipped/delivered/cancelled)
// 3. 状态值1-5递增,便于理解流转方向
type OrderStatus int

const (
	OrderStatusPending    OrderStatus = 1 // 待处理
	OrderStatusProcessing OrderStatus = 2 // 处理中
	OrderStatusShipped    OrderStatus = 3 // 已发货
	OrderStatusDelivered  OrderStatus = 4 // 已送达
	OrderStatusCancelled  OrderStatus = 5 // 已取消
)

// String 实现Stringer接口,返回API使用的状态字符串
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusProcessing:
		return "processing"
	case OrderStatusShipped:
		return "shipped"
	case OrderStatusDelivered:
		return "delivered"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus 解析状态字符串
// 不认识的字符串返回ErrInvalidStatus
func ParseStatus(s string) (OrderStatus, error) {
	switch s {
	case "pending":
		return OrderStatusPending, nil
	case "processing":
		return OrderStatusProcessing, nil
	case "shipped":
		return OrderStatusShipped, nil
	case "delivered":
		return OrderStatusDelivered, nil
	case "cancelled":
		return OrderStatusCancelled, nil
	default:
		return 0, ErrInvalidStatus
	}
}

// Order 订单实体(聚合根)
// 设计说明:
// 1. Order是聚合根,OrderItem是子实体
// 2. Total价格冗余存储(避免重复计算,防止改价攻击)
// 3. ShippingAddress可选(空字符串表示未填写)
type Order struct {
	ID              uint
	OrderNo         string      // 订单号(业务主键,全局唯一)
	UserID          uint        // 买家用户ID
	Total           int64       // 订单总金额(分),冗余字段
	Status          OrderStatus // 订单状态
	ShippingAddress string      // 收货地址(可选)
	Items           []OrderItem // 订单明细(聚合内的子实体)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem 订单明细项
// 设计说明:
// 1. 不是独立聚合根,必须通过Order访问
// 2. Price字段记录"下单时的价格"(历史价格快照),防止改价后历史订单金额变化
// 3. 不直接关联Book对象,只保存BookID(避免跨聚合引用)
type OrderItem struct {
	ID       uint
	OrderID  uint  // 所属订单ID
	BookID   uint  // 图书ID
	Quantity int   // 购买数量
	Price    int64 // 下单时的单价(分)
}

// Subtotal 明细小计(分)
func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// NewOrder 创建新订单(工厂方法)
// 初始状态为Pending,总金额由明细计算得出
func NewOrder(orderNo string, userID uint, items []OrderItem, shippingAddress string) *Order {
	now := time.Now()
	o := &Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Status:          OrderStatusPending,
		ShippingAddress: shippingAddress,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Total = o.CalculateTotal()
	return o
}

// CanTransitionTo 检查是否可以转换到目标状态
// 状态机设计,防止非法状态跳转(如已送达的订单不能回到待处理)
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled}, // 待处理→处理中/已取消
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},    // 处理中→已发货/已取消
		OrderStatusShipped:    {OrderStatusDelivered},                        // 已发货→已送达
		OrderStatusDelivered:  {},                                            // 终态
		OrderStatusCancelled:  {},                                            // 终态
	}

	allowedTargets, exists := transitions[o.Status]
	if !exists {
		return false
	}

	for _, allowed := range allowedTargets {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
// 先检查是否可以转换,转换成功更新UpdatedAt(审计追踪)
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Process 开始处理订单(领域行为)
func (o *Order) Process() error {
	return o.TransitionTo(OrderStatusProcessing)
}

// Ship 发货(领域行为)
func (o *Order) Ship() error {
	return o.TransitionTo(OrderStatusShipped)
}

// Deliver 确认送达(领域行为)
func (o *Order) Deliver() error {
	return o.TransitionTo(OrderStatusDelivered)
}

// Cancel 取消订单(领域行为)
func (o *Order) Cancel() error {
	return o.TransitionTo(OrderStatusCancelled)
}

// CalculateTotal 计算订单总金额
// 根据OrderItem列表实时计算,用于创建时生成Total
func (o *Order) CalculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// IsOwnedBy 检查订单是否属于指定用户
// 权限校验,防止用户访问他人订单
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

package order

import (
	"context"

	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/order"
	"github.com/yilin/bookshop/internal/domain/user"
)

// ListOrdersUseCase 订单列表查询用例
// 支持两种查询:全部订单(管理端)和指定用户的订单,均按创建时间倒序
// 列表项冗余展示字段:下单用户的姓名/邮箱、明细行的书名
type ListOrdersUseCase struct {
	orderRepo order.Repository
	userRepo  user.Repository
	bookRepo  book.Repository
}

// NewListOrdersUseCase 创建订单列表用例
func NewListOrdersUseCase(orderRepo order.Repository, userRepo user.Repository, bookRepo book.Repository) *ListOrdersUseCase {
	return &ListOrdersUseCase{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		bookRepo:  bookRepo,
	}
}

// ListOrdersRequest 列表查询请求DTO
// UserID为0表示查询全部订单
type ListOrdersRequest struct {
	UserID   uint
	Page     int
	PageSize int
}

// OrderUser 订单展示用的下单人信息
type OrderUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderSummary 列表项DTO
type OrderSummary struct {
	OrderID         uint        `json:"order_id"`
	OrderNo         string      `json:"order_no"`
	UserID          uint        `json:"user_id"`
	User            *OrderUser  `json:"user,omitempty"`
	Total           int64       `json:"total"`
	TotalYuan       string      `json:"total_yuan"`
	Status          string      `json:"status"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	Items           []OrderLine `json:"items"`
	CreatedAt       string      `json:"created_at"`
}

// ListOrdersResponse 列表查询响应DTO
type ListOrdersResponse struct {
	List       []OrderSummary `json:"list"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// Execute 执行列表查询
func (uc *ListOrdersUseCase) Execute(ctx context.Context, req ListOrdersRequest) (*ListOrdersResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	var orders []*order.Order
	var total int64
	var err error

	if req.UserID > 0 {
		orders, total, err = uc.orderRepo.ListByUserID(ctx, req.UserID, req.Page, req.PageSize)
	} else {
		orders, total, err = uc.orderRepo.List(ctx, req.Page, req.PageSize)
	}
	if err != nil {
		return nil, err
	}

	list := make([]OrderSummary, len(orders))
	for i, o := range orders {
		list[i] = toOrderSummary(o)
	}
	if err := uc.enrich(ctx, list); err != nil {
		return nil, err
	}

	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize != 0 {
		totalPages++
	}

	return &ListOrdersResponse{
		List:       list,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// enrich 批量补齐展示用冗余字段(下单人姓名/邮箱、明细书名)
// 用户或图书已被删除时对应字段留空,不影响订单本身返回
func (uc *ListOrdersUseCase) enrich(ctx context.Context, list []OrderSummary) error {
	if len(list) == 0 {
		return nil
	}

	// 收集涉及的图书ID(去重)
	bookIDSet := make(map[uint]struct{})
	for _, summary := range list {
		for _, line := range summary.Items {
			bookIDSet[line.BookID] = struct{}{}
		}
	}
	bookIDs := make([]uint, 0, len(bookIDSet))
	for id := range bookIDSet {
		bookIDs = append(bookIDs, id)
	}

	books, err := uc.bookRepo.FindByIDs(ctx, bookIDs)
	if err != nil {
		return err
	}

	// 同一用户的订单共享一次查询
	users := make(map[uint]*user.User)
	for i := range list {
		userID := list[i].UserID
		u, ok := users[userID]
		if !ok {
			u, err = uc.userRepo.FindByID(ctx, userID)
			if err != nil {
				// 用户可能已注销,订单仍需返回
				u = nil
			}
			users[userID] = u
		}
		if u != nil {
			list[i].User = &OrderUser{
				ID:    u.ID,
				Name:  u.Name,
				Email: u.Email,
			}
		}

		for j := range list[i].Items {
			if b, ok := books[list[i].Items[j].BookID]; ok {
				list[i].Items[j].Title = b.Title
			}
		}
	}

	return nil
}

// GetOrderUseCase 订单详情查询用例
type GetOrderUseCase struct {
	orderRepo order.Repository
	bookRepo  book.Repository
}

// NewGetOrderUseCase 创建订单详情用例
func NewGetOrderUseCase(orderRepo order.Repository, bookRepo book.Repository) *GetOrderUseCase {
	return &GetOrderUseCase{
		orderRepo: orderRepo,
		bookRepo:  bookRepo,
	}
}

// Execute 根据ID查询订单详情
func (uc *GetOrderUseCase) Execute(ctx context.Context, orderID uint) (*OrderSummary, error) {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	summary := toOrderSummary(o)

	bookIDs := make([]uint, len(summary.Items))
	for i, line := range summary.Items {
		bookIDs[i] = line.BookID
	}
	books, err := uc.bookRepo.FindByIDs(ctx, bookIDs)
	if err != nil {
		return nil, err
	}
	for i := range summary.Items {
		if b, ok := books[summary.Items[i].BookID]; ok {
			summary.Items[i].Title = b.Title
		}
	}

	return &summary, nil
}

// toOrderSummary 领域实体 → 列表项DTO
func toOrderSummary(o *order.Order) OrderSummary {
	lines := make([]OrderLine, len(o.Items))
	for i, item := range o.Items {
		lines[i] = OrderLine{
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal(),
			PriceYuan: formatPrice(item.Price),
		}
	}

	return OrderSummary{
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

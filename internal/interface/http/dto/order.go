package dto

// CreateOrderRequest HTTP下单请求
type CreateOrderRequest struct {
	Items           []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string                   `json:"shipping_address" binding:"omitempty,max=500" example:"北京市海淀区中关村大街1号"`
}

// CreateOrderItemRequest 订单明细项
type CreateOrderItemRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// OrderItemResponse 订单明细响应行
type OrderItemResponse struct {
	BookID    uint   `json:"book_id" example:"1"`
	Title     string `json:"title,omitempty" example:"Go语言实战"` // 展示用书名
	Quantity  int    `json:"quantity" example:"2"`
	Price     int64  `json:"price" example:"5900"` // 下单时单价(分)
	PriceYuan string `json:"price_yuan" example:"59.00"`
	Subtotal  int64  `json:"subtotal" example:"11800"` // 小计(分)
}

// OrderUserResponse 订单展示用的下单人信息
type OrderUserResponse struct {
	ID    uint   `json:"id" example:"1"`
	Name  string `json:"name" example:"张三"`
	Email string `json:"email" example:"zhangsan@example.com"`
}

// OrderResponse HTTP订单响应
type OrderResponse struct {
	OrderID         uint                `json:"order_id" example:"1"`
	OrderNo         string              `json:"order_no" example:"ORD1699248000123456"`
	UserID          uint                `json:"user_id" example:"1"`
	User            *OrderUserResponse  `json:"user,omitempty"`
	Total           int64               `json:"total" example:"11800"`
	TotalYuan       string              `json:"total_yuan" example:"118.00"`
	Status          string              `json:"status" example:"pending"`
	ShippingAddress string              `json:"shipping_address,omitempty" example:"北京市海淀区中关村大街1号"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       string              `json:"created_at" example:"2024-11-06 10:30:00"`
}

// ListOrdersRequest HTTP订单列表请求
type ListOrdersRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// ListOrdersResponse HTTP订单列表响应
type ListOrdersResponse struct {
	List       []OrderResponse `json:"list"`
	Total      int64           `json:"total" example:"100"`
	Page       int             `json:"page" example:"1"`
	PageSize   int             `json:"page_size" example:"20"`
	TotalPages int             `json:"total_pages" example:"5"`
}

// UpdateOrderStatusRequest HTTP订单状态更新请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled" example:"processing"`
}

// UpdateOrderStatusResponse HTTP订单状态更新响应
type UpdateOrderStatusResponse struct {
	OrderID   uint   `json:"order_id" example:"1"`
	OrderNo   string `json:"order_no" example:"ORD1699248000123456"`
	Status    string `json:"status" example:"processing"`
	UpdatedAt string `json:"updated_at" example:"2024-11-06 10:35:00"`
}

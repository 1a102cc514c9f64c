package dto

// AddCartItemRequest HTTP加购请求
type AddCartItemRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// UpdateCartItemRequest HTTP购物车数量更新请求
// Quantity为0等价于移除该图书
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=999" example:"3"`
}

// CartItemResponse 购物车行项响应
type CartItemResponse struct {
	BookID       uint   `json:"book_id" example:"1"`
	Title        string `json:"title" example:"Go语言实战"`
	Author       string `json:"author" example:"威廉·肯尼迪"`
	Quantity     int    `json:"quantity" example:"2"`
	Price        int64  `json:"price" example:"5900"` // 当前单价(分)
	PriceYuan    string `json:"price_yuan" example:"59.00"`
	Subtotal     int64  `json:"subtotal" example:"11800"`
	SubtotalYuan string `json:"subtotal_yuan" example:"118.00"`
	Available    bool   `json:"available" example:"true"` // 图书是否仍然在售
}

// CartSummaryResponse 购物车汇总响应
type CartSummaryResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count" example:"3"` // 商品总件数(数量之和)
	Total     int64              `json:"total" example:"11800"`  // 总价(分),只计算在售图书
	TotalYuan string             `json:"total_yuan" example:"118.00"`
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apporder "github.com/yilin/bookshop/internal/application/order"
	"github.com/yilin/bookshop/internal/interface/http/dto"
	"github.com/yilin/bookshop/internal/interface/http/middleware"
	"github.com/yilin/bookshop/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	createOrderUseCase  *apporder.CreateOrderUseCase
	listOrdersUseCase   *apporder.ListOrdersUseCase
	getOrderUseCase     *apporder.GetOrderUseCase
	updateStatusUseCase *apporder.UpdateStatusUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	createOrderUseCase *apporder.CreateOrderUseCase,
	listOrdersUseCase *apporder.ListOrdersUseCase,
	getOrderUseCase *apporder.GetOrderUseCase,
	updateStatusUseCase *apporder.UpdateStatusUseCase,
) *OrderHandler {
	return &OrderHandler{
		createOrderUseCase:  createOrderUseCase,
		listOrdersUseCase:   listOrdersUseCase,
		getOrderUseCase:     getOrderUseCase,
		updateStatusUseCase: updateStatusUseCase,
	}
}

// CreateOrder 创建订单
// @Summary      创建订单
// @Description  用户下单购买图书（需要登录），使用悲观锁防止超卖
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      201 {object} response.Response{data=dto.OrderResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误或库存不足"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)

	items := make([]apporder.CreateOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.CreateOrderItem{
			BookID:   item.BookID,
			Quantity: item.Quantity,
		}
	}

	result, err := h.createOrderUseCase.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, &dto.OrderResponse{
		OrderID:         result.OrderID,
		OrderNo:         result.OrderNo,
		UserID:          result.UserID,
		Total:           result.Total,
		TotalYuan:       result.TotalYuan,
		Status:          result.Status,
		ShippingAddress: result.ShippingAddress,
		Items:           toOrderItemResponses(result.Items),
		CreatedAt:       result.CreatedAt,
	})
}

// ListOrders 查询全部订单
// @Summary      订单列表
// @Description  分页查询全部订单（按下单时间倒序），每单带下单人和书名等展示字段
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=dto.ListOrdersResponse}
// @Failure      401 {object} response.Response "未登录"
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	h.listOrders(c, 0)
}

// ListUserOrders 查询指定用户的订单
// @Summary      用户订单列表
// @Description  分页查询指定用户的订单（按下单时间倒序）
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        userId path int true "用户ID"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=dto.ListOrdersResponse}
// @Failure      400 {object} response.Response "用户ID格式错误"
// @Failure      401 {object} response.Response "未登录"
// @Router       /orders/user/{userId} [get]
func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil || userID == 0 {
		response.ErrorWithCode(c, 40900, "用户ID格式错误")
		return
	}

	h.listOrders(c, uint(userID))
}

// listOrders 列表查询公共逻辑(userID为0查询全部)
func (h *OrderHandler) listOrders(c *gin.Context, userID uint) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.listOrdersUseCase.Execute(c.Request.Context(), apporder.ListOrdersRequest{
		UserID:   userID,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.OrderResponse, len(result.List))
	for i, o := range result.List {
		list[i] = *toOrderSummaryResponse(&o)
	}

	response.Success(c, &dto.ListOrdersResponse{
		List:       list,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

// GetOrder 查询订单详情
// @Summary      订单详情
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{orderId} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil || orderID == 0 {
		response.ErrorWithCode(c, 40900, "订单ID格式错误")
		return
	}

	result, err := h.getOrderUseCase.Execute(c.Request.Context(), uint(orderID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toOrderSummaryResponse(result))
}

// UpdateOrderStatus 更新订单状态
// @Summary      更新订单状态
// @Description  推进订单状态，非法状态流转会被拒绝
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Param        request body dto.UpdateOrderStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.UpdateOrderStatusResponse}
// @Failure      400 {object} response.Response "状态非法或流转不允许"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{orderId}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil || orderID == 0 {
		response.ErrorWithCode(c, 40900, "订单ID格式错误")
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.updateStatusUseCase.Execute(c.Request.Context(), apporder.UpdateStatusRequest{
		OrderID: uint(orderID),
		Status:  req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.UpdateOrderStatusResponse{
		OrderID:   result.OrderID,
		OrderNo:   result.OrderNo,
		Status:    result.Status,
		UpdatedAt: result.UpdatedAt,
	})
}

// toOrderSummaryResponse 组装订单响应DTO
func toOrderSummaryResponse(o *apporder.OrderSummary) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		OrderID:         o.OrderID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Total:           o.Total,
		TotalYuan:       o.TotalYuan,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		Items:           toOrderItemResponses(o.Items),
		CreatedAt:       o.CreatedAt,
	}
	if o.User != nil {
		resp.User = &dto.OrderUserResponse{
			ID:    o.User.ID,
			Name:  o.User.Name,
			Email: o.User.Email,
		}
	}
	return resp
}

// toOrderItemResponses 转换订单明细行
func toOrderItemResponses(items []apporder.OrderLine) []dto.OrderItemResponse {
	respItems := make([]dto.OrderItemResponse, len(items))
	for i, item := range items {
		respItems[i] = dto.OrderItemResponse{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
			PriceYuan: item.PriceYuan,
			Subtotal:  item.Subtotal,
		}
	}
	return respItems
}

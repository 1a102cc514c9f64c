package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcart "github.com/yilin/bookshop/internal/application/cart"
	"github.com/yilin/bookshop/internal/interface/http/dto"
	"github.com/yilin/bookshop/internal/interface/http/middleware"
	"github.com/yilin/bookshop/pkg/response"
)

// cartSessionHeader 匿名购物车的会话Header
// 登录用户的购物车键为"user:{id}",匿名用户由服务端生成UUID会话,
// 客户端后续请求携带该Header定位同一购物车
const cartSessionHeader = "X-Cart-Session"

// CartHandler 购物车HTTP处理器
type CartHandler struct {
	cartUseCase *appcart.CartUseCase
}

// NewCartHandler 创建购物车处理器
func NewCartHandler(cartUseCase *appcart.CartUseCase) *CartHandler {
	return &CartHandler{
		cartUseCase: cartUseCase,
	}
}

// cartKey 解析当前请求的购物车键
// 登录优先:已登录用户固定使用"user:{id}",忽略会话Header
// 匿名用户:沿用请求Header中的会话ID,没有则生成新的并写回响应Header
func (h *CartHandler) cartKey(c *gin.Context) string {
	if userID := middleware.GetUserID(c); userID != 0 {
		return fmt.Sprintf("user:%d", userID)
	}

	sessionID := c.GetHeader(cartSessionHeader)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	c.Header(cartSessionHeader, sessionID)
	return sessionID
}

// GetCart 查询购物车
// @Summary      查询购物车
// @Description  返回购物车汇总，单价和小计按图书当前价格实时计算
// @Tags         购物车模块
// @Produce      json
// @Param        X-Cart-Session header string false "匿名购物车会话ID（登录用户无需携带）"
// @Success      200 {object} response.Response{data=dto.CartSummaryResponse}
// @Router       /cart/summary [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	result, err := h.cartUseCase.GetSummary(c.Request.Context(), h.cartKey(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toCartSummaryResponse(result))
}

// AddItem 添加图书到购物车
// @Summary      加入购物车
// @Description  添加图书到购物车，已存在则累加数量
// @Tags         购物车模块
// @Accept       json
// @Produce      json
// @Param        X-Cart-Session header string false "匿名购物车会话ID（登录用户无需携带）"
// @Param        request body dto.AddCartItemRequest true "图书与数量"
// @Success      200 {object} response.Response{data=dto.CartSummaryResponse}
// @Failure      400 {object} response.Response "参数错误"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /cart/add [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	key := h.cartKey(c)
	if err := h.cartUseCase.AddItem(c.Request.Context(), key, req.BookID, req.Quantity); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithSummary(c, key)
}

// UpdateItem 更新购物车中图书的数量
// @Summary      更新购物车数量
// @Description  直接设置某图书的数量（0等价于移除，不在购物车中时为空操作）
// @Tags         购物车模块
// @Accept       json
// @Produce      json
// @Param        X-Cart-Session header string false "匿名购物车会话ID（登录用户无需携带）"
// @Param        bookId path int true "图书ID"
// @Param        request body dto.UpdateCartItemRequest true "目标数量"
// @Success      200 {object} response.Response{data=dto.CartSummaryResponse}
// @Failure      400 {object} response.Response "参数错误"
// @Router       /cart/update/{bookId} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	bookID, err := strconv.ParseUint(c.Param("bookId"), 10, 32)
	if err != nil || bookID == 0 {
		response.ErrorWithCode(c, 40900, "图书ID格式错误")
		return
	}

	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	key := h.cartKey(c)
	if err := h.cartUseCase.UpdateQuantity(c.Request.Context(), key, uint(bookID), *req.Quantity); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithSummary(c, key)
}

// RemoveItem 从购物车移除图书
// @Summary      移出购物车
// @Description  从购物车中移除指定图书，不在购物车中时为幂等空操作
// @Tags         购物车模块
// @Produce      json
// @Param        X-Cart-Session header string false "匿名购物车会话ID（登录用户无需携带）"
// @Param        bookId path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.CartSummaryResponse}
// @Router       /cart/remove/{bookId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	bookID, err := strconv.ParseUint(c.Param("bookId"), 10, 32)
	if err != nil || bookID == 0 {
		response.ErrorWithCode(c, 40900, "图书ID格式错误")
		return
	}

	key := h.cartKey(c)
	h.cartUseCase.RemoveItem(c.Request.Context(), key, uint(bookID))

	h.respondWithSummary(c, key)
}

// ClearCart 清空购物车
// @Summary      清空购物车
// @Tags         购物车模块
// @Produce      json
// @Param        X-Cart-Session header string false "匿名购物车会话ID（登录用户无需携带）"
// @Success      200 {object} response.Response{data=dto.CartSummaryResponse}
// @Router       /cart/clear [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	key := h.cartKey(c)
	h.cartUseCase.Clear(c.Request.Context(), key)

	h.respondWithSummary(c, key)
}

// respondWithSummary 操作成功后返回最新购物车汇总
func (h *CartHandler) respondWithSummary(c *gin.Context, key string) {
	result, err := h.cartUseCase.GetSummary(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toCartSummaryResponse(result))
}

// toCartSummaryResponse 组装购物车汇总响应
func toCartSummaryResponse(s *appcart.Summary) *dto.CartSummaryResponse {
	items := make([]dto.CartItemResponse, len(s.Items))
	for i, item := range s.Items {
		items[i] = dto.CartItemResponse{
			BookID:       item.BookID,
			Title:        item.Title,
			Author:       item.Author,
			Quantity:     item.Quantity,
			Price:        item.Price,
			PriceYuan:    item.PriceYuan,
			Subtotal:     item.Subtotal,
			SubtotalYuan: item.SubtotalYuan,
			Available:    item.Available,
		}
	}

	return &dto.CartSummaryResponse{
		Items:     items,
		ItemCount: s.ItemCount,
		Total:     s.Total,
		TotalYuan: s.TotalYuan,
	}
}

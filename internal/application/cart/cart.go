// Package cart 购物车用例
//
// 购物车本身只记录bookID和数量,结算信息(单价、小计、总价)
// 在每次查询时按图书当前价格实时计算,保证展示价格始终最新。
package cart

import (
	"context"
	"fmt"

	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/cart"
	"github.com/yilin/bookshop/pkg/metrics"
)

// CartUseCase 购物车用例
// 所有操作以会话键定位购物车:登录用户"user:{id}",匿名会话UUID
type CartUseCase struct {
	store    *cart.Store
	bookRepo book.Repository
}

// NewCartUseCase 创建购物车用例
func NewCartUseCase(store *cart.Store, bookRepo book.Repository) *CartUseCase {
	return &CartUseCase{
		store:    store,
		bookRepo: bookRepo,
	}
}

// CartLine 结算行DTO
type CartLine struct {
	BookID       uint   `json:"book_id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Quantity     int    `json:"quantity"`
	Price        int64  `json:"price"` // 当前单价(分)
	PriceYuan    string `json:"price_yuan"`
	Subtotal     int64  `json:"subtotal"` // 小计(分)
	SubtotalYuan string `json:"subtotal_yuan"`
	Available    bool   `json:"available"` // 图书是否仍然在售
}

// Summary 购物车汇总DTO
type Summary struct {
	Items     []CartLine `json:"items"`
	ItemCount int        `json:"item_count"` // 商品总件数(数量之和)
	Total     int64      `json:"total"`      // 总价(分),只计算在售图书
	TotalYuan string     `json:"total_yuan"`
}

// GetSummary 查询购物车汇总
// 按图书当前价格实时计算;已下架图书保留在列表中但标记不可用且不计入总价
func (uc *CartUseCase) GetSummary(ctx context.Context, key string) (*Summary, error) {
	c := uc.store.Get(key)
	lines := c.Lines()

	ids := make([]uint, len(lines))
	for i, line := range lines {
		ids[i] = line.BookID
	}

	books, err := uc.bookRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]CartLine, 0, len(lines))
	var total int64
	itemCount := 0
	for _, line := range lines {
		itemCount += line.Quantity
		item := CartLine{
			BookID:   line.BookID,
			Quantity: line.Quantity,
		}
		if b, ok := books[line.BookID]; ok {
			subtotal := b.Price * int64(line.Quantity)
			item.Title = b.Title
			item.Author = b.Author
			item.Price = b.Price
			item.PriceYuan = formatPrice(b.Price)
			item.Subtotal = subtotal
			item.SubtotalYuan = formatPrice(subtotal)
			item.Available = true
			total += subtotal
		}
		items = append(items, item)
	}

	return &Summary{
		Items:     items,
		ItemCount: itemCount,
		Total:     total,
		TotalYuan: formatPrice(total),
	}, nil
}

// AddItem 添加图书到购物车
// 图书必须存在;已在购物车中则累加数量
func (uc *CartUseCase) AddItem(ctx context.Context, key string, bookID uint, quantity int) error {
	// 校验图书存在(不校验库存:库存在下单时以行锁为准)
	if _, err := uc.bookRepo.FindByID(ctx, bookID); err != nil {
		return err
	}

	if err := uc.store.Get(key).AddItem(bookID, quantity); err != nil {
		return err
	}

	metrics.IncCounterVec(metrics.CartOperationsTotal, map[string]string{"op": "add"})
	return nil
}

// RemoveItem 从购物车移除图书(不在购物车中时为幂等空操作)
func (uc *CartUseCase) RemoveItem(ctx context.Context, key string, bookID uint) {
	uc.store.Get(key).RemoveItem(bookID)
	metrics.IncCounterVec(metrics.CartOperationsTotal, map[string]string{"op": "remove"})
}

// UpdateQuantity 设置购物车中图书的数量(0等价于移除,不在购物车中时为空操作)
func (uc *CartUseCase) UpdateQuantity(ctx context.Context, key string, bookID uint, quantity int) error {
	if err := uc.store.Get(key).UpdateQuantity(bookID, quantity); err != nil {
		return err
	}

	metrics.IncCounterVec(metrics.CartOperationsTotal, map[string]string{"op": "update"})
	return nil
}

// Clear 清空购物车
func (uc *CartUseCase) Clear(ctx context.Context, key string) {
	uc.store.Get(key).Clear()
	metrics.IncCounterVec(metrics.CartOperationsTotal, map[string]string{"op": "clear"})
}

// Evict 丢弃购物车(登出或下单完成后调用)
func (uc *CartUseCase) Evict(key string) {
	uc.store.Delete(key)
}

// Lines 返回购物车行项(供下单用例读取)
func (uc *CartUseCase) Lines(key string) []cart.Line {
	c := uc.store.Peek(key)
	if c == nil {
		return nil
	}
	return c.Lines()
}

// formatPrice 格式化价格(分→元)
func formatPrice(priceFen int64) string {
	yuan := float64(priceFen) / 100.0
	return fmt.Sprintf("%.2f", yuan)
}

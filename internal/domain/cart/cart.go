// Package cart 购物车领域模型
//
// 购物车是会话级聚合,只保存"买什么、买几本"(bookID→数量),
// 不保存价格快照:结算展示时按图书当前价格实时计算,
// 下单时才在订单明细中固化价格。
package cart

import (
	"sort"
	"sync"
	"time"
)

// Line 购物车行项
type Line struct {
	BookID   uint
	Quantity int
}

// Cart 购物车实体
// 并发说明:同一购物车可能被并发请求修改(如用户双开页面),
// 内部使用互斥锁保证单车操作原子性
type Cart struct {
	mu        sync.Mutex
	items     map[uint]int // bookID → 数量
	updatedAt time.Time
}

// New 创建空购物车
func New() *Cart {
	return &Cart{
		items:     make(map[uint]int),
		updatedAt: time.Now(),
	}
}

// AddItem 添加图书(已存在则累加数量)
// 业务规则:数量必须>0
func (c *Cart) AddItem(bookID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[bookID] += quantity
	c.updatedAt = time.Now()
	return nil
}

// RemoveItem 移除图书(整行删除)
// 图书不在购物车中时为幂等空操作
func (c *Cart) RemoveItem(bookID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, bookID)
	c.updatedAt = time.Now()
}

// UpdateQuantity 设置图书数量(覆盖而非累加)
// 业务规则:
// - 数量为0等价于移除该行
// - 数量为负返回ErrInvalidQuantity
// - 图书不在购物车中时为空操作
func (c *Cart) UpdateQuantity(bookID uint, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[bookID]; !ok {
		return nil
	}
	if quantity == 0 {
		delete(c.items, bookID)
	} else {
		c.items[bookID] = quantity
	}
	c.updatedAt = time.Now()
	return nil
}

// Clear 清空购物车
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[uint]int)
	c.updatedAt = time.Now()
}

// Lines 返回行项快照(稳定遍历,调用方可安全修改)
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, 0, len(c.items))
	for bookID, qty := range c.items {
		lines = append(lines, Line{BookID: bookID, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].BookID < lines[j].BookID })
	return lines
}

// Quantity 查询某图书的数量(不存在返回0)
func (c *Cart) Quantity(bookID uint) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[bookID]
}

// IsEmpty 购物车是否为空
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Size 行项数量(不同图书的种数,非总册数)
func (c *Cart) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ItemCount 商品总件数(所有行项数量之和)
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, qty := range c.items {
		total += qty
	}
	return total
}

// UpdatedAt 最后一次修改时间(用于空闲清理)
func (c *Cart) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

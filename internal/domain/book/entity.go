package book

import (
	"time"
)

// Book 图书实体(聚合根)
// DDD设计说明:
// 1. Book是图书聚合的根实体,包含图书的核心属性
// 2. 价格使用int64存储"分"为单位(避免浮点数精度问题)
// 3. ISBN可选,填写时数据库层保证唯一性(空字符串表示未填写)
type Book struct {
	ID          uint
	Title       string // 书名
	Author      string // 作者
	Description string // 图书描述
	Price       int64  // 价格(单位:分,1元=100分)
	Stock       int    // 库存数量
	ISBN        string // ISBN号(可选,国际标准书号)
	Image       string // 封面图片URL(可选)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBook 创建新图书(工厂方法)
// 参数校验由领域服务完成,此处只负责组装
func NewBook(title, author, description string, price int64, stock int, isbn, image string) *Book {
	now := time.Now()
	return &Book{
		Title:       title,
		Author:      author,
		Description: description,
		Price:       price,
		Stock:       stock,
		ISBN:        isbn,
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasISBN 是否填写了ISBN
func (b *Book) HasISBN() bool {
	return b.ISBN != ""
}

// UpdatePrice 更新价格(领域行为)
// 业务规则:价格必须>0
func (b *Book) UpdatePrice(newPrice int64) error {
	if newPrice <= 0 {
		return ErrInvalidPrice
	}
	b.Price = newPrice
	b.UpdatedAt = time.Now()
	return nil
}

// UpdateStock 更新库存(领域行为)
// 业务规则:库存不能为负数
func (b *Book) UpdateStock(newStock int) error {
	if newStock < 0 {
		return ErrInvalidStock
	}
	b.Stock = newStock
	b.UpdatedAt = time.Now()
	return nil
}

// DecrStock 扣减库存(用于订单创建)
// 业务规则:扣减后库存不能为负数
func (b *Book) DecrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if b.Stock < quantity {
		return ErrInsufficientStock
	}
	b.Stock -= quantity
	b.UpdatedAt = time.Now()
	return nil
}

// IncrStock 增加库存(用于订单取消、补货)
func (b *Book) IncrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	b.Stock += quantity
	b.UpdatedAt = time.Now()
	return nil
}

// CanFulfill 检查当前库存能否满足请求数量
func (b *Book) CanFulfill(quantity int) bool {
	return quantity > 0 && b.Stock >= quantity
}

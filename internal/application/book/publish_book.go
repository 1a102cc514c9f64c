package book

import (
	"context"

	"github.com/yilin/bookshop/internal/domain/book"
)

// PublishBookUseCase 图书上架用例
// 设计说明:
// 1. 应用层负责用例编排,协调领域服务完成业务流程
// 2. 输入输出使用DTO(Data Transfer Object),与HTTP层解耦
// 3. 此用例比较简单,只需调用领域服务即可
type PublishBookUseCase struct {
	bookService book.Service
}

// NewPublishBookUseCase 创建上架用例
func NewPublishBookUseCase(bookService book.Service) *PublishBookUseCase {
	return &PublishBookUseCase{
		bookService: bookService,
	}
}

// PublishBookRequest 上架请求DTO
type PublishBookRequest struct {
	Title       string // 书名
	Author      string // 作者
	Description string // 图书描述
	Price       int64  // 价格(分)
	Stock       int    // 初始库存
	ISBN        string // ISBN号(可选)
	Image       string // 封面图URL(可选)
}

// PublishBookResponse 上架响应DTO
type PublishBookResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Price       int64  `json:"price"` // 价格(分)
	Stock       int    `json:"stock"`
	ISBN        string `json:"isbn,omitempty"`
	Image       string `json:"image,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Execute 执行上架用例
// 业务规则校验(必填字段、价格、库存、ISBN)由领域服务负责,
// 应用层只做流程编排
func (uc *PublishBookUseCase) Execute(ctx context.Context, req PublishBookRequest) (*PublishBookResponse, error) {
	b, err := uc.bookService.PublishBook(
		ctx,
		req.Title,
		req.Author,
		req.Description,
		req.Price,
		req.Stock,
		req.ISBN,
		req.Image,
	)
	if err != nil {
		return nil, err
	}

	return &PublishBookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Price:       b.Price,
		Stock:       b.Stock,
		ISBN:        b.ISBN,
		Image:       b.Image,
		CreatedAt:   b.CreatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

package book

import (
	"context"
	"regexp"
)

// Service 图书领域服务接口
// 设计说明:
// 1. 领域服务封装跨实体的业务逻辑和业务规则校验
// 2. 不依赖具体的Repository实现(依赖倒置)
type Service interface {
	// PublishBook 发布图书(上架)
	// 业务规则:
	// - 书名、作者、描述必填
	// - 价格必须>0
	// - 库存必须>=0
	// - ISBN可选,填写时格式必须合法(10位或13位数字)且不能重复
	PublishBook(ctx context.Context, title, author, description string, price int64, stock int, isbn, image string) (*Book, error)

	// GetBookByID 根据ID获取图书详情
	GetBookByID(ctx context.Context, id uint) (*Book, error)

	// GetBookByISBN 根据ISBN获取图书
	GetBookByISBN(ctx context.Context, isbn string) (*Book, error)

	// ListBooks 分页查询图书列表
	// 公开接口,不需要权限校验
	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

// service 领域服务实现
type service struct {
	repo Repository
}

// NewService 创建图书领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// PublishBook 发布图书
func (s *service) PublishBook(ctx context.Context, title, author, description string, price int64, stock int, isbn, image string) (*Book, error) {
	// 1. 必填字段校验
	if title == "" || author == "" || description == "" {
		return nil, ErrMissingField
	}

	// 2. 价格校验
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	// 3. 库存校验
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	// 4. ISBN可选,填写时校验格式和唯一性
	if isbn != "" {
		if !isValidISBN(isbn) {
			return nil, ErrInvalidISBN
		}
		existingBook, err := s.repo.FindByISBN(ctx, isbn)
		if err == nil && existingBook != nil {
			return nil, ErrISBNDuplicate
		}
		// ErrBookNotFound以外的错误直接返回
		if err != nil && err != ErrBookNotFound {
			return nil, err
		}
	}

	// 5. 创建图书实体并持久化
	book := NewBook(title, author, description, price, stock, isbn, image)
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	return book, nil
}

// GetBookByID 根据ID获取图书
func (s *service) GetBookByID(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

// GetBookByISBN 根据ISBN获取图书
func (s *service) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	if !isValidISBN(isbn) {
		return nil, ErrInvalidISBN
	}
	return s.repo.FindByISBN(ctx, isbn)
}

// ListBooks 分页查询图书列表
func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params)
}

// isValidISBN 校验ISBN格式
// 支持:
// - ISBN-10: 10位数字
// - ISBN-13: 13位数字,如9787115428028
// 简化实现:去除分隔符后只检查位数(生产环境应校验校验位)
func isValidISBN(isbn string) bool {
	re := regexp.MustCompile(`[^0-9Xx]`)
	cleanISBN := re.ReplaceAllString(isbn, "")

	length := len(cleanISBN)
	return length == 10 || length == 13
}

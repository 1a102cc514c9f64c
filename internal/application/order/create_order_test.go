package order

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/order"
	"github.com/yilin/bookshop/internal/domain/user"
	apperrors "github.com/yilin/bookshop/pkg/errors"
	"github.com/yilin/bookshop/pkg/metrics"
)

func init() {
	metrics.InitMetrics()
}

// =========================================
// 测试替身:模拟仓储与事务管理器
// =========================================

// fakeStore 内存数据,模拟数据库
// 行锁语义:LockByID获取的互斥锁持有到事务结束,
// 模拟SELECT FOR UPDATE在COMMIT时释放行锁的行为
type fakeStore struct {
	mu    sync.Mutex
	books map[uint]*book.Book
	locks map[uint]*sync.Mutex
}

func newFakeStore(books ...*book.Book) *fakeStore {
	s := &fakeStore{
		books: make(map[uint]*book.Book),
		locks: make(map[uint]*sync.Mutex),
	}
	for _, b := range books {
		s.books[b.ID] = b
		s.locks[b.ID] = &sync.Mutex{}
	}
	return s
}

type fakeTxKey struct{}

// fakeTx 记录事务内获取的行锁,事务结束时统一释放
type fakeTx struct {
	held []*sync.Mutex
}

func (t *fakeTx) release() {
	// 逆序释放
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

type fakeTxManager struct{}

func (m *fakeTxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &fakeTx{}
	defer tx.release()
	return fn(context.WithValue(ctx, fakeTxKey{}, tx))
}

type fakeBookRepo struct {
	store *fakeStore
}

func (r *fakeBookRepo) Create(ctx context.Context, b *book.Book) error { return nil }

func (r *fakeBookRepo) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]*book.Book, error) {
	result := make(map[uint]*book.Book)
	for _, id := range ids {
		if b, err := r.FindByID(ctx, id); err == nil {
			result[id] = b
		}
	}
	return result, nil
}

func (r *fakeBookRepo) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	return nil, book.ErrBookNotFound
}

func (r *fakeBookRepo) Update(ctx context.Context, b *book.Book) error { return nil }
func (r *fakeBookRepo) Delete(ctx context.Context, id uint) error      { return nil }

func (r *fakeBookRepo) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	return nil, 0, nil
}

/// LockByID 模拟SELECT FOR UPDATE:
// 获取行锁后返回当前数据,锁持有到事务结束
func (r *fakeBookRepo) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	r.store.mu.Lock()
	rowLock, ok := r.store.locks[id]
	r.store.mu.Unlock()
	if !ok {
		return nil, book.ErrBookNotFound
	}

	rowLock.Lock()
	if tx, ok := ctx.Value(fakeTxKey{}).(*fakeTx); ok {
		tx.held = append(tx.held, rowLock)
	} else {
		rowLock.Unlock()
		return nil, book.ErrBookNotFound
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *r.store.books[id]
	return &copied, nil
}

func (r *fakeBookRepo) UpdateStock(ctx context.Context, id uint, delta int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	if b.Stock+delta < 0 {
		return book.ErrInsufficientStock
	}
	b.Stock += delta
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders []*order.Order
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	copied := *o
	r.orders = append(r.orders, &copied)
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			copied := *o
			return &copied, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.orders {
		if stored.ID == o.ID {
			stored.Status = o.Status
			stored.UpdatedAt = o.UpdatedAt
			return nil
		}
	}
	return order.ErrOrderNotFound
}

func (r *fakeOrderRepo) List(ctx context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 按创建顺序倒序(新订单在前)
	result := make([]*order.Order, 0, len(r.orders))
	for i := len(r.orders) - 1; i >= 0; i-- {
		copied := *r.orders[i]
		result = append(result, &copied)
	}
	return result, int64(len(r.orders)), nil
}

func (r *fakeOrderRepo) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	all, _, _ := r.List(ctx, page, pageSize)
	result := make([]*order.Order, 0)
	for _, o := range all {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeUserRepo struct {
	users map[uint]*user.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error { return nil }

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error { return nil }
func (r *fakeUserRepo) Delete(ctx context.Context, id uint) error      { return nil }

// capturingPublisher 记录发布的事件
type capturingPublisher struct {
	mu     sync.Mutex
	events []OrderCreatedEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := message.(OrderCreatedEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

// =========================================
// 测试用例
// =========================================

func newCreateOrderFixture(books ...*book.Book) (*CreateOrderUseCase, *fakeStore, *fakeOrderRepo, *capturingPublisher) {
	store := newFakeStore(books...)
	orderRepo := &fakeOrderRepo{}
	publisher := &capturingPublisher{}
	userRepo := &fakeUserRepo{users: map[uint]*user.User{
		1: {ID: 1, Name: "张三", Email: "zhangsan@example.com"},
	}}

	uc := NewCreateOrderUseCase(
		orderRepo,
		&fakeBookRepo{store: store},
		userRepo,
		&fakeTxManager{},
		publisher,
		zap.NewNop(),
	)
	return uc, store, orderRepo, publisher
}

func testBook(id uint, price int64, stock int) *book.Book {
	return &book.Book{ID: id, Title: "Go程序设计语言", Author: "Donovan", Price: price, Stock: stock}
}

func TestCreateOrder_Success(t *testing.T) {
	uc, store, orderRepo, publisher := newCreateOrderFixture(
		testBook(1, 1250, 10),
		testBook(2, 3990, 5),
	)

	resp, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items: []CreateOrderItem{
			{BookID: 1, Quantity: 2},
			{BookID: 2, Quantity: 1},
		},
		ShippingAddress: "海淀区中关村大街1号",
	})

	require.NoError(t, err)
	// 1250*2 + 3990 = 6490
	assert.Equal(t, int64(6490), resp.Total)
	assert.Equal(t, "64.90", resp.TotalYuan)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "海淀区中关村大街1号", resp.ShippingAddress)
	assert.Len(t, resp.Items, 2)
	assert.NotEmpty(t, resp.OrderNo)

	// 库存已扣减
	assert.Equal(t, 8, store.books[1].Stock)
	assert.Equal(t, 4, store.books[2].Stock)

	// 订单已持久化,事件已发布
	assert.Equal(t, 1, orderRepo.count())
	require.Len(t, publisher.events, 1)
	assert.Equal(t, resp.OrderNo, publisher.events[0].OrderNo)
	assert.Equal(t, int64(6490), publisher.events[0].Total)
}

func TestCreateOrder_PriceSnapshot(t *testing.T) {
	// 明细价格来自数据库当前价,而不是请求
	uc, _, _, _ := newCreateOrderFixture(testBook(1, 2500, 3))

	resp, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items:  []CreateOrderItem{{BookID: 1, Quantity: 1}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2500), resp.Items[0].Price)
	assert.Equal(t, "25.00", resp.Items[0].PriceYuan)
}

func TestCreateOrder_MergesDuplicateLines(t *testing.T) {
	uc, store, _, _ := newCreateOrderFixture(testBook(1, 1000, 10))

	resp, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items: []CreateOrderItem{
			{BookID: 1, Quantity: 2},
			{BookID: 1, Quantity: 3},
		},
	})

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
	assert.Equal(t, int64(5000), resp.Total)
	assert.Equal(t, 5, store.books[1].Stock)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	uc, _, orderRepo, _ := newCreateOrderFixture(testBook(1, 1000, 10))

	_, err := uc.Execute(context.Background(), CreateOrderRequest{UserID: 1})

	assert.ErrorIs(t, err, order.ErrInvalidOrderItems)
	assert.Equal(t, 0, orderRepo.count())
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	uc, store, orderRepo, _ := newCreateOrderFixture(testBook(1, 1000, 10))

	_, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items:  []CreateOrderItem{{BookID: 1, Quantity: 0}},
	})

	assert.ErrorIs(t, err, order.ErrInvalidQuantity)
	assert.Equal(t, 10, store.books[1].Stock)
	assert.Equal(t, 0, orderRepo.count())
}

func TestCreateOrder_UserNotFound(t *testing.T) {
	uc, _, orderRepo, _ := newCreateOrderFixture(testBook(1, 1000, 10))

	_, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 999,
		Items:  []CreateOrderItem{{BookID: 1, Quantity: 1}},
	})

	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.Equal(t, 0, orderRepo.count())
}

func TestCreateOrder_BookNotFound(t *testing.T) {
	uc, _, orderRepo, _ := newCreateOrderFixture(testBook(1, 1000, 10))

	_, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items:  []CreateOrderItem{{BookID: 99, Quantity: 1}},
	})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeBookNotFound, appErr.Code)
	assert.Contains(t, appErr.Message, "99")
	assert.Equal(t, 0, orderRepo.count())
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	uc, store, orderRepo, publisher := newCreateOrderFixture(
		testBook(1, 1000, 10),
		testBook(2, 2000, 1),
	)

	_, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items: []CreateOrderItem{
			{BookID: 1, Quantity: 2},
			{BookID: 2, Quantity: 3}, // 库存只有1
		},
	})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeInsufficientStock, appErr.Code)

	// 整单失败:任何一本书的库存都不应被扣减
	assert.Equal(t, 10, store.books[1].Stock)
	assert.Equal(t, 1, store.books[2].Stock)
	assert.Equal(t, 0, orderRepo.count())
	assert.Empty(t, publisher.events)
}

func TestCreateOrder_ConcurrentLastCopy(t *testing.T) {
	// 两个并发请求抢最后一本:恰好一单成功,不超卖
	uc, store, orderRepo, _ := newCreateOrderFixture(testBook(1, 1500, 1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), CreateOrderRequest{
				UserID: 1,
				Items:  []CreateOrderItem{{BookID: 1, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrCodeInsufficientStock, appErr.Code)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, store.books[1].Stock)
	assert.Equal(t, 1, orderRepo.count())
}

func TestCreateOrder_NilPublisher(t *testing.T) {
	// 未配置消息队列时下单正常工作
	store := newFakeStore(testBook(1, 1000, 5))
	uc := NewCreateOrderUseCase(
		&fakeOrderRepo{},
		&fakeBookRepo{store: store},
		&fakeUserRepo{users: map[uint]*user.User{1: {ID: 1}}},
		&fakeTxManager{},
		nil,
		zap.NewNop(),
	)

	_, err := uc.Execute(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items:  []CreateOrderItem{{BookID: 1, Quantity: 1}},
	})

	require.NoError(t, err)
}

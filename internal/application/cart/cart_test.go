package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yilin/bookshop/internal/domain/book"
	cartdomain "github.com/yilin/bookshop/internal/domain/cart"
	"github.com/yilin/bookshop/pkg/metrics"
)

func init() {
	metrics.InitMetrics()
}

// fakeBookRepo 内存图书仓储,只实现购物车用例用到的查询方法
type fakeBookRepo struct {
	books map[uint]*book.Book
}

func newFakeBookRepo(books ...*book.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: make(map[uint]*book.Book)}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeBookRepo) Create(ctx context.Context, b *book.Book) error { return nil }

func (r *fakeBookRepo) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	return b, nil
}

func (r *fakeBookRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]*book.Book, error) {
	result := make(map[uint]*book.Book)
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
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

func (r *fakeBookRepo) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBookRepo) UpdateStock(ctx context.Context, id uint, delta int) error { return nil }

func testBook(id uint, title string, price int64) *book.Book {
	return &book.Book{
		ID:     id,
		Title:  title,
		Author: "测试作者",
		Price:  price,
		Stock:  10,
	}
}

func newFixture(books ...*book.Book) (*CartUseCase, *cartdomain.Store) {
	store := cartdomain.NewStore(0, 0)
	return NewCartUseCase(store, newFakeBookRepo(books...)), store
}

func TestCartUseCase_AddAndSummary(t *testing.T) {
	uc, _ := newFixture(
		testBook(1, "Go语言实战", 1250),
		testBook(2, "深入理解计算机系统", 3990),
	)
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 2))
	require.NoError(t, uc.AddItem(ctx, "user:1", 2, 1))

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)

	// 件数为数量之和(2+1),非行项数
	assert.Equal(t, 3, summary.ItemCount)
	assert.Equal(t, int64(1250*2+3990), summary.Total)
	assert.Equal(t, "64.90", summary.TotalYuan)

	require.Len(t, summary.Items, 2)
	first := summary.Items[0]
	assert.Equal(t, uint(1), first.BookID)
	assert.Equal(t, "Go语言实战", first.Title)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, int64(2500), first.Subtotal)
	assert.Equal(t, "25.00", first.SubtotalYuan)
	assert.True(t, first.Available)
}

func TestCartUseCase_AddAccumulates(t *testing.T) {
	uc, _ := newFixture(testBook(1, "Go语言实战", 1250))
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 2))
	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 3))

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 5, summary.Items[0].Quantity)
}

func TestCartUseCase_AddUnknownBook(t *testing.T) {
	uc, _ := newFixture(testBook(1, "Go语言实战", 1250))

	err := uc.AddItem(context.Background(), "user:1", 99, 1)
	assert.True(t, errors.Is(err, book.ErrBookNotFound))

	// 校验失败不应创建行项
	summary, err := uc.GetSummary(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestCartUseCase_SummaryPriceIsLive(t *testing.T) {
	b := testBook(1, "Go语言实战", 1250)
	uc, _ := newFixture(b)
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 1))

	// 加购后改价,汇总应反映新价格
	b.Price = 1500

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, int64(1500), summary.Items[0].Price)
	assert.Equal(t, "15.00", summary.TotalYuan)
}

func TestCartUseCase_SummaryUnavailableBook(t *testing.T) {
	b := testBook(1, "Go语言实战", 1250)
	repo := newFakeBookRepo(b, testBook(2, "深入理解计算机系统", 3990))
	store := cartdomain.NewStore(0, 0)
	uc := NewCartUseCase(store, repo)
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 1))
	require.NoError(t, uc.AddItem(ctx, "user:1", 2, 1))

	// 图书下架后,行项保留但不计入总价
	delete(repo.books, 1)

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 2)

	assert.False(t, summary.Items[0].Available)
	assert.Equal(t, int64(0), summary.Items[0].Subtotal)
	assert.True(t, summary.Items[1].Available)
	assert.Equal(t, int64(3990), summary.Total)
}

func TestCartUseCase_UpdateAndRemove(t *testing.T) {
	uc, _ := newFixture(testBook(1, "Go语言实战", 1250))
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 2))
	require.NoError(t, uc.UpdateQuantity(ctx, "user:1", 1, 7))

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Items[0].Quantity)

	uc.RemoveItem(ctx, "user:1", 1)

	summary, err = uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.Equal(t, "0.00", summary.TotalYuan)
}

func TestCartUseCase_RemoveMissingItem(t *testing.T) {
	uc, _ := newFixture(testBook(1, "Go语言实战", 1250))
	ctx := context.Background()

	// 不在购物车中的图书:幂等空操作
	uc.RemoveItem(ctx, "user:1", 1)

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestCartUseCase_ClearAndEvict(t *testing.T) {
	uc, store := newFixture(testBook(1, "Go语言实战", 1250))
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 2))
	uc.Clear(ctx, "user:1")

	summary, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)

	uc.Evict("user:1")
	assert.Equal(t, 0, store.Count())
}

func TestCartUseCase_LinesForCheckout(t *testing.T) {
	uc, _ := newFixture(
		testBook(1, "Go语言实战", 1250),
		testBook(2, "深入理解计算机系统", 3990),
	)
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 2, 1))
	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 2))

	lines := uc.Lines("user:1")
	require.Len(t, lines, 2)
	assert.Equal(t, cartdomain.Line{BookID: 1, Quantity: 2}, lines[0])
	assert.Equal(t, cartdomain.Line{BookID: 2, Quantity: 1}, lines[1])

	// 不存在的购物车不应被读取操作创建
	assert.Nil(t, uc.Lines("user:2"))
}

func TestCartUseCase_IsolatedSessions(t *testing.T) {
	uc, _ := newFixture(testBook(1, "Go语言实战", 1250))
	ctx := context.Background()

	require.NoError(t, uc.AddItem(ctx, "user:1", 1, 1))
	require.NoError(t, uc.AddItem(ctx, "session-abc", 1, 3))

	s1, err := uc.GetSummary(ctx, "user:1")
	require.NoError(t, err)
	s2, err := uc.GetSummary(ctx, "session-abc")
	require.NoError(t, err)

	assert.Equal(t, 1, s1.Items[0].Quantity)
	assert.Equal(t, 3, s2.Items[0].Quantity)
}

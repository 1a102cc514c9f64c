package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcart "github.com/yilin/bookshop/internal/application/cart"
	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/cart"
	"github.com/yilin/bookshop/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
}

// stubBookRepo 只读的内存图书仓储
type stubBookRepo struct {
	books map[uint]*book.Book
}

func (r *stubBookRepo) Create(ctx context.Context, b *book.Book) error { return nil }

func (r *stubBookRepo) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	if b, ok := r.books[id]; ok {
		return b, nil
	}
	return nil, book.ErrBookNotFound
}

func (r *stubBookRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]*book.Book, error) {
	result := make(map[uint]*book.Book)
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
			result[id] = b
		}
	}
	return result, nil
}

func (r *stubBookRepo) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	return nil, book.ErrBookNotFound
}

func (r *stubBookRepo) Update(ctx context.Context, b *book.Book) error { return nil }
func (r *stubBookRepo) Delete(ctx context.Context, id uint) error      { return nil }

func (r *stubBookRepo) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	return nil, 0, nil
}

func (r *stubBookRepo) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *stubBookRepo) UpdateStock(ctx context.Context, id uint, delta int) error { return nil }

// cartEnvelope 统一响应信封
type cartEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Items []struct {
			BookID    uint   `json:"book_id"`
			Title     string `json:"title"`
			Quantity  int    `json:"quantity"`
			Subtotal  int64  `json:"subtotal"`
			Available bool   `json:"available"`
		} `json:"items"`
		ItemCount int    `json:"item_count"`
		Total     int64  `json:"total"`
		TotalYuan string `json:"total_yuan"`
	} `json:"data"`
}

func newCartRouter() *gin.Engine {
	repo := &stubBookRepo{books: map[uint]*book.Book{
		1: {ID: 1, Title: "Go语言实战", Author: "威廉·肯尼迪", Price: 1250, Stock: 10},
		2: {ID: 2, Title: "Go程序设计语言", Author: "Donovan", Price: 3990, Stock: 5},
	}}
	uc := appcart.NewCartUseCase(cart.NewStore(0, 0), repo)
	h := NewCartHandler(uc)

	r := gin.New()
	carts := r.Group("/api/v1/cart")
	{
		carts.GET("/summary", h.GetCart)
		carts.POST("/add", h.AddItem)
		carts.PUT("/update/:bookId", h.UpdateItem)
		carts.DELETE("/remove/:bookId", h.RemoveItem)
		carts.DELETE("/clear", h.ClearCart)
	}
	return r
}

func doCartRequest(t *testing.T, r *gin.Engine, method, path, body, sessionID string) (*httptest.ResponseRecorder, *cartEnvelope) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Cart-Session", sessionID)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope cartEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, &envelope
}

func TestCartHandler_AddAndSummary(t *testing.T) {
	r := newCartRouter()

	w, resp := doCartRequest(t, r, http.MethodPost, "/api/v1/cart/add",
		`{"book_id":1,"quantity":2}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, resp.Code, resp.Message)

	// 匿名请求分配了会话ID
	sessionID := w.Header().Get("X-Cart-Session")
	require.NotEmpty(t, sessionID)

	// 携带会话ID查询同一购物车
	_, summary := doCartRequest(t, r, http.MethodGet, "/api/v1/cart/summary", "", sessionID)
	require.Equal(t, 0, summary.Code)
	require.Len(t, summary.Data.Items, 1)
	assert.Equal(t, "Go语言实战", summary.Data.Items[0].Title)
	assert.Equal(t, 2, summary.Data.Items[0].Quantity)
	assert.Equal(t, int64(2500), summary.Data.Total)
	assert.Equal(t, "25.00", summary.Data.TotalYuan)
}

func TestCartHandler_AddUnknownBook(t *testing.T) {
	r := newCartRouter()

	w, resp := doCartRequest(t, r, http.MethodPost, "/api/v1/cart/add",
		`{"book_id":99,"quantity":1}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40402, resp.Code)
}

func TestCartHandler_InvalidBody(t *testing.T) {
	r := newCartRouter()

	w, resp := doCartRequest(t, r, http.MethodPost, "/api/v1/cart/add",
		`{"book_id":1,"quantity":0}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40900, resp.Code)
}

func TestCartHandler_UpdateRemoveClear(t *testing.T) {
	r := newCartRouter()
	const sessionID = "test-session"

	_, resp := doCartRequest(t, r, http.MethodPost, "/api/v1/cart/add",
		`{"book_id":1,"quantity":2}`, sessionID)
	require.Equal(t, 0, resp.Code)
	_, resp = doCartRequest(t, r, http.MethodPost, "/api/v1/cart/add",
		`{"book_id":2,"quantity":1}`, sessionID)
	require.Equal(t, 0, resp.Code)

	// 更新数量,响应即为最新汇总
	_, resp = doCartRequest(t, r, http.MethodPut, "/api/v1/cart/update/1",
		`{"quantity":5}`, sessionID)
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(5*1250+3990), resp.Data.Total)

	// 数量0等价于移除
	_, resp = doCartRequest(t, r, http.MethodPut, "/api/v1/cart/update/1",
		`{"quantity":0}`, sessionID)
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, 1, resp.Data.ItemCount)

	// 移除不存在的行:幂等,返回当前汇总
	w, resp := doCartRequest(t, r, http.MethodDelete, "/api/v1/cart/remove/1", "", sessionID)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, 1, resp.Data.ItemCount)

	// 清空
	_, resp = doCartRequest(t, r, http.MethodDelete, "/api/v1/cart/clear", "", sessionID)
	require.Equal(t, 0, resp.Code)
	assert.Empty(t, resp.Data.Items)
	assert.Equal(t, "0.00", resp.Data.TotalYuan)
}

package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yilin/bookshop/internal/domain/book"
	"github.com/yilin/bookshop/internal/domain/order"
	"github.com/yilin/bookshop/internal/domain/user"
)

func newListOrdersFixture() (*ListOrdersUseCase, *GetOrderUseCase, *fakeOrderRepo) {
	store := newFakeStore(
		&book.Book{ID: 1, Title: "Go程序设计语言", Author: "Donovan", Price: 1250, Stock: 10},
		&book.Book{ID: 2, Title: "Go语言实战", Author: "威廉·肯尼迪", Price: 3990, Stock: 5},
	)
	bookRepo := &fakeBookRepo{store: store}
	userRepo := &fakeUserRepo{users: map[uint]*user.User{
		1: {ID: 1, Name: "张三", Email: "zhangsan@example.com"},
		2: {ID: 2, Name: "李四", Email: "lisi@example.com"},
	}}
	orderRepo := &fakeOrderRepo{}

	listUC := NewListOrdersUseCase(orderRepo, userRepo, bookRepo)
	getUC := NewGetOrderUseCase(orderRepo, bookRepo)
	return listUC, getUC, orderRepo
}

func seedOrder(t *testing.T, repo *fakeOrderRepo, userID uint, items []order.OrderItem) *order.Order {
	t.Helper()
	o := order.NewOrder(order.GenerateOrderNo(), userID, items, "")
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestListOrders_AllWithDisplayFields(t *testing.T) {
	listUC, _, orderRepo := newListOrdersFixture()

	first := seedOrder(t, orderRepo, 1, []order.OrderItem{
		{BookID: 1, Quantity: 2, Price: 1250},
	})
	second := seedOrder(t, orderRepo, 2, []order.OrderItem{
		{BookID: 2, Quantity: 1, Price: 3990},
	})

	resp, err := listUC.Execute(context.Background(), ListOrdersRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.List, 2)

	// 新订单在前
	assert.Equal(t, second.OrderNo, resp.List[0].OrderNo)
	assert.Equal(t, first.OrderNo, resp.List[1].OrderNo)

	// 下单人展示字段
	require.NotNil(t, resp.List[0].User)
	assert.Equal(t, "李四", resp.List[0].User.Name)
	assert.Equal(t, "lisi@example.com", resp.List[0].User.Email)

	// 明细行书名
	require.Len(t, resp.List[1].Items, 1)
	assert.Equal(t, "Go程序设计语言", resp.List[1].Items[0].Title)
	assert.Equal(t, int64(2500), resp.List[1].Items[0].Subtotal)
	assert.Equal(t, "25.00", resp.List[1].TotalYuan)
}

func TestListOrders_ByUser(t *testing.T) {
	listUC, _, orderRepo := newListOrdersFixture()

	seedOrder(t, orderRepo, 1, []order.OrderItem{{BookID: 1, Quantity: 1, Price: 1250}})
	seedOrder(t, orderRepo, 2, []order.OrderItem{{BookID: 2, Quantity: 1, Price: 3990}})
	seedOrder(t, orderRepo, 1, []order.OrderItem{{BookID: 2, Quantity: 2, Price: 3990}})

	resp, err := listUC.Execute(context.Background(), ListOrdersRequest{UserID: 1})
	require.NoError(t, err)

	require.Len(t, resp.List, 2)
	for _, summary := range resp.List {
		assert.Equal(t, uint(1), summary.UserID)
		require.NotNil(t, summary.User)
		assert.Equal(t, "张三", summary.User.Name)
	}
}

func TestListOrders_UnknownUserStillListed(t *testing.T) {
	listUC, _, orderRepo := newListOrdersFixture()

	// 用户99不在用户表中(已注销),订单仍应返回,只是缺少展示字段
	seedOrder(t, orderRepo, 99, []order.OrderItem{{BookID: 1, Quantity: 1, Price: 1250}})

	resp, err := listUC.Execute(context.Background(), ListOrdersRequest{})
	require.NoError(t, err)

	require.Len(t, resp.List, 1)
	assert.Equal(t, uint(99), resp.List[0].UserID)
	assert.Nil(t, resp.List[0].User)
	assert.Equal(t, "Go程序设计语言", resp.List[0].Items[0].Title)
}

func TestGetOrder_Found(t *testing.T) {
	_, getUC, orderRepo := newListOrdersFixture()

	o := seedOrder(t, orderRepo, 1, []order.OrderItem{
		{BookID: 1, Quantity: 2, Price: 1250},
		{BookID: 2, Quantity: 1, Price: 3990},
	})

	resp, err := getUC.Execute(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, o.OrderNo, resp.OrderNo)
	assert.Equal(t, int64(2*1250+3990), resp.Total)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Go程序设计语言", resp.Items[0].Title)
	assert.Equal(t, "Go语言实战", resp.Items[1].Title)
}

func TestGetOrder_NotFound(t *testing.T) {
	_, getUC, _ := newListOrdersFixture()

	_, err := getUC.Execute(context.Background(), 42)
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
}

package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *Order {
	items := []OrderItem{
		{BookID: 1, Quantity: 2, Price: 1250},
		{BookID: 2, Quantity: 1, Price: 3990},
	}
	return NewOrder(GenerateOrderNo(), 42, items, "朝阳区某小区1号楼")
}

func TestNewOrder_CalculatesTotal(t *testing.T) {
	o := newTestOrder()

	// 1250*2 + 3990*1 = 6490
	assert.Equal(t, int64(6490), o.Total)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, uint(42), o.UserID)
	assert.True(t, o.IsOwnedBy(42))
	assert.False(t, o.IsOwnedBy(43))
}

func TestOrderItem_Subtotal(t *testing.T) {
	item := OrderItem{BookID: 1, Quantity: 3, Price: 1000}
	assert.Equal(t, int64(3000), item.Subtotal())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    OrderStatus
		wantErr bool
	}{
		{"pending", OrderStatusPending, false},
		{"processing", OrderStatusProcessing, false},
		{"shipped", OrderStatusShipped, false},
		{"delivered", OrderStatusDelivered, false},
		{"cancelled", OrderStatusCancelled, false},
		{"paid", 0, true},
		{"", 0, true},
		{"PENDING", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidStatus, "input=%q", tt.input)
		} else {
			require.NoError(t, err, "input=%q", tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		}
	}
}

func TestOrder_StatusTransitions(t *testing.T) {
	t.Run("正常流转", func(t *testing.T) {
		o := newTestOrder()

		require.NoError(t, o.Process())
		assert.Equal(t, OrderStatusProcessing, o.Status)

		require.NoError(t, o.Ship())
		assert.Equal(t, OrderStatusShipped, o.Status)

		require.NoError(t, o.Deliver())
		assert.Equal(t, OrderStatusDelivered, o.Status)
	})

	t.Run("待处理可直接取消", func(t *testing.T) {
		o := newTestOrder()
		require.NoError(t, o.Cancel())
		assert.Equal(t, OrderStatusCancelled, o.Status)
	})

	t.Run("处理中可取消", func(t *testing.T) {
		o := newTestOrder()
		require.NoError(t, o.Process())
		require.NoError(t, o.Cancel())
		assert.Equal(t, OrderStatusCancelled, o.Status)
	})

	t.Run("已发货不可取消", func(t *testing.T) {
		o := newTestOrder()
		require.NoError(t, o.Process())
		require.NoError(t, o.Ship())

		err := o.Cancel()
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		assert.Equal(t, OrderStatusShipped, o.Status)
	})

	t.Run("不可跳级发货", func(t *testing.T) {
		o := newTestOrder()
		err := o.Ship()
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		assert.Equal(t, OrderStatusPending, o.Status)
	})

	t.Run("终态不可再转换", func(t *testing.T) {
		o := newTestOrder()
		require.NoError(t, o.Cancel())

		assert.False(t, o.CanTransitionTo(OrderStatusPending))
		assert.False(t, o.CanTransitionTo(OrderStatusProcessing))
		assert.ErrorIs(t, o.Process(), ErrInvalidStatusTransition)
	})
}

func TestGenerateOrderNo(t *testing.T) {
	no := GenerateOrderNo()
	assert.True(t, len(no) > 3)
	assert.Equal(t, "ORD", no[:3])

	// 同一秒内也不应大量碰撞
	seen := make(map[string]bool)
	dup := 0
	for i := 0; i < 100; i++ {
		n := GenerateOrderNo()
		if seen[n] {
			dup++
		}
		seen[n] = true
	}
	assert.LessOrEqual(t, dup, 1)
}

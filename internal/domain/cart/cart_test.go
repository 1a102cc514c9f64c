package cart

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddItem(t *testing.T) {
	c := New()

	require.NoError(t, c.AddItem(1, 2))
	assert.Equal(t, 2, c.Quantity(1))

	// 重复添加累加数量
	require.NoError(t, c.AddItem(1, 3))
	assert.Equal(t, 5, c.Quantity(1))

	// 非法数量
	assert.ErrorIs(t, c.AddItem(1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem(1, -1), ErrInvalidQuantity)
	assert.Equal(t, 5, c.Quantity(1))
}

func TestCart_RemoveItem(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(1, 2))

	c.RemoveItem(1)
	assert.Equal(t, 0, c.Quantity(1))
	assert.True(t, c.IsEmpty())

	// 不存在的行:幂等空操作
	c.RemoveItem(1)
	c.RemoveItem(99)
	assert.True(t, c.IsEmpty())
}

func TestCart_UpdateQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(1, 2))

	// 覆盖而非累加
	require.NoError(t, c.UpdateQuantity(1, 7))
	assert.Equal(t, 7, c.Quantity(1))

	// 数量0等价于移除
	require.NoError(t, c.UpdateQuantity(1, 0))
	assert.True(t, c.IsEmpty())

	// 不存在的行:空操作,不创建新行
	require.NoError(t, c.UpdateQuantity(1, 3))
	assert.True(t, c.IsEmpty())

	// 负数
	require.NoError(t, c.AddItem(2, 1))
	assert.ErrorIs(t, c.UpdateQuantity(2, -1), ErrInvalidQuantity)
	assert.Equal(t, 1, c.Quantity(2))
}

func TestCart_Clear(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(1, 2))
	require.NoError(t, c.AddItem(2, 3))
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, 5, c.ItemCount())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.Quantity(1))
}

func TestCart_ConcurrentAdd(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AddItem(1, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Quantity(1))
}

func TestStore_GetCreatesCart(t *testing.T) {
	s := NewStore(0, 0)
	defer s.Close()

	c1 := s.Get("user:1")
	c2 := s.Get("user:1")
	assert.Same(t, c1, c2)

	// 不同键互不影响
	c3 := s.Get("user:2")
	require.NoError(t, c1.AddItem(1, 2))
	assert.True(t, c3.IsEmpty())

	assert.Equal(t, 2, s.Count())
}

func TestStore_Peek(t *testing.T) {
	s := NewStore(0, 0)
	defer s.Close()

	assert.Nil(t, s.Peek("user:1"))
	s.Get("user:1")
	assert.NotNil(t, s.Peek("user:1"))
	assert.Equal(t, 1, s.Count())
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(0, 0)
	defer s.Close()

	s.Get("user:1")
	s.Delete("user:1")
	assert.Nil(t, s.Peek("user:1"))
	assert.Equal(t, 0, s.Count())

	// 删除不存在的键不报错
	s.Delete("user:1")
}

func TestStore_EvictIdle(t *testing.T) {
	s := NewStore(10*time.Millisecond, time.Hour) // 手动触发,不靠协程
	defer s.Close()

	s.Get("stale")
	time.Sleep(20 * time.Millisecond)
	s.Get("fresh")

	s.evictIdle()

	assert.Nil(t, s.Peek("stale"))
	assert.NotNil(t, s.Peek("fresh"))
}

func TestStore_CountCallback(t *testing.T) {
	var mu sync.Mutex
	var last int
	s := NewStore(0, 0, WithCountCallback(func(count int) {
		mu.Lock()
		last = count
		mu.Unlock()
	}))
	defer s.Close()

	s.Get("a")
	s.Get("b")
	mu.Lock()
	assert.Equal(t, 2, last)
	mu.Unlock()

	s.Delete("a")
	mu.Lock()
	assert.Equal(t, 1, last)
	mu.Unlock()
}

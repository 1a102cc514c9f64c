package cart

import (
	"sync"
	"time"
)

// Store 购物车存储(进程内)
// 设计说明:
// 1. 购物车按会话键隔离:登录用户使用"user:{id}",匿名会话使用UUID
// 2. 空闲超过TTL的购物车由后台清理协程回收
// 3. 进程重启购物车丢失是可接受的(会话级数据,非持久化聚合)
type Store struct {
	mu    sync.RWMutex
	carts map[string]*Cart
	ttl   time.Duration

	// onCountChange 购物车总数变化回调(用于指标上报),可为nil
	onCountChange func(count int)

	stopCh chan struct{}
}

// StoreOption Store可选配置
type StoreOption func(*Store)

// WithCountCallback 设置购物车总数变化回调
func WithCountCallback(fn func(count int)) StoreOption {
	return func(s *Store) {
		s.onCountChange = fn
	}
}

// NewStore 创建购物车存储
//
// ttl为购物车空闲回收时间,<=0表示不回收。
// cleanupInterval为清理协程扫描间隔。
func NewStore(ttl, cleanupInterval time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		carts:  make(map[string]*Cart),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if ttl > 0 && cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Get 获取购物车,不存在时创建空车
func (s *Store) Get(key string) *Cart {
	s.mu.RLock()
	c, ok := s.carts[key]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 双重检查:并发创建时以先到者为准
	if c, ok := s.carts[key]; ok {
		return c
	}
	c = New()
	s.carts[key] = c
	s.notifyCount()
	return c
}

// Peek 获取购物车,不存在时返回nil(不创建)
func (s *Store) Peek(key string) *Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[key]
}

// Delete 删除购物车(用户登出或下单完成后调用)
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[key]; ok {
		delete(s.carts, key)
		s.notifyCount()
	}
}

// Count 当前购物车数量
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}

// Close 停止后台清理协程
func (s *Store) Close() {
	close(s.stopCh)
}

// cleanupLoop 定期回收空闲购物车
func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

// evictIdle 回收空闲超过TTL的购物车
func (s *Store) evictIdle() {
	deadline := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := false
	for key, c := range s.carts {
		if c.UpdatedAt().Before(deadline) {
			delete(s.carts, key)
			evicted = true
		}
	}
	if evicted {
		s.notifyCount()
	}
}

// notifyCount 上报购物车总数(调用方必须持有s.mu)
func (s *Store) notifyCount() {
	if s.onCountChange != nil {
		s.onCountChange(len(s.carts))
	}
}

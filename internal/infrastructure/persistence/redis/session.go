package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yilin/bookshop/pkg/circuitbreaker"
	apperrors "github.com/yilin/bookshop/pkg/errors"
	"github.com/yilin/bookshop/pkg/metrics"
)

// SessionStore 会话存储
// 设计说明：
// 1. 使用Redis存储用户登录会话
// 2. 支持JWT黑名单（用户登出、强制下线）
// 3. Key设计：session:{user_id}、blacklist:{token}
// 4. 所有Redis调用经过熔断器:Redis故障时快速失败,避免把认证路径拖垮
type SessionStore struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	cb := circuitbreaker.NewCircuitBreaker("redis-session", circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			// 连续5次失败或失败率超过60%时熔断
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && counts.FailureRate() >= 0.6)
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		metrics.SetGaugeVec(metrics.CircuitBreakerState,
			map[string]string{"name": name}, float64(to))
	})
	return &SessionStore{client: client, cb: cb}
}

// execute 经熔断器执行Redis操作
func (s *SessionStore) execute(op func() error) error {
	err := s.cb.Execute(op)
	if err == circuitbreaker.ErrOpenState {
		return apperrors.ErrRedisError
	}
	return err
}

// SaveSession 保存用户会话
// 存储登录时间、IP等信息,过期时间与Refresh Token一致
func (s *SessionStore) SaveSession(ctx context.Context, userID uint, sessionData map[string]interface{}, ttl time.Duration) error {
	key := fmt.Sprintf("session:%d", userID)

	return s.execute(func() error {
		if err := s.client.HMSet(ctx, key, sessionData).Err(); err != nil {
			return apperrors.Wrap(err, "保存会话失败")
		}
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return apperrors.Wrap(err, "设置会话过期时间失败")
		}
		return nil
	})
}

// GetSession 获取用户会话
func (s *SessionStore) GetSession(ctx context.Context, userID uint) (map[string]string, error) {
	key := fmt.Sprintf("session:%d", userID)

	var result map[string]string
	err := s.execute(func() error {
		r, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return apperrors.Wrap(err, "获取会话失败")
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	return result, nil
}

// DeleteSession 删除用户会话（用于登出）
func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	key := fmt.Sprintf("session:%d", userID)

	return s.execute(func() error {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return apperrors.Wrap(err, "删除会话失败")
		}
		return nil
	})
}

// AddToBlacklist 将Token加入黑名单
// 使用场景：
// 1. 用户登出
// 2. Token泄露后强制失效
// 3. 用户修改密码后强制所有Token失效
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	key := fmt.Sprintf("blacklist:%s", token)

	return s.execute(func() error {
		if err := s.client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
			return apperrors.Wrap(err, "添加Token到黑名单失败")
		}
		return nil
	})
}

// IsInBlacklist 检查Token是否在黑名单中
// 熔断打开时按"不在黑名单"处理:拒绝所有请求比放过少量已登出Token代价更高
func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	key := fmt.Sprintf("blacklist:%s", token)

	var exists int64
	err := s.execute(func() error {
		n, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return apperrors.Wrap(err, "检查黑名单失败")
		}
		exists = n
		return nil
	})
	if err != nil {
		return false, err
	}

	return exists > 0, nil
}

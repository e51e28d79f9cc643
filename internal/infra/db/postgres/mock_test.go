//go:build !integration

package postgres

import (
	"context"
	"time"

	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
	red "financeflow/internal/infra/redis"
)

// mockInnerUserRepo mocks the database repository that the cache decorator wraps.
type mockInnerUserRepo struct {
	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID string) (*model.UserProfile, error)
	calls                int
}

func (m *mockInnerUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID string) (*model.UserProfile, error) {
	m.calls++
	return m.FindByTelegramIDFunc(ctx, tx, tgID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc   func(ctx context.Context, keys ...string) error
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Close() error                   { return m.CloseFunc() }

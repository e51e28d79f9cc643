package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/repository"
	"financeflow/internal/infra/metrics"
	red "financeflow/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// negativeMarker caches "no such user" briefly so unregistered senders do not hit the database on every message.
const negativeMarker = "-"

type userRepoCacheDecorator struct {
	inner       repository.UserRepository
	cache       red.RedisClient
	ttl         time.Duration
	negativeTTL time.Duration
	log         *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "user_cache").Logger()
	return &userRepoCacheDecorator{
		inner:       inner,
		cache:       cache,
		ttl:         ttl,
		negativeTTL: 30 * time.Second,
		log:         &l,
	}
}

func userCacheKey(tgID string) string { return fmt.Sprintf("user_profile:tgid:%s", tgID) }

func (d *userRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID string) (*model.UserProfile, error) {
	key := userCacheKey(tgID)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil && val == negativeMarker:
		metrics.IncCacheRequest("user_profile", "hit")
		return nil, domain.ErrNotFound
	case err == nil:
		var u model.UserProfile
		if json.Unmarshal([]byte(val), &u) == nil {
			metrics.IncCacheRequest("user_profile", "hit")
			return &u, nil
		}
	case !red.IsNil(err):
		d.log.Warn().Err(err).Msg("user cache read failed")
	}

	metrics.IncCacheRequest("user_profile", "miss")
	u, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if errors.Is(err, domain.ErrNotFound) {
		_ = d.cache.Set(ctx, key, negativeMarker, d.negativeTTL)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(u); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return u, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/clients"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	goredis "github.com/redis/go-redis/v9"
)

// setUnlessInvalidated пишет пары KEYS[i] (товар) / KEYS[i+1] (метка инвалидации).
// Товар не кладётся в кэш, пока жива метка. ARGV[1] - TTL в мс, далее значения.
var setUnlessInvalidated = goredis.NewScript(`
local ttl = tonumber(ARGV[1])
local written = 0
for i = 1, #KEYS, 2 do
	if redis.call('EXISTS', KEYS[i + 1]) == 0 then
		local value = ARGV[(i + 1) / 2 + 1]
		if ttl > 0 then
			redis.call('SET', KEYS[i], value, 'PX', ttl)
		else
			redis.call('SET', KEYS[i], value)
		end
		written = written + 1
	end
end
return written
`)

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductInfoConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductInfoConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProducts возвращает закэшированные продукты по ID, пропуская промахи.
func (r *CacheRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]usecase.ProductInfo, error) {
	if len(ids) == 0 {
		return map[int64]usecase.ProductInfo{}, nil
	}

	keys := r.buildProductCacheKeys(ids)

	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make(map[int64]usecase.ProductInfo, len(values))
	for i, val := range values {
		data, err := redisValueToBytes(val, keys[i])
		if err != nil {
			r.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
		}

		if data == nil {
			continue // cache miss
		}

		var model converter.ProductInfoRedisModel
		if err := json.Unmarshal(data, &model); err != nil {
			r.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		if model.ID != ids[i] {
			r.logger.Warnf("Cache ID mismatch: key_id: %d, model_id: %d", ids[i], model.ID)
			if err := r.client.Client.Del(ctx, keys[i]).Err(); err != nil {
				r.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
			}
			continue
		}
		result[ids[i]] = *r.conv.ToUseCase(&model)
	}

	return result, nil
}

// SetProducts кэширует несколько продуктов одним скриптом с заданным TTL.
// Товары, инвалидированные за последние InvalidationGuard, пропускаются:
// фоновое заполнение могло прочитать цену до её изменения.
func (r *CacheRepo) SetProducts(ctx context.Context, products []usecase.ProductInfo) error {
	keys := make([]string, 0, 2*len(products))
	args := make([]interface{}, 0, len(products)+1)
	args = append(args, r.cfg.ProductTTL.Milliseconds())

	for _, model := range r.conv.ToArrRedisModel(products) {
		data, err := json.Marshal(model)
		if err != nil {
			r.logger.Warnf("Failed to marshal product for caching (Product ID: %d): %v", model.ID, e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		keys = append(keys, r.productKey(model.ID), r.invalidatedKey(model.ID))
		args = append(args, data)
	}

	if len(keys) == 0 {
		return nil
	}

	written, err := setUnlessInvalidated.Run(ctx, r.client.Client, keys, args...).Int()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if skipped := len(keys)/2 - written; skipped > 0 {
		r.logger.Debugf("Skipped caching %d recently invalidated products", skipped)
	}

	return nil
}

// DeleteProducts удаляет продукты из кэша по ID и на InvalidationGuard
// запрещает фоновому заполнению класть их обратно.
func (r *CacheRepo) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	pipeline := r.client.Client.TxPipeline()
	if r.cfg.InvalidationGuard > 0 {
		for _, id := range ids {
			pipeline.Set(ctx, r.invalidatedKey(id), 1, r.cfg.InvalidationGuard)
		}
	}
	pipeline.Del(ctx, r.buildProductCacheKeys(ids)...)

	if _, err := pipeline.Exec(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// buildProductCacheKeys формирует Redis-ключи из ID продуктов
func (r *CacheRepo) buildProductCacheKeys(ids []int64) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.productKey(id)
	}

	return keys
}

func (r *CacheRepo) productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (r *CacheRepo) invalidatedKey(id int64) string {
	return fmt.Sprintf("product:%d:invalidated", id)
}

// redisValueToBytes конвертирует значение из Redis в []byte.
func redisValueToBytes(val interface{}, key string) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil // cache miss
	default:
		return nil, fmt.Errorf("unexpected Redis value type for key %s: %T", key, val)
	}
}

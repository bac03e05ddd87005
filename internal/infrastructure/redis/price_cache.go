package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
)

// RedisPriceCache mirrors each listing's current price for cheap pre-checks
// on the bid path. The listing row stays authoritative; the cached value only
// ever moves up, so a stale mirror can never reject a winning bid.
type RedisPriceCache struct {
	client *redis.Client
}

func NewPriceCache(client *redis.Client) *RedisPriceCache {
	return &RedisPriceCache{client: client}
}

func priceKey(listingID string) string {
	return fmt.Sprintf("listing:%s:price", listingID)
}

func (r *RedisPriceCache) Initialize(ctx context.Context, listingID string, price decimal.Decimal, endTime time.Time) error {
	return r.client.HMSet(ctx, priceKey(listingID),
		"current_price", price.StringFixed(2),
		"end_time", endTime.Unix(),
		"last_updated", time.Now().Unix(),
	).Err()
}

// RaiseTo moves the cached price up to the committed amount. The Lua script
// keeps the mirror monotonic when commits race against each other.
func (r *RedisPriceCache) RaiseTo(ctx context.Context, listingID string, price decimal.Decimal) error {
	luaScript := `
        local key = "listing:" .. KEYS[1] .. ":price"
        local current = redis.call('HGET', key, 'current_price')

        if current == false or tonumber(ARGV[1]) > tonumber(current) then
            redis.call('HSET', key, 'current_price', ARGV[1], 'last_updated', ARGV[2])
            return 1
        end
        return 0
    `
	return r.client.Eval(ctx, luaScript, []string{listingID},
		price.StringFixed(2),
		fmt.Sprintf("%d", time.Now().Unix())).Err()
}

func (r *RedisPriceCache) Get(ctx context.Context, listingID string) (*domain.PricePoint, error) {
	vals, err := r.client.HMGet(ctx, priceKey(listingID), "current_price", "end_time").Result()
	if err != nil {
		return nil, err
	}

	rawPrice, ok := vals[0].(string)
	if !ok {
		return nil, nil
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return nil, err
	}

	point := &domain.PricePoint{Price: price}
	// A zero end time (entry written by RaiseTo before Initialize ran) makes
	// callers skip the mirror and read the repository instead.
	if rawEnd, ok := vals[1].(string); ok {
		if unix, err := strconv.ParseInt(rawEnd, 10, 64); err == nil {
			point.EndTime = time.Unix(unix, 0)
		}
	}
	return point, nil
}

func (r *RedisPriceCache) Remove(ctx context.Context, listingID string) error {
	return r.client.Del(ctx, priceKey(listingID)).Err()
}

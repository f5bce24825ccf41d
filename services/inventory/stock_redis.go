package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

const (
	productKeyPrefix = "product:"
	productsSetKey   = "products"

	decrementNotFound   = 0
	decrementNotTracked = 1
	decrementApplied    = 2
)

// returns {status, remaining}
var decrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {0, 0}
end
if redis.call('HGET', KEYS[1], 'kind') ~= 'PHYSICAL' then
	return {1, 0}
end
local remaining = redis.call('HINCRBY', KEYS[1], 'stock', -tonumber(ARGV[1]))
return {2, remaining}
`)

type redisStockKeeper struct {
	client *redis.Client
}

// NewRedisStockKeeper keeps a hash per product and decrements with a server-side script.
func NewRedisStockKeeper(client *redis.Client) StockKeeper {
	return &redisStockKeeper{
		client: client,
	}
}

func productKey(uid string) string {
	return productKeyPrefix + uid
}

func (s *redisStockKeeper) GetProduct(c context.Context, uid string) (Product, bool, error) {
	fields, err := s.client.HGetAll(c, productKey(uid)).Result()
	if err != nil {
		return Product{}, false, fmt.Errorf("redis hgetall of product %s failed: %w", uid, err)
	}
	if len(fields) == 0 {
		return Product{}, false, nil
	}

	product, err := productFromHash(uid, fields)
	if err != nil {
		return Product{}, false, err
	}
	return product, true, nil
}

func (s *redisStockKeeper) PutProduct(c context.Context, product Product) error {
	product = normalize(product)

	fields := map[string]any{
		"name":         product.Name,
		"kind":         string(product.Kind),
		"priceInCents": product.PriceInCents,
		"currency":     product.Currency,
	}
	if product.Stock != nil {
		fields["stock"] = *product.Stock
	}

	_, err := s.client.TxPipelined(c, func(pipe redis.Pipeliner) error {
		if product.Stock == nil {
			pipe.HDel(c, productKey(product.UID), "stock")
		}
		pipe.HSet(c, productKey(product.UID), fields)
		pipe.SAdd(c, productsSetKey, product.UID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store of product %s failed: %w", product.UID, err)
	}
	return nil
}

func (s *redisStockKeeper) ListProducts(c context.Context) ([]Product, error) {
	uids, err := s.client.SMembers(c, productsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}

	products := []Product{}
	for _, uid := range uids {
		product, found, err := s.GetProduct(c, uid)
		if err != nil {
			return nil, err
		}
		if found {
			products = append(products, product)
		}
	}
	return products, nil
}

func (s *redisStockKeeper) DecrementStock(c context.Context, uid string, quantity int) (int, error) {
	result, err := decrementScript.Run(c, s.client, []string{productKey(uid)}, quantity).Int64Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("redis decrement of product %s failed: %w", uid, err)
	}
	if len(result) != 2 {
		return 0, fmt.Errorf("unexpected decrement result %v for product %s", result, uid)
	}

	switch result[0] {
	case decrementNotFound:
		return 0, ErrProductNotFound
	case decrementNotTracked:
		return 0, ErrStockNotTracked
	case decrementApplied:
		return int(result[1]), nil
	default:
		return 0, fmt.Errorf("unexpected decrement status %d for product %s", result[0], uid)
	}
}

func productFromHash(uid string, fields map[string]string) (Product, error) {
	price, err := strconv.ParseInt(fields["priceInCents"], 10, 64)
	if err != nil {
		return Product{}, fmt.Errorf("invalid price of product %s: %w", uid, err)
	}
	product := Product{
		UID:          uid,
		Name:         fields["name"],
		Kind:         checkoutapi.ProductKind(fields["kind"]),
		PriceInCents: price,
		Currency:     fields["currency"],
	}
	if value, found := fields["stock"]; found {
		stock, err := strconv.Atoi(value)
		if err != nil {
			return Product{}, fmt.Errorf("invalid stock of product %s: %w", uid, err)
		}
		product.Stock = Units(stock)
	}
	return product, nil
}

package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcGrol/marketplace/lib/mystore"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

type documentStockKeeper struct {
	store mystore.Store[Product]
}

// NewDocumentStockKeeper keeps products in a generic store and decrements inside a store transaction.
func NewDocumentStockKeeper(store mystore.Store[Product]) StockKeeper {
	return &documentStockKeeper{
		store: store,
	}
}

func (s *documentStockKeeper) GetProduct(c context.Context, uid string) (Product, bool, error) {
	return s.store.Get(c, uid)
}

func (s *documentStockKeeper) PutProduct(c context.Context, product Product) error {
	return s.store.Put(c, product.UID, normalize(product))
}

func (s *documentStockKeeper) ListProducts(c context.Context) ([]Product, error) {
	return s.store.Query(c, nil, "UID")
}

func (s *documentStockKeeper) DecrementStock(c context.Context, uid string, quantity int) (int, error) {
	remaining := 0
	err := s.store.RunInTransaction(c, func(c context.Context) error {
		product, exists, err := s.store.Get(c, uid)
		if err != nil {
			return fmt.Errorf("error fetching product %s: %w", uid, err)
		}
		if !exists {
			return ErrProductNotFound
		}
		if !product.TracksStock() {
			return ErrStockNotTracked
		}

		remaining = product.StockLevel() - quantity
		product.Stock = Units(remaining)

		return s.store.Put(c, uid, product)
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func normalize(product Product) Product {
	product.Kind = checkoutapi.ProductKind(strings.ToUpper(string(product.Kind)))
	product.Currency = strings.ToUpper(product.Currency)
	if !product.TracksStock() {
		product.Stock = nil
	} else if product.Stock == nil {
		product.Stock = Units(0)
	}
	return product
}

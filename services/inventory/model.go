package inventory

import (
	"context"
	"errors"

	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrStockNotTracked = errors.New("product does not track stock")
)

// Product is the part of the catalog entity that fulfillment touches.
// Stock is nil for digital products.
type Product struct {
	UID          string                  `json:"uid"`
	Name         string                  `json:"name"`
	Kind         checkoutapi.ProductKind `json:"type"`
	PriceInCents int64                   `json:"priceInCents"`
	Currency     string                  `json:"currency"`
	Stock        *int                    `json:"stock"`
}

func (p Product) TracksStock() bool {
	return p.Kind.IsPhysical()
}

// StockLevel returns the units on hand, zero when stock is not tracked.
func (p Product) StockLevel() int {
	if p.Stock == nil {
		return 0
	}
	return *p.Stock
}

func Units(n int) *int {
	return &n
}

//go:generate mockgen -source=model.go -package inventory -destination stock_keeper_mock.go StockKeeper
type StockKeeper interface {
	GetProduct(c context.Context, uid string) (Product, bool, error)
	PutProduct(c context.Context, product Product) error
	ListProducts(c context.Context) ([]Product, error)
	// DecrementStock atomically subtracts quantity and returns the remaining stock.
	DecrementStock(c context.Context, uid string, quantity int) (int, error)
}

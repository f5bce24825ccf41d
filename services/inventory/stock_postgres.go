package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MarcGrol/marketplace/lib/mypostgres"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

type postgresStockKeeper struct {
	db *sql.DB
}

// NewPostgresStockKeeper works on the products table; digital products have a NULL stock.
func NewPostgresStockKeeper(db *sql.DB) StockKeeper {
	return &postgresStockKeeper{
		db: db,
	}
}

func (s *postgresStockKeeper) GetProduct(c context.Context, uid string) (Product, bool, error) {
	row := mypostgres.ExecutorFromContext(c, s.db).QueryRowContext(c,
		`SELECT id, name, kind, price_in_cents, currency, stock FROM products WHERE id = $1`, uid)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, false, nil
		}
		return Product{}, false, fmt.Errorf("error fetching product %s: %w", uid, err)
	}
	return product, true, nil
}

func (s *postgresStockKeeper) PutProduct(c context.Context, product Product) error {
	product = normalize(product)

	var stock sql.NullInt64
	if product.Stock != nil {
		stock = sql.NullInt64{Int64: int64(*product.Stock), Valid: true}
	}

	_, err := mypostgres.ExecutorFromContext(c, s.db).ExecContext(c,
		`INSERT INTO products (id, name, kind, price_in_cents, currency, stock)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind,
		   price_in_cents = EXCLUDED.price_in_cents, currency = EXCLUDED.currency, stock = EXCLUDED.stock`,
		product.UID, product.Name, string(product.Kind), product.PriceInCents, product.Currency, stock)
	if err != nil {
		return fmt.Errorf("error storing product %s: %w", product.UID, err)
	}
	return nil
}

func (s *postgresStockKeeper) ListProducts(c context.Context) ([]Product, error) {
	rows, err := mypostgres.ExecutorFromContext(c, s.db).QueryContext(c,
		`SELECT id, name, kind, price_in_cents, currency, stock FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *postgresStockKeeper) DecrementStock(c context.Context, uid string, quantity int) (int, error) {
	exec := mypostgres.ExecutorFromContext(c, s.db)

	var remaining int
	err := exec.QueryRowContext(c,
		`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock IS NOT NULL RETURNING stock`,
		quantity, uid).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("error decrementing stock of product %s: %w", uid, err)
	}

	// nothing updated: tell a missing product from one without stock
	var kind string
	err = exec.QueryRowContext(c, `SELECT kind FROM products WHERE id = $1`, uid).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("error fetching product %s: %w", uid, err)
	}
	return 0, ErrStockNotTracked
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var (
		product Product
		kind    string
		stock   sql.NullInt64
	)
	err := row.Scan(&product.UID, &product.Name, &kind, &product.PriceInCents, &product.Currency, &stock)
	if err != nil {
		return Product{}, err
	}
	product.Kind = checkoutapi.ProductKind(kind)
	if stock.Valid {
		product.Stock = Units(int(stock.Int64))
	}
	return product, nil
}

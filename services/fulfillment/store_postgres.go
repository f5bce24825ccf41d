package fulfillment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MarcGrol/marketplace/lib/mypostgres"
	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

const sessionConstraint = "orders_external_session_id_key"

type postgresOrderStore struct {
	db *sql.DB
}

// NewPostgresOrderStore relies on the orders_external_session_id_key constraint.
func NewPostgresOrderStore(db *sql.DB) OrderStore {
	return &postgresOrderStore{
		db: db,
	}
}

func (s *postgresOrderStore) Create(c context.Context, order Order) error {
	err := mypostgres.RunInTransaction(c, s.db, func(c context.Context) error {
		exec := mypostgres.ExecutorFromContext(c, s.db)

		orderUID := ""
		err := exec.QueryRowContext(c,
			`INSERT INTO orders (id, external_session_id, customer_email, currency, total_amount_in_cents, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (external_session_id) DO NOTHING
			 RETURNING id`,
			order.UID, order.ExternalSessionID, order.CustomerEmail, order.Currency,
			order.TotalAmountInCents, string(order.Status), order.CreatedAt).Scan(&orderUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderAlreadyExists
			}
			return err
		}

		for idx, item := range order.Items {
			_, err = exec.ExecContext(c,
				`INSERT INTO order_items (order_id, position, product_id, product_name, kind, quantity, unit_price_in_cents)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				orderUID, idx, item.ProductUID, item.ProductName, string(item.Kind), item.Quantity, item.UnitPriceInCents)
			if err != nil {
				return fmt.Errorf("error storing item %d: %w", idx, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderAlreadyExists) || mypostgres.IsUniqueViolation(err, sessionConstraint) {
			return ErrOrderAlreadyExists
		}
		return fmt.Errorf("error creating order for session %s: %w", order.ExternalSessionID, err)
	}
	return nil
}

func (s *postgresOrderStore) GetBySessionID(c context.Context, externalSessionID string) (Order, bool, error) {
	exec := mypostgres.ExecutorFromContext(c, s.db)

	row := exec.QueryRowContext(c,
		`SELECT id, external_session_id, customer_email, currency, total_amount_in_cents, status, created_at
		 FROM orders WHERE external_session_id = $1`, externalSessionID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, false, nil
		}
		return Order{}, false, fmt.Errorf("error fetching order for session %s: %w", externalSessionID, err)
	}

	itemsPerOrder, err := s.fetchItems(c, `WHERE order_id = $1`, order.UID)
	if err != nil {
		return Order{}, false, err
	}
	order.Items = itemsPerOrder[order.UID]

	return order, true, nil
}

func (s *postgresOrderStore) List(c context.Context) ([]Order, error) {
	exec := mypostgres.ExecutorFromContext(c, s.db)

	rows, err := exec.QueryContext(c,
		`SELECT id, external_session_id, customer_email, currency, total_amount_in_cents, status, created_at
		 FROM orders ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, order)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}

	itemsPerOrder, err := s.fetchItems(c, "")
	if err != nil {
		return nil, err
	}
	for idx := range orders {
		orders[idx].Items = itemsPerOrder[orders[idx].UID]
	}

	return orders, nil
}

func (s *postgresOrderStore) fetchItems(c context.Context, where string, args ...any) (map[string][]OrderItem, error) {
	rows, err := mypostgres.ExecutorFromContext(c, s.db).QueryContext(c,
		`SELECT order_id, product_id, product_name, kind, quantity, unit_price_in_cents
		 FROM order_items `+where+` ORDER BY order_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching order items: %w", err)
	}
	defer rows.Close()

	itemsPerOrder := map[string][]OrderItem{}
	for rows.Next() {
		orderUID := ""
		kind := ""
		item := OrderItem{}
		err := rows.Scan(&orderUID, &item.ProductUID, &item.ProductName, &kind, &item.Quantity, &item.UnitPriceInCents)
		if err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		item.Kind = checkoutapi.ProductKind(kind)
		itemsPerOrder[orderUID] = append(itemsPerOrder[orderUID], item)
	}
	return itemsPerOrder, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	order := Order{}
	status := ""
	err := row.Scan(&order.UID, &order.ExternalSessionID, &order.CustomerEmail, &order.Currency,
		&order.TotalAmountInCents, &status, &order.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	order.Status = OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

package mypostgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/marketplace/lib/mypostgres"
	"github.com/MarcGrol/marketplace/lib/mypostgres/postgrestest"
)

func TestTransactions(t *testing.T) {
	db := postgrestest.Start(t)
	c := context.Background()

	t.Run("rollback on error", func(t *testing.T) {
		err := mypostgres.RunInTransaction(c, db, func(c context.Context) error {
			assert.True(t, mypostgres.InTransaction(c, db))
			_, err := mypostgres.ExecutorFromContext(c, db).ExecContext(c,
				`INSERT INTO products (id, name, kind, price_in_cents, currency, stock) VALUES ('p1', 'Lamp', 'PHYSICAL', 4999, 'USD', 15)`)
			require.NoError(t, err)
			return errors.New("abort")
		})
		assert.EqualError(t, err, "abort")

		var count int
		err = db.QueryRowContext(c, `SELECT COUNT(*) FROM products WHERE id = 'p1'`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("unique violation", func(t *testing.T) {
		insert := `INSERT INTO products (id, name, kind, price_in_cents, currency) VALUES ('p2', 'Kit', 'DIGITAL', 2900, 'USD')`
		_, err := db.ExecContext(c, insert)
		require.NoError(t, err)

		_, err = db.ExecContext(c, insert)
		assert.True(t, mypostgres.IsUniqueViolation(err))
		assert.True(t, mypostgres.IsUniqueViolation(err, "products_pkey"))
		assert.False(t, mypostgres.IsUniqueViolation(err, "orders_external_session_id_key"))
	})

	t.Run("migrate twice", func(t *testing.T) {
		assert.NoError(t, mypostgres.Migrate(db))
	})
}

package mystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/MarcGrol/marketplace/lib/mypostgres"
)

var validFieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// postgresStore keeps each entity as a JSONB document in the documents table.
type postgresStore[T any] struct {
	db   *sql.DB
	kind string
}

func newPostgresStore[T any](c context.Context, db *sql.DB) (*postgresStore[T], func(), error) {
	if db == nil {
		return nil, func() {}, fmt.Errorf("postgres store requires a database connection")
	}
	return &postgresStore[T]{
		db:   db,
		kind: kindOf[T](),
	}, func() {}, nil
}

func (s *postgresStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	return mypostgres.RunInTransaction(c, s.db, f)
}

func (s *postgresStore[T]) Insert(c context.Context, uid string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling entity %s with uid %s: %w", s.kind, uid, err)
	}

	res, err := mypostgres.ExecutorFromContext(c, s.db).ExecContext(c,
		`INSERT INTO documents (kind, uid, payload) VALUES ($1, $2, $3) ON CONFLICT (kind, uid) DO NOTHING`,
		s.kind, uid, payload)
	if err != nil {
		return fmt.Errorf("error inserting entity %s with uid %s: %w", s.kind, uid, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error inserting entity %s with uid %s: %w", s.kind, uid, err)
	}
	if affected == 0 {
		return ErrAlreadyExists
	}

	return nil
}

func (s *postgresStore[T]) Put(c context.Context, uid string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling entity %s with uid %s: %w", s.kind, uid, err)
	}

	_, err = mypostgres.ExecutorFromContext(c, s.db).ExecContext(c,
		`INSERT INTO documents (kind, uid, payload) VALUES ($1, $2, $3)
		 ON CONFLICT (kind, uid) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		s.kind, uid, payload)
	if err != nil {
		return fmt.Errorf("error storing entity %s with uid %s: %w", s.kind, uid, err)
	}

	return nil
}

func (s *postgresStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var value T

	query := `SELECT payload FROM documents WHERE kind = $1 AND uid = $2`
	if mypostgres.InTransaction(c, s.db) {
		query += ` FOR UPDATE`
	}

	var payload []byte
	err := mypostgres.ExecutorFromContext(c, s.db).QueryRowContext(c, query, s.kind, uid).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("error fetching entity %s with uid %s: %w", s.kind, uid, err)
	}

	err = json.Unmarshal(payload, &value)
	if err != nil {
		return value, false, fmt.Errorf("error unmarshalling entity %s with uid %s: %w", s.kind, uid, err)
	}

	return value, true, nil
}

func (s *postgresStore[T]) List(c context.Context) ([]T, error) {
	return s.Query(c, nil, "")
}

func (s *postgresStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	var sb strings.Builder
	args := []any{s.kind}

	sb.WriteString(`SELECT payload FROM documents WHERE kind = $1`)
	for _, f := range filters {
		if f.Compare != "=" {
			return nil, fmt.Errorf("unsupported comparison %q on field %s", f.Compare, f.Field)
		}
		if !validFieldName.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid field name %q", f.Field)
		}
		name := jsonFieldName[T](f.Field)
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("error marshalling filter value of %s: %w", f.Field, err)
		}
		args = append(args, name, string(value))
		fmt.Fprintf(&sb, ` AND payload -> $%d::text = $%d::jsonb`, len(args)-1, len(args))
	}

	if orderByField != "" {
		field, descending := splitOrder(orderByField)
		if !validFieldName.MatchString(field) {
			return nil, fmt.Errorf("invalid order field %q", field)
		}
		name := jsonFieldName[T](field)
		if !validFieldName.MatchString(name) {
			return nil, fmt.Errorf("invalid order field %q", name)
		}
		fmt.Fprintf(&sb, ` ORDER BY payload -> '%s'`, name)
		if descending {
			sb.WriteString(` DESC`)
		}
	}

	rows, err := mypostgres.ExecutorFromContext(c, s.db).QueryContext(c, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying entities %s: %w", s.kind, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var payload []byte
		err = rows.Scan(&payload)
		if err != nil {
			return nil, fmt.Errorf("error scanning entity %s: %w", s.kind, err)
		}
		var value T
		err = json.Unmarshal(payload, &value)
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling entity %s: %w", s.kind, err)
		}
		result = append(result, value)
	}

	return result, rows.Err()
}

// jsonFieldName maps a Go field name of T onto the key it has in the stored JSON document.
func jsonFieldName[T any](field string) string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return field
	}
	sf, found := t.FieldByName(field)
	if !found {
		return field
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field
	}
	return name
}

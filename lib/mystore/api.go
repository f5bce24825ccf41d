package mystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyExists is returned by Insert when the uid is taken.
var ErrAlreadyExists = errors.New("entity already exists")

type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendDatastore Backend = "datastore"
	BackendPostgres  Backend = "postgres"
)

type Filter struct {
	Field   string
	Compare string
	Value   any
}

//go:generate mockgen -source=api.go -package mystore -destination store_mock.go Store
type Store[T any] interface {
	RunInTransaction(c context.Context, f func(c context.Context) error) error
	// Insert creates the entity and fails with ErrAlreadyExists when the uid is already taken.
	Insert(c context.Context, uid string, value T) error
	Put(c context.Context, uid string, value T) error
	Get(c context.Context, uid string) (T, bool, error)
	List(c context.Context) ([]T, error)
	// Query supports equality filters; prefix orderByField with "-" for descending order.
	Query(c context.Context, filters []Filter, orderByField string) ([]T, error)
}

type Config struct {
	Backend   Backend
	ProjectID string
	DB        *sql.DB
}

func New[T any](c context.Context, cfg Config) (Store[T], func(), error) {
	switch cfg.Backend {
	case BackendDatastore:
		return newGcloudStore[T](c, cfg.ProjectID)
	case BackendPostgres:
		return newPostgresStore[T](c, cfg.DB)
	case BackendMemory, "":
		return newInMemoryStore[T](c)
	default:
		return nil, func() {}, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func kindOf[T any]() string {
	val := new(T)
	kind := fmt.Sprintf("%T", *val)
	if idx := strings.LastIndex(kind, "."); idx >= 0 {
		kind = kind[idx+1:]
	}
	return kind
}

func splitOrder(orderByField string) (string, bool) {
	if strings.HasPrefix(orderByField, "-") {
		return orderByField[1:], true
	}
	return orderByField, false
}

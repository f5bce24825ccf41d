package mystore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"

	"github.com/MarcGrol/marketplace/lib/mylog"
)

const maxTransactionAttempts = 3

type ctxTransactionKey struct{}

type gcloudStore[T any] struct {
	client *datastore.Client
	kind   string
	logger mylog.Logger
}

func newGcloudStore[T any](c context.Context, projectID string) (*gcloudStore[T], func(), error) {
	client, err := datastore.NewClient(c, projectID)
	if err != nil {
		return nil, func() {}, fmt.Errorf("error creating datastore-client: %w", err)
	}

	return &gcloudStore[T]{
			client: client,
			kind:   kindOf[T](),
			logger: mylog.New("mystore"),
		}, func() {
			client.Close()
		}, nil
}

func transactionFromContext(c context.Context) (*datastore.Transaction, bool) {
	tx, ok := c.Value(ctxTransactionKey{}).(*datastore.Transaction)
	return tx, ok
}

func (s *gcloudStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if _, ok := transactionFromContext(c); ok {
		return f(c)
	}

	var err error
	for i := 1; i <= maxTransactionAttempts; i++ {
		err = s.runInTransaction(c, f)
		if err != nil {
			if errors.Is(err, datastore.ErrConcurrentTransaction) {
				// force retry: this approach requires idempotency of the business logic
				s.logger.Log(c, s.kind, mylog.SeverityWarn, "Concurrent transaction, retrying (%d of %d): %s", i, maxTransactionAttempts, err)
				continue
			}
			return err
		}
		return nil
	}
	return err
}

func (s *gcloudStore[T]) runInTransaction(c context.Context, f func(c context.Context) error) error {
	t, err := s.client.NewTransaction(c)
	if err != nil {
		return fmt.Errorf("error creating transaction: %w", err)
	}

	err = f(context.WithValue(c, ctxTransactionKey{}, t))
	if err != nil {
		rollbackErr := t.Rollback()
		if rollbackErr != nil {
			s.logger.Log(c, s.kind, mylog.SeverityError, "Error rolling back transaction: %s", rollbackErr)
		}
		return err
	}

	_, err = t.Commit()
	if err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

func (s *gcloudStore[T]) Insert(c context.Context, uid string, value T) error {
	key := datastore.NameKey(s.kind, uid, nil)

	if tx, ok := transactionFromContext(c); ok {
		var existing T
		err := tx.Get(key, &existing)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return fmt.Errorf("error transactionally checking entity %s with uid %s: %w", s.kind, uid, err)
		}
		_, err = tx.Put(key, &value)
		if err != nil {
			return fmt.Errorf("error transactionally inserting entity %s with uid %s: %w", s.kind, uid, err)
		}
		return nil
	}

	_, err := s.client.Mutate(c, datastore.NewInsert(key, &value))
	if err != nil {
		if isAlreadyExists(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("error inserting entity %s with uid %s: %w", s.kind, uid, err)
	}

	return nil
}

func isAlreadyExists(err error) bool {
	var multi datastore.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			if e != nil && isAlreadyExists(e) {
				return true
			}
		}
		return false
	}
	status, ok := grpcStatus.FromError(err)
	return ok && status.Code() == codes.AlreadyExists
}

func (s *gcloudStore[T]) Put(c context.Context, uid string, value T) error {
	key := datastore.NameKey(s.kind, uid, nil)

	if tx, ok := transactionFromContext(c); ok {
		_, err := tx.Put(key, &value)
		if err != nil {
			return fmt.Errorf("error transactionally storing entity %s with uid %s: %w", s.kind, uid, err)
		}
		return nil
	}

	_, err := s.client.Put(c, key, &value)
	if err != nil {
		return fmt.Errorf("error storing entity %s with uid %s: %w", s.kind, uid, err)
	}

	return nil
}

func (s *gcloudStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var value T
	key := datastore.NameKey(s.kind, uid, nil)

	var err error
	if tx, ok := transactionFromContext(c); ok {
		err = tx.Get(key, &value)
	} else {
		err = s.client.Get(c, key, &value)
	}
	if err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("error fetching entity %s with uid %s: %w", s.kind, uid, err)
	}

	return value, true, nil
}

func (s *gcloudStore[T]) List(c context.Context) ([]T, error) {
	return s.Query(c, nil, "")
}

func (s *gcloudStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	objectsToFetch := []T{}

	q := datastore.NewQuery(s.kind)
	for _, f := range filters {
		q = q.FilterField(f.Field, f.Compare, f.Value)
	}
	if orderByField != "" {
		q = q.Order(orderByField)
	}
	if tx, ok := transactionFromContext(c); ok {
		q = q.Transaction(tx)
	}

	_, err := s.client.GetAll(c, q, &objectsToFetch)
	if err != nil {
		return nil, fmt.Errorf("error querying entities %s: %w", s.kind, err)
	}
	return objectsToFetch, nil
}

package mystore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

type ctxInMemoryTxKey struct {
	store any
}

type inMemoryStore[T any] struct {
	sync.Mutex
	items map[string]T
}

func newInMemoryStore[T any](c context.Context) (*inMemoryStore[T], func(), error) {
	return &inMemoryStore[T]{
		items: make(map[string]T),
	}, func() {}, nil
}

func (s *inMemoryStore[T]) inTransaction(c context.Context) bool {
	return c.Value(ctxInMemoryTxKey{store: s}) != nil
}

func (s *inMemoryStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if s.inTransaction(c) {
		return f(c)
	}

	// Start transaction
	s.Lock()
	defer s.Unlock()

	snapshot := make(map[string]T, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}

	err := f(context.WithValue(c, ctxInMemoryTxKey{store: s}, true))
	if err != nil {
		// Rollback
		s.items = snapshot
		return err
	}

	// Commit
	return nil
}

func (s *inMemoryStore[T]) locked(c context.Context, f func()) {
	if !s.inTransaction(c) {
		s.Lock()
		defer s.Unlock()
	}
	f()
}

func (s *inMemoryStore[T]) Insert(c context.Context, uid string, value T) error {
	var err error
	s.locked(c, func() {
		if _, exists := s.items[uid]; exists {
			err = ErrAlreadyExists
			return
		}
		s.items[uid] = value
	})
	return err
}

func (s *inMemoryStore[T]) Put(c context.Context, uid string, value T) error {
	s.locked(c, func() {
		s.items[uid] = value
	})
	return nil
}

func (s *inMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var (
		result T
		exists bool
	)
	s.locked(c, func() {
		result, exists = s.items[uid]
	})
	return result, exists, nil
}

func (s *inMemoryStore[T]) List(c context.Context) ([]T, error) {
	result := []T{}
	s.locked(c, func() {
		for _, v := range s.items {
			result = append(result, v)
		}
	})
	return result, nil
}

func (s *inMemoryStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	result := []T{}
	for _, item := range all {
		match, err := matches(item, filters)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, item)
		}
	}

	if orderByField != "" {
		field, descending := splitOrder(orderByField)
		sort.SliceStable(result, func(i, j int) bool {
			a, b := fieldValue(result[i], field), fieldValue(result[j], field)
			if descending {
				a, b = b, a
			}
			return lessThan(a, b)
		})
	}

	return result, nil
}

func matches(item any, filters []Filter) (bool, error) {
	for _, f := range filters {
		if f.Compare != "=" {
			return false, fmt.Errorf("unsupported comparison %q on field %s", f.Compare, f.Field)
		}
		v := fieldValue(item, f.Field)
		if !v.IsValid() {
			return false, fmt.Errorf("unknown field %s", f.Field)
		}
		if !reflect.DeepEqual(v.Interface(), f.Value) {
			return false, nil
		}
	}
	return true, nil
}

func fieldValue(item any, field string) reflect.Value {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v.FieldByName(field)
}

func lessThan(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	if t, ok := a.Interface().(time.Time); ok {
		return t.Before(b.Interface().(time.Time))
	}
	switch a.Kind() {
	case reflect.String:
		return a.String() < b.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.Uint() < b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	default:
		return false
	}
}

package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcGrol/marketplace/lib/mystore"
)

type documentOrderStore struct {
	store mystore.Store[Order]
}

// NewDocumentOrderStore keys orders by their external session id, so the create-only
// insert of the document store is the uniqueness constraint.
func NewDocumentOrderStore(store mystore.Store[Order]) OrderStore {
	return &documentOrderStore{
		store: store,
	}
}

func (s *documentOrderStore) Create(c context.Context, order Order) error {
	err := s.store.Insert(c, order.ExternalSessionID, order)
	if err != nil {
		if errors.Is(err, mystore.ErrAlreadyExists) {
			return ErrOrderAlreadyExists
		}
		return fmt.Errorf("error creating order for session %s: %w", order.ExternalSessionID, err)
	}
	return nil
}

func (s *documentOrderStore) GetBySessionID(c context.Context, externalSessionID string) (Order, bool, error) {
	order, exists, err := s.store.Get(c, externalSessionID)
	if err != nil {
		return Order{}, false, fmt.Errorf("error fetching order for session %s: %w", externalSessionID, err)
	}
	return order, exists, nil
}

func (s *documentOrderStore) List(c context.Context) ([]Order, error) {
	orders, err := s.store.Query(c, nil, "-CreatedAt")
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}
	return orders, nil
}

package mystore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/marketplace/lib/mypostgres/postgrestest"
	"github.com/MarcGrol/marketplace/lib/mystore"
)

type Document struct {
	UID   string
	Label string
}

type TaggedDocument struct {
	UID       string    `json:"uid"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func TestPostgresStore(t *testing.T) {
	db := postgrestest.Start(t)
	c := context.Background()

	store, cleanup, err := mystore.New[Document](c, mystore.Config{Backend: mystore.BackendPostgres, DB: db})
	require.NoError(t, err)
	defer cleanup()

	t.Run("insert is create-only", func(t *testing.T) {
		require.NoError(t, store.Insert(c, "a", Document{UID: "a", Label: "first"}))
		require.ErrorIs(t, store.Insert(c, "a", Document{UID: "a", Label: "second"}), mystore.ErrAlreadyExists)

		doc, found, err := store.Get(c, "a")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "first", doc.Label)
	})

	t.Run("query by field", func(t *testing.T) {
		require.NoError(t, store.Put(c, "b", Document{UID: "b", Label: "second"}))

		docs, err := store.Query(c, []mystore.Filter{{Field: "Label", Compare: "=", Value: "second"}}, "-UID")
		require.NoError(t, err)
		require.Equal(t, []Document{{UID: "b", Label: "second"}}, docs)
	})

	t.Run("query uses json keys of tagged fields", func(t *testing.T) {
		tagged, cleanup, err := mystore.New[TaggedDocument](c, mystore.Config{Backend: mystore.BackendPostgres, DB: db})
		require.NoError(t, err)
		defer cleanup()

		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		for idx, uid := range []string{"t2", "t1", "t3"} {
			require.NoError(t, tagged.Put(c, uid, TaggedDocument{UID: uid, Status: "COMPLETED", CreatedAt: base.Add(time.Duration(idx) * time.Hour)}))
		}
		require.NoError(t, tagged.Put(c, "t4", TaggedDocument{UID: "t4", Status: "CANCELLED", CreatedAt: base.Add(10 * time.Hour)}))

		docs, err := tagged.Query(c, []mystore.Filter{{Field: "Status", Compare: "=", Value: "COMPLETED"}}, "-CreatedAt")
		require.NoError(t, err)
		uids := []string{}
		for _, doc := range docs {
			uids = append(uids, doc.UID)
		}
		require.Equal(t, []string{"t3", "t1", "t2"}, uids)
	})
}

package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/andrebq/authbox/sessions"
	"github.com/stretchr/testify/require"
)

const mongoURIEnvVar = "AUTHBOX_TEST_MONGO_URI"

func acquireStore(ctx context.Context, t *testing.T) *Store {
	uri := os.Getenv(mongoURIEnvVar)
	if uri == "" {
		t.Skipf("%v not set, skipping mongodb tests", mongoURIEnvVar)
	}
	dbName := fmt.Sprint("authbox_test_", time.Now().UnixNano())
	store, disconnect, err := Connect(ctx, uri, dbName, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := store.coll.Database().Drop(context.Background()); err != nil {
			t.Log("unable to drop test database", err)
		}
		disconnect(context.Background())
	})
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := acquireStore(ctx, t)
	created := time.Now().Add(-time.Hour)

	err := store.SaveSession(ctx, sessions.Record{ID: "s1", UserID: "u1", CreatedAt: created})
	require.NoError(t, err)
	err = store.SaveSession(ctx, sessions.Record{ID: "s2", UserID: "u1", CreatedAt: time.Now()})
	require.NoError(t, err)

	rec, found, err := store.LookupSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "u1", rec.UserID)
	require.WithinDuration(t, created, rec.CreatedAt, time.Millisecond)

	_, found, err = store.LookupSession(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	n, err := store.DeleteSessionsBefore(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	deleted, err := store.DeleteSession(ctx, "s2")
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = store.DeleteSession(ctx, "s2")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestRegistryWithMongo(t *testing.T) {
	ctx := context.Background()
	store := acquireStore(ctx, t)
	reg := sessions.New(sessions.WithPersistence(store))
	id, err := reg.Create(ctx, "u1")
	require.NoError(t, err)

	uid, err := sessions.New(sessions.WithPersistence(store)).Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "u1", uid)
}

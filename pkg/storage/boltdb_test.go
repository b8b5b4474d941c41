package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudtun/cloudtun/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadMissingRecord(t *testing.T) {
	store := newTestStore(t)

	record, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, record.Server)
	assert.False(t, record.Connected)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	saved := &types.StateRecord{
		Server: &types.ServerIdentity{
			InstanceName: "vpn-server-us-central1-a",
			Region:       "us-central1",
			Zone:         "us-central1-a",
			PublicIP:     "34.1.2.3",
			PublicKey:    "SERVERPUB=",
			CreatedAt:    time.Now().UTC().Truncate(time.Second),
		},
		Connected:      true,
		LastReconciled: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSaveClearsIdentity(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&types.StateRecord{
		Server: &types.ServerIdentity{InstanceName: "vpn-server-abcd"},
	}))
	require.NoError(t, store.Save(&types.StateRecord{}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded.Server)
}

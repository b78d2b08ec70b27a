package state

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"plasmavault/storage"
	"plasmavault/storage/trie"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return NewManager(tr)
}

func TestKVRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	key := []byte("fees/totals")
	found, err := mgr.KVGet(key, new(uint64))
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, mgr.KVPut(key, uint256.NewInt(500)))
	out := new(uint256.Int)
	found, err = mgr.KVGet(key, out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(500), out.Uint64())

	require.NoError(t, mgr.KVDelete(key))
	found, err = mgr.KVGet(key, nil)
	require.NoError(t, err)
	require.False(t, found)

	var list []common.Address
	require.NoError(t, mgr.KVGetList([]byte("fees/recipients"), &list))
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestAtomicRevertsOnError(t *testing.T) {
	mgr := newTestManager(t)
	key := []byte("counter")
	require.NoError(t, mgr.KVPut(key, uint64(1)))

	boom := errors.New("boom")
	err := mgr.Atomic(func() error {
		if err := mgr.KVPut(key, uint64(2)); err != nil {
			return err
		}
		return mgr.Atomic(func() error {
			if err := mgr.KVPut([]byte("other"), uint64(3)); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	var value uint64
	found, err := mgr.KVGet(key, &value)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(1), value)

	found, err = mgr.KVGet([]byte("other"), nil)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, mgr.Atomic(func() error { return mgr.KVPut(key, uint64(4)) }))
	_, err = mgr.KVGet(key, &value)
	require.NoError(t, err)
	require.Equal(t, uint64(4), value)
}

func TestRoles(t *testing.T) {
	mgr := newTestManager(t)
	a := common.HexToAddress("0x02")
	b := common.HexToAddress("0x01")

	require.NoError(t, mgr.SetRole("atomist", a))
	require.NoError(t, mgr.SetRole("atomist", b))
	require.NoError(t, mgr.SetRole("atomist", a))

	members, err := mgr.RoleMembers("atomist")
	require.NoError(t, err)
	require.Equal(t, []common.Address{b, a}, members)
	require.True(t, mgr.HasRole("atomist", a))

	require.NoError(t, mgr.RevokeRole("atomist", a))
	require.False(t, mgr.HasRole("atomist", a))
	require.Error(t, mgr.SetRole(" ", a))
}

func TestEnsureSchema(t *testing.T) {
	mgr := newTestManager(t)
	fresh, err := mgr.EnsureSchema()
	require.NoError(t, err)
	require.True(t, fresh)
	version, ok, err := mgr.SchemaVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, SchemaVersion, version)

	fresh, err = mgr.EnsureSchema()
	require.NoError(t, err)
	require.False(t, fresh)

	require.NoError(t, mgr.SetSchemaVersion(SchemaVersion+1))
	_, err = mgr.EnsureSchema()
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

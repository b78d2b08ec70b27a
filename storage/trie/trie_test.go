package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"plasmavault/storage"
)

func TestCommittedRegionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	tr, err := NewTrie(first, nil)
	require.NoError(t, err)
	require.Equal(t, gethtypes.EmptyRootHash, tr.Root())

	key := crypto.Keccak256([]byte("fees/totals"))
	require.NoError(t, tr.Update(key, []byte{0x01, 0xf4}))
	pending := tr.Hash()
	require.Equal(t, gethtypes.EmptyRootHash, tr.Root())

	root, err := tr.Commit(common.Hash{}, 1)
	require.NoError(t, err)
	require.Equal(t, pending, root)
	require.Equal(t, root, tr.Root())
	first.Close()

	second, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer second.Close()

	restored, err := NewTrie(second, root.Bytes())
	require.NoError(t, err)
	got, err := restored.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0xf4}, got)
}

func TestCopyIsARevertPoint(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("oracle/baseline"))
	require.NoError(t, tr.Update(key, []byte{0x01}))

	snapshot, err := tr.Copy()
	require.NoError(t, err)

	require.NoError(t, tr.Update(key, []byte{0x02}))
	require.NoError(t, tr.Delete(crypto.Keccak256([]byte("missing"))))

	got, err := snapshot.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, got)

	require.NoError(t, tr.Delete(key))
	got, err = tr.Get(key)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNewTrieRequiresStore(t *testing.T) {
	_, err := NewTrie(nil, nil)
	require.Error(t, err)
}

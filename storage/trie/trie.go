package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"

	"plasmavault/storage"
)

// Trie holds the vault state regions in a go-ethereum Merkle Patricia trie.
// Keys are keccak256 digests produced by the state layer. The committed root
// only moves on Commit; Hash reflects pending writes.
//
// Trie is not safe for concurrent use.
type Trie struct {
	nodes *triedb.Database
	trie  *gethtrie.Trie
	root  common.Hash
}

// NewTrie opens the trie at root. A nil or empty root opens the empty trie.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	if store == nil {
		return nil, fmt.Errorf("trie: store required")
	}
	rootHash := gethtypes.EmptyRootHash
	if len(root) > 0 {
		rootHash = common.BytesToHash(root)
	}
	t := &Trie{nodes: store.TrieDB()}
	if err := t.open(rootHash); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) open(root common.Hash) error {
	underlying, err := gethtrie.New(gethtrie.TrieID(root), t.nodes)
	if err != nil {
		return err
	}
	t.trie = underlying
	t.root = root
	return nil
}

// Get returns the value under key, or nil when absent.
func (t *Trie) Get(key []byte) ([]byte, error) { return t.trie.Get(key) }

// Update writes value under key.
func (t *Trie) Update(key, value []byte) error { return t.trie.Update(key, value) }

// Delete removes key. Missing keys are ignored.
func (t *Trie) Delete(key []byte) error { return t.trie.Delete(key) }

// Hash returns the root including uncommitted writes.
func (t *Trie) Hash() common.Hash { return t.trie.Hash() }

// Root returns the last committed root.
func (t *Trie) Root() common.Hash { return t.root }

// Copy returns an independent view sharing the node database. The state
// layer keeps one as the revert point of an atomic call.
func (t *Trie) Copy() (*Trie, error) {
	return &Trie{nodes: t.nodes, trie: t.trie.Copy(), root: t.root}, nil
}

// Commit flushes pending writes to disk and reopens the trie at the new root.
// height labels the commit in the node database.
func (t *Trie) Commit(parent common.Hash, height uint64) (common.Hash, error) {
	newRoot, set := t.trie.Commit(false)
	if set != nil {
		merged := trienode.NewMergedNodeSet()
		if err := merged.Merge(set); err != nil {
			return common.Hash{}, err
		}
		if err := t.nodes.Update(newRoot, parent, height, merged, nil); err != nil {
			return common.Hash{}, err
		}
		if err := t.nodes.Commit(newRoot, false); err != nil {
			return common.Hash{}, err
		}
	}
	if err := t.open(newRoot); err != nil {
		return common.Hash{}, err
	}
	return newRoot, nil
}

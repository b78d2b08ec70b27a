package state

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"plasmavault/storage/trie"
)

// Manager provides RLP-encoded key/value access to the vault state trie.
// Manager is not safe for concurrent use; callers serialise executions.
type Manager struct {
	trie  *trie.Trie
	depth int
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

var rolePrefix = []byte("role:")

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Atomic executes fn against the current state. When fn fails every write it
// performed is discarded by restoring the snapshot taken on entry. Nested
// calls join the outermost execution, which alone decides whether the writes
// survive.
func (m *Manager) Atomic(fn func() error) error {
	if m == nil || m.trie == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	if m.depth > 0 {
		return fn()
	}
	snapshot, err := m.trie.Copy()
	if err != nil {
		return fmt.Errorf("state: snapshot: %w", err)
	}
	m.depth++
	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				m.trie = snapshot
				m.depth--
				panic(r)
			}
		}()
		return fn()
	}()
	m.depth--
	if err != nil {
		m.trie = snapshot
		return err
	}
	return nil
}

// Commit flushes pending writes to the backing database and returns the new
// state root.
func (m *Manager) Commit(blockNumber uint64) (common.Hash, error) {
	if m == nil || m.trie == nil {
		return common.Hash{}, fmt.Errorf("state: manager unavailable")
	}
	return m.trie.Commit(m.trie.Root(), blockNumber)
}

// Root returns the hash of the state including uncommitted writes.
func (m *Manager) Root() common.Hash {
	if m == nil || m.trie == nil {
		return common.Hash{}
	}
	return m.trie.Hash()
}

// SetRole associates an address with the specified role. Duplicate assignments
// are ignored while the stored list remains sorted for determinism.
func (m *Manager) SetRole(role string, addr common.Address) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("role must not be empty")
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("address must not be empty")
	}
	members, err := m.RoleMembers(trimmed)
	if err != nil {
		return err
	}
	for _, existing := range members {
		if existing == addr {
			return nil
		}
	}
	members = append(members, addr)
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i][:], members[j][:]) < 0
	})
	return m.writeRole(trimmed, members)
}

// RevokeRole removes an address from the specified role. Unknown members are
// ignored.
func (m *Manager) RevokeRole(role string, addr common.Address) error {
	trimmed := strings.TrimSpace(role)
	members, err := m.RoleMembers(trimmed)
	if err != nil {
		return err
	}
	kept := members[:0]
	for _, existing := range members {
		if existing != addr {
			kept = append(kept, existing)
		}
	}
	return m.writeRole(trimmed, kept)
}

func (m *Manager) writeRole(role string, members []common.Address) error {
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.trie.Update(roleKey(role), encoded)
}

// RoleMembers returns all addresses assigned to the provided role.
func (m *Manager) RoleMembers(role string) ([]common.Address, error) {
	data, err := m.trie.Get(roleKey(strings.TrimSpace(role)))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []common.Address{}, nil
	}
	var members []common.Address
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// HasRole reports whether the provided address is associated with the
// specified role. Errors while reading the underlying state result in a false
// return.
func (m *Manager) HasRole(role string, addr common.Address) bool {
	members, err := m.RoleMembers(role)
	if err != nil {
		return false
	}
	for _, member := range members {
		if member == addr {
			return true
		}
	}
	return false
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256 to match the requirements of
// the underlying trie implementation.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under the supplied key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.trie.Delete(kvKey(key))
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

var paramPrefix = "params/"

// ParamStoreSet stores a raw parameter payload under the supplied name.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("params: name must not be empty")
	}
	return m.KVPut([]byte(paramPrefix+name), value)
}

// ParamStoreGet loads the raw parameter payload stored under name.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, fmt.Errorf("params: name must not be empty")
	}
	var value []byte
	ok, err := m.KVGet([]byte(paramPrefix+name), &value)
	if err != nil || !ok {
		return nil, ok, err
	}
	return value, true, nil
}

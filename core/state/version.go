package state

import (
	"errors"
	"fmt"
	"math"
)

// SchemaVersion is the layout of the fee and oracle regions this binary
// reads. Regions only gain trailing fields; bump it when one is rewritten.
const SchemaVersion uint32 = 1

var schemaVersionKey = []byte("vault/schema-version")

// ErrSchemaMismatch is returned when the stored layout differs from
// SchemaVersion.
var ErrSchemaMismatch = errors.New("state: schema version mismatch")

// SetSchemaVersion stamps version into state.
func (m *Manager) SetSchemaVersion(version uint32) error {
	if m == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	return m.KVPut(schemaVersionKey, uint64(version))
}

// SchemaVersion returns the stamped version, if any.
func (m *Manager) SchemaVersion() (uint32, bool, error) {
	if m == nil {
		return 0, false, fmt.Errorf("state: manager unavailable")
	}
	var stored uint64
	ok, err := m.KVGet(schemaVersionKey, &stored)
	if err != nil || !ok {
		return 0, false, err
	}
	if stored > math.MaxUint32 {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureSchema stamps empty state with SchemaVersion and rejects state written
// with any other layout. fresh reports whether the stamp was written now.
func (m *Manager) EnsureSchema() (fresh bool, err error) {
	version, ok, err := m.SchemaVersion()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, m.SetSchemaVersion(SchemaVersion)
	}
	if version != SchemaVersion {
		return false, fmt.Errorf("%w: stored=%d supported=%d", ErrSchemaMismatch, version, SchemaVersion)
	}
	return false, nil
}

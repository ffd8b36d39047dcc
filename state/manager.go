package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"dexcore/storage"
)

// Manager exposes typed key-value access over a storage backend. Values are
// RLP encoded. Mutations are journaled so that a failed state transition can
// be unwound to the snapshot taken at its entry point, including every write
// performed by nested calls.
type Manager struct {
	db      storage.Database
	journal []journalEntry
}

type journalEntry struct {
	key     string
	prev    []byte
	existed bool
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet decodes the value stored under key into out. It reports whether the
// key existed. Passing a nil out performs a bare existence check.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut encodes value and stores it under key, journaling the previous value
// for snapshot rollback.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	prev, getErr := m.db.Get(key)
	existed := true
	if errors.Is(getErr, storage.ErrKeyNotFound) {
		existed = false
	} else if getErr != nil {
		return getErr
	}
	m.journal = append(m.journal, journalEntry{key: string(key), prev: prev, existed: existed})
	return m.db.Put(key, raw)
}

// Snapshot returns a revision identifier for the current journal position.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot undoes every write recorded after the given revision, most
// recent first.
func (m *Manager) RevertToSnapshot(rev int) {
	if rev < 0 || rev > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= rev; i-- {
		entry := m.journal[i]
		if entry.existed {
			_ = m.db.Put([]byte(entry.key), entry.prev)
		} else {
			_ = m.db.Delete([]byte(entry.key))
		}
	}
	m.journal = m.journal[:rev]
}

// Finalise discards the journal once the surrounding ledger has committed the
// enclosing transaction. It must only be called at the transaction boundary,
// never from within a nested state transition.
func (m *Manager) Finalise() {
	m.journal = m.journal[:0]
}

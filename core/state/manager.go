package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"jackpotchain/storage"
)

// Manager is a journaled overlay over the key-value store. Writes stay in
// memory until Commit flushes them as a single batch; Snapshot and
// RevertToSnapshot roll back writes made during a failed transition.
type Manager struct {
	db      storage.Database
	dirty   map[string]pendingValue
	journal []journalEntry
}

type pendingValue struct {
	value   []byte
	deleted bool
}

// journalEntry remembers what the overlay held for key before a write.
type journalEntry struct {
	key     string
	prev    pendingValue
	hadPrev bool
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, dirty: make(map[string]pendingValue)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func prefixedKey(prefix []byte, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if pending, ok := m.dirty[string(key)]; ok {
		if pending.deleted {
			return nil, nil
		}
		return append([]byte(nil), pending.value...), nil
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) write(key []byte, value pendingValue) {
	k := string(key)
	prev, hadPrev := m.dirty[k]
	m.journal = append(m.journal, journalEntry{key: k, prev: prev, hadPrev: hadPrev})
	m.dirty[k] = value
}

func (m *Manager) put(key []byte, value []byte) {
	m.write(key, pendingValue{value: append([]byte(nil), value...)})
}

func (m *Manager) delete(key []byte) {
	m.write(key, pendingValue{deleted: true})
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(key, encoded)
	return nil
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := m.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot returns an identifier for the current journal position.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot undoes every write made after the snapshot was taken.
// Snapshots taken after id become invalid.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:id]
}

// Pending reports the number of keys staged for the next commit.
func (m *Manager) Pending() int {
	return len(m.dirty)
}

// Commit flushes all staged writes to the database in one batch and clears
// the journal.
func (m *Manager) Commit() error {
	if len(m.dirty) == 0 {
		m.journal = m.journal[:0]
		return nil
	}
	batch := m.db.NewBatch()
	for key, pending := range m.dirty {
		if pending.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), pending.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.Discard()
	return nil
}

// Discard drops every staged write.
func (m *Manager) Discard() {
	m.dirty = make(map[string]pendingValue)
	m.journal = m.journal[:0]
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.putRLP(kvKey(key), value)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return m.getRLP(kvKey(key), out)
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.delete(kvKey(key))
	return nil
}

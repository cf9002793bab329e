package server

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"hanabi-server/internal/hanabi"
)

const maxTableNameLength = 32

// TableManager is the registry of tables. Its lock guards only the map and the
// ID counter; a table's own state is guarded by the table's lock, which is
// never taken while holding this one.
type TableManager struct {
	tables map[uint64]*Table
	nextID uint64
	mu     sync.RWMutex
}

func NewTableManager() *TableManager {
	return &TableManager{
		tables: make(map[uint64]*Table),
	}
}

// Create allocates a fresh ID; IDs are never reused while the process lives.
func (tm *TableManager) Create(name, owner string, opts hanabi.Options) (*Table, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.nextID++
	t := newTable(tm.nextID, name, owner, opts, time.Now())
	tm.tables[t.ID] = t
	return t, nil
}

func (tm *TableManager) Get(id uint64) (*Table, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	t, exists := tm.tables[id]
	if !exists {
		return nil, ErrTableNotFound
	}
	return t, nil
}

func (tm *TableManager) Remove(id uint64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.tables, id)
}

// Insert adds a table that already has an ID, as on restore. The counter is
// moved past it so new tables never collide with restored ones.
func (tm *TableManager) Insert(t *Table) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.tables[t.ID] = t
	if t.ID > tm.nextID {
		tm.nextID = t.ID
	}
}

// ForEach calls fn for a snapshot of the tables in ID order. fn runs without
// the registry lock held, so it may lock the table and call back into the
// registry.
func (tm *TableManager) ForEach(fn func(*Table)) {
	tm.mu.RLock()
	tables := make([]*Table, 0, len(tm.tables))
	for _, t := range tm.tables {
		tables = append(tables, t)
	}
	tm.mu.RUnlock()

	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	for _, t := range tables {
		fn(t)
	}
}

func (tm *TableManager) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.tables)
}

// ValidateName checks a table or user display name.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxTableNameLength {
		return ErrInvalidName
	}
	return nil
}

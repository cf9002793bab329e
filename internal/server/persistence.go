package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hanabi-server/internal/storage"
)

// PersistenceManager encodes tables for the configured store.
type PersistenceManager struct {
	store storage.TableStore
}

func NewPersistenceManager(store storage.TableStore) *PersistenceManager {
	return &PersistenceManager{store: store}
}

// SaveTable encodes and writes one table. The caller holds the table's lock.
func (pm *PersistenceManager) SaveTable(ctx context.Context, t *Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to serialize table %d: %w", t.ID, err)
	}
	if err := pm.store.Save(ctx, t.ID, data); err != nil {
		return err
	}
	return nil
}

// LoadTables decodes every stored table. A single bad record fails the whole
// load.
func (pm *PersistenceManager) LoadTables(ctx context.Context) ([]*Table, error) {
	records, err := pm.store.List(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, 0, len(records))
	for _, rec := range records {
		t := &Table{}
		if err := json.Unmarshal(rec.Data, t); err != nil {
			return nil, fmt.Errorf("failed to deserialize table %d: %w", rec.ID, err)
		}
		if t.ID != rec.ID {
			return nil, fmt.Errorf("table record %d contains table %d", rec.ID, t.ID)
		}
		if t.Game == nil {
			return nil, fmt.Errorf("table %d was saved without a game", rec.ID)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (pm *PersistenceManager) DeleteTable(ctx context.Context, id uint64) error {
	if err := pm.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete saved table %d: %w", id, err)
	}
	return nil
}

// SerializeTables writes every game in progress to the store. Lobbies and
// finished games are not kept. The first failed write aborts the pass.
func (s *Server) SerializeTables(ctx context.Context) error {
	now := time.Now()
	saved := 0
	var firstErr error

	s.tableManager.ForEach(func(t *Table) {
		if firstErr != nil {
			return
		}

		t.mu.Lock()
		defer t.mu.Unlock()

		if !t.inProgress() {
			return
		}
		t.Game.SettleClock(now)
		if err := s.persistenceManager.SaveTable(ctx, t); err != nil {
			firstErr = err
			return
		}
		saved++
	})

	if firstErr != nil {
		s.log.WithError(firstErr).WithField("saved", saved).Error("Table serialization aborted")
		return firstErr
	}
	s.log.WithField("saved", saved).Info("Tables serialized")
	return nil
}

// RestoreTables brings back the tables saved by the previous run. Every
// player starts out absent; the player whose turn it was gets a grace
// allowance on timed tables. Any failure is returned and must stop startup.
func (s *Server) RestoreTables(ctx context.Context) error {
	tables, err := s.persistenceManager.LoadTables(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, t := range tables {
		t.init()
		if err := t.Game.Attach(&t.Options); err != nil {
			return fmt.Errorf("failed to restore table %d: %w", t.ID, err)
		}

		t.mu.Lock()
		for _, p := range t.Players {
			p.Present = false
			p.sessionID = ""
		}
		if t.Options.Timed {
			t.Game.ActivePlayer().Time += s.cfg.RestoreGrace
			t.Game.DatetimeTurnBegin = now
		}
		t.touch(now)
		s.armTurnTimer(t)
		turn := t.Game.Turn
		t.mu.Unlock()

		s.watchIdle(t)
		s.tableManager.Insert(t)
		if err := s.persistenceManager.DeleteTable(ctx, t.ID); err != nil {
			return err
		}

		s.tableLog(t, nil).WithField("turn", turn).Info("Table restored")
	}

	s.log.WithField("restored", len(tables)).Info("Tables restored")
	return nil
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

const (
	prefixAlarm       = "alarm:"
	prefixAlarmEvent  = "alarmevent:"
	prefixRetention   = "retention:"
)

// ErrNotFound is returned by Get* methods when the key doesn't exist.
var ErrNotFound = fmt.Errorf("store: not found")

// Store is the Badger-backed control-plane document store. It satisfies
// alarm.Store and retention.PolicyStore directly, so the same instance
// backs both the scheduler/worker and the CRUD API.
type Store struct {
	db *badger.DB
}

// Open creates or opens the BadgerDB database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open control store: %w", err)
	}
	logging.Info().Str("dir", dir).Msg("control store opened")
	return &Store{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) get(key string, dest interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *Store) scan(prefix string, visit func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(visit); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Alarms ---

// CreateAlarm assigns an ID if absent and persists the alarm.
func (s *Store) CreateAlarm(a model.Alarm) (model.Alarm, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return a, s.put(prefixAlarm+a.ID, a)
}

// UpdateAlarm overwrites an existing alarm by ID.
func (s *Store) UpdateAlarm(a model.Alarm) error {
	if _, err := s.GetAlarm(a.ID); err != nil {
		return err
	}
	return s.put(prefixAlarm+a.ID, a)
}

// GetAlarm fetches a single alarm by ID.
func (s *Store) GetAlarm(id string) (model.Alarm, error) {
	var a model.Alarm
	err := s.get(prefixAlarm+id, &a)
	return a, err
}

// DeleteAlarm removes an alarm by ID.
func (s *Store) DeleteAlarm(id string) error {
	return s.delete(prefixAlarm + id)
}

// Alarms lists every saved alarm; satisfies alarm.Store.
func (s *Store) Alarms() []model.Alarm {
	var out []model.Alarm
	_ = s.scan(prefixAlarm, func(val []byte) error {
		var a model.Alarm
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out
}

// --- Alarm events ---

// SaveEvent persists a triggered AlarmEvent; satisfies alarm.Store.
func (s *Store) SaveEvent(event model.AlarmEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := s.put(prefixAlarmEvent+event.ID, event); err != nil {
		logging.Error().Err(err).Str("alarm", event.AlarmID).Msg("failed to persist alarm event")
	}
}

// UpdateEvent overwrites an existing alarm event (used by acknowledge/resolve).
func (s *Store) UpdateEvent(event model.AlarmEvent) error {
	return s.put(prefixAlarmEvent+event.ID, event)
}

// GetEvent fetches a single alarm event by ID.
func (s *Store) GetEvent(id string) (model.AlarmEvent, error) {
	var e model.AlarmEvent
	err := s.get(prefixAlarmEvent+id, &e)
	return e, err
}

// Events lists every saved alarm event, optionally filtered to one alarm.
func (s *Store) Events(alarmID string) []model.AlarmEvent {
	var out []model.AlarmEvent
	_ = s.scan(prefixAlarmEvent, func(val []byte) error {
		var e model.AlarmEvent
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if alarmID == "" || e.AlarmID == alarmID {
			out = append(out, e)
		}
		return nil
	})
	return out
}

// --- Retention policies ---

// CreatePolicy persists a retention policy keyed by its Name.
func (s *Store) CreatePolicy(p model.RetentionPolicy) error {
	return s.put(prefixRetention+p.Name, p)
}

// UpdatePolicy overwrites an existing policy by Name.
func (s *Store) UpdatePolicy(p model.RetentionPolicy) error {
	return s.put(prefixRetention+p.Name, p)
}

// GetPolicy fetches a single policy by Name.
func (s *Store) GetPolicy(name string) (model.RetentionPolicy, error) {
	var p model.RetentionPolicy
	err := s.get(prefixRetention+name, &p)
	return p, err
}

// DeletePolicy removes a policy by Name.
func (s *Store) DeletePolicy(name string) error {
	return s.delete(prefixRetention + name)
}

// Policies lists every saved retention policy; satisfies retention.PolicyStore.
func (s *Store) Policies() []model.RetentionPolicy {
	var out []model.RetentionPolicy
	_ = s.scan(prefixRetention, func(val []byte) error {
		var p model.RetentionPolicy
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out
}

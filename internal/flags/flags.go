// Package flags is the small durable key-value capability used to remember
// client-side facts across restarts, such as "goal 3 was done on 2024-05-15".
package flags

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sadopc/moodlog/internal/store"
)

// ErrUnavailable is returned by stores that cannot persist anything.
var ErrUnavailable = errors.New("flag store unavailable")

// Store is a durable string key-value store. Get reports ok=false for a
// missing key; Remove of a missing key is not an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys() []string
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// Disabled models storage that is switched off. Every call fails with
// ErrUnavailable.
type Disabled struct{}

func (Disabled) Get(string) (string, bool, error) { return "", false, ErrUnavailable }
func (Disabled) Set(string, string) error         { return ErrUnavailable }
func (Disabled) Remove(string) error              { return ErrUnavailable }

// SettingsStore is the subset of *store.Store used by Settings.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Settings keeps flags in the journal database's settings table, under a
// "flag." prefix so they never collide with preferences.
type Settings struct {
	db SettingsStore
}

func NewSettings(db SettingsStore) *Settings {
	return &Settings{db: db}
}

const settingsPrefix = "flag."

func (s *Settings) Get(key string) (string, bool, error) {
	v, err := s.db.GetSetting(settingsPrefix + key)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get flag %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Settings) Set(key, value string) error {
	if err := s.db.SetSetting(settingsPrefix+key, value); err != nil {
		return fmt.Errorf("set flag %q: %w", key, err)
	}
	return nil
}

func (s *Settings) Remove(key string) error {
	if err := s.db.DeleteSetting(settingsPrefix + key); err != nil {
		return fmt.Errorf("remove flag %q: %w", key, err)
	}
	return nil
}

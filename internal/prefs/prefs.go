// Package prefs persists small per-employee view state (navigation history,
// selections, theme, settings tab) as namespaced JSON values.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/store"
	"gorm.io/datatypes"
)

// Keys used by the application.
const (
	KeyNavHistory      = "nav.history"
	KeySelectedRequest = "selected.request"
	KeySelectedClient  = "selected.client"
	KeyTheme           = "theme"
	KeySettingsTab     = "settings.tab"
)

// ErrInvalidKey is returned for empty or over-long keys.
var ErrInvalidKey = errors.New("invalid_key")

const maxKeyLen = 100

// Store reads and writes per-owner values.
type Store struct {
	table *store.Table[models.ClientState]
}

// New returns a Store backed by the client_states table.
func New(table *store.Table[models.ClientState]) *Store {
	return &Store{table: table}
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > maxKeyLen {
		return ErrInvalidKey
	}
	return nil
}

// Raw returns the stored JSON for key, and whether it exists.
func (s *Store) Raw(ctx context.Context, owner, key string) (json.RawMessage, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	row, err := s.table.First(ctx, store.Eq("owner", owner), store.Eq("key", key))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return json.RawMessage(row.Value), true, nil
}

// Get decodes the value stored under key into dst. It reports false when the
// key is absent, leaving dst untouched.
func (s *Store) Get(ctx context.Context, owner, key string, dst any) (bool, error) {
	raw, ok, err := s.Raw(ctx, owner, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, owner, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	row := models.ClientState{Owner: owner, Key: key, Value: datatypes.JSON(raw)}
	if err := s.table.Upsert(ctx, &row); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, owner, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.table.DeleteBy(ctx, store.Eq("owner", owner), store.Eq("key", key))
	return err
}

// All returns every value stored for owner, keyed by name.
func (s *Store) All(ctx context.Context, owner string) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	rows, err := s.table.Select(ctx, store.Eq("owner", owner))
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Key] = json.RawMessage(r.Value)
	}
	return out, nil
}

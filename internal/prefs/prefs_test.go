package prefs

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/diewo77/inspection-workshop/internal/db"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestPrefs(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return New(store.NewTable[models.ClientState](gdb))
}

func TestSetGetDelete(t *testing.T) {
	p := newTestPrefs(t)
	ctx := context.Background()

	var got []string
	ok, err := p.Get(ctx, "emp1", KeyNavHistory, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Set(ctx, "emp1", KeyNavHistory, []string{"dashboard", "requests"}))
	ok, err = p.Get(ctx, "emp1", KeyNavHistory, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"dashboard", "requests"}, got)

	// overwrite
	require.NoError(t, p.Set(ctx, "emp1", KeyNavHistory, []string{"clients"}))
	_, err = p.Get(ctx, "emp1", KeyNavHistory, &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"clients"}, got)

	require.NoError(t, p.Delete(ctx, "emp1", KeyNavHistory))
	ok, err = p.Get(ctx, "emp1", KeyNavHistory, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnersAreIsolated(t *testing.T) {
	p := newTestPrefs(t)
	ctx := context.Background()
	require.NoError(t, p.Set(ctx, "a", KeyTheme, "dark"))
	require.NoError(t, p.Set(ctx, "b", KeyTheme, "light"))
	require.NoError(t, p.Set(ctx, "a", KeySettingsTab, "report"))

	var theme string
	_, err := p.Get(ctx, "b", KeyTheme, &theme)
	require.NoError(t, err)
	assert.Equal(t, "light", theme)

	all, err := p.All(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.JSONEq(t, `"report"`, string(all[KeySettingsTab]))
}

func TestInvalidKey(t *testing.T) {
	p := newTestPrefs(t)
	ctx := context.Background()
	assert.ErrorIs(t, p.Set(ctx, "a", " ", 1), ErrInvalidKey)
	assert.ErrorIs(t, p.Delete(ctx, "a", strings.Repeat("k", 101)), ErrInvalidKey)
}

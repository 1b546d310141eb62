package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvelikov/climate-controller/internal/model"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	cfgs := map[string]model.RoomConfig{
		"room1": {MinTemp: 18, MaxTemp: 24, ManualHeat: true},
		"room2": {MinTemp: 20, MaxTemp: 25, ManualCool: true},
	}
	require.NoError(t, store.Save(cfgs))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cfgs, loaded)
}

func TestLoadEmptyStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveOverwritesExistingRows(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(map[string]model.RoomConfig{
		"room1": {MinTemp: 20, MaxTemp: 25},
	}))
	require.NoError(t, store.Save(map[string]model.RoomConfig{
		"room1": {MinTemp: 19, MaxTemp: 26, ManualCool: true},
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, model.RoomConfig{MinTemp: 19, MaxTemp: 26, ManualCool: true}, loaded["room1"])
}

func TestReopenKeepsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(map[string]model.RoomConfig{
		"room1": {MinTemp: 17, MaxTemp: 22},
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, 17, loaded["room1"].MinTemp)
}

// An unusable database path falls back to an in-memory store: the controller
// starts with defaults and keeps running.
func TestOpenFallsBackToMemory(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, store.Save(map[string]model.RoomConfig{
		"room1": model.DefaultRoomConfig(),
	}))
}

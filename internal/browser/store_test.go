package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	home := t.TempDir()
	store := NewStore(home)

	info := SessionInfo{
		WSURL:    "ws://127.0.0.1:9333/devtools/browser/abc",
		Profile:  "work",
		Headful:  true,
		PID:      4242,
		TargetID: "T1",
		Engine:   EngineRod,
	}
	require.NoError(t, store.Save("alpha", info))
	require.NoError(t, store.Save("beta", SessionInfo{WSURL: "ws://b"}))

	t.Run("load round trips", func(t *testing.T) {
		got, err := store.Load("alpha")
		require.NoError(t, err)
		assert.Equal(t, info, *got)
	})

	t.Run("file layout uses snake case keys", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(home, "sessions", "alpha.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"ws_url":"ws://127.0.0.1:9333/devtools/browser/abc"`)
		assert.Contains(t, string(data), `"target_id":"T1"`)
	})

	t.Run("files written by older versions load without engine", func(t *testing.T) {
		legacy := `{"ws_url":"ws://old","profile":"default","headful":false,"pid":7,"target_id":""}`
		require.NoError(t, os.WriteFile(filepath.Join(home, "sessions", "legacy.json"), []byte(legacy), 0o644))
		got, err := store.Load("legacy")
		require.NoError(t, err)
		assert.Equal(t, 7, got.PID)
		assert.Empty(t, got.Engine)
	})

	t.Run("list is sorted and ignores other files", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(home, "sessions", "notes.txt"), nil, 0o644))
		names, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta", "legacy"}, names)
	})

	t.Run("remove deletes the session", func(t *testing.T) {
		require.NoError(t, store.Remove("beta"))
		_, err := store.Load("beta")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, store.Remove("beta"), ErrSessionNotFound)
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := store.Load("nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("names cannot escape the store", func(t *testing.T) {
		for _, name := range []string{"", "..", "../x", `a\b`} {
			assert.Error(t, store.Save(name, info), name)
		}
	})
}

func TestStoreListEmpty(t *testing.T) {
	names, err := NewStore(t.TempDir()).List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/cache")
	assert.Equal(t, "/cache/mesagrid/mesagrid.log", Path())

	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/someone")
	assert.Equal(t, "/home/someone/.local/share/mesagrid/mesagrid.log", Path())
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mesagrid.log")
	var console bytes.Buffer

	logger, closer, err := New(path, false, &console)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("to file only")
	logger.WithField("group", "controls").Error("unknown option")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "to file only")
	assert.Contains(t, string(data), "unknown option")

	assert.False(t, strings.Contains(console.String(), "to file only"))
	assert.Contains(t, console.String(), "unknown option")
	assert.Contains(t, console.String(), "controls")
}

func TestNewDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesagrid.log")
	logger, closer, err := New(path, true, nil)
	require.NoError(t, err)
	logger.Debug("visible")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestFileEntriesAreJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesagrid.log")
	logger, closer, err := New(path, false, nil)
	require.NoError(t, err)
	logger.WithField("group", "controls").Error("unknown option")
	logger.Info("done")
	require.NoError(t, closer.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), sc.Text())
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, entries, 2)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "unknown option", entries[0]["msg"])
	assert.Equal(t, "controls", entries[0]["group"])
	assert.Equal(t, "info", entries[1]["level"])
}

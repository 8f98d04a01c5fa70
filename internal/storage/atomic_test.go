package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string `json:"name"`
}

func TestWriteJSON_ReadJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.json")
	require.NoError(t, WriteJSON(path, widget{Name: "a"}))

	var got widget
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, "a", got.Name)
}

func TestWriteRecord_StampsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.json")
	require.NoError(t, WriteRecord(path, "w1", widget{Name: "a"}))

	header, got, err := ReadRecord[widget](path)
	require.NoError(t, err)
	assert.Equal(t, "w1", header.ID)
	assert.Equal(t, CurrentSchemaVersion, header.SchemaVersion)
	assert.NotEmpty(t, header.LastUpdated)
	assert.Equal(t, "a", got.Name)
}

func TestWriteRecord_PayloadUnwrappedHasNoHeaderFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.json")
	require.NoError(t, WriteRecord(path, "w1", widget{Name: "a"}))

	var bare widget
	require.NoError(t, ReadJSON(path, &bare))
	assert.Equal(t, "", bare.Name, "widget has no top-level name field in a wrapped Record; it lives under data")
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(filepath.Join(dir, "missing.json")))

	path := filepath.Join(dir, "present.json")
	require.NoError(t, WriteJSON(path, widget{Name: "a"}))
	assert.True(t, Exists(path))
}

package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/helping-hands/pkg/db"
	"github.com/jakechorley/helping-hands/pkg/db/dbtest"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(database.Close)
	return database
}

func TestSQLite_Contract(t *testing.T) {
	dbtest.RunContract(t, func(t *testing.T) db.Database {
		return openTemp(t)
	})
}

func TestEnsureDirForSQLite(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		dsn  string
	}{
		{name: "memory", dsn: ":memory:"},
		{name: "memory mode", dsn: "file:test?mode=memory"},
		{name: "bare file", dsn: "test.db"},
		{name: "nested file with params", dsn: "file:" + filepath.Join(dir, "a", "b", "test.db") + "?_busy_timeout=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, ensureDirForSQLite(tt.dsn))
		})
	}
	assert.DirExists(t, filepath.Join(dir, "a", "b"))
}

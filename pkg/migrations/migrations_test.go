package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const schema = `create table if not exists item (id integer primary key, name text not null);`

func TestOpenAndMigrateDBIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := OpenAndMigrateDB(schema, path)
	require.NoError(t, err)
	_, err = db.Exec("insert into item(name) values ('a')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenAndMigrateDB(schema, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("select count(*) from item").Scan(&count))
	require.Equal(t, 1, count)
}

func TestOpenAndMigrateDBBadSchema(t *testing.T) {
	_, err := OpenAndMigrateDB("create tabel nope", MemoryPath)
	require.Error(t, err)
}

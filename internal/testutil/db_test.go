package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTestDB_SharesOneDatabase(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec(`CREATE TABLE t (v TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (v) VALUES ('a')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&count))
	require.Equal(t, 1, count)
}

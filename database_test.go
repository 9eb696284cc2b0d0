package kernc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseDBConnString(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Database
		expectErr bool
	}{
		{name: "inmem", input: "inmem", expect: Database{Type: DatabaseInMemory}},
		{name: "inmem mixed case", input: " InMem ", expect: Database{Type: DatabaseInMemory}},
		{name: "sqlite", input: "sqlite:/var/kernc", expect: Database{Type: DatabaseSQLite, DataDir: "/var/kernc"}},
		{name: "sqlite without dir", input: "sqlite", expectErr: true},
		{name: "inmem with params", input: "inmem:/tmp", expectErr: true},
		{name: "none", input: "none", expectErr: true},
		{name: "unknown", input: "postgres:localhost", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseDBConnString(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Database_Validate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Database{Type: DatabaseInMemory}.Validate())
	assert.NoError(Database{Type: DatabaseSQLite, DataDir: "/data"}.Validate())
	assert.Error(Database{Type: DatabaseSQLite}.Validate())
	assert.Error(Database{Type: DatabaseNone}.Validate())
	assert.Error(Database{Type: "mongo"}.Validate())
}

func Test_Database_Connect(t *testing.T) {
	testCases := []struct {
		name string
		db   Database
	}{
		{name: "inmem", db: Database{Type: DatabaseInMemory}},
		{name: "sqlite", db: Database{Type: DatabaseSQLite, DataDir: filepath.Join(t.TempDir(), "nested", "cache")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			store, err := tc.db.Connect()
			if !assert.NoError(err) {
				return
			}
			defer store.Close()

			all, err := store.All(context.Background())
			assert.NoError(err)
			assert.Empty(all)
		})
	}

	_, err := Database{Type: DatabaseNone}.Connect()
	assert.Error(t, err)
}

func Test_Database_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("inmem", Database{Type: DatabaseInMemory}.String())
	assert.Equal("sqlite:/data", Database{Type: DatabaseSQLite, DataDir: "/data"}.String())
}

// Package sqlite provides a build cache persisted in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dekarrin/kernc/internal/cache"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

// DBFilename is the name of the database file created in the storage
// directory.
const DBFilename = "builds.db"

// Store is a cache.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the build database in storageDir.
func NewStore(storageDir string) (*Store, error) {
	return NewStoreConn(filepath.Join(storageDir, DBFilename))
}

// NewStoreConn opens or creates the build database in the given file.
func NewStoreConn(file string) (*Store, error) {
	st := &Store{}

	var err error
	st.db, err = sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}
	// writers must not race each other for the file lock
	st.db.SetMaxOpenConns(1)

	return st, st.init()
}

func (st *Store) init() error {
	_, err := st.db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		id TEXT NOT NULL PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		version TEXT NOT NULL,
		mode TEXT NOT NULL,
		data TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (st *Store) Close() error {
	return st.db.Close()
}

func (st *Store) Put(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := cache.NewID()
	if err != nil {
		return cache.Entry{}, err
	}
	e.ID = newUUID
	e.Created = time.Unix(time.Now().Unix(), 0)

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM builds WHERE key = ?;`, e.Key); err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO builds (id, key, version, mode, data, created) VALUES (?, ?, ?, ?, ?, ?);`,
		e.ID.String(),
		e.Key,
		e.Version,
		e.Mode,
		encodeEntry(e),
		e.Created.Unix(),
	)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	return st.GetByID(ctx, e.ID)
}

func (st *Store) Get(ctx context.Context, key string) (cache.Entry, error) {
	row := st.db.QueryRowContext(ctx, `SELECT id, data FROM builds WHERE key = ?;`, key)
	return scanEntry(row)
}

func (st *Store) GetByID(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	row := st.db.QueryRowContext(ctx, `SELECT id, data FROM builds WHERE id = ?;`, id.String())
	return scanEntry(row)
}

func (st *Store) All(ctx context.Context) ([]cache.Entry, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT id, data FROM builds ORDER BY id;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []cache.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return all, err
		}
		all = append(all, e)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (st *Store) Delete(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	curVal, err := st.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := st.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?;`, id.String())
	if err != nil {
		return curVal, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return curVal, wrapDBError(err)
	}
	if rowsAff < 1 {
		return curVal, cache.ErrNotFound
	}

	return curVal, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (cache.Entry, error) {
	var id string
	var data string

	if err := row.Scan(&id, &data); err != nil {
		return cache.Entry{}, wrapDBError(err)
	}

	var e cache.Entry
	if err := decodeEntry(data, &e); err != nil {
		return cache.Entry{}, fmt.Errorf("stored data for %s is invalid: %w", id, err)
	}

	var err error
	e.ID, err = uuid.Parse(id)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("stored UUID %q is invalid", id)
	}
	return e, nil
}

func encodeEntry(e cache.Entry) string {
	return base64.StdEncoding.EncodeToString(rezi.EncBinary(e))
}

func decodeEntry(data string, e *cache.Entry) error {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return err
	}
	_, err = rezi.DecBinary(raw, e)
	return err
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 19 {
			return cache.ErrConstraintViolation
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return cache.ErrNotFound
	}
	return err
}

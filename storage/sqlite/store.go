// Package sqlite persists the pool registry in a SQLite database. Every registry mutation is
// journaled before it is committed in memory, and Load rebuilds the last committed view.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/ethereum/go-ethereum/common"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	idx     INTEGER PRIMARY KEY,
	pool    TEXT NOT NULL UNIQUE,
	token_x TEXT NOT NULL,
	token_y TEXT NOT NULL,
	UNIQUE (token_x, token_y)
);

CREATE TABLE IF NOT EXISTS admin (
	id      INTEGER PRIMARY KEY CHECK (id = 0),
	owner   TEXT NOT NULL,
	fee_to  TEXT NOT NULL,
	sweeper TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

const sequenceKey = "sequence"

// ErrEmpty is returned by Load when nothing has been journaled yet.
var ErrEmpty = errors.New("sqlite: store is empty")

// Store is a poolfactory.Journal backed by SQLite.
type Store struct {
	db     *sql.DB
	logger poolfactory.Logger
}

var _ poolfactory.Journal = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger poolfactory.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("config: Logger cannot be nil")
	}
	logger.Debug("Opening database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("Connected to database", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init stores the initial admin identities of an empty registry. It is a no-op when the store
// already holds state.
func (s *Store) Init(ctx context.Context, admin poolfactory.Admin) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO admin (id, owner, fee_to, sweeper) VALUES (0, ?, ?, ?)`,
			admin.Owner.Hex(), admin.FeeTo.Hex(), admin.Sweeper.Hex(),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO meta (key, value) VALUES (?, 0)`, sequenceKey)
		return err
	})
}

// RecordPool appends a pool entry and advances the sequence.
func (s *Store) RecordPool(ctx context.Context, entry poolfactory.PoolEntry, sequence uint64) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pools (idx, pool, token_x, token_y) VALUES (?, ?, ?, ?)`,
			int64(entry.Index), entry.Pool.Hex(), entry.TokenX.Hex(), entry.TokenY.Hex(),
		); err != nil {
			return err
		}
		return setSequence(ctx, tx, sequence)
	})
}

// RecordAdmin replaces the admin identities and advances the sequence.
func (s *Store) RecordAdmin(ctx context.Context, admin poolfactory.Admin, sequence uint64) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO admin (id, owner, fee_to, sweeper) VALUES (0, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET owner = excluded.owner, fee_to = excluded.fee_to, sweeper = excluded.sweeper`,
			admin.Owner.Hex(), admin.FeeTo.Hex(), admin.Sweeper.Hex(),
		); err != nil {
			return err
		}
		return setSequence(ctx, tx, sequence)
	})
}

// Load reads the last committed view. It returns ErrEmpty if Init was never called.
func (s *Store) Load(ctx context.Context) (poolfactory.View, error) {
	var view poolfactory.View

	var owner, feeTo, sweeper string
	err := s.db.QueryRowContext(ctx, `SELECT owner, fee_to, sweeper FROM admin WHERE id = 0`).Scan(&owner, &feeTo, &sweeper)
	if errors.Is(err, sql.ErrNoRows) {
		return view, ErrEmpty
	}
	if err != nil {
		return view, fmt.Errorf("load admin: %w", err)
	}
	view.Admin = poolfactory.Admin{
		Owner:   common.HexToAddress(owner),
		FeeTo:   common.HexToAddress(feeTo),
		Sweeper: common.HexToAddress(sweeper),
	}

	var seq int64
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, sequenceKey).Scan(&seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return view, fmt.Errorf("load sequence: %w", err)
	}
	view.Sequence = uint64(seq)

	rows, err := s.db.QueryContext(ctx, `SELECT idx, pool, token_x, token_y FROM pools ORDER BY idx`)
	if err != nil {
		return view, fmt.Errorf("load pools: %w", err)
	}
	defer rows.Close()

	view.Pools = make([]poolfactory.PoolEntry, 0)
	for rows.Next() {
		var (
			idx                  int64
			pool, tokenX, tokenY string
		)
		if err := rows.Scan(&idx, &pool, &tokenX, &tokenY); err != nil {
			return view, fmt.Errorf("scan pool: %w", err)
		}
		view.Pools = append(view.Pools, poolfactory.PoolEntry{
			Index:  uint64(idx),
			Pool:   common.HexToAddress(pool),
			TokenX: common.HexToAddress(tokenX),
			TokenY: common.HexToAddress(tokenY),
		})
	}
	if err := rows.Err(); err != nil {
		return view, fmt.Errorf("load pools: %w", err)
	}

	s.logger.Debug("Loaded registry", "pools", len(view.Pools), "sequence", view.Sequence)
	return view, nil
}

func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func setSequence(ctx context.Context, tx *sql.Tx, sequence uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		sequenceKey, int64(sequence),
	)
	return err
}
